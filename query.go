package rawsql

import (
	"context"
	"reflect"
)

// Query executes the SQL query and scans all result rows into a slice of T.
//
// Query is the ordinary fetch path: unlike Raw it accepts any statement,
// drops extra columns instead of keeping them as annotations, and leaves
// fields without a column at their zero value. T may be a struct described by
// `db` tags, a primitive, or any type implementing [sql.Scanner].
//
// Example:
//
//	authors, err := rawsql.Query[Author](ctx, db, `SELECT * FROM author ORDER BY id`)
//	if err != nil {
//	    log.Fatal(err)
//	}
func Query[T any](ctx context.Context, q Querier, query string, args ...any) (out []T, err error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	// Propagate rows.Close() error if nothing else failed.
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	p, err := getMapper().lenientPlan(reflect.TypeOf((*T)(nil)).Elem(), cols)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		rv := p.newInstance()
		if _, err := p.scan(rows, rv); err != nil {
			return nil, err
		}
		out = append(out, rv.Elem().Interface().(T))
	}
	if ne := rows.Err(); ne != nil {
		return nil, ne
	}
	return out, nil
}
