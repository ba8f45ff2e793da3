package rawsql

import (
	"context"
	"database/sql"
	"reflect"
)

// Get executes the SQL query and scans the first row into a value of type T.
//
// It returns [sql.ErrNoRows] if the query yields no rows; further rows are
// ignored. Mapping follows Query: extra columns are dropped and missing
// columns leave zero values.
//
// Example:
//
//	n, err := rawsql.Get[int64](ctx, db, `SELECT count(*) FROM book WHERE author_id = ?`, 1)
func Get[T any](ctx context.Context, q Querier, query string, args ...any) (out T, err error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return out, err
	}
	// Ensure Close error is propagated if no earlier error occurred.
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if !rows.Next() {
		if ne := rows.Err(); ne != nil {
			return out, ne
		}
		return out, sql.ErrNoRows
	}

	cols, err := rows.Columns()
	if err != nil {
		return out, err
	}
	p, err := getMapper().lenientPlan(reflect.TypeOf((*T)(nil)).Elem(), cols)
	if err != nil {
		return out, err
	}
	rv := p.newInstance()
	if _, err := p.scan(rows, rv); err != nil {
		return out, err
	}
	return rv.Elem().Interface().(T), nil
}
