package rawsql

import (
	"context"
	"fmt"
	"reflect"
)

// Raw prepares a raw SELECT whose rows are materialized as T.
//
// The statement is checked right away: anything but SELECT returns
// *InvalidQueryError, and a T whose `db` tags do not describe a valid model
// returns an error wrapping ErrInvalidModel. The query itself runs on first
// use of the returned ResultSet; args are handed to the driver unchanged.
//
// Example:
//
//	type Author struct {
//	    ID        int64  `db:"id,pk"`
//	    FirstName string `db:"first_name"`
//	    LastName  string `db:"last_name"`
//	    DOB       string `db:"dob"`
//	}
//
//	rs, err := rawsql.Raw[Author](ctx, db, `
//	    SELECT a.*, count(b.id) AS book_count
//	    FROM author a LEFT JOIN book b ON b.author_id = a.id
//	    GROUP BY a.id ORDER BY a.id`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, row := range rs.All() {
//	    n, _ := row.Annotation("book_count")
//	    fmt.Println(row.Model.FirstName, n)
//	}
//	if err := rs.Err(); err != nil {
//	    log.Fatal(err)
//	}
func Raw[T any](ctx context.Context, q Querier, query string, args ...any) (*ResultSet[T], error) {
	return RawTranslated[T](ctx, q, query, nil, args...)
}

// RawTranslated is Raw with per-call translations from result column names
// to logical field names. Translations naming unknown columns or fields are
// ignored.
//
//	rs, err := rawsql.RawTranslated[Author](ctx, db,
//	    `SELECT id, first AS fname, last_name, dob FROM author`,
//	    rawsql.Translations{"fname": "first_name"})
func RawTranslated[T any](ctx context.Context, q Querier, query string, tr Translations, args ...any) (*ResultSet[T], error) {
	if err := checkReadOnly(query); err != nil {
		return nil, err
	}
	m := getMapper()
	rt := reflect.TypeOf((*T)(nil)).Elem()
	s, err := m.schemaOf(rt)
	if err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return newResultSet[T](ctx, m, q, rt, s, query, tr, args), nil
}

// RawRecords is Raw for a model declared at runtime with NewSchema. Each row
// is a Record keyed by logical field name.
func RawRecords(ctx context.Context, q Querier, s *Schema, query string, tr Translations, args ...any) (*ResultSet[Record], error) {
	if err := checkReadOnly(query); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrInvalidModel)
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.rt != nil {
		return nil, fmt.Errorf("%w: %s is bound to %s; use Raw", ErrInvalidModel, s.Name, s.rt)
	}
	return newResultSet[Record](ctx, getMapper(), q, reflect.TypeOf(Record(nil)), s, query, tr, args), nil
}
