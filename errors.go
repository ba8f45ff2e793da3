package rawsql

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidQuery is matched by every *InvalidQueryError.
	ErrInvalidQuery = errors.New("rawsql: invalid raw query")

	// ErrInsufficientFields is matched by every *InsufficientFieldsError.
	ErrInsufficientFields = errors.New("rawsql: insufficient fields")

	// ErrInvalidModel is wrapped by errors describing a model that cannot be
	// used for raw queries (no identity field, duplicate names, not a struct).
	ErrInvalidModel = errors.New("rawsql: invalid model")
)

// InvalidQueryError reports a raw query that is not a read-only statement.
// It is returned by Raw before the database is touched.
type InvalidQueryError struct {
	Statement string // leading keyword, or first character if there is none, upper-cased; empty for a blank query
	Query     string
}

func (e *InvalidQueryError) Error() string {
	if e.Statement == "" {
		return "rawsql: raw query must be a SELECT statement, got an empty query"
	}
	return fmt.Sprintf("rawsql: raw query must be a SELECT statement, got %s", e.Statement)
}

func (e *InvalidQueryError) Unwrap() error { return ErrInvalidQuery }

// InsufficientFieldsError reports a raw query whose result set lacks columns
// for required model fields. No row is materialized when it occurs.
type InsufficientFieldsError struct {
	Model   string
	Missing []string // logical field names, declaration order
}

func (e *InsufficientFieldsError) Error() string {
	return fmt.Sprintf("rawsql: raw query for %s is missing required fields: %s",
		e.Model, strings.Join(e.Missing, ", "))
}

func (e *InsufficientFieldsError) Unwrap() error { return ErrInsufficientFields }
