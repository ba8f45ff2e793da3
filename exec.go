package rawsql

import (
	"context"
	"database/sql"
)

// Exec executes a statement that does not return rows (INSERT, UPDATE, DELETE, DDL).
//
// It forwards to the underlying [Execer] and is the write-side counterpart of
// Raw, which only accepts SELECT. Arguments go to the driver unchanged.
//
// Example:
//
//	_, err := rawsql.Exec(ctx, db, `INSERT INTO author (first_name, last_name, dob) VALUES (?, ?, ?)`,
//	    "Joe", "Smith", "1950-09-20")
func Exec(ctx context.Context, e Execer, query string, args ...any) (sql.Result, error) {
	return e.ExecContext(ctx, query, args...)
}
