package rawsql

import (
	"context"
	"database/sql"
)

// Querier is implemented by *sql.DB, *sql.Tx, *sql.Conn, and any wrapper
// that can execute a query returning rows.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer is implemented by *sql.DB, *sql.Tx, *sql.Conn, and any wrapper
// that can execute a statement that does not return rows.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// TableNamer names a model. The name is used in error messages and to derive
// many-to-many join tables.
type TableNamer interface {
	TableName() string
}

// rowScanner is the part of *sql.Rows the materializer needs.
type rowScanner interface {
	Scan(dest ...any) error
}
