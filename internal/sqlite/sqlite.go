// Package sqlite opens SQLite databases through database/sql with either the
// pure Go modernc.org/sqlite driver (default) or mattn/go-sqlite3 (build with
// -tags cgo_sqlite and CGO_ENABLED=1).
//
// Use Open instead of sql.Open so callers never depend on the driver name.
package sqlite

import (
	"database/sql"
	"fmt"
)

// DriverName returns the database/sql driver name in use.
func DriverName() string { return driverName }

// DriverType returns "purego" for modernc.org/sqlite and "cgo" for mattn/go-sqlite3.
func DriverType() string { return driverType }

// Open opens a SQLite database.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenMemory opens a private in-memory database. The pool is limited to one
// connection, since every new connection would see an empty database.
func OpenMemory() (*sql.DB, error) {
	db, err := Open(":memory:")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// MustOpenMemory is OpenMemory for tests and initialization code.
func MustOpenMemory() *sql.DB {
	db, err := OpenMemory()
	if err != nil {
		panic(fmt.Sprintf("sqlite: failed to open in-memory database: %v", err))
	}
	return db
}
