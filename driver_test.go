package rawsql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync/atomic"
	"testing"
)

type DBHandler func(query string, args []driver.NamedValue) (cols []string, rows [][]driver.Value, err error)

type testConnector struct {
	h     DBHandler
	calls atomic.Int64 // QueryContext calls reaching the driver
}

func (c *testConnector) Connect(context.Context) (driver.Conn, error) { return &testConn{c: c}, nil }
func (c *testConnector) Driver() driver.Driver                        { return testDriver{} }

type testDriver struct{}

func (testDriver) Open(name string) (driver.Conn, error) {
	return nil, errors.New("testDriver.Open should not be called; use sql.OpenDB with connector")
}

type testConn struct {
	c *testConnector
}

func (c *testConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *testConn) Close() error                        { return nil }
func (c *testConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

func (c *testConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.c.calls.Add(1)
	cols, data, err := c.c.h(query, args)
	if err != nil {
		return nil, err
	}
	return &testRows{cols: cols, data: data}, nil
}

type testRows struct {
	cols []string
	data [][]driver.Value
	i    int
}

func (r *testRows) Columns() []string { return append([]string(nil), r.cols...) }
func (r *testRows) Close() error      { return nil }
func (r *testRows) Next(dest []driver.Value) error {
	if r.i >= len(r.data) {
		return io.EOF
	}
	row := r.data[r.i]
	for i := range dest {
		if i < len(row) {
			dest[i] = row[i]
		} else {
			dest[i] = nil
		}
	}
	r.i++
	return nil
}

// newTestDB creates a *sql.DB backed by the in-memory test driver.
func newTestDB(t *testing.T, h DBHandler) *sql.DB {
	t.Helper()
	db, _ := newSpyDB(t, h)
	return db
}

// newSpyDB is newTestDB that also exposes the driver, to count queries.
func newSpyDB(t *testing.T, h DBHandler) (*sql.DB, *testConnector) {
	t.Helper()
	c := &testConnector{h: h}
	db := sql.OpenDB(c)
	t.Cleanup(func() { _ = db.Close() })
	return db, c
}

// fixed returns a handler that always answers with cols and rows.
func fixed(cols []string, rows ...[]driver.Value) DBHandler {
	return func(string, []driver.NamedValue) ([]string, [][]driver.Value, error) {
		return cols, rows, nil
	}
}
