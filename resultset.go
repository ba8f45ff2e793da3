package rawsql

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"slices"
	"sync"
)

type resultState uint8

const (
	stateUnevaluated resultState = iota
	stateEvaluated
	stateFailed
)

// ResultSet is the lazily evaluated result of a raw query.
//
// Nothing runs until the first call to Len, At, Rows, Models, All,
// Annotations or Err. That call executes the query, resolves the result
// columns against the model, materializes every row and releases the cursor.
// Its outcome is kept: later calls return the same rows (or the same error)
// without querying again. A ResultSet is safe for concurrent use.
type ResultSet[T any] struct {
	// query inputs; released after evaluation
	ctx   context.Context
	m     *Mapper
	q     Querier
	rt    reflect.Type
	s     *Schema
	query string
	tr    Translations
	args  []any

	mu    sync.Mutex
	state resultState
	rows  []*Row[T]
	names []string
	err   error
}

func newResultSet[T any](ctx context.Context, m *Mapper, q Querier, rt reflect.Type, s *Schema, query string, tr Translations, args []any) *ResultSet[T] {
	return &ResultSet[T]{
		ctx:   ctx,
		m:     m,
		q:     q,
		rt:    rt,
		s:     s,
		query: query,
		tr:    tr,
		args:  args,
	}
}

// Query returns the SQL text the result set was built from.
func (rs *ResultSet[T]) Query() string { return rs.query }

// Len returns the number of rows.
func (rs *ResultSet[T]) Len() (int, error) {
	if err := rs.load(); err != nil {
		return 0, err
	}
	return len(rs.rows), nil
}

// At returns the row at index i.
func (rs *ResultSet[T]) At(i int) (*Row[T], error) {
	if err := rs.load(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(rs.rows) {
		return nil, fmt.Errorf("rawsql: row index %d out of range [0:%d]", i, len(rs.rows))
	}
	return rs.rows[i], nil
}

// Rows returns every row, in result order.
func (rs *ResultSet[T]) Rows() ([]*Row[T], error) {
	if err := rs.load(); err != nil {
		return nil, err
	}
	return slices.Clone(rs.rows), nil
}

// Models returns the model instances without their annotations.
func (rs *ResultSet[T]) Models() ([]T, error) {
	if err := rs.load(); err != nil {
		return nil, err
	}
	out := make([]T, len(rs.rows))
	for i, r := range rs.rows {
		out[i] = r.Model
	}
	return out, nil
}

// All iterates over the rows. It yields nothing when evaluation fails; check
// Err afterwards.
func (rs *ResultSet[T]) All() iter.Seq2[int, *Row[T]] {
	return func(yield func(int, *Row[T]) bool) {
		if rs.load() != nil {
			return
		}
		for i, r := range rs.rows {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Annotations returns the names of the result columns that did not resolve
// to model fields, as the driver returned them, in result order. Every row carries a value for each.
func (rs *ResultSet[T]) Annotations() ([]string, error) {
	if err := rs.load(); err != nil {
		return nil, err
	}
	return slices.Clone(rs.names), nil
}

// Err evaluates the result set if needed and returns the failure, if any.
func (rs *ResultSet[T]) Err() error { return rs.load() }

func (rs *ResultSet[T]) load() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	switch rs.state {
	case stateEvaluated:
		return nil
	case stateFailed:
		return rs.err
	}

	rows, names, err := rs.fetch()
	if err != nil {
		rs.state, rs.err = stateFailed, err
	} else {
		rs.state, rs.rows, rs.names = stateEvaluated, rows, names
		rs.m.debug("rawsql: raw query evaluated", "model", rs.s.Name, "rows", len(rows))
	}
	rs.ctx, rs.q, rs.args = nil, nil, nil
	return err
}

func (rs *ResultSet[T]) fetch() (out []*Row[T], names []string, err error) {
	rows, err := rs.q.QueryContext(rs.ctx, rs.query, rs.args...)
	if err != nil {
		return nil, nil, err
	}
	// Propagate rows.Close() error if nothing else failed.
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			out, names, err = nil, nil, cerr
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	p, err := rs.m.rawPlan(rs.rt, rs.s, cols, rs.tr)
	if err != nil {
		return nil, nil, err
	}

	for rows.Next() {
		rv := p.newInstance()
		ann, err := p.scan(rows, rv)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, &Row[T]{
			Model:  rv.Elem().Interface().(T),
			names:  p.annotations,
			values: ann,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return out, p.annotations, nil
}
