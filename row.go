package rawsql

import "slices"

// HasAnnotations is implemented by materialized rows that carry values for
// result columns outside the model's declared fields.
type HasAnnotations interface {
	AnnotationNames() []string
	Annotation(name string) (any, bool)
}

// Row is one materialized result of a raw query: the model instance plus the
// annotation values of that row.
type Row[T any] struct {
	Model T

	names  []string // shared by every row of a result set
	values []any
}

var _ HasAnnotations = (*Row[Record])(nil)

// AnnotationNames returns the extra column names, in result order.
func (r *Row[T]) AnnotationNames() []string { return slices.Clone(r.names) }

// Annotation returns the value of the extra column name. An exact match wins;
// otherwise names are matched case-insensitively, without identifier quotes,
// and the first such column is returned.
func (r *Row[T]) Annotation(name string) (any, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	name = normalizeColAscii(name)
	for i, n := range r.names {
		if normalizeColAscii(n) == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// Record is the instance type of models declared with NewSchema: field values
// keyed by logical field name.
type Record map[string]any
