package rawsql

import (
	"fmt"
	"reflect"
	"strings"
)

// FieldKind tells how a field relates to the result set of a raw query.
type FieldKind uint8

const (
	KindScalar     FieldKind = iota // plain column
	KindForeignKey                  // column holding the key of a related row
	KindManyToMany                  // join table relation; never selected
)

func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindForeignKey:
		return "fk"
	case KindManyToMany:
		return "m2m"
	default:
		return fmt.Sprintf("FieldKind(%d)", uint8(k))
	}
}

// Field describes one declared model field.
type Field struct {
	Name    string    // logical name
	Column  string    // physical column; defaults to Name, or Name+"_id" for foreign keys
	Kind    FieldKind //
	Primary bool      // identity field
	Ref     string    // related table for foreign keys and many-to-many fields

	index []int // struct field path; nil for Record schemas
}

// Required reports whether a raw query must select the field.
func (f Field) Required() bool { return f.Kind != KindManyToMany }

// Schema is the ordered field set of a model.
type Schema struct {
	Name   string
	Fields []Field

	rt       reflect.Type // nil for Record schemas
	byName   map[string]int
	byColumn map[string]int
	identity int
	err      error // first declaration problem; fatal for raw queries only
}

// NewSchema declares a model at runtime. Rows of such a model are read as
// Record values with RawRecords.
func NewSchema(name string, fields ...Field) (*Schema, error) {
	s := &Schema{Name: name, Fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		f.index = nil
		s.add(f)
	}
	s.finish()
	if s.err != nil {
		return nil, s.err
	}
	return s, nil
}

// SchemaOf returns the schema derived from the `db` tags of T.
func SchemaOf[T any]() (*Schema, error) {
	s, err := getMapper().schemaOf(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return s, nil
}

// Field looks up a field by logical name.
func (s *Schema) Field(name string) (Field, bool) {
	if i, ok := s.byName[toLowerAscii(name)]; ok {
		return s.Fields[i], true
	}
	return Field{}, false
}

// Identity returns the identity field. It is the zero Field for an invalid schema.
func (s *Schema) Identity() Field {
	if s.identity < 0 {
		return Field{}
	}
	return s.Fields[s.identity]
}

// Required returns the fields a raw query must select, in declaration order.
func (s *Schema) Required() []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Required() {
			out = append(out, f)
		}
	}
	return out
}

func (s *Schema) add(f Field) {
	if f.Name == "" {
		s.fail("field without a name")
		return
	}
	if f.Column == "" {
		f.Column = f.Name
		if f.Kind == KindForeignKey {
			f.Column = f.Name + "_id"
		}
	}
	if f.Kind == KindManyToMany && f.Primary {
		s.fail("many-to-many field %q cannot be the identity", f.Name)
		return
	}
	if s.byName == nil {
		s.byName = make(map[string]int)
		s.byColumn = make(map[string]int)
	}
	name := toLowerAscii(f.Name)
	if _, dup := s.byName[name]; dup {
		s.fail("duplicate field %q", f.Name)
		return
	}
	i := len(s.Fields)
	s.Fields = append(s.Fields, f)
	s.byName[name] = i
	if f.Kind == KindManyToMany {
		return
	}
	col := normalizeColAscii(f.Column)
	if _, dup := s.byColumn[col]; dup {
		s.fail("duplicate column %q", f.Column)
		return
	}
	s.byColumn[col] = i
}

// finish settles the identity field: an explicit pk, else a field named id.
func (s *Schema) finish() {
	s.identity = -1
	for i, f := range s.Fields {
		if !f.Primary {
			continue
		}
		if s.identity >= 0 {
			s.fail("more than one identity field (%s, %s)", s.Fields[s.identity].Name, f.Name)
			return
		}
		s.identity = i
	}
	if s.identity >= 0 {
		return
	}
	if i, ok := s.byName["id"]; ok && s.Fields[i].Kind != KindManyToMany {
		s.Fields[i].Primary = true
		s.identity = i
		return
	}
	s.fail("no identity field")
}

func (s *Schema) fail(format string, args ...any) {
	if s.err == nil {
		s.err = fmt.Errorf("%w: %s: %s", ErrInvalidModel, s.Name, fmt.Sprintf(format, args...))
	}
}

// ---------------- Struct schemas ----------------

func buildSchema(rt reflect.Type) *Schema {
	s := &Schema{Name: modelName(rt), rt: rt}

	var walk func(t reflect.Type, base []int, forceInline bool)
	walk = func(t reflect.Type, base []int, forceInline bool) {
		t = derefPtr(t)
		if t.Kind() != reflect.Struct {
			return
		}
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.PkgPath != "" && !sf.Anonymous { // unexported, non-anonymous
				continue
			}
			raw := sf.Tag.Get("db")
			tag := parseTag(raw)
			if tag.omit {
				continue
			}
			path := append(append([]int(nil), base...), i)

			if tag.inline || (sf.Anonymous && (forceInline || raw == "")) {
				if isStruct(sf.Type) {
					walk(sf.Type, path, tag.inline)
					continue
				}
			}
			if sf.PkgPath != "" { // unexported embedded non-struct
				continue
			}
			f := Field{
				Name:    tag.name,
				Column:  tag.column,
				Primary: tag.pk,
				Ref:     tag.ref,
				index:   path,
			}
			if f.Name == "" {
				f.Name = toLowerAscii(sf.Name)
			}
			switch {
			case tag.m2m:
				f.Kind = KindManyToMany
			case tag.fk:
				f.Kind = KindForeignKey
			}
			s.add(f)
		}
	}
	walk(rt, nil, false)
	s.finish()
	return s
}

func modelName(rt reflect.Type) string {
	if reflect.PointerTo(rt).Implements(tableNamerType) {
		return reflect.New(rt).Interface().(TableNamer).TableName()
	}
	return toLowerAscii(rt.Name())
}

var tableNamerType = reflect.TypeOf((*TableNamer)(nil)).Elem()

type tagSpec struct {
	name   string
	column string
	ref    string
	inline bool
	omit   bool
	pk     bool
	fk     bool
	m2m    bool
}

// parseTag supports "-", "name", and comma separated options in any order:
// inline, pk, fk, m2m, column=x, ref=x. The first non-option part is the name.
func parseTag(tag string) (t tagSpec) {
	if tag == "-" {
		t.omit = true
		return t
	}
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case part == "inline":
			t.inline = true
		case part == "pk":
			t.pk = true
		case part == "fk":
			t.fk = true
		case part == "m2m":
			t.m2m = true
		case strings.HasPrefix(part, "column="):
			t.column = strings.TrimPrefix(part, "column=")
		case strings.HasPrefix(part, "ref="):
			t.ref = strings.TrimPrefix(part, "ref=")
		case t.name == "":
			t.name = part
		}
	}
	return t
}
