package rawsql

import (
	"database/sql"
	"fmt"
	"hash/fnv"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Mapper owns the schema and scan-plan caches. Package-level functions share a
// lazily built default (getMapper); create your own in tests.
type Mapper struct {
	planCache   sync.Map // key: planKey -> *plan (per model, column set, translations)
	schemaCache sync.Map // key: reflect.Type -> *Schema (per struct type)
	logger      atomic.Pointer[slog.Logger]
}

func NewMapper() *Mapper { return &Mapper{} }

// SetLogger enables debug records for column resolution and result set
// evaluation. A nil logger disables them.
func (m *Mapper) SetLogger(l *slog.Logger) { m.logger.Store(l) }

// SetLogger sets the logger of the package-level Mapper.
func SetLogger(l *slog.Logger) { getMapper().SetLogger(l) }

func (m *Mapper) debug(msg string, args ...any) {
	if l := m.logger.Load(); l != nil {
		l.Debug(msg, args...)
	}
}

// --- package-level lazy global mapper ---

var (
	mapper     *Mapper
	mapperOnce sync.Once
)

func getMapper() *Mapper {
	mapperOnce.Do(func() { mapper = NewMapper() })
	return mapper
}

func (m *Mapper) schemaOf(rt reflect.Type) (*Schema, error) {
	rt = derefPtr(rt)
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidModel, rt)
	}
	if v, ok := m.schemaCache.Load(rt); ok {
		return v.(*Schema), nil
	}
	v, _ := m.schemaCache.LoadOrStore(rt, buildSchema(rt))
	return v.(*Schema), nil
}

// ---------------- Planning ----------------

type planKey struct {
	rt     reflect.Type
	schema *Schema
	hash   uint64 // FNV-1a of columns and translations
	ncols  int
	raw    bool
}

type plan struct {
	rt          reflect.Type
	steps       []step   // one per column
	annotations []string // raw plans only
	isStruct    bool
	record      bool
}

type stepKind uint8

const (
	stepDrop     stepKind = iota // sink into RawBytes
	stepDirect                   // scan directly into field address or *T
	stepIndirect                 // scan into temp, then convert/assign
	stepWhole                    // *T (Scanner) single-column
	stepAnnotate                 // scan into the row's annotation slot
	stepRecord                   // scan into any, store under a Record key
)

type step struct {
	kind   stepKind
	fpath  []int        // struct fields
	convTo reflect.Type // indirect
	post   func(dst, src reflect.Value) error
	name   string // record key
	slot   int    // annotation index
}

// columnHash hashes cols and tr. Raw plans hash the column text exactly,
// since their annotation names keep it; lenient plans hash normalized names.
func columnHash(cols []string, tr Translations, exact bool) uint64 {
	h := fnv.New64a()
	for _, c := range cols {
		if !exact {
			c = normalizeColAscii(c)
		}
		_, _ = h.Write([]byte(c))
		_, _ = h.Write([]byte{0})
	}
	if len(tr) > 0 {
		keys := make([]string, 0, len(tr))
		for k := range tr {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		_, _ = h.Write([]byte{1})
		for _, k := range keys {
			_, _ = h.Write([]byte(normalizeColAscii(k)))
			_, _ = h.Write([]byte{'='})
			_, _ = h.Write([]byte(toLowerAscii(tr[k])))
			_, _ = h.Write([]byte{0})
		}
	}
	return h.Sum64()
}

// rawPlan resolves cols against s for a raw query. It fails with
// *InsufficientFieldsError when a required field has no column.
func (m *Mapper) rawPlan(rt reflect.Type, s *Schema, cols []string, tr Translations) (*plan, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("rawsql: query returned zero columns")
	}
	key := planKey{rt: rt, schema: s, hash: columnHash(cols, tr, true), ncols: len(cols), raw: true}
	if v, ok := m.planCache.Load(key); ok {
		return v.(*plan), nil
	}

	mp := resolveColumns(cols, s, tr)
	if len(mp.missing) > 0 {
		return nil, &InsufficientFieldsError{Model: s.Name, Missing: mp.missing}
	}

	p := &plan{
		rt:          rt,
		steps:       make([]step, len(cols)),
		annotations: mp.annotationNames(),
		isStruct:    s.rt != nil,
		record:      s.rt == nil,
	}
	for _, mc := range mp.fields {
		f := s.Fields[mc.field]
		if p.record {
			p.steps[mc.pos] = step{kind: stepRecord, name: f.Name}
			continue
		}
		st, err := makeFieldStep(rt, f.index)
		if err != nil {
			return nil, err
		}
		p.steps[mc.pos] = st
	}
	for i, mc := range mp.annotations {
		p.steps[mc.pos] = step{kind: stepAnnotate, slot: i}
	}

	m.debug("rawsql: resolved raw columns",
		"model", s.Name, "fields", len(mp.fields), "annotations", p.annotations)
	m.planCache.Store(key, p)
	return p, nil
}

// lenientPlan maps cols for the ordinary fetch path: extra columns are dropped
// and missing fields keep their zero values.
func (m *Mapper) lenientPlan(rt reflect.Type, cols []string) (*plan, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("rawsql: query returned zero columns")
	}
	key := planKey{rt: rt, hash: columnHash(cols, nil, false), ncols: len(cols)}
	if v, ok := m.planCache.Load(key); ok {
		return v.(*plan), nil
	}

	p := &plan{rt: rt, isStruct: isStruct(rt)}
	switch {
	case p.isStruct:
		s, err := m.schemaOf(rt)
		if err != nil {
			return nil, err
		}
		p.steps = make([]step, len(cols)) // zero value is stepDrop
		for _, mc := range resolveColumns(cols, s, nil).fields {
			st, err := makeFieldStep(rt, s.Fields[mc.field].index)
			if err != nil {
				return nil, err
			}
			p.steps[mc.pos] = st
		}
	case implementsScanner(rt):
		if len(cols) != 1 {
			return nil, fmt.Errorf("rawsql: scanning %s requires exactly 1 column; got %d", rt, len(cols))
		}
		p.steps = []step{{kind: stepWhole}}
	default:
		if len(cols) != 1 {
			return nil, fmt.Errorf("rawsql: cannot map %d columns into %s; use a struct", len(cols), rt)
		}
		p.steps = []step{makeWholeStep(rt)}
	}

	m.planCache.Store(key, p)
	return p, nil
}

// ---------------- Materialization ----------------

// newInstance allocates a zero model; no constructor or validation runs.
func (p *plan) newInstance() reflect.Value {
	rv := reflect.New(p.rt)
	if p.record {
		rv.Elem().Set(reflect.ValueOf(make(Record, len(p.steps))))
	}
	return rv
}

// scan reads the current row of src into rv (a *T) and returns the
// annotation values in column order.
func (p *plan) scan(src rowScanner, rv reflect.Value) ([]any, error) {
	var ann []any
	if len(p.annotations) > 0 {
		ann = make([]any, len(p.annotations))
	}
	dests, cleanup := p.destPtrs(rv, ann)
	if err := src.Scan(dests...); err != nil {
		return nil, err
	}
	if err := cleanup(); err != nil {
		return nil, err
	}
	return ann, nil
}

func (p *plan) destPtrs(rv reflect.Value, ann []any) ([]any, func() error) {
	noop := func() error { return nil }

	if !p.isStruct && !p.record {
		st := p.steps[0]
		switch st.kind {
		case stepWhole, stepDirect:
			return []any{rv.Interface()}, noop
		case stepIndirect:
			tmp := reflect.New(st.convTo).Elem()
			return []any{tmp.Addr().Interface()}, func() error {
				return st.post(rv.Elem(), tmp)
			}
		default:
			var sink sql.RawBytes
			return []any{&sink}, noop
		}
	}

	root := rv.Elem()
	dests := make([]any, len(p.steps))
	finals := make([]func() error, 0, 4)

	var sink sql.RawBytes // reused for all dropped columns
	for i, st := range p.steps {
		switch st.kind {
		case stepDirect:
			dests[i] = fieldByPathAlloc(root, st.fpath).Addr().Interface()
		case stepIndirect:
			tmp := reflect.New(st.convTo).Elem()
			fp, post := st.fpath, st.post
			dests[i] = tmp.Addr().Interface()
			finals = append(finals, func() error {
				return post(fieldByPathAlloc(root, fp), tmp)
			})
		case stepAnnotate:
			dests[i] = &ann[st.slot]
		case stepRecord:
			var v any
			rec, name := root.Interface().(Record), st.name
			dests[i] = &v
			finals = append(finals, func() error {
				rec[name] = v
				return nil
			})
		default:
			dests[i] = &sink
		}
	}

	return dests, func() error {
		for _, f := range finals {
			if err := f(); err != nil {
				return err
			}
		}
		return nil
	}
}

// ---------------- Step construction ----------------

func makeFieldStep(rootType reflect.Type, fpath []int) (step, error) {
	if len(fpath) == 0 {
		return step{}, fmt.Errorf("rawsql: %s: field without a struct path", rootType)
	}
	ft := fieldTypeByPath(rootType, fpath)
	if implementsScanner(ft) {
		return step{kind: stepDirect, fpath: fpath}, nil
	}
	if convTo, post, ok := pickIndirect(ft); ok {
		return step{kind: stepIndirect, fpath: fpath, convTo: convTo, post: post}, nil
	}
	// database/sql converts whatever else it can (bool, time.Time, []byte, any).
	return step{kind: stepDirect, fpath: fpath}, nil
}

func makeWholeStep(t reflect.Type) step {
	if convTo, post, ok := pickIndirect(t); ok {
		return step{kind: stepIndirect, convTo: convTo, post: post}
	}
	return step{kind: stepDirect}
}

// ---------------- Type/convert helpers ----------------

var (
	stringType  = reflect.TypeOf("")
	bytesType   = reflect.TypeOf([]byte(nil))
	int64Type   = reflect.TypeOf(int64(0))
	uint64Type  = reflect.TypeOf(uint64(0))
	float64Type = reflect.TypeOf(float64(0))
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

func isStruct(t reflect.Type) bool {
	t = derefPtr(t)
	return t.Kind() == reflect.Struct && t != reflect.TypeOf(time.Time{})
}

func derefPtr(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func implementsScanner(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(scannerType)
}

// scanTypeFor returns the widest builtin type database/sql can scan a value
// of kind k into.
func scanTypeFor(k reflect.Kind) (reflect.Type, bool) {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int64Type, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uint64Type, true
	case reflect.Float32, reflect.Float64:
		return float64Type, true
	case reflect.String:
		return stringType, true
	}
	return nil, false
}

// pickIndirect returns a temporary scan type and a post-assignment function
// that converts from the temporary into dt. It covers:
//   - []byte -> string (builtin string only)
//   - numeric widenings for builtin and named primitives
//   - pointers (named or not) to primitives; NULL leaves them nil
func pickIndirect(dt reflect.Type) (reflect.Type, func(dst, src reflect.Value) error, bool) {
	if dt == stringType {
		return bytesType, func(dst, src reflect.Value) error {
			dst.SetString(string(src.Bytes()))
			return nil
		}, true
	}

	under, ptrCount := dt, 0
	for under.Kind() == reflect.Ptr {
		under = under.Elem()
		ptrCount++
	}
	tmp, ok := scanTypeFor(under.Kind())
	if !ok {
		return nil, nil, false
	}

	if ptrCount == 0 {
		return tmp, func(dst, src reflect.Value) error {
			dst.Set(src.Convert(dt))
			return nil
		}, true
	}
	return reflect.PointerTo(tmp), func(dst, src reflect.Value) error {
		if src.IsNil() {
			dst.Set(reflect.Zero(dt))
			return nil
		}
		val := reflect.New(under).Elem()
		val.Set(src.Elem().Convert(under))
		return assignWithPointers(dst, val, dt, ptrCount)
	}, true
}

// assignWithPointers stores val (addressable) into dst of type dt, adding
// ptrCount pointer layers before the final conversion.
func assignWithPointers(dst, val reflect.Value, dt reflect.Type, ptrCount int) error {
	if ptrCount <= 0 {
		dst.Set(val.Convert(dt))
		return nil
	}
	cur := val.Addr()
	for i := 1; i < ptrCount; i++ {
		tmp := reflect.New(cur.Type())
		tmp.Elem().Set(cur)
		cur = tmp
	}
	dst.Set(cur.Convert(dt))
	return nil
}

func fieldTypeByPath(root reflect.Type, fpath []int) reflect.Type {
	t := root
	for _, i := range fpath {
		t = derefPtr(t)
		t = t.Field(i).Type
	}
	return t
}

// fieldByPathAlloc walks fpath, allocating nil pointers so the final field is addressable.
func fieldByPathAlloc(root reflect.Value, fpath []int) reflect.Value {
	v := root
	for _, i := range fpath {
		for v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}

// ---------------- Column normalization (ASCII fast-path) ----------------

func normalizeColAscii(s string) string {
	if l := len(s); l >= 2 {
		switch s[0] {
		case '"':
			if s[l-1] == '"' {
				s = s[1 : l-1]
			}
		case '`':
			if s[l-1] == '`' {
				s = s[1 : l-1]
			}
		case '[':
			if s[l-1] == ']' {
				s = s[1 : l-1]
			}
		}
	}
	return toLowerAscii(s)
}

func toLowerAscii(s string) string {
	var need bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			need = true
			break
		}
	}
	if !need {
		return s
	}
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c = c + ('a' - 'A')
		}
		b[i] = c
	}
	return string(b)
}
