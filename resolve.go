package rawsql

// Translations maps a result column name to the logical name of a model
// field. Keys and values are matched case-insensitively.
type Translations map[string]string

// mapping is the resolved pairing of result positions with model fields.
type mapping struct {
	fields      []mappedColumn // declared fields, result order
	annotations []mappedColumn // unrecognized columns, result order
	missing     []string       // required fields no column resolved to
}

type mappedColumn struct {
	pos   int
	field int    // index into Schema.Fields; -1 for annotations
	name  string // column text as returned by the driver
}

// resolveColumns pairs every result column with a field of s or, failing
// that, marks it as an annotation. Matching uses normalized names;
// annotations keep the column text as returned. A translated column matches
// logical names only; an untranslated one matches a logical name first and a
// physical column second. A translation whose target is not a field is
// ignored. Each field is claimed by at most one column.
func resolveColumns(cols []string, s *Schema, tr Translations) *mapping {
	lut := normalizeTranslations(tr)
	claimed := make([]bool, len(s.Fields))
	m := &mapping{}

	for pos, name := range cols {
		col := normalizeColAscii(name)
		idx := -1
		if target, ok := lut[col]; ok {
			if i, ok := s.byName[target]; ok && s.Fields[i].Kind != KindManyToMany {
				idx = i
			}
		}
		if idx < 0 { // no translation, or one naming no field: plain lookup
			if i, ok := s.byName[col]; ok && s.Fields[i].Kind != KindManyToMany {
				idx = i
			} else if i, ok := s.byColumn[col]; ok {
				idx = i
			}
		}
		if idx >= 0 && !claimed[idx] {
			claimed[idx] = true
			m.fields = append(m.fields, mappedColumn{pos: pos, field: idx, name: name})
			continue
		}
		m.annotations = append(m.annotations, mappedColumn{pos: pos, field: -1, name: name})
	}

	for i, f := range s.Fields {
		if f.Required() && !claimed[i] {
			m.missing = append(m.missing, f.Name)
		}
	}
	return m
}

func (m *mapping) annotationNames() []string {
	if len(m.annotations) == 0 {
		return nil
	}
	out := make([]string, len(m.annotations))
	for i, a := range m.annotations {
		out[i] = a.name
	}
	return out
}

func normalizeTranslations(tr Translations) map[string]string {
	if len(tr) == 0 {
		return nil
	}
	out := make(map[string]string, len(tr))
	for col, field := range tr {
		out[normalizeColAscii(col)] = toLowerAscii(field)
	}
	return out
}
