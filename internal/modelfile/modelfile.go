// Package modelfile reads model declarations for the rawsql command from YAML.
//
//	models:
//	  - name: author
//	    fields:
//	      - {name: id, pk: true}
//	      - {name: first_name}
//	  - name: book
//	    fields:
//	      - {name: id}
//	      - {name: title}
//	      - {name: author, kind: fk, ref: author}
package modelfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/go-mizu/rawsql"
)

// File is the decoded YAML document.
type File struct {
	Models []Model `yaml:"models"`
}

// Model declares one model.
type Model struct {
	Name   string  `yaml:"name"`
	Fields []Field `yaml:"fields"`
}

// Field declares one field; Kind is scalar (default), fk or m2m.
type Field struct {
	Name   string `yaml:"name"`
	Column string `yaml:"column,omitempty"`
	Kind   string `yaml:"kind,omitempty"`
	PK     bool   `yaml:"pk,omitempty"`
	Ref    string `yaml:"ref,omitempty"`
}

// Set holds the schemas of a model file, in file order.
type Set struct {
	order   []string
	schemas map[string]*rawsql.Schema
}

// Names returns the model names in file order.
func (s *Set) Names() []string { return append([]string(nil), s.order...) }

// Schema returns the schema of the named model.
func (s *Set) Schema(name string) (*rawsql.Schema, error) {
	if sc, ok := s.schemas[strings.ToLower(name)]; ok {
		return sc, nil
	}
	return nil, fmt.Errorf("modelfile: unknown model %q (have %s)", name, strings.Join(s.order, ", "))
}

// Load reads and validates the model file at path.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Decode reads and validates a model file.
func Decode(r io.Reader) (*Set, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("modelfile: %w", err)
	}
	if len(f.Models) == 0 {
		return nil, fmt.Errorf("modelfile: no models declared")
	}

	set := &Set{schemas: make(map[string]*rawsql.Schema, len(f.Models))}
	for _, m := range f.Models {
		key := strings.ToLower(m.Name)
		if _, dup := set.schemas[key]; dup {
			return nil, fmt.Errorf("modelfile: duplicate model %q", m.Name)
		}
		fields := make([]rawsql.Field, 0, len(m.Fields))
		for _, fd := range m.Fields {
			kind, err := parseKind(fd.Kind)
			if err != nil {
				return nil, fmt.Errorf("modelfile: %s.%s: %w", m.Name, fd.Name, err)
			}
			fields = append(fields, rawsql.Field{
				Name:    fd.Name,
				Column:  fd.Column,
				Kind:    kind,
				Primary: fd.PK,
				Ref:     fd.Ref,
			})
		}
		sc, err := rawsql.NewSchema(m.Name, fields...)
		if err != nil {
			return nil, err
		}
		set.order = append(set.order, m.Name)
		set.schemas[key] = sc
	}
	return set, nil
}

func parseKind(s string) (rawsql.FieldKind, error) {
	switch strings.ToLower(s) {
	case "", "scalar":
		return rawsql.KindScalar, nil
	case "fk", "foreign_key", "foreignkey":
		return rawsql.KindForeignKey, nil
	case "m2m", "many_to_many", "manytomany":
		return rawsql.KindManyToMany, nil
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}
