package rawsql

import (
	"reflect"
	"testing"
)

func TestResolveColumns(t *testing.T) {
	author, err := SchemaOf[tAuthor]()
	if err != nil {
		t.Fatal(err)
	}
	book, _ := SchemaOf[tBook]()
	coffee, _ := SchemaOf[tCoffee]()
	reviewer, _ := SchemaOf[tReviewer]()

	type want struct {
		fields      map[int]string // position -> field name
		annotations []string
		missing     []string
	}
	tests := []struct {
		name string
		s    *Schema
		cols []string
		tr   Translations
		want want
	}{
		{
			name: "all fields",
			s:    author,
			cols: []string{"id", "first_name", "last_name", "dob"},
			want: want{fields: map[int]string{0: "id", 1: "first_name", 2: "last_name", 3: "dob"}},
		},
		{
			name: "order independent",
			s:    author,
			cols: []string{"dob", "last_name", "id", "first_name"},
			want: want{fields: map[int]string{0: "dob", 1: "last_name", 2: "id", 3: "first_name"}},
		},
		{
			name: "extra column is an annotation",
			s:    author,
			cols: []string{"id", "first_name", "last_name", "dob", "book_count"},
			want: want{
				fields:      map[int]string{0: "id", 1: "first_name", 2: "last_name", 3: "dob"},
				annotations: []string{"book_count"},
			},
		},
		{
			name: "missing required fields in declaration order",
			s:    author,
			cols: []string{"last_name", "id"},
			want: want{
				fields:  map[int]string{0: "last_name", 1: "id"},
				missing: []string{"first_name", "dob"},
			},
		},
		{
			name: "translation",
			s:    author,
			cols: []string{"id", "fname", "lname", "dob"},
			tr:   Translations{"fname": "first_name", "LNAME": "Last_Name"},
			want: want{fields: map[int]string{0: "id", 1: "first_name", 2: "last_name", 3: "dob"}},
		},
		{
			name: "translation to unknown field is ignored",
			s:    author,
			cols: []string{"id", "first_name", "last_name", "dob", "extra"},
			tr:   Translations{"extra": "nickname", "unused": "dob"},
			want: want{
				fields:      map[int]string{0: "id", 1: "first_name", 2: "last_name", 3: "dob"},
				annotations: []string{"extra"},
			},
		},
		{
			name: "physical column of a foreign key",
			s:    book,
			cols: []string{"id", "title", "author_id"},
			want: want{fields: map[int]string{0: "id", 1: "title", 2: "author"}},
		},
		{
			name: "db column differs from field name",
			s:    coffee,
			cols: []string{"id", "name"},
			want: want{fields: map[int]string{0: "id", 1: "brand"}},
		},
		{
			name: "second column for a claimed field is an annotation",
			s:    coffee,
			cols: []string{"id", "brand", "name"},
			want: want{
				fields:      map[int]string{0: "id", 1: "brand"},
				annotations: []string{"name"},
			},
		},
		{
			name: "many-to-many is never required nor matched",
			s:    reviewer,
			cols: []string{"id", "reviewed"},
			want: want{
				fields:      map[int]string{0: "id"},
				annotations: []string{"reviewed"},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := resolveColumns(tc.cols, tc.s, tc.tr)

			got := map[int]string{}
			for _, mc := range m.fields {
				got[mc.pos] = tc.s.Fields[mc.field].Name
			}
			if !reflect.DeepEqual(got, tc.want.fields) {
				t.Fatalf("fields: got %v want %v", got, tc.want.fields)
			}
			if !reflect.DeepEqual(m.annotationNames(), tc.want.annotations) {
				t.Fatalf("annotations: got %v want %v", m.annotationNames(), tc.want.annotations)
			}
			if !reflect.DeepEqual(m.missing, tc.want.missing) {
				t.Fatalf("missing: got %v want %v", m.missing, tc.want.missing)
			}
		})
	}
}

func TestNormalizeTranslations(t *testing.T) {
	if normalizeTranslations(nil) != nil {
		t.Fatal("nil translations should stay nil")
	}
	got := normalizeTranslations(Translations{`"FName"`: "First_Name"})
	if got["fname"] != "first_name" || len(got) != 1 {
		t.Fatalf("got %v", got)
	}
}
