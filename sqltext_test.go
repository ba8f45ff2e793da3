package rawsql

import (
	"errors"
	"testing"
)

func TestLeadingKeyword(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM author":                   "SELECT",
		"  \n\tselect 1":                         "select",
		"-- list authors\nSELECT id FROM author": "SELECT",
		"/* hint */ SELECT 1":                    "SELECT",
		"/* a */ -- b\n /* c */Select 1":         "Select",
		"UPDATE author SET dob = NULL":           "UPDATE",
		"(SELECT 1)":                             "(",
		"  ¿SELECT":                              "¿",
		"":                                       "",
		"   ":                                    "",
		"/* never closed SELECT":                 "",
		"-- only a comment":                      "",
	}
	for in, want := range cases {
		if got := leadingKeyword(in); got != want {
			t.Fatalf("leadingKeyword(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCheckReadOnly(t *testing.T) {
	for _, q := range []string{
		"SELECT * FROM author",
		"select id from author",
		"  -- comment\n  SeLeCt 1",
	} {
		if err := checkReadOnly(q); err != nil {
			t.Fatalf("%q: unexpected %v", q, err)
		}
	}

	tests := []struct {
		query string
		stmt  string
		msg   string
	}{
		{"UPDATE author SET first_name = 'x'", "UPDATE", "rawsql: raw query must be a SELECT statement, got UPDATE"},
		{"delete from author", "DELETE", "rawsql: raw query must be a SELECT statement, got DELETE"},
		{"INSERT INTO coffee (name) VALUES ('x')", "INSERT", "rawsql: raw query must be a SELECT statement, got INSERT"},
		{"WITH c AS (SELECT 1) SELECT * FROM c", "WITH", "rawsql: raw query must be a SELECT statement, got WITH"},
		{"SELECTED", "SELECTED", "rawsql: raw query must be a SELECT statement, got SELECTED"},
		{"  (SELECT 1)", "(", "rawsql: raw query must be a SELECT statement, got ("},
		{"-- nothing here\n", "", "rawsql: raw query must be a SELECT statement, got an empty query"},
		{" \t\n", "", "rawsql: raw query must be a SELECT statement, got an empty query"},
		{"", "", "rawsql: raw query must be a SELECT statement, got an empty query"},
	}
	for _, tc := range tests {
		err := checkReadOnly(tc.query)
		var iqe *InvalidQueryError
		if !errors.As(err, &iqe) {
			t.Fatalf("%q: want *InvalidQueryError, got %T %v", tc.query, err, err)
		}
		if !errors.Is(err, ErrInvalidQuery) {
			t.Fatalf("%q: should match ErrInvalidQuery", tc.query)
		}
		if iqe.Statement != tc.stmt || iqe.Query != tc.query || err.Error() != tc.msg {
			t.Fatalf("%q: got %+v %q", tc.query, iqe, err)
		}
	}
}

func TestRewritePlaceholders(t *testing.T) {
	q := `SELECT '?', "?" FROM t WHERE a = ? -- ?
AND b = ? /* ? */ AND c = 'it''s ?' AND d = ?`

	tests := []struct {
		ph   Placeholder
		want string
	}{
		{PlaceholderQuestion, q},
		{PlaceholderDollar, `SELECT '?', "?" FROM t WHERE a = $1 -- ?
AND b = $2 /* ? */ AND c = 'it''s ?' AND d = $3`},
		{PlaceholderAtP, `SELECT '?', "?" FROM t WHERE a = @p1 -- ?
AND b = @p2 /* ? */ AND c = 'it''s ?' AND d = @p3`},
		{PlaceholderColonNum, `SELECT '?', "?" FROM t WHERE a = :1 -- ?
AND b = :2 /* ? */ AND c = 'it''s ?' AND d = :3`},
	}
	for _, tc := range tests {
		if got := rewritePlaceholders(q, tc.ph); got != tc.want {
			t.Fatalf("ph=%d\n got: %s\nwant: %s", tc.ph, got, tc.want)
		}
	}

	if got := rewritePlaceholders("SELECT 'é' WHERE x = ? /* open", PlaceholderDollar); got != "SELECT 'é' WHERE x = $1 /* open" {
		t.Fatalf("got %q", got)
	}
}

func TestPlaceholderFor(t *testing.T) {
	cases := map[string]Placeholder{
		"pgx":       PlaceholderDollar,
		"Postgres":  PlaceholderDollar,
		"sqlserver": PlaceholderAtP,
		"godror":    PlaceholderColonNum,
		"sqlite":    PlaceholderQuestion,
		"sqlite3":   PlaceholderQuestion,
		"":          PlaceholderQuestion,
	}
	for in, want := range cases {
		if got := PlaceholderFor(in); got != want {
			t.Fatalf("PlaceholderFor(%q) = %d, want %d", in, got, want)
		}
	}
}
