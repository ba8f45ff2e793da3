package rawsql

import (
	"context"
	"database/sql/driver"
	"reflect"
	"strings"
	"testing"
)

type tPerson struct {
	ID      int64   `db:"id"`
	Friends []int64 `db:"friends,m2m,ref=tperson"`
	Clubs   []int64 `db:"clubs,m2m,ref=club,column=membership"`
	Name    string  `db:"name"`
}

func TestRelationOf(t *testing.T) {
	tests := []struct {
		field string
		get   func(string) (*Relation, error)
		want  Relation
	}{
		{"reviewed", RelationOf[tReviewer], Relation{Table: "reviewer_reviewed", OwnerColumn: "reviewer_id", TargetColumn: "book_id"}},
		{"friends", RelationOf[tPerson], Relation{Table: "tperson_friends", OwnerColumn: "from_tperson_id", TargetColumn: "to_tperson_id"}},
		{"clubs", RelationOf[tPerson], Relation{Table: "membership", OwnerColumn: "tperson_id", TargetColumn: "club_id"}},
	}
	for _, tc := range tests {
		r, err := tc.get(tc.field)
		if err != nil {
			t.Fatalf("%s: %v", tc.field, err)
		}
		if *r != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.field, *r, tc.want)
		}
	}

	if _, err := RelationOf[tPerson]("name"); err == nil || err.Error() != "rawsql: tperson.name is a scalar field, not m2m" {
		t.Fatalf("scalar field: %v", err)
	}
	if _, err := RelationOf[tPerson]("nope"); err == nil {
		t.Fatal("unknown field should fail")
	}
	if _, err := RelationOf[int]("x"); err == nil {
		t.Fatal("non-struct should fail")
	}
}

func TestRelation_Add(t *testing.T) {
	r := &Relation{Table: "reviewer_reviewed", OwnerColumn: "reviewer_id", TargetColumn: "book_id", Placeholder: PlaceholderDollar}
	var gotQuery string
	var gotArgs []any
	db := newExecDB(t, func(query string, args []driver.NamedValue) (driver.Result, error) {
		gotQuery = query
		for _, a := range args {
			gotArgs = append(gotArgs, a.Value)
		}
		return testResult{rows: 1}, nil
	})
	if err := r.Add(context.Background(), db, int64(1), int64(4)); err != nil {
		t.Fatal(err)
	}
	if gotQuery != "INSERT INTO reviewer_reviewed (reviewer_id, book_id) VALUES ($1, $2)" {
		t.Fatalf("query: %q", gotQuery)
	}
	if !reflect.DeepEqual(gotArgs, []any{int64(1), int64(4)}) {
		t.Fatalf("args: %#v", gotArgs)
	}
}

func TestRelation_CountAndTargets(t *testing.T) {
	r, err := RelationOf[tReviewer]("reviewed")
	if err != nil {
		t.Fatal(err)
	}
	var queries []string
	db := newTestDB(t, func(query string, args []driver.NamedValue) ([]string, [][]driver.Value, error) {
		queries = append(queries, query)
		if len(args) != 1 || args[0].Value != int64(1) {
			t.Errorf("args: %+v", args)
		}
		if strings.HasPrefix(query, "SELECT count") {
			return []string{"count(*)"}, [][]driver.Value{{int64(3)}}, nil
		}
		return []string{"book_id"}, [][]driver.Value{{int64(2)}, {int64(3)}, {int64(4)}}, nil
	})

	n, err := r.Count(context.Background(), db, int64(1))
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	ids, err := r.Targets(context.Background(), db, int64(1))
	if err != nil || !reflect.DeepEqual(ids, []int64{2, 3, 4}) {
		t.Fatalf("Targets = %v, %v", ids, err)
	}
	want := []string{
		"SELECT count(*) FROM reviewer_reviewed WHERE reviewer_id = ?",
		"SELECT book_id FROM reviewer_reviewed WHERE reviewer_id = ? ORDER BY book_id",
	}
	if !reflect.DeepEqual(queries, want) {
		t.Fatalf("queries:\n%q\nwant\n%q", queries, want)
	}
}
