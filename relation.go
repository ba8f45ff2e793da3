package rawsql

import (
	"context"
	"fmt"
)

// Relation addresses the join table behind a many-to-many field. Raw queries
// never select such fields; the relation is read and written through here.
//
// The join table defaults to <model>_<field> with columns <model>_id and
// <ref>_id (from_<model>_id and to_<model>_id for a self reference). Set
// column=x on the field tag to name the table explicitly.
type Relation struct {
	Table        string
	OwnerColumn  string
	TargetColumn string
	Placeholder  Placeholder
}

// RelationOf returns the relation behind the many-to-many field of T.
func RelationOf[T any](field string) (*Relation, error) {
	s, err := SchemaOf[T]()
	if err != nil {
		return nil, err
	}
	return s.Relation(field)
}

// Relation returns the relation behind the many-to-many field named field.
func (s *Schema) Relation(field string) (*Relation, error) {
	f, ok := s.Field(field)
	if !ok {
		return nil, fmt.Errorf("rawsql: %s has no field %q", s.Name, field)
	}
	if f.Kind != KindManyToMany {
		return nil, fmt.Errorf("rawsql: %s.%s is a %s field, not m2m", s.Name, f.Name, f.Kind)
	}
	ref := f.Ref
	if ref == "" {
		ref = f.Name
	}
	r := &Relation{
		Table:        s.Name + "_" + f.Name,
		OwnerColumn:  s.Name + "_id",
		TargetColumn: ref + "_id",
	}
	if f.Column != f.Name {
		r.Table = f.Column
	}
	if r.OwnerColumn == r.TargetColumn {
		r.OwnerColumn, r.TargetColumn = "from_"+r.OwnerColumn, "to_"+r.TargetColumn
	}
	return r, nil
}

// Add links ownerID to targetID.
func (r *Relation) Add(ctx context.Context, e Execer, ownerID, targetID any) error {
	q := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", r.Table, r.OwnerColumn, r.TargetColumn)
	_, err := Exec(ctx, e, rewritePlaceholders(q, r.Placeholder), ownerID, targetID)
	return err
}

// Count returns how many targets are linked to ownerID.
func (r *Relation) Count(ctx context.Context, q Querier, ownerID any) (int64, error) {
	sq := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s = ?", r.Table, r.OwnerColumn)
	return Get[int64](ctx, q, rewritePlaceholders(sq, r.Placeholder), ownerID)
}

// Targets returns the target keys linked to ownerID, ascending.
func (r *Relation) Targets(ctx context.Context, q Querier, ownerID any) ([]int64, error) {
	sq := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s",
		r.TargetColumn, r.Table, r.OwnerColumn, r.TargetColumn)
	return Query[int64](ctx, q, rewritePlaceholders(sq, r.Placeholder), ownerID)
}
