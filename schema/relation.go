package schema

import (
	"errors"
	"fmt"
	"sort"
)

// RelationKind is the cardinality of a relation, fixed at registration.
type RelationKind uint8

// Relation kinds.
const (
	BelongsTo RelationKind = iota + 1
	HasOne
	HasMany
	HasOneThrough
	HasManyThrough
)

// String returns the kind name.
func (k RelationKind) String() string {
	switch k {
	case BelongsTo:
		return "BelongsTo"
	case HasOne:
		return "HasOne"
	case HasMany:
		return "HasMany"
	case HasOneThrough:
		return "HasOneThrough"
	case HasManyThrough:
		return "HasManyThrough"
	default:
		return fmt.Sprintf("RelationKind(%d)", uint8(k))
	}
}

// Many reports whether the relation resolves to a list.
func (k RelationKind) Many() bool { return k == HasMany || k == HasManyThrough }

// Through reports whether the relation goes through a junction table.
func (k RelationKind) Through() bool { return k == HasOneThrough || k == HasManyThrough }

// Relation is a declared association from Source to Target. The meaning of
// the key fields depends on Kind:
//
//	BelongsTo:      Source.ForeignKey -> Target.PrimaryKey
//	HasOne/HasMany: Target.ForeignKey -> Source.PrimaryKey
//	*Through:       Junction.ForeignKey -> Source.PrimaryKey and
//	                Junction.FarForeignKey -> Target.FarPrimaryKey
type Relation struct {
	Name   string
	Kind   RelationKind
	Source *Entity
	Target *Entity

	ForeignKey Key
	PrimaryKey Key
	// Conditions are extra column = value filters applied on the target.
	Conditions map[string]any
	// Cascade deletes the related rows along with the source row.
	Cascade bool

	Junction      string
	FarForeignKey Key
	FarPrimaryKey Key
}

// SourceKey returns the source columns the relation is matched on.
func (r *Relation) SourceKey() Key {
	if r.Kind == BelongsTo {
		return r.ForeignKey
	}
	return r.PrimaryKey
}

// TargetKey returns the target columns the relation is matched on.
func (r *Relation) TargetKey() Key {
	switch r.Kind {
	case BelongsTo:
		return r.PrimaryKey
	case HasOneThrough, HasManyThrough:
		return r.FarPrimaryKey
	default:
		return r.ForeignKey
	}
}

// ConditionColumns returns the columns of Conditions, sorted.
func (r *Relation) ConditionColumns() []string {
	cols := make([]string, 0, len(r.Conditions))
	for c := range r.Conditions {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// RelationOption configures a relation at registration.
type RelationOption func(*Relation)

// ForeignKey overrides the inferred foreign key columns.
func ForeignKey(columns ...string) RelationOption {
	return func(r *Relation) { r.ForeignKey = Key(columns) }
}

// ReferenceKey overrides the key the foreign key references. It defaults
// to the primary key of the referenced entity.
func ReferenceKey(columns ...string) RelationOption {
	return func(r *Relation) { r.PrimaryKey = Key(columns) }
}

// FarForeignKey overrides the junction columns referencing the target.
func FarForeignKey(columns ...string) RelationOption {
	return func(r *Relation) { r.FarForeignKey = Key(columns) }
}

// FarReferenceKey overrides the target columns the junction references.
func FarReferenceKey(columns ...string) RelationOption {
	return func(r *Relation) { r.FarPrimaryKey = Key(columns) }
}

// Conditions adds column = value filters on the related rows.
func Conditions(conds map[string]any) RelationOption {
	return func(r *Relation) {
		if r.Conditions == nil {
			r.Conditions = make(map[string]any, len(conds))
		}
		for k, v := range conds {
			r.Conditions[k] = v
		}
	}
}

// Cascade deletes the related rows when the source row is deleted. Only
// HasOne and HasMany relations own their rows and accept it.
func Cascade() RelationOption {
	return func(r *Relation) { r.Cascade = true }
}

// ErrFrozen is returned when registering metadata after Registry.Freeze.
var ErrFrozen = errors.New("schema: registry is frozen")

// BelongsTo registers a relation where this entity holds the foreign key.
func (e *Entity) BelongsTo(name string, target *Entity, opts ...RelationOption) error {
	return e.addRelation(&Relation{Name: name, Kind: BelongsTo, Target: target}, "", opts)
}

// HasOne registers a relation where the target holds a foreign key to this
// entity and at most one target row exists.
func (e *Entity) HasOne(name string, target *Entity, opts ...RelationOption) error {
	return e.addRelation(&Relation{Name: name, Kind: HasOne, Target: target}, "", opts)
}

// HasMany registers a relation where the target holds a foreign key to this
// entity.
func (e *Entity) HasMany(name string, target *Entity, opts ...RelationOption) error {
	return e.addRelation(&Relation{Name: name, Kind: HasMany, Target: target}, "", opts)
}

// HasOneThrough registers a relation to at most one target row, linked
// through a junction table. An empty junction defaults to
// "<table>_<target table>".
func (e *Entity) HasOneThrough(name string, target *Entity, junction string, opts ...RelationOption) error {
	return e.addRelation(&Relation{Name: name, Kind: HasOneThrough, Target: target}, junction, opts)
}

// HasManyThrough registers a relation to many target rows, linked through
// a junction table. An empty junction defaults to "<table>_<target table>".
func (e *Entity) HasManyThrough(name string, target *Entity, junction string, opts ...RelationOption) error {
	return e.addRelation(&Relation{Name: name, Kind: HasManyThrough, Target: target}, junction, opts)
}

func (e *Entity) addRelation(r *Relation, junction string, opts []RelationOption) error {
	if e.registry != nil {
		e.registry.mu.Lock()
		defer e.registry.mu.Unlock()
		if e.registry.frozen {
			return ErrFrozen
		}
	}
	if r.Name == "" {
		return fmt.Errorf("schema: entity %s: relation name is required", e.name)
	}
	if _, ok := e.relations[r.Name]; ok {
		return fmt.Errorf("schema: entity %s: relation %q already registered", e.name, r.Name)
	}
	if r.Target == nil {
		return fmt.Errorf("schema: entity %s: relation %q has no target", e.name, r.Name)
	}
	r.Source = e
	for _, opt := range opts {
		opt(r)
	}
	switch r.Kind {
	case BelongsTo:
		if len(r.PrimaryKey) == 0 {
			r.PrimaryKey = r.Target.primaryKey
		}
		if len(r.ForeignKey) == 0 {
			r.ForeignKey = foreignKeyOf(r.Target.table, r.PrimaryKey)
		}
	case HasOne, HasMany:
		if len(r.PrimaryKey) == 0 {
			r.PrimaryKey = e.primaryKey
		}
		if len(r.ForeignKey) == 0 {
			r.ForeignKey = foreignKeyOf(e.table, r.PrimaryKey)
		}
	case HasOneThrough, HasManyThrough:
		r.Junction = junction
		if r.Junction == "" {
			r.Junction = e.table + "_" + r.Target.table
		}
		if len(r.PrimaryKey) == 0 {
			r.PrimaryKey = e.primaryKey
		}
		if len(r.ForeignKey) == 0 {
			r.ForeignKey = foreignKeyOf(e.table, r.PrimaryKey)
		}
		if len(r.FarPrimaryKey) == 0 {
			r.FarPrimaryKey = r.Target.primaryKey
		}
		if len(r.FarForeignKey) == 0 {
			r.FarForeignKey = foreignKeyOf(r.Target.table, r.FarPrimaryKey)
		}
		if r.FarForeignKey.Arity() != r.FarPrimaryKey.Arity() {
			return &KeyArityError{Relation: r.Name, Left: r.FarForeignKey, Right: r.FarPrimaryKey}
		}
	default:
		return fmt.Errorf("schema: entity %s: relation %q has unknown kind %s", e.name, r.Name, r.Kind)
	}
	if r.ForeignKey.Arity() != r.PrimaryKey.Arity() {
		return &KeyArityError{Relation: r.Name, Left: r.ForeignKey, Right: r.PrimaryKey}
	}
	if r.Cascade && r.Kind != HasOne && r.Kind != HasMany {
		return fmt.Errorf("schema: entity %s: relation %q: cascade delete only applies to HasOne and HasMany", e.name, r.Name)
	}
	e.relations[r.Name] = r
	e.order = append(e.order, r.Name)
	return nil
}
