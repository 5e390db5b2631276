package schema

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-openapi/inflect"
	"github.com/vmihailenco/msgpack/v5"
)

// ColumnLister lists the columns of a table, typically from the database
// catalog. *sql.Introspector implements it.
type ColumnLister interface {
	Columns(ctx context.Context, table string) ([]string, error)
}

// Validator checks a property value before it is written.
type Validator func(value any) error

// Entity describes one entity type: its table, primary key, columns and
// relations. It is created by Registry.Register.
type Entity struct {
	name          string
	table         string
	primaryKey    Key
	columns       []string
	propColumn    map[string]string
	columnProp    map[string]string
	validators    map[string][]Validator
	serialized    map[string]struct{}
	keyGenerator  func() any
	autoIncrement bool

	relations map[string]*Relation
	order     []string
	registry  *Registry
}

// EntityOption configures an Entity at registration.
type EntityOption func(*Entity)

// Table sets the table name. It defaults to the underscored entity name.
func Table(name string) EntityOption {
	return func(e *Entity) { e.table = name }
}

// PrimaryKey sets the primary key columns. It defaults to "id".
func PrimaryKey(columns ...string) EntityOption {
	return func(e *Entity) { e.primaryKey = Key(columns) }
}

// Columns declares the table columns, skipping catalog introspection.
func Columns(columns ...string) EntityOption {
	return func(e *Entity) { e.columns = append([]string(nil), columns...) }
}

// Field maps a property to a column of a different name.
func Field(prop, column string) EntityOption {
	return func(e *Entity) {
		e.propColumn[prop] = column
		e.columnProp[column] = prop
	}
}

// Validate adds validators run on prop before create and update.
func Validate(prop string, validators ...Validator) EntityOption {
	return func(e *Entity) {
		e.validators[prop] = append(e.validators[prop], validators...)
	}
}

// Serialized marks properties stored as msgpack blobs.
func Serialized(props ...string) EntityOption {
	return func(e *Entity) {
		for _, p := range props {
			e.serialized[p] = struct{}{}
		}
	}
}

// KeyGenerator sets the function generating a primary key value for new
// entities that have none. It only applies to single-column keys.
func KeyGenerator(fn func() any) EntityOption {
	return func(e *Entity) { e.keyGenerator = fn }
}

// AutoIncrement marks the single-column primary key as generated by the
// database on insert.
func AutoIncrement() EntityOption {
	return func(e *Entity) { e.autoIncrement = true }
}

func newEntity(name string, r *Registry) *Entity {
	return &Entity{
		name:       name,
		table:      inflect.Underscore(name),
		primaryKey: Key{"id"},
		propColumn: make(map[string]string),
		columnProp: make(map[string]string),
		validators: make(map[string][]Validator),
		serialized: make(map[string]struct{}),
		relations:  make(map[string]*Relation),
		registry:   r,
	}
}

// Name returns the entity name.
func (e *Entity) Name() string { return e.name }

// Table returns the table name.
func (e *Entity) Table() string { return e.table }

// PrimaryKey returns the primary key columns.
func (e *Entity) PrimaryKey() Key { return e.primaryKey }

// AutoIncrement reports whether the database generates the primary key.
func (e *Entity) AutoIncrement() bool { return e.autoIncrement }

// GenerateKey returns a new primary key value, if the entity has a key
// generator.
func (e *Entity) GenerateKey() (any, bool) {
	if e.keyGenerator == nil || e.primaryKey.IsComposite() {
		return nil, false
	}
	return e.keyGenerator(), true
}

// Column returns the column backing prop.
func (e *Entity) Column(prop string) string {
	if c, ok := e.propColumn[prop]; ok {
		return c
	}
	return prop
}

// Prop returns the property backed by column.
func (e *Entity) Prop(column string) string {
	if p, ok := e.columnProp[column]; ok {
		return p
	}
	return column
}

// DeclaredColumns returns the columns declared at registration, if any.
func (e *Entity) DeclaredColumns() []string { return e.columns }

// ResolveColumns returns the declared columns, or lists them with l.
// Listers are expected to cache their results.
func (e *Entity) ResolveColumns(ctx context.Context, l ColumnLister) ([]string, error) {
	if len(e.columns) > 0 {
		return e.columns, nil
	}
	if l == nil {
		return nil, fmt.Errorf("schema: entity %s: no declared columns and no column lister", e.name)
	}
	return l.Columns(ctx, e.table)
}

// Validate runs the validators of prop against value.
func (e *Entity) Validate(prop string, value any) error {
	for _, v := range e.validators[prop] {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// ValidatedProps returns the properties with validators, sorted.
func (e *Entity) ValidatedProps() []string {
	props := make([]string, 0, len(e.validators))
	for p := range e.validators {
		props = append(props, p)
	}
	sort.Strings(props)
	return props
}

// IsSerialized reports whether prop is stored as a msgpack blob.
func (e *Entity) IsSerialized(prop string) bool {
	_, ok := e.serialized[prop]
	return ok
}

// Encode converts a property value to its column value.
func (e *Entity) Encode(prop string, v any) (any, error) {
	if v == nil || !e.IsSerialized(prop) {
		return v, nil
	}
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("schema: encode %s.%s: %w", e.name, prop, err)
	}
	return b, nil
}

// Decode converts a column value to its property value.
func (e *Entity) Decode(prop string, v any) (any, error) {
	if v == nil || !e.IsSerialized(prop) {
		return v, nil
	}
	var b []byte
	switch v := v.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return nil, fmt.Errorf("schema: decode %s.%s: unexpected column type %T", e.name, prop, v)
	}
	var out any
	if err := msgpack.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("schema: decode %s.%s: %w", e.name, prop, err)
	}
	return out, nil
}

// Relation returns the relation registered under name.
func (e *Entity) Relation(name string) (*Relation, bool) {
	r, ok := e.relations[name]
	return r, ok
}

// Relations returns the relations in registration order.
func (e *Entity) Relations() []*Relation {
	rels := make([]*Relation, len(e.order))
	for i, name := range e.order {
		rels[i] = e.relations[name]
	}
	return rels
}

// CascadeRelations returns the relations deleted along with the entity.
func (e *Entity) CascadeRelations() []*Relation {
	var rels []*Relation
	for _, name := range e.order {
		if r := e.relations[name]; r.Cascade {
			rels = append(rels, r)
		}
	}
	return rels
}

// String implements fmt.Stringer.
func (e *Entity) String() string { return e.name }
