package vorm

import (
	"encoding/json"
	"maps"
	"reflect"
	"slices"

	"github.com/syssam/vorm/dialect/sql/sqlgraph"
	"github.com/syssam/vorm/schema"
)

// Entity is one row of an entity type, tracked for changes. Values are
// keyed by property name. An Entity is not safe for concurrent use.
type Entity struct {
	meta   *schema.Entity
	values map[string]any
	// dirty maps a changed property to its value before the last change.
	dirty  map[string]any
	loaded bool
	// key is the primary key the backing row was last read or written with.
	key     []any
	related map[string]any // *Entity or []*Entity
}

// New returns a new, unsaved entity of meta.
func New(meta *schema.Entity) *Entity {
	return &Entity{
		meta:   meta,
		values: make(map[string]any),
		dirty:  make(map[string]any),
	}
}

// Meta returns the entity metadata.
func (e *Entity) Meta() *schema.Entity { return e.meta }

// Get returns the value of prop, or nil.
func (e *Entity) Get(prop string) any { return e.values[prop] }

// Lookup returns the value of prop and whether it is set.
func (e *Entity) Lookup(prop string) (any, bool) {
	v, ok := e.values[prop]
	return v, ok
}

// Set assigns prop. Setting a property to its current value is a no-op.
// Otherwise the property becomes dirty and the value it held before this
// call is recorded as its original value.
func (e *Entity) Set(prop string, v any) *Entity {
	old, ok := e.values[prop]
	if ok && reflect.DeepEqual(old, v) {
		return e
	}
	e.dirty[prop] = old
	e.values[prop] = v
	return e
}

// SetAll assigns every entry of values with Set.
func (e *Entity) SetAll(values map[string]any) *Entity {
	for _, p := range slices.Sorted(maps.Keys(values)) {
		e.Set(p, values[p])
	}
	return e
}

// IsDirty reports whether any of props is dirty, or any property at all
// when props is empty.
func (e *Entity) IsDirty(props ...string) bool {
	if len(props) == 0 {
		return len(e.dirty) > 0
	}
	for _, p := range props {
		if _, ok := e.dirty[p]; ok {
			return true
		}
	}
	return false
}

// Dirty returns the dirty properties, sorted.
func (e *Entity) Dirty() []string {
	return slices.Sorted(maps.Keys(e.dirty))
}

// Original returns the value prop held before its last change, and
// whether prop is dirty.
func (e *Entity) Original(prop string) (any, bool) {
	v, ok := e.dirty[prop]
	return v, ok
}

// Loaded reports whether a row backs the entity.
func (e *Entity) Loaded() bool { return e.loaded }

// PK returns the current primary key values, and false if any part is
// unset.
func (e *Entity) PK() ([]any, bool) {
	return e.meta.PrimaryKey().Values(e.ColumnValue)
}

// Related returns the entity attached under a to-one relation. It is nil
// when no row is related.
func (e *Entity) Related(name string) (*Entity, error) {
	v, ok := e.related[name]
	if !ok {
		return nil, NewNotLoadedError(name)
	}
	r, _ := v.(*Entity)
	return r, nil
}

// RelatedMany returns the entities attached under a to-many relation.
func (e *Entity) RelatedMany(name string) ([]*Entity, error) {
	v, ok := e.related[name]
	if !ok {
		return nil, NewNotLoadedError(name)
	}
	rs, _ := v.([]*Entity)
	return rs, nil
}

// ColumnValue implements sqlgraph.Node.
func (e *Entity) ColumnValue(column string) any {
	return e.values[e.meta.Prop(column)]
}

// One implements sqlgraph.Node.
func (e *Entity) One(name string) sqlgraph.Node {
	if r, ok := e.related[name].(*Entity); ok && r != nil {
		return r
	}
	return nil
}

// SetOne implements sqlgraph.Node.
func (e *Entity) SetOne(name string, n sqlgraph.Node) {
	var r *Entity
	if n != nil {
		r = n.(*Entity)
	}
	e.setRelated(name, r)
}

// SetMany implements sqlgraph.Node.
func (e *Entity) SetMany(name string, ns []sqlgraph.Node) {
	rs := make([]*Entity, len(ns))
	for i, n := range ns {
		rs[i] = n.(*Entity)
	}
	e.setRelated(name, rs)
}

func (e *Entity) setRelated(name string, v any) {
	if e.related == nil {
		e.related = make(map[string]any)
	}
	e.related[name] = v
}

// forget drops a loaded relation, so reading it reports NotLoadedError
// until it is loaded again.
func (e *Entity) forget(name string) {
	delete(e.related, name)
}

// setClean assigns prop without marking it dirty, for values the database
// already holds.
func (e *Entity) setClean(prop string, v any) {
	e.values[prop] = v
	delete(e.dirty, prop)
}

// persisted marks the entity as backed by a row holding its current values.
func (e *Entity) persisted() {
	clear(e.dirty)
	e.loaded = true
	e.key, _ = e.PK()
}

// Map returns the properties and loaded relations of the entity as a
// map. Relations already on the path from the root render as nil.
func (e *Entity) Map() map[string]any {
	return e.toMap(make(map[*Entity]bool))
}

func (e *Entity) toMap(visited map[*Entity]bool) map[string]any {
	visited[e] = true
	defer delete(visited, e)
	m := make(map[string]any, len(e.values)+len(e.related))
	for k, v := range e.values {
		m[k] = v
	}
	for name, v := range e.related {
		switch v := v.(type) {
		case *Entity:
			if v == nil || visited[v] {
				m[name] = nil
				continue
			}
			m[name] = v.toMap(visited)
		case []*Entity:
			list := make([]any, 0, len(v))
			for _, r := range v {
				if visited[r] {
					list = append(list, nil)
					continue
				}
				list = append(list, r.toMap(visited))
			}
			m[name] = list
		}
	}
	return m
}

// MarshalJSON implements json.Marshaler.
func (e *Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Map())
}

// String implements fmt.Stringer.
func (e *Entity) String() string {
	key, _ := e.PK()
	return e.meta.Name() + formatKey(key)
}

func formatKey(key []any) string {
	b, _ := json.Marshal(key)
	return string(b)
}

var _ sqlgraph.Node = (*Entity)(nil)
