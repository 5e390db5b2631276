package schema

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Registry holds the entity metadata of an application. It is built once
// at startup and frozen before serving requests; after Freeze it is
// read-only and safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Entity
	order    []string
	frozen   bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]*Entity)}
}

// Register adds an entity type under name.
func (r *Registry) Register(name string, opts ...EntityOption) (*Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return nil, ErrFrozen
	}
	if name == "" {
		return nil, fmt.Errorf("schema: entity name is required")
	}
	if _, ok := r.entities[name]; ok {
		return nil, fmt.Errorf("schema: entity %s already registered", name)
	}
	e := newEntity(name, r)
	for _, opt := range opts {
		opt(e)
	}
	if e.table == "" {
		return nil, fmt.Errorf("schema: entity %s: table name is required", name)
	}
	if len(e.primaryKey) == 0 {
		return nil, fmt.Errorf("schema: entity %s: primary key is required", name)
	}
	if e.autoIncrement && e.primaryKey.IsComposite() {
		return nil, fmt.Errorf("schema: entity %s: auto increment requires a single-column key", name)
	}
	r.entities[name] = e
	r.order = append(r.order, name)
	return e, nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, opts ...EntityOption) *Entity {
	e, err := r.Register(name, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Lookup returns the entity registered under name.
func (r *Registry) Lookup(name string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[name]
	return e, ok
}

// Entities returns the registered entities in registration order.
func (r *Registry) Entities() []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entity, len(r.order))
	for i, name := range r.order {
		out[i] = r.entities[name]
	}
	return out
}

// Freeze checks that every relation targets an entity of this registry and
// makes the registry read-only.
func (r *Registry) Freeze() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.order {
		e := r.entities[name]
		for _, rel := range e.relations {
			if t, ok := r.entities[rel.Target.name]; !ok || t != rel.Target {
				return fmt.Errorf("schema: entity %s: relation %q targets unregistered entity %s", name, rel.Name, rel.Target.name)
			}
		}
	}
	r.frozen = true
	return nil
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// UUIDKey generates random (version 4) UUID primary keys. Use it with
// KeyGenerator.
func UUIDKey() any {
	return uuid.NewString()
}
