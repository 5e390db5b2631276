package vorm

import (
	"context"
	"fmt"
	"sync"

	"github.com/syssam/vorm/dialect"
	"github.com/syssam/vorm/schema"
)

// HookType is the lifecycle point a hook runs at.
type HookType uint8

// Lifecycle points.
const (
	BeforeCreate HookType = iota
	AfterCreate
	BeforeUpdate
	AfterUpdate
	BeforeDelete
	AfterDelete
)

// String returns the hook type name.
func (t HookType) String() string {
	switch t {
	case BeforeCreate:
		return "BeforeCreate"
	case AfterCreate:
		return "AfterCreate"
	case BeforeUpdate:
		return "BeforeUpdate"
	case AfterUpdate:
		return "AfterUpdate"
	case BeforeDelete:
		return "BeforeDelete"
	case AfterDelete:
		return "AfterDelete"
	default:
		return fmt.Sprintf("HookType(%d)", uint8(t))
	}
}

// Hook runs inside the transaction of a create, update or delete. ex is
// the transaction, so statements issued by the hook commit or roll back
// with the operation. A hook error aborts the operation.
type Hook func(ctx context.Context, ex dialect.ExecQuerier, e *Entity) error

type hookKey struct {
	entity string
	typ    HookType
}

// Hooks holds the lifecycle hooks of every entity type. It is safe for
// concurrent use.
type Hooks struct {
	mu    sync.RWMutex
	hooks map[hookKey][]Hook
}

// NewHooks returns an empty hook registry.
func NewHooks() *Hooks {
	return &Hooks{hooks: make(map[hookKey][]Hook)}
}

// On registers fn to run at t for entities of meta. Hooks of the same
// point run in registration order.
func (h *Hooks) On(meta *schema.Entity, t HookType, fn Hook) *Hooks {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := hookKey{entity: meta.Name(), typ: t}
	h.hooks[k] = append(h.hooks[k], fn)
	return h
}

// Has reports whether a hook is registered for meta at any of types.
func (h *Hooks) Has(meta *schema.Entity, types ...HookType) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, t := range types {
		if len(h.hooks[hookKey{entity: meta.Name(), typ: t}]) > 0 {
			return true
		}
	}
	return false
}

// Run runs the hooks of e's entity type registered at t, stopping at the
// first error.
func (h *Hooks) Run(ctx context.Context, ex dialect.ExecQuerier, t HookType, e *Entity) error {
	h.mu.RLock()
	hooks := h.hooks[hookKey{entity: e.meta.Name(), typ: t}]
	h.mu.RUnlock()
	for _, fn := range hooks {
		if err := fn(ctx, ex, e); err != nil {
			return err
		}
	}
	return nil
}
