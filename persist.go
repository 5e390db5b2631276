package vorm

import (
	"context"
	"fmt"
	"maps"

	"github.com/syssam/vorm/dialect"
	"github.com/syssam/vorm/dialect/sql"
	"github.com/syssam/vorm/dialect/sql/sqlgraph"
	"github.com/syssam/vorm/schema"
)

// Create inserts e with its dirty properties. A missing single-column
// primary key is generated by the entity key generator, or read back from
// the database for auto-increment keys. A transaction is opened only when
// create hooks are registered for the entity type.
func (c *Client) Create(ctx context.Context, e *Entity) error {
	meta := e.meta
	if len(e.dirty) == 0 {
		return ErrNoData
	}
	pkProp := meta.Prop(meta.PrimaryKey()[0])
	if _, ok := e.PK(); !ok {
		if k, ok := meta.GenerateKey(); ok {
			e.Set(pkProp, k)
		}
	}
	if err := validate(e, meta.ValidatedProps()); err != nil {
		return err
	}
	var generated bool
	err := c.atomic(ctx, c.hooks.Has(meta, BeforeCreate, AfterCreate), func(ex dialect.ExecQuerier) error {
		if err := c.hooks.Run(ctx, ex, BeforeCreate, e); err != nil {
			return err
		}
		columns, values, err := columnValues(e, e.Dirty())
		if err != nil {
			return err
		}
		b := sql.NewBuilder(c.dialect).Insert(meta.Table()).Columns(columns...).Values(values...)
		_, hasKey := e.PK()
		if meta.AutoIncrement() && !hasKey {
			b.Returning(meta.PrimaryKey()[0])
		}
		res, err := b.Exec(ctx, ex)
		if err != nil {
			return err
		}
		if meta.AutoIncrement() && !hasKey {
			e.setClean(pkProp, res.LastInsertID)
			generated = true
		}
		return c.hooks.Run(ctx, ex, AfterCreate, e)
	})
	if err != nil {
		if generated {
			delete(e.values, pkProp)
		}
		return err
	}
	e.persisted()
	return nil
}

// Update writes the dirty properties of e to its row, matched by the
// primary key the row was read or written with, so the key itself may be
// among the changes. It is a no-op when nothing is dirty.
func (c *Client) Update(ctx context.Context, e *Entity) error {
	meta := e.meta
	if !e.loaded {
		return ErrNotPersisted
	}
	if len(e.dirty) == 0 {
		return nil
	}
	if err := validate(e, filterDirty(e, meta.ValidatedProps())); err != nil {
		return err
	}
	err := c.atomic(ctx, c.hooks.Has(meta, BeforeUpdate, AfterUpdate), func(ex dialect.ExecQuerier) error {
		if err := c.hooks.Run(ctx, ex, BeforeUpdate, e); err != nil {
			return err
		}
		columns, values, err := columnValues(e, e.Dirty())
		if err != nil {
			return err
		}
		stmt, err := c.stmts.Get(sql.CacheKey{Table: meta.Table(), Operation: "update", Columns: columns}, func() (*sql.Builder, error) {
			b := sql.NewBuilder(c.dialect).Update(meta.Table())
			for _, col := range columns {
				b.Set(col, sql.Placeholder)
			}
			return wherePK(b, meta), nil
		})
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(ctx, ex, append(values, e.key...)...); err != nil {
			return err
		}
		return c.hooks.Run(ctx, ex, AfterUpdate, e)
	})
	if err != nil {
		return err
	}
	e.persisted()
	return nil
}

// Delete deletes the row of e. The rows owned through cascade relations
// are deleted first, in the same transaction.
func (c *Client) Delete(ctx context.Context, e *Entity) error {
	meta := e.meta
	if !e.loaded {
		return ErrNotPersisted
	}
	cascade := len(meta.CascadeRelations()) > 0
	err := c.atomic(ctx, cascade || c.hooks.Has(meta, BeforeDelete, AfterDelete), func(ex dialect.ExecQuerier) error {
		if err := c.hooks.Run(ctx, ex, BeforeDelete, e); err != nil {
			return err
		}
		if cascade {
			steps, err := sqlgraph.DeleteCascade(ctx, ex, c.dialect, meta, [][]any{e.key})
			if err != nil {
				return err
			}
			for _, s := range steps {
				c.log.DebugContext(ctx, "vorm: cascade delete",
					"entity", s.Relation.Source.Name(), "relation", s.Relation.Name, "rows", s.Deleted)
			}
		}
		stmt, err := c.stmts.Get(sql.CacheKey{Table: meta.Table(), Operation: "delete", Columns: meta.PrimaryKey()}, func() (*sql.Builder, error) {
			return wherePK(sql.NewBuilder(c.dialect).Delete(meta.Table()), meta), nil
		})
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(ctx, ex, e.key...); err != nil {
			return err
		}
		return c.hooks.Run(ctx, ex, AfterDelete, e)
	})
	if err != nil {
		return err
	}
	e.loaded = false
	e.key = nil
	return nil
}

// Reload reads the row of e again, discarding unsaved changes and loaded
// relations.
func (c *Client) Reload(ctx context.Context, e *Entity) error {
	meta := e.meta
	if !e.loaded {
		return ErrNotPersisted
	}
	stmt, err := c.stmts.Get(sql.CacheKey{Table: meta.Table(), Operation: "find", Columns: meta.PrimaryKey()}, func() (*sql.Builder, error) {
		return wherePK(sql.NewBuilder(c.dialect).Select("*").From(meta.Table()), meta), nil
	})
	if err != nil {
		return err
	}
	var fresh sqlgraph.Node
	err = stmt.FindAll(ctx, c.ex, func(r sql.Row) error {
		n, err := newNode(meta, maps.Clone(r))
		fresh = n
		return err
	}, e.key...)
	if err != nil {
		return NewQueryError(meta.Name(), "reload", err)
	}
	if fresh == nil {
		return NewNotFoundErrorWithID(meta.Name(), formatKey(e.key))
	}
	e.values = fresh.(*Entity).values
	e.related = nil
	e.persisted()
	return nil
}

// AddRelation links e to targets under the relation name. Through
// relations insert one junction row per target. HasOne and HasMany
// relations point the foreign key of the targets at e. A BelongsTo
// relation points the foreign key of e at its single target and updates
// e when it is persisted.
func (c *Client) AddRelation(ctx context.Context, e *Entity, name string, targets ...*Entity) error {
	rel, err := relationOf(e, name)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}
	switch rel.Kind {
	case schema.BelongsTo:
		if len(targets) != 1 {
			return fmt.Errorf("vorm: relation %q links a single entity, got %d", name, len(targets))
		}
		key, ok := rel.PrimaryKey.Values(targets[0].ColumnValue)
		if !ok {
			return fmt.Errorf("vorm: relation %q: %w", name, ErrNotPersisted)
		}
		for i, fk := range rel.ForeignKey {
			e.Set(e.meta.Prop(fk), key[i])
		}
		if e.loaded {
			if err := c.Update(ctx, e); err != nil {
				return err
			}
		}
		e.setRelated(name, targets[0])
		return nil
	case schema.HasOne, schema.HasMany:
		source, keys, err := linkKeys(e, rel, targets, func(t *Entity) ([]any, bool) { return t.key, t.loaded })
		if err != nil {
			return err
		}
		if _, err := sqlgraph.SetForeignKey(ctx, c.ex, c.dialect, rel, source, nil, keys); err != nil {
			return NewMutationError(e.meta.Name(), "add "+name, err)
		}
		for _, t := range targets {
			for i, fk := range rel.ForeignKey {
				t.setClean(t.meta.Prop(fk), source[i])
			}
		}
	case schema.HasOneThrough, schema.HasManyThrough:
		source, keys, err := linkKeys(e, rel, targets, func(t *Entity) ([]any, bool) { return rel.FarPrimaryKey.Values(t.ColumnValue) })
		if err != nil {
			return err
		}
		err = c.atomic(ctx, len(keys) > 1, func(ex dialect.ExecQuerier) error {
			return sqlgraph.LinkJunction(ctx, ex, c.dialect, rel, source, keys)
		})
		if err != nil {
			return NewMutationError(e.meta.Name(), "add "+name, err)
		}
	default:
		return fmt.Errorf("vorm: relation %q has unknown kind %s", name, rel.Kind)
	}
	e.forget(name)
	return nil
}

// RemoveRelation unlinks targets from e under the relation name. Through
// relations delete the junction rows, or all of them when no target is
// given. HasOne and HasMany relations clear the foreign key of the
// targets. A BelongsTo relation clears the foreign key of e.
func (c *Client) RemoveRelation(ctx context.Context, e *Entity, name string, targets ...*Entity) error {
	rel, err := relationOf(e, name)
	if err != nil {
		return err
	}
	switch rel.Kind {
	case schema.BelongsTo:
		for _, fk := range rel.ForeignKey {
			e.Set(e.meta.Prop(fk), nil)
		}
		if e.loaded {
			if err := c.Update(ctx, e); err != nil {
				return err
			}
		}
		e.setRelated(name, (*Entity)(nil))
		return nil
	case schema.HasOne, schema.HasMany:
		source, keys, err := linkKeys(e, rel, targets, func(t *Entity) ([]any, bool) { return t.key, t.loaded })
		if err != nil {
			return err
		}
		if _, err := sqlgraph.SetForeignKey(ctx, c.ex, c.dialect, rel, nil, source, keys); err != nil {
			return NewMutationError(e.meta.Name(), "remove "+name, err)
		}
		for _, t := range targets {
			for _, fk := range rel.ForeignKey {
				t.setClean(t.meta.Prop(fk), nil)
			}
		}
	case schema.HasOneThrough, schema.HasManyThrough:
		source, keys, err := linkKeys(e, rel, targets, func(t *Entity) ([]any, bool) { return rel.FarPrimaryKey.Values(t.ColumnValue) })
		if err != nil {
			return err
		}
		if _, err := sqlgraph.UnlinkJunction(ctx, c.ex, c.dialect, rel, source, keys); err != nil {
			return NewMutationError(e.meta.Name(), "remove "+name, err)
		}
	default:
		return fmt.Errorf("vorm: relation %q has unknown kind %s", name, rel.Kind)
	}
	e.forget(name)
	return nil
}

func relationOf(e *Entity, name string) (*schema.Relation, error) {
	rel, ok := e.meta.Relation(name)
	if !ok {
		return nil, fmt.Errorf("vorm: unknown relation %q on %s", name, e.meta.Name())
	}
	return rel, nil
}

// linkKeys returns the source key of e under rel and the key of every
// target, as read by key.
func linkKeys(e *Entity, rel *schema.Relation, targets []*Entity, key func(*Entity) ([]any, bool)) ([]any, [][]any, error) {
	if !e.loaded {
		return nil, nil, ErrNotPersisted
	}
	source, ok := rel.PrimaryKey.Values(e.ColumnValue)
	if !ok {
		return nil, nil, fmt.Errorf("vorm: relation %q: %s has no key value", rel.Name, e)
	}
	keys := make([][]any, 0, len(targets))
	for _, t := range targets {
		if t.meta != rel.Target {
			return nil, nil, fmt.Errorf("vorm: relation %q targets %s, got %s", rel.Name, rel.Target.Name(), t.meta.Name())
		}
		k, ok := key(t)
		if !ok {
			return nil, nil, fmt.Errorf("vorm: relation %q: target %s: %w", rel.Name, t, ErrNotPersisted)
		}
		keys = append(keys, k)
	}
	return source, keys, nil
}

// validate runs the validators of props, collecting every failure.
func validate(e *Entity, props []string) error {
	var errs []error
	for _, p := range props {
		if err := e.meta.Validate(p, e.values[p]); err != nil {
			errs = append(errs, NewValidationError(p, err))
		}
	}
	return NewAggregateError(errs...)
}

func filterDirty(e *Entity, props []string) []string {
	var out []string
	for _, p := range props {
		if e.IsDirty(p) {
			out = append(out, p)
		}
	}
	return out
}

// columnValues maps props to their columns and encoded values.
func columnValues(e *Entity, props []string) ([]string, []any, error) {
	columns := make([]string, len(props))
	values := make([]any, len(props))
	for i, p := range props {
		v, err := e.meta.Encode(p, e.values[p])
		if err != nil {
			return nil, nil, err
		}
		columns[i], values[i] = e.meta.Column(p), v
	}
	return columns, values, nil
}

// wherePK restricts b to the row of a primary key given as placeholder
// arguments.
func wherePK(b *sql.Builder, meta *schema.Entity) *sql.Builder {
	for _, pk := range meta.PrimaryKey() {
		b.Where(pk, "=", sql.Placeholder)
	}
	return b
}
