// Package sqlgraph resolves entity relations over SQL: it expands eager
// loading requests into joins and follow-up queries, and maintains the rows
// linking related entities.
package sqlgraph

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/syssam/vorm/dialect"
	"github.com/syssam/vorm/dialect/sql"
	"github.com/syssam/vorm/schema"
)

// ThroughAlias prefixes the reserved column aliases under which junction
// keys are selected. Columns with this prefix are used for grouping only and
// never reach a node.
const ThroughAlias = "__through_"

// Node is a loaded entity relations are attached to.
type Node interface {
	// ColumnValue returns the value of a column of the node's row.
	ColumnValue(column string) any
	// One returns the node attached under a to-one relation, or nil.
	One(name string) Node
	// SetOne attaches a to-one relation. n is nil when no row is related.
	SetOne(name string, n Node)
	// SetMany attaches a to-many relation. ns is never nil.
	SetMany(name string, ns []Node)
}

// NodeFunc builds a node of meta from its columns. The map is owned by the
// callee.
type NodeFunc func(meta *schema.Entity, columns map[string]any) (Node, error)

// With is one relation of an eager loading tree.
type With struct {
	Relation *schema.Relation
	// Path is the relation path from the queried entity, joined by ":".
	// It prefixes the column aliases of joined relations.
	Path     string
	Children []*With
}

// ParseWith builds the eager loading tree of root from dotted relation
// paths such as "author" or "author.profile".
func ParseWith(root *schema.Entity, paths ...string) ([]*With, error) {
	var withs []*With
	for _, p := range paths {
		var (
			meta   = root
			level  = &withs
			prefix string
		)
		for _, name := range strings.Split(p, ".") {
			rel, ok := meta.Relation(name)
			if !ok {
				return nil, fmt.Errorf("sqlgraph: unknown relation %q on %s", name, meta.Name())
			}
			path := name
			if prefix != "" {
				path = prefix + ":" + name
			}
			w, ok := lo.Find(*level, func(w *With) bool { return w.Relation == rel })
			if !ok {
				w = &With{Relation: rel, Path: path}
				*level = append(*level, w)
			}
			meta, level, prefix = rel.Target, &w.Children, path
		}
	}
	return withs, nil
}

// Resolver runs queries and resolves their eager loading trees.
type Resolver struct {
	Dialect *sql.Dialect
	// Columns lists the columns of joined entities without declared columns.
	Columns schema.ColumnLister
	NewNode NodeFunc
}

// Query runs b, a SELECT over meta, and attaches the relations of withs to
// the returned nodes. To-one relations are joined into b; to-many relations
// are loaded with one follow-up query each.
func (r *Resolver) Query(ctx context.Context, ex dialect.ExecQuerier, meta *schema.Entity, b *sql.Builder, withs []*With) ([]Node, error) {
	nodes, _, err := r.query(ctx, ex, meta, b, withs, nil)
	return nodes, err
}

// query is Query that also extracts the extract columns of every row out of
// the node columns, returning them in row order.
func (r *Resolver) query(ctx context.Context, ex dialect.ExecQuerier, meta *schema.Entity, b *sql.Builder, withs []*With, extract []string) ([]Node, [][]any, error) {
	b = b.Clone()
	alias := b.TableAlias()
	if !b.HasSelect() {
		b.Select(alias + ".*")
	}
	if err := r.join(ctx, b, alias, withs); err != nil {
		return nil, nil, err
	}
	var (
		nodes []Node
		keys  [][]any
	)
	err := b.FindAll(ctx, ex, func(row sql.Row) error {
		n, key, err := r.hydrate(meta, row, withs, extract)
		if err != nil {
			return err
		}
		nodes = append(nodes, n)
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if err := r.load(ctx, ex, nodes, withs); err != nil {
		return nil, nil, err
	}
	return nodes, keys, nil
}

// join adds the joins and aliased columns of every to-one relation of
// withs, recursively.
func (r *Resolver) join(ctx context.Context, b *sql.Builder, parent string, withs []*With) error {
	for _, w := range withs {
		rel := w.Relation
		alias := tableAlias(w.Path)
		switch rel.Kind {
		case schema.BelongsTo:
			b.LeftJoin(rel.Target.Table() + " " + alias)
			for i, pk := range rel.PrimaryKey {
				b.On(alias+"."+pk, "=", parent+"."+rel.ForeignKey[i])
			}
		case schema.HasOne:
			b.LeftJoin(rel.Target.Table() + " " + alias)
			for i, fk := range rel.ForeignKey {
				b.On(alias+"."+fk, "=", parent+"."+rel.PrimaryKey[i])
			}
		case schema.HasOneThrough:
			junction := alias + "__j"
			b.LeftJoin(rel.Junction + " " + junction)
			for i, fk := range rel.ForeignKey {
				b.On(junction+"."+fk, "=", parent+"."+rel.PrimaryKey[i])
			}
			b.LeftJoin(rel.Target.Table() + " " + alias)
			for i, pk := range rel.FarPrimaryKey {
				b.On(alias+"."+pk, "=", junction+"."+rel.FarForeignKey[i])
			}
		case schema.HasMany, schema.HasManyThrough:
			// Joining would repeat the parent row once per child; these are
			// loaded after the parent rows.
			continue
		default:
			return fmt.Errorf("sqlgraph: relation %q has unknown kind %s", rel.Name, rel.Kind)
		}
		for _, c := range rel.ConditionColumns() {
			b.OnValue(alias+"."+c, "=", rel.Conditions[c])
		}
		columns, err := rel.Target.ResolveColumns(ctx, r.Columns)
		if err != nil {
			return err
		}
		for _, c := range columns {
			b.Select(sql.C(alias, c).As(w.Path + ":" + c))
		}
		if err := r.join(ctx, b, alias, w.Children); err != nil {
			return err
		}
	}
	return nil
}

// tableAlias returns the table alias of a relation path.
func tableAlias(path string) string {
	return strings.ReplaceAll(path, ":", "__")
}

// hydrate splits a flat row into the node of meta and its joined
// relations, keyed by their "path:column" aliases.
func (r *Resolver) hydrate(meta *schema.Entity, row sql.Row, withs []*With, extract []string) (Node, []any, error) {
	var (
		root   = make(map[string]any, len(row))
		nested map[string]map[string]any
	)
	for k, v := range row {
		i := strings.LastIndexByte(k, ':')
		if i < 0 {
			root[k] = v
			continue
		}
		if nested == nil {
			nested = make(map[string]map[string]any)
		}
		path, column := k[:i], k[i+1:]
		if nested[path] == nil {
			nested[path] = make(map[string]any)
		}
		nested[path][column] = v
	}
	var key []any
	if len(extract) > 0 {
		key = make([]any, len(extract))
		for i, c := range extract {
			key[i] = root[c]
			delete(root, c)
		}
	}
	n, err := r.NewNode(meta, root)
	if err != nil {
		return nil, nil, err
	}
	if err := r.attach(n, nested, withs); err != nil {
		return nil, nil, err
	}
	return n, key, nil
}

// attach builds the joined relation nodes of parent.
func (r *Resolver) attach(parent Node, nested map[string]map[string]any, withs []*With) error {
	for _, w := range withs {
		if w.Relation.Kind.Many() {
			continue
		}
		columns := nested[w.Path]
		// A LEFT JOIN without a match yields a null target key.
		if _, ok := w.Relation.TargetKey().Values(func(c string) any { return columns[c] }); !ok {
			parent.SetOne(w.Relation.Name, nil)
			continue
		}
		child, err := r.NewNode(w.Relation.Target, columns)
		if err != nil {
			return err
		}
		parent.SetOne(w.Relation.Name, child)
		if err := r.attach(child, nested, w.Children); err != nil {
			return err
		}
	}
	return nil
}

// load runs the follow-up queries of the to-many relations of withs, and
// descends into joined relations to load theirs.
func (r *Resolver) load(ctx context.Context, ex dialect.ExecQuerier, nodes []Node, withs []*With) error {
	if len(nodes) == 0 {
		return nil
	}
	for _, w := range withs {
		var err error
		switch {
		case w.Relation.Kind.Many():
			err = r.loadMany(ctx, ex, nodes, w)
		default:
			children := lo.FilterMap(nodes, func(n Node, _ int) (Node, bool) {
				c := n.One(w.Relation.Name)
				return c, c != nil
			})
			err = r.load(ctx, ex, children, w.Children)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// loadMany loads a HasMany or HasManyThrough relation of nodes with one
// query filtered by the distinct parent keys, and attaches the grouped
// children. Parents without children get an empty list.
func (r *Resolver) loadMany(ctx context.Context, ex dialect.ExecQuerier, nodes []Node, w *With) error {
	rel := w.Relation
	var (
		parentKeys = make([]string, len(nodes))
		hasKey     = make([]bool, len(nodes))
		tuples     [][]any
	)
	for i, n := range nodes {
		values, ok := rel.SourceKey().Values(n.ColumnValue)
		if !ok {
			continue
		}
		parentKeys[i], hasKey[i] = schema.Hash(values), true
		tuples = append(tuples, values)
	}
	tuples = lo.UniqBy(tuples, schema.Hash)
	if len(tuples) == 0 {
		for _, n := range nodes {
			n.SetMany(rel.Name, []Node{})
		}
		return nil
	}
	var (
		target   = rel.Target
		table    = target.Table()
		b        = sql.NewBuilder(r.Dialect).From(table)
		extract  []string
		matchKey func(i int, child Node) string
	)
	switch rel.Kind {
	case schema.HasMany:
		b.Select(table + ".*")
		WhereKeys(b, rel.ForeignKey.Qualify(table), tuples)
		matchKey = func(_ int, child Node) string {
			values, _ := rel.ForeignKey.Values(child.ColumnValue)
			return schema.Hash(values)
		}
	case schema.HasManyThrough:
		b.Select(table + ".*")
		extract = make([]string, len(rel.ForeignKey))
		for i, c := range rel.ForeignKey {
			extract[i] = fmt.Sprintf("%s%d", ThroughAlias, i)
			b.Select(sql.C(rel.Junction, c).As(extract[i]))
		}
		b.Join(rel.Junction)
		for i, fk := range rel.FarForeignKey {
			b.On(rel.Junction+"."+fk, "=", table+"."+rel.FarPrimaryKey[i])
		}
		WhereKeys(b, rel.ForeignKey.Qualify(rel.Junction), tuples)
	default:
		return fmt.Errorf("sqlgraph: relation %q of kind %s is not loaded by a follow-up query", rel.Name, rel.Kind)
	}
	for _, c := range rel.ConditionColumns() {
		b.Where(table+"."+c, "=", rel.Conditions[c])
	}
	children, keys, err := r.query(ctx, ex, target, b, w.Children, extract)
	if err != nil {
		return fmt.Errorf("sqlgraph: load %s.%s: %w", rel.Source.Name(), rel.Name, err)
	}
	if matchKey == nil {
		matchKey = func(i int, _ Node) string { return schema.Hash(keys[i]) }
	}
	groups := make(map[string][]Node)
	for i, c := range children {
		k := matchKey(i, c)
		groups[k] = append(groups[k], c)
	}
	for i, n := range nodes {
		var group []Node
		if hasKey[i] {
			group = groups[parentKeys[i]]
		}
		n.SetMany(rel.Name, append(make([]Node, 0, len(group)), group...))
	}
	return nil
}

// WhereKeys restricts b to rows whose columns match one of the key tuples.
// Single-column keys render an IN list; composite keys render an OR of
// AND groups.
func WhereKeys(b *sql.Builder, columns []string, tuples [][]any) *sql.Builder {
	if len(columns) == 1 {
		return b.Where(columns[0], "IN", lo.Map(tuples, func(t []any, _ int) any { return t[0] }))
	}
	b.WhereOpen()
	for _, t := range tuples {
		b.OrWhereOpen()
		for i, c := range columns {
			b.Where(c, "=", t[i])
		}
		b.WhereClose()
	}
	return b.WhereClose()
}
