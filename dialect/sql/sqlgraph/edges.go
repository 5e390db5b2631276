package sqlgraph

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/syssam/vorm/dialect"
	"github.com/syssam/vorm/dialect/sql"
	"github.com/syssam/vorm/schema"
)

// LinkJunction inserts one junction row of the through relation rel per
// target key, linking the source key to every target. The rows are
// inserted with one prepared template executed once per target.
func LinkJunction(ctx context.Context, ex dialect.ExecQuerier, d *sql.Dialect, rel *schema.Relation, source []any, targets [][]any) error {
	if !rel.Kind.Through() {
		return fmt.Errorf("sqlgraph: relation %q of kind %s has no junction", rel.Name, rel.Kind)
	}
	if len(targets) == 0 {
		return nil
	}
	columns := append(append([]string(nil), rel.ForeignKey...), rel.FarForeignKey...)
	perRow := len(columns)
	markers := make([]any, perRow)
	for i := range markers {
		markers[i] = sql.Placeholder
	}
	args := make([]any, 0, perRow*len(targets))
	for _, t := range targets {
		if len(t) != len(rel.FarForeignKey) {
			return &schema.KeyArityError{Relation: rel.Name, Left: rel.FarForeignKey, Right: rel.FarPrimaryKey}
		}
		args = append(append(args, source...), t...)
	}
	b := d.Insert(rel.Junction).Columns(columns...).Values(markers...)
	if _, err := b.BatchExec(ctx, ex, args, perRow); err != nil {
		return wrapConstraint(fmt.Sprintf("link %s.%s", rel.Source.Name(), rel.Name), err)
	}
	return nil
}

// UnlinkJunction deletes the junction rows of rel linking the source key to
// the targets, or to every target when targets is empty.
func UnlinkJunction(ctx context.Context, ex dialect.ExecQuerier, d *sql.Dialect, rel *schema.Relation, source []any, targets [][]any) (int64, error) {
	if !rel.Kind.Through() {
		return 0, fmt.Errorf("sqlgraph: relation %q of kind %s has no junction", rel.Name, rel.Kind)
	}
	b := d.Delete(rel.Junction)
	for i, c := range rel.ForeignKey {
		b.Where(c, "=", source[i])
	}
	if len(targets) > 0 {
		WhereKeys(b, rel.FarForeignKey, targets)
	}
	res, err := b.Exec(ctx, ex)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// SetForeignKey points the foreign key of the HasOne or HasMany relation
// rel at source on the target rows matching targets. A nil source clears
// the foreign key of the target rows currently pointing at from instead.
func SetForeignKey(ctx context.Context, ex dialect.ExecQuerier, d *sql.Dialect, rel *schema.Relation, source, from []any, targets [][]any) (int64, error) {
	if rel.Kind != schema.HasOne && rel.Kind != schema.HasMany {
		return 0, fmt.Errorf("sqlgraph: relation %q of kind %s has no foreign key on the target", rel.Name, rel.Kind)
	}
	table := rel.Target.Table()
	b := d.Update(table)
	for i, c := range rel.ForeignKey {
		if source == nil {
			b.Set(c, nil)
			continue
		}
		b.Set(c, source[i])
	}
	if from != nil {
		for i, c := range rel.ForeignKey {
			b.Where(c, "=", from[i])
		}
	}
	if len(targets) > 0 {
		WhereKeys(b, rel.Target.PrimaryKey(), targets)
	}
	res, err := b.Exec(ctx, ex)
	if err != nil {
		return 0, wrapConstraint(fmt.Sprintf("set %s.%s", rel.Source.Name(), rel.Name), err)
	}
	return res.RowsAffected, nil
}

// DeleteKeys deletes the rows of table whose columns match one of tuples.
func DeleteKeys(ctx context.Context, ex dialect.ExecQuerier, d *sql.Dialect, table string, columns []string, tuples [][]any) (int64, error) {
	if len(tuples) == 0 {
		return 0, nil
	}
	res, err := WhereKeys(d.Delete(table), columns, tuples).Exec(ctx, ex)
	if err != nil {
		return 0, wrapConstraint("delete "+table, err)
	}
	return res.RowsAffected, nil
}

// CascadeStep reports one cascade delete.
type CascadeStep struct {
	Relation *schema.Relation
	Deleted  int64
}

// DeleteCascade deletes, for every cascade relation of meta, the target
// rows owned by the rows of meta with the given primary keys. It descends
// into the cascade relations of the targets first. Entity rows already
// visited are skipped, so cyclic cascades terminate. The rows of meta
// itself are left to the caller.
func DeleteCascade(ctx context.Context, ex dialect.ExecQuerier, d *sql.Dialect, meta *schema.Entity, keys [][]any) ([]CascadeStep, error) {
	visited := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		visited[meta.Name()+"#"+schema.Hash(k)] = struct{}{}
	}
	var steps []CascadeStep
	err := deleteCascade(ctx, ex, d, meta, keys, visited, &steps)
	return steps, err
}

func deleteCascade(ctx context.Context, ex dialect.ExecQuerier, d *sql.Dialect, meta *schema.Entity, keys [][]any, visited map[string]struct{}, steps *[]CascadeStep) error {
	if len(keys) == 0 {
		return nil
	}
	for _, rel := range meta.CascadeRelations() {
		target := rel.Target
		// The relation references the parent through rel.PrimaryKey, which
		// may differ from the parent primary key.
		parents := keys
		if !rel.PrimaryKey.Equal(meta.PrimaryKey()) {
			var err error
			if parents, err = selectKeys(ctx, ex, d, meta.Table(), rel.PrimaryKey, meta.PrimaryKey(), keys, nil); err != nil {
				return err
			}
		}
		if len(parents) == 0 {
			continue
		}
		if len(target.CascadeRelations()) > 0 {
			// Only rows matching the relation conditions are deleted, so only
			// those are descended into.
			children, err := selectKeys(ctx, ex, d, target.Table(), target.PrimaryKey(), rel.ForeignKey, parents, rel)
			if err != nil {
				return err
			}
			children = lo.Filter(children, func(k []any, _ int) bool {
				id := target.Name() + "#" + schema.Hash(k)
				if _, ok := visited[id]; ok {
					return false
				}
				visited[id] = struct{}{}
				return true
			})
			if err := deleteCascade(ctx, ex, d, target, children, visited, steps); err != nil {
				return err
			}
		}
		b := whereConditions(WhereKeys(d.Delete(target.Table()), rel.ForeignKey, parents), rel)
		res, err := b.Exec(ctx, ex)
		if err != nil {
			return wrapConstraint(fmt.Sprintf("cascade %s.%s", meta.Name(), rel.Name), err)
		}
		*steps = append(*steps, CascadeStep{Relation: rel, Deleted: res.RowsAffected})
	}
	return nil
}

// whereConditions restricts b to the target rows satisfying the conditions
// of rel. A nil rel adds nothing.
func whereConditions(b *sql.Builder, rel *schema.Relation) *sql.Builder {
	if rel == nil {
		return b
	}
	for _, c := range rel.ConditionColumns() {
		b.Where(c, "=", rel.Conditions[c])
	}
	return b
}

// selectKeys returns the values of columns of the rows of table whose
// match columns equal one of tuples and that satisfy the conditions of
// rel, if any.
func selectKeys(ctx context.Context, ex dialect.ExecQuerier, d *sql.Dialect, table string, columns, match []string, tuples [][]any, rel *schema.Relation) ([][]any, error) {
	b := d.Select(lo.ToAnySlice(columns)...).From(table)
	whereConditions(WhereKeys(b, match, tuples), rel)
	return sql.FindAll(ctx, ex, b, func(r sql.Row) ([]any, error) {
		values := make([]any, len(columns))
		for i, c := range columns {
			values[i] = r[c]
		}
		return values, nil
	})
}
