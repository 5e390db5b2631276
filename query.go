package vorm

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/vorm/dialect/sql"
	"github.com/syssam/vorm/dialect/sql/sqlgraph"
	"github.com/syssam/vorm/schema"
)

// Query is the entity-level query builder. It wraps a sql.Builder selecting
// from the entity table and resolves the requested relations of the
// returned entities. Unqualified column names are qualified with the
// entity table, so they stay unambiguous when relations are joined.
type Query struct {
	client *Client
	meta   *schema.Entity
	b      *sql.Builder
	withs  []*sqlgraph.With
	paths  []string
}

// Query returns a query over the entities of meta.
func (c *Client) Query(meta *schema.Entity) *Query {
	return &Query{
		client: c,
		meta:   meta,
		b:      sql.NewBuilder(c.dialect).From(meta.Table()),
	}
}

func (q *Query) column(c string) string {
	if strings.ContainsAny(c, ". (") {
		return c
	}
	return q.meta.Table() + "." + c
}

// Where adds a predicate joined with AND. See sql.Builder.Where.
func (q *Query) Where(column, op string, value any) *Query {
	q.b.Where(q.column(column), op, value)
	return q
}

// OrWhere adds a predicate joined with OR.
func (q *Query) OrWhere(column, op string, value any) *Query {
	q.b.OrWhere(q.column(column), op, value)
	return q
}

// Filter appends typed predicates joined with AND. Their columns are used
// as given, unqualified.
func (q *Query) Filter(ps ...sql.Predicate) *Query {
	q.b.Filter(ps...)
	return q
}

// WhereOpen opens a bracketed group joined with AND.
func (q *Query) WhereOpen() *Query {
	q.b.WhereOpen()
	return q
}

// OrWhereOpen opens a bracketed group joined with OR.
func (q *Query) OrWhereOpen() *Query {
	q.b.OrWhereOpen()
	return q
}

// WhereClose closes the innermost open group.
func (q *Query) WhereClose() *Query {
	q.b.WhereClose()
	return q
}

// OrderBy adds an ORDER BY column with direction ASC or DESC.
func (q *Query) OrderBy(column, direction string) *Query {
	q.b.OrderBy(q.column(column), direction)
	return q
}

// Limit limits the number of returned entities.
func (q *Query) Limit(n int) *Query {
	q.b.Limit(n)
	return q
}

// Offset skips the first n entities.
func (q *Query) Offset(n int) *Query {
	q.b.Offset(n)
	return q
}

// ForUpdate locks the selected rows.
func (q *Query) ForUpdate() *Query {
	q.b.ForUpdate()
	return q
}

// With eager-loads relations, given as dotted paths from the queried
// entity such as "author" or "comments.author". An unknown relation is
// recorded as an error returned by the terminal methods.
func (q *Query) With(paths ...string) *Query {
	q.paths = append(q.paths, paths...)
	withs, err := sqlgraph.ParseWith(q.meta, q.paths...)
	if err != nil {
		q.b.AddError(fmt.Errorf("sql: with: %w", err))
		return q
	}
	q.withs = withs
	return q
}

// Builder returns a copy of the underlying statement builder.
func (q *Query) Builder() *sql.Builder {
	return q.b.Clone()
}

// Clone returns a copy of the query.
func (q *Query) Clone() *Query {
	return &Query{
		client: q.client,
		meta:   q.meta,
		b:      q.b.Clone(),
		withs:  q.withs,
		paths:  append([]string(nil), q.paths...),
	}
}

// All returns the matching entities with their requested relations.
func (q *Query) All(ctx context.Context) ([]*Entity, error) {
	if err := q.b.Err(); err != nil {
		return nil, NewQueryError(q.meta.Name(), "all", err)
	}
	nodes, err := q.client.resolver().Query(ctx, q.client.ex, q.meta, q.b, q.withs)
	if err != nil {
		return nil, NewQueryError(q.meta.Name(), "all", err)
	}
	out := make([]*Entity, len(nodes))
	for i, n := range nodes {
		out[i] = n.(*Entity)
	}
	return out, nil
}

// First returns the first matching entity, or a *NotFoundError.
func (q *Query) First(ctx context.Context) (*Entity, error) {
	es, err := q.Clone().Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(es) == 0 {
		return nil, NewNotFoundError(q.meta.Name())
	}
	return es[0], nil
}

// Only returns the single matching entity. It fails with a *NotFoundError
// when nothing matches and a *NotSingularError when more than one row does.
func (q *Query) Only(ctx context.Context) (*Entity, error) {
	es, err := q.Clone().Limit(2).All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(es) {
	case 0:
		return nil, NewNotFoundError(q.meta.Name())
	case 1:
		return es[0], nil
	default:
		return nil, NewNotSingularError(q.meta.Name())
	}
}

// Get returns the entity with the primary key values pk, or a
// *NotFoundError.
func (q *Query) Get(ctx context.Context, pk ...any) (*Entity, error) {
	key := q.meta.PrimaryKey()
	if len(pk) != key.Arity() {
		return nil, NewQueryError(q.meta.Name(), "get", fmt.Errorf("primary key (%s) takes %d values, got %d", key, key.Arity(), len(pk)))
	}
	g := q.Clone()
	for i, c := range key {
		g.Where(c, "=", pk[i])
	}
	es, err := g.Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(es) == 0 {
		id := any(pk)
		if len(pk) == 1 {
			id = pk[0]
		}
		return nil, NewNotFoundErrorWithID(q.meta.Name(), id)
	}
	return es[0], nil
}

// Count returns the number of matching entities.
func (q *Query) Count(ctx context.Context) (int64, error) {
	n, err := q.b.Count(ctx, q.client.ex)
	if err != nil {
		return 0, NewQueryError(q.meta.Name(), "count", err)
	}
	return n, nil
}

// Exist reports whether any entity matches.
func (q *Query) Exist(ctx context.Context) (bool, error) {
	n, err := q.Count(ctx)
	return n > 0, err
}
