// Package sql provides the statement builder, the dialect adapter and the
// database/sql driver of the persistence layer.
//
// A Builder accumulates clauses in any order and renders them once, in the
// canonical SQL order, when Compile is called. Every value becomes a "?"
// parameter; the driver rebinds the placeholders to the form the database
// expects right before execution.
//
// # Dialect Support
//
// Identifier quoting, literal quoting and pagination adapt to the dialect:
//
//	import "github.com/syssam/vorm/dialect"
//
//	// PostgreSQL
//	pg := sql.MustDialect(dialect.Postgres)
//	stmt, err := pg.Select("id", "name").From("users").Where("status", "=", "active").Compile()
//	// SELECT "id", "name" FROM "users" WHERE "status" = ?
//
//	// MySQL
//	my := sql.MustDialect(dialect.MySQL)
//
// # Predicates
//
// Where takes a column, an operator and a value. Lists render IN clauses,
// nil renders IS NULL, and groups are opened and closed explicitly:
//
//	pg.Select("*").From("users").
//	    Where("age", ">", 18).
//	    WhereOpen().
//	    Where("role", "IN", []string{"admin", "owner"}).
//	    OrWhere("deleted_at", "=", nil).
//	    WhereClose()
//	// SELECT * FROM "users" WHERE "age" > ? AND ("role" IN (?, ?) OR "deleted_at" IS NULL)
//
// Typed fields build the same conditions as Predicate values:
//
//	name := sql.StringField("name")
//	age := sql.Field[int]("age")
//	b.Filter(name.HasPrefix("a"), sql.Or(age.LT(18), age.IsNull()))
//
// # Joins
//
//	pg.Select(sql.C("u", "id"), sql.C("p", "title").As("post")).
//	    From("users u").
//	    LeftJoin("posts p").On("p.user_id", "=", "u.id")
//
// # Pagination
//
//	pg.Select("*").From("users").OrderBy("id", "ASC").Offset(20).Limit(10)
//	// PostgreSQL: ... LIMIT 10 OFFSET 20
//	// MySQL:      ... LIMIT 20, 10
//	// Oracle:     ROWNUM sub-selects
//
// # Placeholders and Batches
//
// Placeholder leaves a slot open, so one compiled statement serves many
// executions:
//
//	stmt := my.Insert("user_groups").Columns("user_id", "group_id").
//	    Values(sql.Placeholder, sql.Placeholder).
//	    MustCompile()
//	affected, err := stmt.BatchExec(ctx, drv, []any{1, 10, 1, 11}, 2)
//
// StmtCache shares compiled templates between goroutines, and Introspector
// caches the column lists read from the database catalog.
//
// # Drivers
//
// Driver wraps a *sql.DB. StatsDriver collects statement statistics and
// reports slow statements; DebugDriver logs every statement with slog.
package sql
