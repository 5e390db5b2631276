package sql

import (
	"fmt"
	"sort"
	"strings"
)

// Builder is a fluent, deferred-compilation statement builder. Its methods
// only mutate the clause model; SQL is rendered by Compile or by one of the
// terminal methods. A Builder is not safe for concurrent use. Clone it to
// share a template between goroutines.
//
//	b := sql.MustDialect(dialect.MySQL).
//		Select("a", "b").
//		From("t").
//		Where("id", "=", 5)
//	stmt, err := b.Compile()
//	// SELECT `a`, `b` FROM `t` WHERE `id` = ?  [5]
type Builder struct {
	dialect *Dialect
	c       *clauses
	stmt    Stmt
	err     error
}

// NewBuilder returns an empty builder for the dialect.
func NewBuilder(d *Dialect) *Builder {
	return &Builder{dialect: d, c: newClauses()}
}

// Dialect returns the dialect the builder compiles for.
func (b *Builder) Dialect() *Dialect { return b.dialect }

// Err returns the first error recorded by a builder call.
func (b *Builder) Err() error { return b.err }

// AddError records err as a build error, unless one is already recorded.
func (b *Builder) AddError(err error) *Builder {
	if b.err == nil && err != nil {
		b.err = err
	}
	return b
}

func (b *Builder) fail(method string, err error) *Builder {
	return b.AddError(fmt.Errorf("sql: %s: %w", method, err))
}

// Action returns the statement kind of the builder.
func (b *Builder) Action() Action { return b.c.action }

// HasSelect reports whether columns were added to the select list.
func (b *Builder) HasSelect() bool { return len(b.c.columns) > 0 }

// TableAlias returns the alias under which the main table is referenced.
func (b *Builder) TableAlias() string {
	switch t := b.c.table.(type) {
	case string:
		name, alias, ok := splitAlias(t)
		if ok {
			return alias
		}
		return name
	case aliased:
		return t.alias
	}
	return ""
}

// Select sets the action to SELECT and appends columns to the select list.
// Columns may be strings ("u.name", "name n"), ColumnRef, Expr or sub-queries
// wrapped with As. Duplicate string columns are ignored.
func (b *Builder) Select(columns ...any) *Builder {
	b.c.action = ActionSelect
	for _, col := range columns {
		switch col := col.(type) {
		case string:
			if !containsString(b.c.columns, col) {
				b.c.columns = append(b.c.columns, col)
			}
		case []string:
			for _, s := range col {
				b.Select(s)
			}
		case ColumnRef, Expr, aliased:
			b.c.columns = append(b.c.columns, col)
		default:
			b.fail("select", fmt.Errorf("unsupported column type %T", col))
		}
	}
	return b
}

func containsString(list []any, s string) bool {
	for _, v := range list {
		if v == any(s) {
			return true
		}
	}
	return false
}

// Distinct adds DISTINCT to the select list.
func (b *Builder) Distinct() *Builder {
	b.c.distinct = true
	return b
}

// From sets the table source: a table name ("users" or "users u") or a
// sub-query wrapped with As.
func (b *Builder) From(table any) *Builder {
	switch table.(type) {
	case string, aliased, Expr:
		b.c.table = table
	default:
		b.fail("from", fmt.Errorf("unsupported table type %T", table))
	}
	return b
}

// Insert sets the action to INSERT into table.
func (b *Builder) Insert(table string) *Builder {
	b.c.action = ActionInsert
	b.c.table = table
	return b
}

// Update sets the action to UPDATE of table.
func (b *Builder) Update(table string) *Builder {
	b.c.action = ActionUpdate
	b.c.table = table
	return b
}

// Delete sets the action to DELETE from table.
func (b *Builder) Delete(table string) *Builder {
	b.c.action = ActionDelete
	b.c.table = table
	return b
}

// Columns sets the insert columns.
func (b *Builder) Columns(columns ...string) *Builder {
	b.c.insertColumns = append(b.c.insertColumns, columns...)
	return b
}

// Values appends one row of insert values. The number of values must
// match the insert columns.
func (b *Builder) Values(values ...any) *Builder {
	if n := len(b.c.insertColumns); n != len(values) {
		return b.fail("values", fmt.Errorf("got %d values for %d columns", len(values), n))
	}
	b.c.rows = append(b.c.rows, append([]any(nil), values...))
	return b
}

// Returning sets the column whose generated value an insert reports.
// It renders a RETURNING clause on dialects that need one.
func (b *Builder) Returning(column string) *Builder {
	b.c.returning = column
	return b
}

// Set appends a column assignment to an UPDATE.
func (b *Builder) Set(column string, value any) *Builder {
	if list, ok := asList(value); ok {
		value = list
	}
	if _, ok := value.([]any); ok {
		return b.fail("set", fmt.Errorf("column %q: list values are not supported", column))
	}
	b.c.sets = append(b.c.sets, assignment{column: column, value: value})
	return b
}

// Sets appends one assignment per map entry, in column order.
func (b *Builder) Sets(values map[string]any) *Builder {
	columns := make([]string, 0, len(values))
	for c := range values {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	for _, c := range columns {
		b.Set(c, values[c])
	}
	return b
}

// Incr increments column by step.
func (b *Builder) Incr(column string, step any) *Builder {
	return b.Set(column, Raw(b.dialect.Quote(column)+" + ?", step))
}

// Where appends a predicate joined with AND. The value is bound as a
// parameter unless it is an Expr, a ColumnRef or a sub-query:
//
//	Where("age", ">=", 18)
//	Where("status", "IN", []string{"a", "b"})
//	Where("deleted_at", "=", nil)        // deleted_at IS NULL
//	Where("id", "IN", sub)               // id IN (SELECT ...)
//	Where("updated_at", "<", sql.Raw("now()"))
func (b *Builder) Where(column any, op string, value any) *Builder {
	return b.where("where", b.c.where, and, column, op, value)
}

// AndWhere is an alias of Where.
func (b *Builder) AndWhere(column any, op string, value any) *Builder {
	return b.where("andWhere", b.c.where, and, column, op, value)
}

// OrWhere appends a predicate joined with OR.
func (b *Builder) OrWhere(column any, op string, value any) *Builder {
	return b.where("orWhere", b.c.where, or, column, op, value)
}

// WhereCondition appends a raw condition joined with AND.
func (b *Builder) WhereCondition(condition string, args ...any) *Builder {
	b.c.where.add(&groupItem{delim: and, raw: &Expr{SQL: condition, Args: args}})
	return b
}

// OrWhereCondition appends a raw condition joined with OR.
func (b *Builder) OrWhereCondition(condition string, args ...any) *Builder {
	b.c.where.add(&groupItem{delim: or, raw: &Expr{SQL: condition, Args: args}})
	return b
}

// WhereExists appends an EXISTS (sub-query) condition.
func (b *Builder) WhereExists(sub *Builder) *Builder {
	b.c.where.add(&groupItem{delim: and, exists: &exists{sub: sub}})
	return b
}

// WhereNotExists appends a NOT EXISTS (sub-query) condition.
func (b *Builder) WhereNotExists(sub *Builder) *Builder {
	b.c.where.add(&groupItem{delim: and, exists: &exists{not: true, sub: sub}})
	return b
}

// WhereOpen opens a bracketed group joined with AND.
func (b *Builder) WhereOpen() *Builder {
	b.c.where.push(and)
	return b
}

// AndWhereOpen is an alias of WhereOpen.
func (b *Builder) AndWhereOpen() *Builder { return b.WhereOpen() }

// OrWhereOpen opens a bracketed group joined with OR.
func (b *Builder) OrWhereOpen() *Builder {
	b.c.where.push(or)
	return b
}

// WhereClose closes the innermost open group.
func (b *Builder) WhereClose() *Builder {
	if err := b.c.where.pop(); err != nil {
		b.fail("whereClose", err)
	}
	return b
}

// Having appends a HAVING predicate joined with AND.
func (b *Builder) Having(column any, op string, value any) *Builder {
	return b.where("having", b.c.having, and, column, op, value)
}

// AndHaving is an alias of Having.
func (b *Builder) AndHaving(column any, op string, value any) *Builder {
	return b.where("andHaving", b.c.having, and, column, op, value)
}

// OrHaving appends a HAVING predicate joined with OR.
func (b *Builder) OrHaving(column any, op string, value any) *Builder {
	return b.where("orHaving", b.c.having, or, column, op, value)
}

// HavingOpen opens a bracketed HAVING group joined with AND.
func (b *Builder) HavingOpen() *Builder {
	b.c.having.push(and)
	return b
}

// OrHavingOpen opens a bracketed HAVING group joined with OR.
func (b *Builder) OrHavingOpen() *Builder {
	b.c.having.push(or)
	return b
}

// HavingClose closes the innermost open HAVING group.
func (b *Builder) HavingClose() *Builder {
	if err := b.c.having.pop(); err != nil {
		b.fail("havingClose", err)
	}
	return b
}

func (b *Builder) where(method string, g *clauseGroup, delim string, column any, op string, value any) *Builder {
	cond, err := newCondition(column, op, value)
	if err != nil {
		return b.fail(method, err)
	}
	g.add(&groupItem{delim: delim, cond: cond})
	return b
}

// Join appends a join of table. The optional kind is LEFT, RIGHT, INNER
// or CROSS.
func (b *Builder) Join(table any, kind ...string) *Builder {
	var k string
	if len(kind) > 0 {
		k = strings.ToUpper(strings.TrimSpace(kind[0]))
		switch k {
		case "", "LEFT", "RIGHT", "INNER", "CROSS", "LEFT OUTER", "RIGHT OUTER":
		default:
			return b.fail("join", fmt.Errorf("unsupported join kind %q", kind[0]))
		}
	}
	switch table.(type) {
	case string, aliased:
	default:
		return b.fail("join", fmt.Errorf("unsupported table type %T", table))
	}
	b.c.joins = append(b.c.joins, &join{kind: k, table: table, on: newGroup()})
	return b
}

// LeftJoin appends a LEFT JOIN of table.
func (b *Builder) LeftJoin(table any) *Builder {
	return b.Join(table, "LEFT")
}

// On appends a column comparison to the last join, joined with AND.
func (b *Builder) On(c1, op, c2 string) *Builder {
	return b.on("on", and, Col(c1), op, Col(c2))
}

// OrOn appends a column comparison to the last join, joined with OR.
func (b *Builder) OrOn(c1, op, c2 string) *Builder {
	return b.on("orOn", or, Col(c1), op, Col(c2))
}

// OnValue appends a comparison of a column against a bound value to the
// last join.
func (b *Builder) OnValue(column, op string, value any) *Builder {
	return b.on("onValue", and, Col(column), op, value)
}

func (b *Builder) on(method, delim string, column ColumnRef, op string, value any) *Builder {
	if len(b.c.joins) == 0 {
		return b.fail(method, fmt.Errorf("no join to attach the condition to"))
	}
	return b.where(method, b.c.joins[len(b.c.joins)-1].on, delim, column, op, value)
}

// GroupBy appends columns to the GROUP BY list.
func (b *Builder) GroupBy(columns ...any) *Builder {
	for _, col := range columns {
		switch col.(type) {
		case string, ColumnRef, Expr:
			b.c.groupBy = append(b.c.groupBy, col)
		default:
			b.fail("groupBy", fmt.Errorf("unsupported column type %T", col))
		}
	}
	return b
}

// OrderBy appends a column to the ORDER BY list. The direction is ASC,
// DESC or empty.
func (b *Builder) OrderBy(column any, direction string) *Builder {
	dir := strings.ToUpper(strings.TrimSpace(direction))
	if dir != "" && dir != "ASC" && dir != "DESC" {
		return b.fail("orderBy", fmt.Errorf("invalid direction %q", direction))
	}
	switch column.(type) {
	case string, ColumnRef, Expr:
	default:
		return b.fail("orderBy", fmt.Errorf("unsupported column type %T", column))
	}
	b.c.orderBy = append(b.c.orderBy, order{column: column, dir: dir})
	return b
}

// Limit limits the number of returned rows.
func (b *Builder) Limit(n int) *Builder {
	b.c.limit = n
	return b
}

// Offset skips the first n rows. It only takes effect with a Limit.
func (b *Builder) Offset(n int) *Builder {
	b.c.offset = n
	return b
}

// ForUpdate locks the selected rows. Oracle cannot lock a paginated
// select, so there it fails to compile together with Limit.
func (b *Builder) ForUpdate() *Builder {
	b.c.forUpdate = true
	return b
}

// Clear resets the builder to its empty state, dropping recorded errors.
func (b *Builder) Clear() *Builder {
	b.c = newClauses()
	b.stmt.Clear()
	b.err = nil
	return b
}

// Clone returns a deep copy of the builder. The copy and the original can
// be modified independently.
func (b *Builder) Clone() *Builder {
	if b == nil {
		return nil
	}
	return &Builder{dialect: b.dialect, c: b.c.clone(), err: b.err}
}

// Compile renders the statement. The returned statement is owned by the
// builder and is reset by the next Compile; Clone it to keep it.
func (b *Builder) Compile() (*Stmt, error) {
	b.stmt.Clear()
	c := newCompiler(b.dialect)
	if err := b.compileWith(c); err != nil {
		return nil, err
	}
	b.stmt.SQL = c.sb.String()
	b.stmt.Params = append(b.stmt.Params, c.params...)
	return &b.stmt, nil
}

// MustCompile is like Compile but panics on error.
func (b *Builder) MustCompile() *Stmt {
	stmt, err := b.Compile()
	if err != nil {
		panic(err)
	}
	return stmt
}

func (b *Builder) compileWith(c *compiler) error {
	if b.err != nil {
		return b.err
	}
	return c.compile(b.c)
}
