package sql

import (
	"fmt"
	"strings"

	"github.com/syssam/vorm/dialect"
)

// templates maps every action to its statement skeleton. Each ":slot" is
// filled by the compiler filler of the same name.
var templates = map[Action]string{
	ActionSelect: "SELECT :distinct:columns FROM :table",
	ActionInsert: "INSERT INTO :table (:columns) VALUES :values",
	ActionUpdate: "UPDATE :table SET :sets",
	ActionDelete: "DELETE FROM :table",
}

// compiler renders a clause model into SQL text and its ordered
// parameters. Parameters are appended in the exact order their "?"
// tokens are written, so nested sub-queries splice their parameters
// ahead of the parent's remaining ones.
type compiler struct {
	d      *Dialect
	sb     strings.Builder
	params []any
	err    error
}

func newCompiler(d *Dialect) *compiler {
	return &compiler{d: d}
}

func (c *compiler) compile(cl *clauses) error {
	tpl, ok := templates[cl.action]
	if !ok {
		return ErrNoAction
	}
	if err := cl.where.balanced(); err != nil {
		return fmt.Errorf("sql: where: %w", err)
	}
	if err := cl.having.balanced(); err != nil {
		return fmt.Errorf("sql: having: %w", err)
	}
	for _, j := range cl.joins {
		if err := j.on.balanced(); err != nil {
			return fmt.Errorf("sql: on: %w", err)
		}
	}
	// Oracle paginates through a ROWNUM sub-select, which cannot be locked.
	if cl.forUpdate && cl.limit > 0 && c.d.name == dialect.Oracle {
		return fmt.Errorf("sql: select: FOR UPDATE cannot be combined with LIMIT on %s", c.d.name)
	}
	if err := c.fill(tpl, cl); err != nil {
		return err
	}
	switch cl.action {
	case ActionSelect:
		c.compileJoins(cl)
		c.compileWhere(" WHERE ", cl.where)
		c.compileList(" GROUP BY ", cl.groupBy)
		c.compileWhere(" HAVING ", cl.having)
		c.compileOrder(cl.orderBy)
		if cl.limit > 0 {
			query := c.d.Paginate(c.sb.String(), cl.limit, cl.offset)
			c.sb.Reset()
			c.sb.WriteString(query)
		}
		if cl.forUpdate && c.d.name != dialect.SQLite {
			c.sb.WriteString(" FOR UPDATE")
		}
	case ActionUpdate, ActionDelete:
		c.compileWhere(" WHERE ", cl.where)
		if c.d.name == dialect.MySQL {
			c.compileOrder(cl.orderBy)
			if cl.limit > 0 {
				fmt.Fprintf(&c.sb, " LIMIT %d", cl.limit)
			}
		}
	case ActionInsert:
		if cl.returning != "" && c.d.name == dialect.Postgres {
			c.sb.WriteString(" RETURNING ")
			c.sb.WriteString(c.d.Quote(cl.returning))
		}
	}
	return c.err
}

// fill writes tpl, replacing every ":slot" with the output of its filler.
func (c *compiler) fill(tpl string, cl *clauses) error {
	for i := 0; i < len(tpl); i++ {
		if tpl[i] != ':' {
			c.sb.WriteByte(tpl[i])
			continue
		}
		j := i + 1
		for j < len(tpl) && tpl[j] >= 'a' && tpl[j] <= 'z' {
			j++
		}
		if err := c.slot(tpl[i+1:j], cl); err != nil {
			return err
		}
		i = j - 1
	}
	return nil
}

func (c *compiler) slot(name string, cl *clauses) error {
	switch name {
	case "distinct":
		if cl.distinct {
			c.sb.WriteString("DISTINCT ")
		}
	case "table":
		if cl.table == nil {
			return fmt.Errorf("sql: %s: missing table", cl.action)
		}
		c.writeTable(cl.table)
	case "columns":
		if cl.action == ActionInsert {
			if len(cl.insertColumns) == 0 {
				return fmt.Errorf("sql: insert: missing columns")
			}
			for i, col := range cl.insertColumns {
				if i > 0 {
					c.sb.WriteString(", ")
				}
				c.sb.WriteString(c.d.Quote(col))
			}
			return nil
		}
		if len(cl.columns) == 0 {
			c.sb.WriteByte('*')
			return nil
		}
		for i, col := range cl.columns {
			if i > 0 {
				c.sb.WriteString(", ")
			}
			c.writeColumn(col, true)
		}
	case "values":
		if len(cl.rows) == 0 {
			return fmt.Errorf("sql: insert: missing values")
		}
		for i, row := range cl.rows {
			if i > 0 {
				c.sb.WriteString(", ")
			}
			c.sb.WriteByte('(')
			for j, v := range row {
				if j > 0 {
					c.sb.WriteString(", ")
				}
				c.writeValue(v)
			}
			c.sb.WriteByte(')')
		}
	case "sets":
		if len(cl.sets) == 0 {
			return fmt.Errorf("sql: update: missing set values")
		}
		for i, s := range cl.sets {
			if i > 0 {
				c.sb.WriteString(", ")
			}
			c.sb.WriteString(c.d.Quote(s.column))
			c.sb.WriteString(" = ")
			c.writeValue(s.value)
		}
	default:
		return fmt.Errorf("sql: unknown template slot %q", name)
	}
	return nil
}

func (c *compiler) compileJoins(cl *clauses) {
	for _, j := range cl.joins {
		c.sb.WriteByte(' ')
		if j.kind != "" {
			c.sb.WriteString(j.kind)
			c.sb.WriteByte(' ')
		}
		c.sb.WriteString("JOIN ")
		c.writeTable(j.table)
		if !j.on.empty() {
			c.sb.WriteString(" ON ")
			c.writeGroup(j.on)
		}
	}
}

func (c *compiler) compileWhere(keyword string, g *clauseGroup) {
	if g.empty() {
		return
	}
	c.sb.WriteString(keyword)
	c.writeGroup(g)
}

func (c *compiler) compileList(keyword string, cols []any) {
	if len(cols) == 0 {
		return
	}
	c.sb.WriteString(keyword)
	for i, col := range cols {
		if i > 0 {
			c.sb.WriteString(", ")
		}
		c.writeColumn(col, false)
	}
}

func (c *compiler) compileOrder(orders []order) {
	if len(orders) == 0 {
		return
	}
	c.sb.WriteString(" ORDER BY ")
	for i, o := range orders {
		if i > 0 {
			c.sb.WriteString(", ")
		}
		c.writeColumn(o.column, false)
		if o.dir != "" {
			c.sb.WriteByte(' ')
			c.sb.WriteString(o.dir)
		}
	}
}

// writeGroup renders the items of g. Empty sub-groups are skipped along
// with their delimiter.
func (c *compiler) writeGroup(g *clauseGroup) {
	first := true
	for _, it := range g.items {
		if it.group != nil && it.group.empty() {
			continue
		}
		if !first {
			c.sb.WriteByte(' ')
			c.sb.WriteString(it.delim)
			c.sb.WriteByte(' ')
		}
		first = false
		switch {
		case it.cond != nil:
			c.writeCondition(it.cond)
		case it.raw != nil:
			c.writeExpr(*it.raw)
		case it.exists != nil:
			if it.exists.not {
				c.sb.WriteString("NOT ")
			}
			c.sb.WriteString("EXISTS ")
			c.writeSub(it.exists.sub)
		case it.group != nil:
			c.sb.WriteByte('(')
			c.writeGroup(it.group)
			c.sb.WriteByte(')')
		}
	}
}

func (c *compiler) writeCondition(cond *condition) {
	switch cond.op {
	case "IN", "NOT IN":
		if list, ok := cond.value.([]any); ok {
			c.writeIn(cond, list)
			return
		}
	case "BETWEEN", "NOT BETWEEN":
		list := cond.value.([]any)
		c.writeColumn(cond.column, false)
		c.sb.WriteByte(' ')
		c.sb.WriteString(cond.op)
		c.sb.WriteByte(' ')
		c.writeValue(list[0])
		c.sb.WriteString(" AND ")
		c.writeValue(list[1])
		return
	}
	c.writeColumn(cond.column, false)
	if cond.value == nil {
		switch cond.op {
		case "=", "IS":
			c.sb.WriteString(" IS NULL")
			return
		case "!=", "<>", "IS NOT":
			c.sb.WriteString(" IS NOT NULL")
			return
		}
	}
	c.sb.WriteByte(' ')
	c.sb.WriteString(cond.op)
	c.sb.WriteByte(' ')
	c.writeValue(cond.value)
}

// writeIn renders an IN list, splitting lists longer than maxInList.
func (c *compiler) writeIn(cond *condition, list []any) {
	if len(list) <= maxInList {
		c.writeInList(cond, list)
		return
	}
	delim := " OR "
	if cond.op == "NOT IN" {
		delim = " AND "
	}
	c.sb.WriteByte('(')
	for i := 0; i < len(list); i += maxInList {
		if i > 0 {
			c.sb.WriteString(delim)
		}
		c.writeInList(cond, list[i:min(i+maxInList, len(list))])
	}
	c.sb.WriteByte(')')
}

func (c *compiler) writeInList(cond *condition, list []any) {
	c.writeColumn(cond.column, false)
	c.sb.WriteByte(' ')
	c.sb.WriteString(cond.op)
	c.sb.WriteString(" (")
	for i, v := range list {
		if i > 0 {
			c.sb.WriteString(", ")
		}
		c.writeValue(v)
	}
	c.sb.WriteByte(')')
}

// writeColumn renders a column reference. Output aliases are only
// honored in select lists.
func (c *compiler) writeColumn(col any, selecting bool) {
	switch col := col.(type) {
	case string:
		if !selecting {
			if name, _, ok := splitAlias(col); ok {
				col = name
			}
		}
		c.sb.WriteString(c.d.Quote(col))
	case ColumnRef:
		if !selecting {
			col.Alias = ""
		}
		c.sb.WriteString(col.Quote(c.d))
	case Expr:
		c.writeExpr(col)
	case aliased:
		c.writeSub(col.sub)
		c.sb.WriteString(" AS ")
		c.sb.WriteString(c.d.quoteName(col.alias))
	case *Builder:
		c.writeSub(col)
	default:
		fmt.Fprint(&c.sb, col)
	}
}

// writeTable renders a table source. Table aliases are written without
// AS, which every supported dialect accepts.
func (c *compiler) writeTable(t any) {
	switch t := t.(type) {
	case string:
		name, alias, ok := splitAlias(t)
		c.sb.WriteString(c.d.Quote(name))
		if ok {
			c.sb.WriteByte(' ')
			c.sb.WriteString(c.d.quoteName(alias))
		}
	case aliased:
		c.writeSub(t.sub)
		c.sb.WriteByte(' ')
		c.sb.WriteString(c.d.quoteName(t.alias))
	case Expr:
		c.writeExpr(t)
	}
}

// writeValue renders a bound value. Scalars become one parameter slot.
func (c *compiler) writeValue(v any) {
	switch v := v.(type) {
	case Expr:
		c.writeExpr(v)
	case *Builder:
		c.writeSub(v)
	case ColumnRef:
		c.sb.WriteString(v.Quote(c.d))
	default:
		c.sb.WriteByte('?')
		c.params = append(c.params, v)
	}
}

func (c *compiler) writeExpr(e Expr) {
	c.sb.WriteString(e.SQL)
	c.params = append(c.params, e.Args...)
}

// writeSub compiles a sub-query in place. The first sub-query error is
// kept and returned by the enclosing compile.
func (c *compiler) writeSub(sub *Builder) {
	sc := newCompiler(c.d)
	if err := sub.compileWith(sc); err != nil {
		if c.err == nil {
			c.err = fmt.Errorf("sql: sub-query: %w", err)
		}
		return
	}
	c.sb.WriteByte('(')
	c.sb.WriteString(sc.sb.String())
	c.sb.WriteByte(')')
	c.params = append(c.params, sc.params...)
}
