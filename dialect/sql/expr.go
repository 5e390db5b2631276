package sql

import "strings"

// Expr is an SQL fragment spliced into a statement as is. Its Args are
// bound in place of the "?" tokens the fragment contains.
//
// Expr is the only way to bypass parameterization and must never carry
// user input in its text.
type Expr struct {
	SQL  string
	Args []any
}

// Raw returns an expression rendered literally, for example sql.Raw("now()").
func Raw(s string, args ...any) Expr {
	return Expr{SQL: s, Args: args}
}

// ColumnRef references a column of a table or table alias, optionally
// under an output alias. It is an immutable value.
type ColumnRef struct {
	Table  string
	Column string
	Alias  string
}

// Col parses a column reference such as "name", "u.name", "u.name n" or
// "u.name AS n".
func Col(s string) ColumnRef {
	var c ColumnRef
	name, alias, ok := splitAlias(strings.TrimSpace(s))
	if ok {
		c.Alias = alias
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		c.Table, c.Column = name[:i], name[i+1:]
	} else {
		c.Column = name
	}
	return c
}

// C returns a column reference qualified by table.
func C(table, column string) ColumnRef {
	return ColumnRef{Table: table, Column: column}
}

// As returns a copy of the reference under the given output alias.
func (c ColumnRef) As(alias string) ColumnRef {
	c.Alias = alias
	return c
}

// String returns the unquoted "table.column" form of the reference.
func (c ColumnRef) String() string {
	if c.Table == "" {
		return c.Column
	}
	return c.Table + "." + c.Column
}

// Quote renders the reference with the identifiers quoted by d.
func (c ColumnRef) Quote(d *Dialect) string {
	var b strings.Builder
	if c.Table != "" {
		b.WriteString(d.Quote(c.Table))
		b.WriteByte('.')
	}
	b.WriteString(d.quoteName(c.Column))
	if c.Alias != "" {
		b.WriteString(" AS ")
		b.WriteString(d.quoteName(c.Alias))
	}
	return b.String()
}

// aliased is a sub-query used as a table source or a selected column.
type aliased struct {
	sub   *Builder
	alias string
}

// As wraps a sub-query so it can be used as a table source in From and
// Join, or as a selected column in Select.
func As(sub *Builder, alias string) any {
	return aliased{sub: sub, alias: alias}
}
