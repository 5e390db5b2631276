package sql

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Action is the statement kind a builder compiles to.
type Action uint8

// Statement kinds.
const (
	ActionNone Action = iota
	ActionSelect
	ActionInsert
	ActionUpdate
	ActionDelete
)

// String returns the SQL keyword of the action.
func (a Action) String() string {
	switch a {
	case ActionSelect:
		return "SELECT"
	case ActionInsert:
		return "INSERT"
	case ActionUpdate:
		return "UPDATE"
	case ActionDelete:
		return "DELETE"
	default:
		return "NONE"
	}
}

// Build errors.
var (
	// ErrNoAction is returned when compiling a builder that has no action.
	ErrNoAction = errors.New("sql: no action set (call Select, Insert, Update or Delete)")
	// ErrUnbalanced is returned when clause groups are opened and closed unevenly.
	ErrUnbalanced = errors.New("sql: unbalanced clause group")
)

// Boolean delimiters joining conditions of a group.
const (
	and = "AND"
	or  = "OR"
)

// maxInList is the largest IN list rendered as a single predicate.
// Longer lists are split into an OR (or AND for NOT IN) group.
const maxInList = 1000

var operators = map[string]struct{}{
	"=": {}, "!=": {}, "<>": {}, "<": {}, "<=": {}, ">": {}, ">=": {},
	"LIKE": {}, "NOT LIKE": {}, "ILIKE": {}, "REGEXP": {},
	"IN": {}, "NOT IN": {}, "BETWEEN": {}, "NOT BETWEEN": {},
	"IS": {}, "IS NOT": {},
}

// condition is a single (column, operator, value) predicate.
type condition struct {
	column any // string, ColumnRef or Expr
	op     string
	value  any
}

// exists is an EXISTS (sub-query) predicate.
type exists struct {
	not bool
	sub *Builder
}

// groupItem is one entry of a clause group. Exactly one of cond, raw,
// exists and group is set. The delimiter connecting the item to its
// predecessor is recorded when the item is inserted.
type groupItem struct {
	delim  string
	cond   *condition
	raw    *Expr
	exists *exists
	group  *clauseGroup
}

// clauseGroup is a WHERE, HAVING or ON expression tree.
type clauseGroup struct {
	items []*groupItem
	// open holds the chain of sub-groups currently accepting items,
	// innermost last. It is only maintained on the root group.
	open []*clauseGroup
}

func newGroup() *clauseGroup { return &clauseGroup{} }

// current returns the group new items are appended to.
func (g *clauseGroup) current() *clauseGroup {
	if n := len(g.open); n > 0 {
		return g.open[n-1]
	}
	return g
}

func (g *clauseGroup) add(item *groupItem) {
	cur := g.current()
	cur.items = append(cur.items, item)
}

// push opens a bracketed sub-group joined by delim.
func (g *clauseGroup) push(delim string) {
	sub := newGroup()
	g.add(&groupItem{delim: delim, group: sub})
	g.open = append(g.open, sub)
}

// pop closes the innermost open sub-group.
func (g *clauseGroup) pop() error {
	if len(g.open) == 0 {
		return fmt.Errorf("%w: close without a matching open", ErrUnbalanced)
	}
	g.open = g.open[:len(g.open)-1]
	return nil
}

// balanced reports whether every opened sub-group was closed.
func (g *clauseGroup) balanced() error {
	if n := len(g.open); n > 0 {
		return fmt.Errorf("%w: %d group(s) left open", ErrUnbalanced, n)
	}
	return nil
}

// empty reports whether the group renders nothing.
func (g *clauseGroup) empty() bool {
	for _, it := range g.items {
		if it.group == nil || !it.group.empty() {
			return false
		}
	}
	return true
}

// clone deep-copies the group, including the chain of open sub-groups.
func (g *clauseGroup) clone() *clauseGroup {
	if g == nil {
		return nil
	}
	seen := make(map[*clauseGroup]*clauseGroup)
	c := g.cloneInto(seen)
	for _, o := range g.open {
		c.open = append(c.open, seen[o])
	}
	return c
}

func (g *clauseGroup) cloneInto(seen map[*clauseGroup]*clauseGroup) *clauseGroup {
	c := &clauseGroup{items: make([]*groupItem, len(g.items))}
	seen[g] = c
	for i, it := range g.items {
		n := &groupItem{delim: it.delim}
		switch {
		case it.cond != nil:
			cond := *it.cond
			cond.value = cloneValue(cond.value)
			n.cond = &cond
		case it.raw != nil:
			raw := Expr{SQL: it.raw.SQL, Args: append([]any(nil), it.raw.Args...)}
			n.raw = &raw
		case it.exists != nil:
			n.exists = &exists{not: it.exists.not, sub: it.exists.sub.Clone()}
		case it.group != nil:
			n.group = it.group.cloneInto(seen)
		}
		c.items[i] = n
	}
	return c
}

// cloneValue copies values that are mutable once bound.
func cloneValue(v any) any {
	switch v := v.(type) {
	case *Builder:
		return v.Clone()
	case []any:
		return append([]any(nil), v...)
	case aliased:
		return aliased{sub: v.sub.Clone(), alias: v.alias}
	default:
		return v
	}
}

// newCondition validates and normalizes a predicate before it is stored.
func newCondition(column any, op string, value any) (*condition, error) {
	op = strings.ToUpper(strings.Join(strings.Fields(op), " "))
	if _, ok := operators[op]; !ok {
		return nil, fmt.Errorf("unsupported operator %q", op)
	}
	switch column.(type) {
	case string, ColumnRef, Expr:
	default:
		return nil, fmt.Errorf("unsupported column type %T", column)
	}
	if list, ok := asList(value); ok {
		value = list
	}
	switch op {
	case "IN", "NOT IN":
		switch v := value.(type) {
		case []any:
			if len(v) == 0 {
				return nil, fmt.Errorf("empty %s list for %v", op, column)
			}
		case *Builder, Expr:
		default:
			// A scalar IN is rewritten into its equality form.
			if op == "IN" {
				op = "="
			} else {
				op = "<>"
			}
		}
	case "BETWEEN", "NOT BETWEEN":
		v, ok := value.([]any)
		if !ok || len(v) != 2 {
			return nil, fmt.Errorf("%s expects a two element slice, got %T", op, value)
		}
	default:
		if _, ok := value.([]any); ok {
			if op == "=" {
				op = "IN"
			} else if op == "!=" || op == "<>" {
				op = "NOT IN"
			} else {
				return nil, fmt.Errorf("operator %q does not accept a list", op)
			}
			if len(value.([]any)) == 0 {
				return nil, fmt.Errorf("empty %s list for %v", op, column)
			}
		}
	}
	return &condition{column: column, op: op, value: value}, nil
}

// asList converts any slice except []byte into []any.
func asList(v any) ([]any, bool) {
	switch v := v.(type) {
	case nil, []byte:
		return nil, false
	case []any:
		return v, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, true
}

// join is a (join, on) pair.
type join struct {
	kind  string
	table any // string or aliased
	on    *clauseGroup
}

type order struct {
	column any
	dir    string
}

type assignment struct {
	column string
	value  any
}

// clauses is the mutable model of one statement: its action and the
// decorations compiled around it.
type clauses struct {
	action    Action
	table     any
	distinct  bool
	columns   []any
	joins     []*join
	where     *clauseGroup
	groupBy   []any
	having    *clauseGroup
	orderBy   []order
	limit     int
	offset    int
	forUpdate bool

	insertColumns []string
	rows          [][]any
	sets          []assignment
	returning     string
}

func newClauses() *clauses {
	return &clauses{where: newGroup(), having: newGroup()}
}

// clone deep-copies every clause group and row buffer.
func (c *clauses) clone() *clauses {
	n := *c
	n.table = cloneValue(c.table)
	n.columns = make([]any, len(c.columns))
	for i, col := range c.columns {
		n.columns[i] = cloneValue(col)
	}
	n.joins = make([]*join, len(c.joins))
	for i, j := range c.joins {
		n.joins[i] = &join{kind: j.kind, table: cloneValue(j.table), on: j.on.clone()}
	}
	n.where = c.where.clone()
	n.having = c.having.clone()
	n.groupBy = append([]any(nil), c.groupBy...)
	n.orderBy = append([]order(nil), c.orderBy...)
	n.insertColumns = append([]string(nil), c.insertColumns...)
	n.rows = make([][]any, len(c.rows))
	for i, r := range c.rows {
		row := make([]any, len(r))
		for j, v := range r {
			row[j] = cloneValue(v)
		}
		n.rows[i] = row
	}
	n.sets = make([]assignment, len(c.sets))
	for i, s := range c.sets {
		n.sets[i] = assignment{column: s.column, value: cloneValue(s.value)}
	}
	return &n
}
