package sql

import (
	"fmt"
	"strings"
)

// placeholder is the type of the Placeholder marker.
type placeholder struct{}

// String implements fmt.Stringer.
func (placeholder) String() string { return "?" }

// Placeholder marks a parameter slot that is filled at execution time.
// Pass it wherever a value is expected:
//
//	b.Where("id", "=", sql.Placeholder)
//	stmt, _ := b.Compile()
//	args, _ := stmt.Bind(42)
var Placeholder any = placeholder{}

// IsPlaceholder reports whether v is the Placeholder marker.
func IsPlaceholder(v any) bool {
	_, ok := v.(placeholder)
	return ok
}

// ArgumentCountError is returned when the dynamic arguments given to a
// statement do not match its placeholder markers.
type ArgumentCountError struct {
	Expected int
	Actual   int
	// Batch is set when the error comes from a batch binding, in which case
	// Expected is the per-row size and Actual the total argument count.
	Batch bool
}

// Error implements the error interface.
func (e *ArgumentCountError) Error() string {
	if e.Batch {
		return fmt.Sprintf("sql: batch arguments: %d values is not a multiple of %d per row", e.Actual, e.Expected)
	}
	return fmt.Sprintf("sql: expected %d dynamic arguments, got %d", e.Expected, e.Actual)
}

// Stmt is a compiled statement: the SQL text and its ordered parameter
// slots. Every slot renders exactly one "?" in SQL and holds either a
// literal value bound at build time or the Placeholder marker.
type Stmt struct {
	SQL    string
	Params []any
}

// Placeholders returns the number of Placeholder markers among Params.
func (s *Stmt) Placeholders() int {
	var n int
	for _, p := range s.Params {
		if IsPlaceholder(p) {
			n++
		}
	}
	return n
}

// Bind returns the parameter list for one execution, consuming one
// dynamic argument per Placeholder marker in order.
func (s *Stmt) Bind(args ...any) ([]any, error) {
	n := s.Placeholders()
	if n != len(args) {
		return nil, &ArgumentCountError{Expected: n, Actual: len(args)}
	}
	params := make([]any, len(s.Params))
	if n == 0 {
		copy(params, s.Params)
		return params, nil
	}
	var i int
	for j, p := range s.Params {
		if IsPlaceholder(p) {
			p = args[i]
			i++
		}
		params[j] = p
	}
	return params, nil
}

// BindBatch splits args into consecutive rows of perRow values and binds
// each row. Row i is bound from args[i*perRow : (i+1)*perRow].
func (s *Stmt) BindBatch(args []any, perRow int) ([][]any, error) {
	if n := s.Placeholders(); perRow <= 0 || perRow != n {
		return nil, &ArgumentCountError{Expected: n, Actual: perRow}
	}
	if len(args)%perRow != 0 {
		return nil, &ArgumentCountError{Expected: perRow, Actual: len(args), Batch: true}
	}
	rows := make([][]any, 0, len(args)/perRow)
	for i := 0; i < len(args); i += perRow {
		params, err := s.Bind(args[i : i+perRow]...)
		if err != nil {
			return nil, err
		}
		rows = append(rows, params)
	}
	return rows, nil
}

// Clear resets the statement so it can be compiled into again.
func (s *Stmt) Clear() {
	s.SQL = ""
	s.Params = s.Params[:0]
}

// Clone returns a copy of the statement that does not share its
// parameter slice.
func (s *Stmt) Clone() *Stmt {
	if s == nil {
		return nil
	}
	return &Stmt{SQL: s.SQL, Params: append([]any(nil), s.Params...)}
}

// Preview renders the statement with its parameters substituted as
// literals. It is meant for logs and debugging and must never be executed.
func (s *Stmt) Preview(d *Dialect, args ...any) string {
	params, err := s.Bind(args...)
	if err != nil {
		params = s.Params
	}
	var (
		b     strings.Builder
		i     int
		quote byte
	)
	for j := 0; j < len(s.SQL); j++ {
		ch := s.SQL[j]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
		case ch == '?' && i < len(params):
			if !IsPlaceholder(params[i]) {
				b.WriteString(d.QuoteLiteral(params[i]))
			} else {
				b.WriteByte(ch)
			}
			i++
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
