package schema

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Key is an ordered list of column names forming a single or composite key.
type Key []string

// Arity returns the number of key parts.
func (k Key) Arity() int { return len(k) }

// IsComposite reports whether the key has more than one part.
func (k Key) IsComposite() bool { return len(k) > 1 }

// String returns the parts joined by commas.
func (k Key) String() string { return strings.Join(k, ", ") }

// Equal reports whether both keys have the same parts in the same order.
func (k Key) Equal(o Key) bool {
	if len(k) != len(o) {
		return false
	}
	for i := range k {
		if k[i] != o[i] {
			return false
		}
	}
	return true
}

// Qualify returns the parts prefixed by a table alias.
func (k Key) Qualify(alias string) []string {
	return lo.Map(k, func(c string, _ int) string {
		return alias + "." + c
	})
}

// foreignKeyOf infers the foreign key referencing key of table.
func foreignKeyOf(table string, key Key) Key {
	return lo.Map(key, func(c string, _ int) string {
		return table + "_" + c
	})
}

// Values reads the key parts with get. It reports false when any part is
// nil, in which case the key matches no row.
func (k Key) Values(get func(column string) any) ([]any, bool) {
	values := make([]any, len(k))
	for i, c := range k {
		v := get(c)
		if v == nil {
			return nil, false
		}
		values[i] = v
	}
	return values, len(k) > 0
}

// Hash returns a string identifying the key values, suitable as a map key.
// Values of different integer widths hash alike.
func Hash(values []any) string {
	if len(values) == 1 {
		return fmt.Sprint(values[0])
	}
	return strings.Join(lo.Map(values, func(v any, _ int) string {
		return fmt.Sprint(v)
	}), "\x00")
}

// KeyArityError is returned when the two sides of a relation key have a
// different number of parts.
type KeyArityError struct {
	Relation string
	Left     Key
	Right    Key
}

// Error implements the error interface.
func (e *KeyArityError) Error() string {
	return fmt.Sprintf("schema: relation %q: key arity mismatch: (%s) vs (%s)", e.Relation, e.Left, e.Right)
}
