package sql

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/vorm/dialect"
)

// Dialect holds the quoting and pagination rules of one SQL dialect.
type Dialect struct {
	name  string
	quote byte
}

var dialects = map[string]*Dialect{
	dialect.MySQL:    {name: dialect.MySQL, quote: '`'},
	dialect.SQLite:   {name: dialect.SQLite, quote: '"'},
	dialect.Postgres: {name: dialect.Postgres, quote: '"'},
	dialect.Oracle:   {name: dialect.Oracle, quote: '"'},
}

// DialectOf returns the dialect registered under name.
func DialectOf(name string) (*Dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("dialect/sql: unknown dialect %q", name)
	}
	return d, nil
}

// MustDialect is like DialectOf but panics on unknown names.
// It is meant for package-level variables and tests.
func MustDialect(name string) *Dialect {
	d, err := DialectOf(name)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the dialect name.
func (d *Dialect) Name() string { return d.name }

// String implements fmt.Stringer.
func (d *Dialect) String() string { return d.name }

// Quote quotes an identifier. Dotted paths are quoted per part, "*" is kept
// as is, and a trailing alias separated by a space (or " AS ") is quoted on
// its own. Identifiers already wrapped in quote characters pass through.
func (d *Dialect) Quote(ident string) string {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return ident
	}
	if name, alias, ok := splitAlias(ident); ok {
		return d.Quote(name) + " AS " + d.quoteName(alias)
	}
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = d.quoteName(p)
	}
	return strings.Join(parts, ".")
}

func (d *Dialect) quoteName(name string) string {
	if name == "*" || name == "" {
		return name
	}
	if len(name) > 1 && name[0] == d.quote && name[len(name)-1] == d.quote {
		return name
	}
	q := string(d.quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// splitAlias splits "col alias" or "col AS alias".
func splitAlias(s string) (string, string, bool) {
	fields := strings.Fields(s)
	switch {
	case len(fields) == 2:
		return fields[0], fields[1], true
	case len(fields) == 3 && strings.EqualFold(fields[1], "AS"):
		return fields[0], fields[2], true
	default:
		return s, "", false
	}
}

// QuoteLiteral renders v as an SQL literal. The result is used for
// previewing statements in logs only; executed statements always bind
// values as parameters.
func (d *Dialect) QuoteLiteral(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if d.name == dialect.Postgres {
			return strconv.FormatBool(v)
		}
		if v {
			return "1"
		}
		return "0"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return quoteString(v)
	case []byte:
		if d.name == dialect.Postgres {
			return `'\x` + hex.EncodeToString(v) + `'`
		}
		return "X'" + hex.EncodeToString(v) + "'"
	case time.Time:
		return quoteString(v.Format("2006-01-02 15:04:05.999999"))
	case fmt.Stringer:
		return quoteString(v.String())
	default:
		return quoteString(fmt.Sprint(v))
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Paginate applies the dialect's pagination syntax to a rendered SELECT.
// A non-positive limit leaves the query untouched.
func (d *Dialect) Paginate(query string, limit, offset int) string {
	if limit <= 0 {
		return query
	}
	if offset < 0 {
		offset = 0
	}
	switch d.name {
	case dialect.Postgres:
		if offset == 0 {
			return query + " LIMIT " + strconv.Itoa(limit)
		}
		return query + " LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa(offset)
	case dialect.Oracle:
		if offset == 0 {
			return "SELECT * FROM (" + query + ") WHERE ROWNUM <= " + strconv.Itoa(limit)
		}
		return "SELECT * FROM (SELECT t_.*, ROWNUM rn_ FROM (" + query + ") t_ WHERE ROWNUM <= " +
			strconv.Itoa(offset+limit) + ") WHERE rn_ > " + strconv.Itoa(offset)
	default:
		if offset == 0 {
			return query + " LIMIT " + strconv.Itoa(limit)
		}
		return query + " LIMIT " + strconv.Itoa(offset) + ", " + strconv.Itoa(limit)
	}
}

// Select returns a new SELECT builder for the dialect.
func (d *Dialect) Select(columns ...any) *Builder {
	return NewBuilder(d).Select(columns...)
}

// Insert returns a new INSERT builder for the dialect.
func (d *Dialect) Insert(table string) *Builder {
	return NewBuilder(d).Insert(table)
}

// Update returns a new UPDATE builder for the dialect.
func (d *Dialect) Update(table string) *Builder {
	return NewBuilder(d).Update(table)
}

// Delete returns a new DELETE builder for the dialect.
func (d *Dialect) Delete(table string) *Builder {
	return NewBuilder(d).Delete(table)
}
