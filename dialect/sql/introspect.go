package sql

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/syssam/vorm/dialect"
)

// Introspector lists table columns from the database catalog. Results are
// cached for the lifetime of the Introspector and never invalidated, as the
// schema is assumed not to change while the process runs.
type Introspector struct {
	ex      dialect.ExecQuerier
	dialect *Dialect
	columns sync.Map // table => []string
	group   singleflight.Group
}

// NewIntrospector returns an Introspector querying through ex.
func NewIntrospector(ex dialect.ExecQuerier, d *Dialect) *Introspector {
	return &Introspector{ex: ex, dialect: d}
}

// Columns returns the column names of table in their declared order.
// Concurrent callers asking for the same table share one catalog query.
func (i *Introspector) Columns(ctx context.Context, table string) ([]string, error) {
	if cols, ok := i.columns.Load(table); ok {
		return cols.([]string), nil
	}
	v, err, _ := i.group.Do(table, func() (any, error) {
		if cols, ok := i.columns.Load(table); ok {
			return cols, nil
		}
		cols, err := i.query(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("dialect/sql: list columns of %q: %w", table, err)
		}
		actual, _ := i.columns.LoadOrStore(table, cols)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (i *Introspector) query(ctx context.Context, table string) ([]string, error) {
	var (
		query  string
		args   []any
		column = 0
	)
	switch i.dialect.name {
	case dialect.MySQL:
		query = "SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position"
		args = []any{table}
	case dialect.Postgres:
		query = "SELECT column_name FROM information_schema.columns WHERE table_schema = CURRENT_SCHEMA() AND table_name = ? ORDER BY ordinal_position"
		args = []any{table}
	case dialect.SQLite:
		// PRAGMA table_info rows are (cid, name, type, notnull, dflt_value, pk).
		query = "PRAGMA table_info(" + i.dialect.Quote(table) + ")"
		column = 1
	case dialect.Oracle:
		query = "SELECT column_name FROM user_tab_columns WHERE table_name = ? ORDER BY column_id"
		args = []any{strings.ToUpper(table)}
	default:
		return nil, fmt.Errorf("unsupported dialect %q", i.dialect.name)
	}
	var cols []string
	err := queryValues(ctx, i.ex, query, args, func(_ []string, values []any) error {
		name, ok := values[column].(string)
		if !ok {
			return fmt.Errorf("unexpected column name type %T", values[column])
		}
		if i.dialect.name == dialect.Oracle {
			name = strings.ToLower(name)
		}
		cols = append(cols, name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q does not exist or has no columns", table)
	}
	return cols, nil
}
