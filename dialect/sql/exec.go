package sql

import (
	"context"
	"fmt"
	"strconv"

	"github.com/syssam/vorm/dialect"
)

// Row is a scanned result row keyed by column name. The map passed to a
// row callback is reused for the next row: callbacks must copy out the
// values they keep and never retain the map itself.
type Row map[string]any

// ExecResult reports the outcome of an INSERT, UPDATE or DELETE.
type ExecResult struct {
	RowsAffected int64
	// LastInsertID holds the generated key of an INSERT, when the driver
	// or the RETURNING clause reports one.
	LastInsertID int64
}

// FindAll runs the query and calls fn once per row. args fill the
// Placeholder markers of the statement.
func (b *Builder) FindAll(ctx context.Context, ex dialect.ExecQuerier, fn func(Row) error, args ...any) error {
	stmt, err := b.Compile()
	if err != nil {
		return err
	}
	return queryRows(ctx, ex, stmt, args, fn)
}

// FindAll runs the query and maps every row with fn.
func FindAll[T any](ctx context.Context, ex dialect.ExecQuerier, b *Builder, fn func(Row) (T, error), args ...any) ([]T, error) {
	var out []T
	err := b.FindAll(ctx, ex, func(r Row) error {
		v, err := fn(r)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	}, args...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindOne runs the query limited to one row. The boolean result reports
// whether a row was found.
func FindOne[T any](ctx context.Context, ex dialect.ExecQuerier, b *Builder, fn func(Row) (T, error), args ...any) (T, bool, error) {
	var (
		v     T
		found bool
	)
	err := b.Clone().Limit(1).FindAll(ctx, ex, func(r Row) error {
		var err error
		v, err = fn(r)
		found = err == nil
		return err
	}, args...)
	return v, found, err
}

// FindMaps runs the query and returns a copy of every row.
func (b *Builder) FindMaps(ctx context.Context, ex dialect.ExecQuerier, args ...any) ([]map[string]any, error) {
	return FindAll(ctx, ex, b, func(r Row) (map[string]any, error) {
		m := make(map[string]any, len(r))
		for k, v := range r {
			m[k] = v
		}
		return m, nil
	}, args...)
}

// FindColumn runs the query and returns the values of its first column.
func (b *Builder) FindColumn(ctx context.Context, ex dialect.ExecQuerier, args ...any) ([]any, error) {
	stmt, err := b.Compile()
	if err != nil {
		return nil, err
	}
	var out []any
	err = scanRows(ctx, ex, stmt, args, func(_ []string, values []any) error {
		out = append(out, values[0])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindScalar runs the query and returns the first column of the first
// row, or nil when there are no rows.
func (b *Builder) FindScalar(ctx context.Context, ex dialect.ExecQuerier, args ...any) (any, error) {
	values, err := b.Clone().Limit(1).FindColumn(ctx, ex, args...)
	if err != nil || len(values) == 0 {
		return nil, err
	}
	return values[0], nil
}

// Count returns the number of rows the select would return. Ordering and
// pagination are ignored.
func (b *Builder) Count(ctx context.Context, ex dialect.ExecQuerier, args ...any) (int64, error) {
	if err := b.err; err != nil {
		return 0, err
	}
	q := b.CountQuery()
	v, err := q.FindScalar(ctx, ex, args...)
	if err != nil {
		return 0, err
	}
	return ToInt64(v)
}

// CountQuery returns a builder counting the rows of b.
func (b *Builder) CountQuery() *Builder {
	q := b.Clone()
	q.c.orderBy = nil
	q.c.limit, q.c.offset = 0, 0
	q.c.forUpdate = false
	if q.c.distinct || len(q.c.groupBy) > 0 {
		return NewBuilder(b.dialect).Select(Raw("count(1) AS NUM")).From(As(q, "t_"))
	}
	q.c.action = ActionSelect
	q.c.columns = []any{Raw("count(1) AS NUM")}
	return q
}

// Exec runs an INSERT, UPDATE or DELETE.
func (b *Builder) Exec(ctx context.Context, ex dialect.ExecQuerier, args ...any) (ExecResult, error) {
	stmt, err := b.Compile()
	if err != nil {
		return ExecResult{}, err
	}
	params, err := stmt.Bind(args...)
	if err != nil {
		return ExecResult{}, err
	}
	if b.c.action == ActionSelect {
		return ExecResult{}, fmt.Errorf("sql: exec: cannot execute a SELECT, use a find method")
	}
	if b.c.action == ActionInsert && b.c.returning != "" && b.dialect.name == dialect.Postgres {
		return execReturning(ctx, ex, stmt.SQL, params)
	}
	return execResult(ctx, ex, stmt.SQL, params)
}

// BatchExec runs the statement once per row of allArgs, where each row
// holds perRow consecutive values. It returns the affected rows of every
// execution. Run it inside a transaction to make the batch atomic.
func (b *Builder) BatchExec(ctx context.Context, ex dialect.ExecQuerier, allArgs []any, perRow int) ([]int64, error) {
	stmt, err := b.Compile()
	if err != nil {
		return nil, err
	}
	return stmt.BatchExec(ctx, ex, allArgs, perRow)
}

// Exec runs a compiled INSERT, UPDATE or DELETE, typically a cached
// template, with args filling its Placeholder markers.
func (s *Stmt) Exec(ctx context.Context, ex dialect.ExecQuerier, args ...any) (ExecResult, error) {
	params, err := s.Bind(args...)
	if err != nil {
		return ExecResult{}, err
	}
	return execResult(ctx, ex, s.SQL, params)
}

// BatchExec runs the statement once per row of allArgs. See
// Builder.BatchExec.
func (s *Stmt) BatchExec(ctx context.Context, ex dialect.ExecQuerier, allArgs []any, perRow int) ([]int64, error) {
	batches, err := s.BindBatch(allArgs, perRow)
	if err != nil {
		return nil, err
	}
	affected := make([]int64, 0, len(batches))
	for _, params := range batches {
		res, err := execResult(ctx, ex, s.SQL, params)
		if err != nil {
			return affected, err
		}
		affected = append(affected, res.RowsAffected)
	}
	return affected, nil
}

// FindAll runs a compiled SELECT and calls fn once per row.
func (s *Stmt) FindAll(ctx context.Context, ex dialect.ExecQuerier, fn func(Row) error, args ...any) error {
	return queryRows(ctx, ex, s, args, fn)
}

func execResult(ctx context.Context, ex dialect.ExecQuerier, query string, params []any) (ExecResult, error) {
	var res Result
	if err := ex.Exec(ctx, query, params, &res); err != nil {
		return ExecResult{}, err
	}
	var out ExecResult
	if res == nil {
		return out, nil
	}
	n, err := res.RowsAffected()
	if err != nil {
		return out, err
	}
	out.RowsAffected = n
	// Drivers without LastInsertId support (lib/pq) report an error here.
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out, nil
}

func execReturning(ctx context.Context, ex dialect.ExecQuerier, query string, params []any) (ExecResult, error) {
	var out ExecResult
	err := queryValues(ctx, ex, query, params, func(_ []string, values []any) error {
		id, err := ToInt64(values[0])
		if err != nil {
			return err
		}
		out.LastInsertID = id
		out.RowsAffected++
		return nil
	})
	return out, err
}

func queryRows(ctx context.Context, ex dialect.ExecQuerier, stmt *Stmt, args []any, fn func(Row) error) error {
	var row Row
	return scanRows(ctx, ex, stmt, args, func(columns []string, values []any) error {
		if row == nil {
			row = make(Row, len(columns))
		}
		clear(row)
		for i, c := range columns {
			row[c] = values[i]
		}
		return fn(row)
	})
}

func scanRows(ctx context.Context, ex dialect.ExecQuerier, stmt *Stmt, args []any, fn func([]string, []any) error) error {
	params, err := stmt.Bind(args...)
	if err != nil {
		return err
	}
	return queryValues(ctx, ex, stmt.SQL, params, fn)
}

// queryValues runs query and calls fn with the column names and the
// scanned values of each row. The values slice is reused between rows.
func queryValues(ctx context.Context, ex dialect.ExecQuerier, query string, params []any, fn func([]string, []any) error) error {
	var rows Rows
	if err := ex.Query(ctx, query, params, &rows); err != nil {
		return err
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		for i, v := range values {
			// Drivers reuse byte buffers between rows.
			if bs, ok := v.([]byte); ok {
				values[i] = string(bs)
			}
		}
		if err := fn(columns, values); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ToInt64 converts a scanned numeric value to int64.
func ToInt64(v any) (int64, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	default:
		return 0, fmt.Errorf("sql: cannot convert %T to int64", v)
	}
}
