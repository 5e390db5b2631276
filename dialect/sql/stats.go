package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/vorm/dialect"
)

// Stats is a snapshot of the statements run through a StatsDriver.
type Stats struct {
	Queries   int64
	Execs     int64
	Txs       int64
	Rollbacks int64
	Errors    int64
	// Slow counts the statements that ran longer than the slow threshold.
	Slow     int64
	Duration time.Duration
}

// Avg returns the mean statement duration.
func (s Stats) Avg() time.Duration {
	if n := s.Queries + s.Execs; n > 0 {
		return s.Duration / time.Duration(n)
	}
	return 0
}

func (s Stats) String() string {
	return fmt.Sprintf("queries=%d execs=%d txs=%d rollbacks=%d errors=%d slow=%d avg=%s",
		s.Queries, s.Execs, s.Txs, s.Rollbacks, s.Errors, s.Slow, s.Avg())
}

// StatsDriver wraps a dialect.Driver, counting statements and
// transactions and logging the statements slower than its threshold.
type StatsDriver struct {
	dialect.Driver
	threshold time.Duration
	log       *slog.Logger

	queries, execs, txs, rollbacks, errors, slow, nanos atomic.Int64
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is logged
// as slow. It defaults to 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.threshold = d }
}

// WithStatsLogger sets the logger slow statements are reported to. A nil
// logger keeps slog.Default.
func WithStatsLogger(l *slog.Logger) StatsOption {
	return func(s *StatsDriver) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStatsDriver wraps drv with statement statistics.
//
//	drv := sql.NewStatsDriver(sql.OpenDB(dialect.Postgres, db), sql.WithSlowThreshold(200*time.Millisecond))
//	...
//	fmt.Println(drv.Stats())
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, threshold: 100 * time.Millisecond, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the current counters.
func (d *StatsDriver) Stats() Stats {
	return Stats{
		Queries:   d.queries.Load(),
		Execs:     d.execs.Load(),
		Txs:       d.txs.Load(),
		Rollbacks: d.rollbacks.Load(),
		Errors:    d.errors.Load(),
		Slow:      d.slow.Load(),
		Duration:  time.Duration(d.nanos.Load()),
	}
}

// SlowThreshold returns the slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration { return d.threshold }

func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, &d.queries, query, args, func() error { return d.Driver.Query(ctx, query, args, v) })
}

func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, &d.execs, query, args, func() error { return d.Driver.Exec(ctx, query, args, v) })
}

// Tx starts a transaction whose statements are counted by d.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		d.errors.Add(1)
		return nil, err
	}
	d.txs.Add(1)
	return &statsTx{Tx: tx, d: d}, nil
}

func (d *StatsDriver) observe(ctx context.Context, counter *atomic.Int64, query string, args any, run func() error) error {
	start := time.Now()
	err := run()
	elapsed := time.Since(start)
	counter.Add(1)
	d.nanos.Add(int64(elapsed))
	if err != nil {
		d.errors.Add(1)
	}
	if elapsed > d.threshold {
		d.slow.Add(1)
		d.log.WarnContext(ctx, "vorm: slow statement", "sql", query, "args", args, "duration", elapsed)
	}
	return err
}

type statsTx struct {
	dialect.Tx
	d *StatsDriver
}

func (tx *statsTx) Query(ctx context.Context, query string, args, v any) error {
	return tx.d.observe(ctx, &tx.d.queries, query, args, func() error { return tx.Tx.Query(ctx, query, args, v) })
}

func (tx *statsTx) Exec(ctx context.Context, query string, args, v any) error {
	return tx.d.observe(ctx, &tx.d.execs, query, args, func() error { return tx.Tx.Exec(ctx, query, args, v) })
}

func (tx *statsTx) Rollback() error {
	tx.d.rollbacks.Add(1)
	return tx.Tx.Rollback()
}

// DebugDriver wraps a dialect.Driver and logs every statement at info
// level, with its SQL under the "sql" key.
type DebugDriver struct {
	dialect.Driver
	log *slog.Logger
}

// DebugOption configures a DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLogger sets the logger statements are written to.
func DebugWithLogger(l *slog.Logger) DebugOption {
	return func(d *DebugDriver) { d.log = l }
}

// NewDebugDriver wraps drv with statement logging.
func NewDebugDriver(drv dialect.Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{Driver: drv, log: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.log.InfoContext(ctx, "query", "sql", query, "args", args)
	return d.Driver.Query(ctx, query, args, v)
}

func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.log.InfoContext(ctx, "exec", "sql", query, "args", args)
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx starts a transaction whose statements and outcome are logged.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.log.InfoContext(ctx, "begin transaction")
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &debugTx{Tx: tx, log: d.log}, nil
}

type debugTx struct {
	dialect.Tx
	log *slog.Logger
}

func (tx *debugTx) Query(ctx context.Context, query string, args, v any) error {
	tx.log.InfoContext(ctx, "tx query", "sql", query, "args", args)
	return tx.Tx.Query(ctx, query, args, v)
}

func (tx *debugTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.log.InfoContext(ctx, "tx exec", "sql", query, "args", args)
	return tx.Tx.Exec(ctx, query, args, v)
}

func (tx *debugTx) Commit() error {
	tx.log.Info("commit transaction")
	return tx.Tx.Commit()
}

func (tx *debugTx) Rollback() error {
	tx.log.Info("rollback transaction")
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*statsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*debugTx)(nil)
)
