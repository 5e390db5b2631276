package vorm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/vorm/dialect"
	"github.com/syssam/vorm/dialect/sql"
	"github.com/syssam/vorm/dialect/sql/sqlgraph"
	"github.com/syssam/vorm/schema"
)

// Client runs queries and persists entities of one registry over one
// driver. It is safe for concurrent use, except for clients bound to a
// transaction by WithTx.
type Client struct {
	config
	// ex is the driver, or the transaction of a client returned by WithTx.
	ex dialect.ExecQuerier
	tx dialect.Tx
}

// config holds the configuration of the client.
type config struct {
	driver   dialect.Driver
	dialect  *sql.Dialect
	registry *schema.Registry
	hooks    *Hooks
	stmts    *sql.StmtCache
	columns  *sql.Introspector
	log      *slog.Logger
	debug    bool
}

// Option function to configure the client.
type Option func(*config)

// Log sets the logger of the client. It defaults to slog.Default.
func Log(l *slog.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

// Debug enables debug logging of every statement.
func Debug() Option {
	return func(c *config) {
		c.debug = true
	}
}

// WithHooks sets the hook registry of the client.
func WithHooks(h *Hooks) Option {
	return func(c *config) {
		c.hooks = h
	}
}

// NewClient creates a new client configured with the given options. It
// freezes the registry and fails on a driver of an unknown dialect.
func NewClient(drv dialect.Driver, reg *schema.Registry, opts ...Option) (*Client, error) {
	cfg := config{driver: drv, registry: reg, log: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	d, err := sql.DialectOf(drv.Dialect())
	if err != nil {
		return nil, fmt.Errorf("vorm: %w", err)
	}
	if !reg.Frozen() {
		if err := reg.Freeze(); err != nil {
			return nil, err
		}
	}
	if cfg.debug {
		cfg.driver = sql.NewDebugDriver(cfg.driver, sql.DebugWithLogger(cfg.log))
	}
	if cfg.hooks == nil {
		cfg.hooks = NewHooks()
	}
	cfg.dialect = d
	cfg.stmts = sql.NewStmtCache()
	cfg.columns = sql.NewIntrospector(cfg.driver, d)
	return &Client{config: cfg, ex: cfg.driver}, nil
}

// Dialect returns the dialect of the client.
func (c *Client) Dialect() *sql.Dialect { return c.dialect }

// Registry returns the entity registry of the client.
func (c *Client) Registry() *schema.Registry { return c.registry }

// Hooks returns the hook registry of the client.
func (c *Client) Hooks() *Hooks { return c.hooks }

// Columns returns the cached column introspector of the client.
func (c *Client) Columns() *sql.Introspector { return c.columns }

// Driver returns the driver of the client.
func (c *Client) Driver() dialect.Driver { return c.driver }

// ExecQuerier returns the driver, or the transaction the client is bound to.
func (c *Client) ExecQuerier() dialect.ExecQuerier { return c.ex }

// Builder returns an empty statement builder of the client dialect.
func (c *Client) Builder() *sql.Builder { return sql.NewBuilder(c.dialect) }

// Close closes the database connection.
func (c *Client) Close() error {
	return c.driver.Close()
}

// WithTx runs fn with a client bound to a new transaction. The
// transaction is committed when fn returns nil and rolled back otherwise.
// A panic in fn rolls back and is re-raised.
func (c *Client) WithTx(ctx context.Context, fn func(tx *Client) error) error {
	if c.tx != nil {
		return ErrTxStarted
	}
	tx, err := c.driver.Tx(ctx)
	if err != nil {
		return fmt.Errorf("vorm: starting a transaction: %w", err)
	}
	txc := &Client{config: c.config, ex: tx, tx: tx}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(txc); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return &RollbackError{Err: err, Rollback: rerr}
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vorm: committing transaction: %w", err)
	}
	return nil
}

// atomic runs fn in a transaction when open is set and the client is not
// already bound to one. On error the transaction is rolled back and the
// error of fn is returned as is.
func (c *Client) atomic(ctx context.Context, open bool, fn func(ex dialect.ExecQuerier) error) error {
	if !open || c.tx != nil {
		return fn(c.ex)
	}
	tx, err := c.driver.Tx(ctx)
	if err != nil {
		return err
	}
	c.log.DebugContext(ctx, "vorm: transaction opened")
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			c.log.ErrorContext(ctx, "vorm: rollback failed", "error", rerr, "cause", err)
		}
		return err
	}
	return tx.Commit()
}

// resolver returns the relation resolver of the client.
func (c *Client) resolver() *sqlgraph.Resolver {
	return &sqlgraph.Resolver{
		Dialect: c.dialect,
		Columns: c.columns,
		NewNode: newNode,
	}
}

// newNode hydrates an entity from a row, decoding serialized properties.
func newNode(meta *schema.Entity, columns map[string]any) (sqlgraph.Node, error) {
	e := New(meta)
	for col, v := range columns {
		prop := meta.Prop(col)
		v, err := meta.Decode(prop, v)
		if err != nil {
			return nil, err
		}
		e.values[prop] = v
	}
	e.persisted()
	return e, nil
}

// Meta returns the registered entity named name.
func (c *Client) Meta(name string) (*schema.Entity, error) {
	meta, ok := c.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("vorm: unknown entity %q", name)
	}
	return meta, nil
}
