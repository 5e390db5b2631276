package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/vorm"
	"github.com/syssam/vorm/dialect"
	"github.com/syssam/vorm/dialect/sql"
	"github.com/syssam/vorm/schema"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	config  string
	verbose bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "vorm",
		Short:         "Inspect databases through the vorm dialect layer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.config, "config", "c", "vorm.yaml", "configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every statement")

	cmd.AddCommand(newPingCommand(opts))
	cmd.AddCommand(newColumnsCommand(opts))
	cmd.AddCommand(newPreviewCommand(opts))
	return cmd
}

// open reads the configuration and opens a client over an empty registry.
func (o *rootOptions) open(cmd *cobra.Command) (*vorm.Client, error) {
	cfg, err := vorm.LoadConfig(o.config)
	if err != nil {
		return nil, err
	}
	if o.verbose {
		cfg.Debug = true
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	return vorm.OpenConfig(cfg, schema.NewRegistry(), vorm.Log(logger))
}

func newPingCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured database answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			query := "SELECT 1"
			if client.Dialect().Name() == dialect.Oracle {
				query += " FROM dual"
			}
			var rows sql.Rows
			if err := client.ExecQuerier().Query(cmd.Context(), query, []any{}, &rows); err != nil {
				return err
			}
			if err := rows.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", client.Dialect())
			if stats, ok := client.Driver().(*sql.StatsDriver); ok {
				fmt.Fprintln(cmd.OutOrStdout(), stats.Stats())
			}
			return nil
		},
	}
}

func newColumnsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "columns <table>...",
		Short: "List the columns of tables from the database catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			for _, table := range args {
				columns, err := client.Columns().Columns(cmd.Context(), table)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", table, strings.Join(columns, ", "))
			}
			return nil
		},
	}
}

type previewOptions struct {
	dialect string
	table   string
	columns []string
	where   []string
	order   string
	limit   int
	offset  int
}

func newPreviewCommand(root *rootOptions) *cobra.Command {
	opts := &previewOptions{}
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render a SELECT for a dialect without running it",
		Long: `Render a SELECT for a dialect without running it.

Conditions are given as column=value, column!=value, column>value or
column<value. The dialect defaults to the one of the configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name := opts.dialect
			if name == "" {
				cfg, err := vorm.LoadConfig(root.config)
				if err != nil {
					return fmt.Errorf("no --dialect given: %w", err)
				}
				name = cfg.Dialect
			}
			d, err := sql.DialectOf(name)
			if err != nil {
				return err
			}
			stmt, err := previewQuery(d, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql.Rebind(d.Name(), stmt.SQL))
			fmt.Fprintln(cmd.OutOrStdout(), stmt.Preview(d))
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.dialect, "dialect", "d", "", "dialect (mysql|sqlite|postgres|oracle)")
	cmd.Flags().StringVarP(&opts.table, "table", "t", "", "table to select from")
	cmd.Flags().StringSliceVar(&opts.columns, "columns", nil, "columns to select (default all)")
	cmd.Flags().StringArrayVarP(&opts.where, "where", "w", nil, "condition, repeatable")
	cmd.Flags().StringVar(&opts.order, "order", "", "order by column, prefix with - for descending")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "limit")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "offset")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func previewQuery(d *sql.Dialect, opts *previewOptions) (*sql.Stmt, error) {
	b := sql.NewBuilder(d).From(opts.table)
	if len(opts.columns) == 0 {
		b.Select("*")
	}
	for _, c := range opts.columns {
		b.Select(c)
	}
	for _, w := range opts.where {
		column, op, value, err := parseCondition(w)
		if err != nil {
			return nil, err
		}
		b.Where(column, op, value)
	}
	if opts.order != "" {
		if col, ok := strings.CutPrefix(opts.order, "-"); ok {
			b.OrderBy(col, "DESC")
		} else {
			b.OrderBy(opts.order, "ASC")
		}
	}
	if opts.limit > 0 {
		b.Limit(opts.limit).Offset(opts.offset)
	}
	return b.Compile()
}

// parseCondition splits "column<op>value" on the first operator.
func parseCondition(s string) (column, op string, value any, err error) {
	for _, op := range []string{"!=", ">=", "<=", "=", ">", "<"} {
		if i := strings.Index(s, op); i > 0 {
			v := s[i+len(op):]
			if v == "null" {
				return s[:i], op, nil, nil
			}
			return s[:i], op, v, nil
		}
	}
	return "", "", nil, fmt.Errorf("invalid condition %q", s)
}
