// Package dialect defines the narrow driver contract the persistence layer
// depends on, and the names of the supported SQL dialects.
//
// # Supported Dialects
//
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//	dialect.Postgres = "postgres"
//	dialect.Oracle   = "oracle"
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// Statements are always written with "?" placeholders. The SQL driver in
// dialect/sql rebinds them to the positional form a database expects
// ($1 for PostgreSQL, :1 for Oracle) right before execution.
//
// # Sub-packages
//
//   - dialect/sql: dialect adapter, clause model, query builder and driver
//   - dialect/sql/sqlgraph: relation resolution and constraint error helpers
package dialect
