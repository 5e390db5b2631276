package vorm

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/vorm/dialect"
	"github.com/syssam/vorm/dialect/sql"
	"github.com/syssam/vorm/schema"
)

// Config is the database configuration of a client, usually read from a
// YAML file:
//
//	dialect: postgres
//	dsn: postgres://app@localhost/app?sslmode=disable
//	debug: false
//	slow_threshold: 200ms
//	max_open_conns: 20
//	max_idle_conns: 5
type Config struct {
	Dialect string `yaml:"dialect"`
	DSN     string `yaml:"dsn"`
	// Debug logs every statement.
	Debug bool `yaml:"debug"`
	// SlowThreshold enables statement statistics and logs statements
	// slower than the threshold. Zero disables both.
	SlowThreshold time.Duration `yaml:"slow_threshold"`
	MaxOpenConns  int           `yaml:"max_open_conns"`
	MaxIdleConns  int           `yaml:"max_idle_conns"`
}

// LoadConfig reads the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vorm: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration and validates it.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("vorm: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the dialect and the connection settings.
func (c *Config) Validate() error {
	if !slices.Contains(dialect.Names(), c.Dialect) {
		return fmt.Errorf("vorm: config: unsupported dialect %q", c.Dialect)
	}
	if c.DSN == "" {
		return fmt.Errorf("vorm: config: dsn is required")
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 || c.SlowThreshold < 0 {
		return fmt.Errorf("vorm: config: negative connection settings")
	}
	return nil
}

// OpenConfig opens the database of cfg and returns a client over it. The
// database/sql driver of the dialect must be registered by the caller.
func OpenConfig(cfg *Config, reg *schema.Registry, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	drv, err := sql.Open(cfg.Dialect, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("vorm: open %s: %w", cfg.Dialect, err)
	}
	db := drv.DB()
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	var d dialect.Driver = drv
	if cfg.SlowThreshold > 0 {
		var c config
		for _, opt := range opts {
			opt(&c)
		}
		d = sql.NewStatsDriver(drv,
			sql.WithSlowThreshold(cfg.SlowThreshold),
			sql.WithStatsLogger(c.log),
		)
	}
	if cfg.Debug {
		opts = append(opts, Debug())
	}
	client, err := NewClient(d, reg, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return client, nil
}
