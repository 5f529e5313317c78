// Package database provides PostgreSQL connection management with lifecycle coordination.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/envoy/pkg/lifecycle"
)

// ErrMissingTable is returned at startup when a required table does not exist.
var ErrMissingTable = errors.New("required table missing (run migrate -up)")

// System manages database connections and lifecycle coordination.
type System interface {
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

// Option configures a System.
type Option func(*database)

// WithTables makes startup fail with ErrMissingTable unless every named
// table exists in the current search path.
func WithTables(names ...string) Option {
	return func(d *database) { d.tables = append(d.tables, names...) }
}

type database struct {
	conn        *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
	tables      []string
}

// New opens a pool for cfg. sql.Open only validates the DSN; the first
// connection is made by the startup hook.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (System, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	d := &database{
		conn:        db,
		logger:      logger.With("system", "database"),
		connTimeout: cfg.ConnTimeoutDuration(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, d.connTimeout)
		defer cancel()

		if err := d.conn.PingContext(ctx); err != nil {
			return fmt.Errorf("database ping: %w", err)
		}
		if err := d.checkTables(ctx); err != nil {
			return err
		}

		d.logger.Debug("database ready", "tables", d.tables)
		return nil
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		stats := d.conn.Stats()
		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}
		d.logger.Debug("database connection closed", "open_connections", stats.OpenConnections, "wait_count", stats.WaitCount)
	})

	return nil
}

func (d *database) checkTables(ctx context.Context) error {
	for _, name := range d.tables {
		var found sql.NullString
		if err := d.conn.QueryRowContext(ctx, "SELECT to_regclass($1)::text", name).Scan(&found); err != nil {
			return fmt.Errorf("check table %s: %w", name, err)
		}
		if !found.Valid {
			return fmt.Errorf("%w: %s", ErrMissingTable, name)
		}
	}
	return nil
}
