// Package db manages the database connection and everything the app
// learns from the database itself: schema, rows and default values.
//
// Design decisions:
//   - database/sql through sqlx, so one code path serves SQL Server
//     (go-mssqldb), PostgreSQL (pgx stdlib) and SQLite (go-sqlite3).
//   - Statements are written with '?' and rebound per dialect.
//   - Every statement runs under the configured request timeout.
//   - SSH tunnel integration is handled transparently: if SSH is enabled,
//     we first establish the tunnel, then point the driver at the local endpoint.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mvrodados/mvrodados/applog"
	"github.com/mvrodados/mvrodados/config"
	"github.com/mvrodados/mvrodados/ssh"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
)

// DB wraps a sqlx pool, its dialect and an optional SSH tunnel.
type DB struct {
	X       *sqlx.DB
	Dialect Dialect
	Tunnel  *ssh.Tunnel

	timeout time.Duration
}

// Connect opens the configured database, optionally through an SSH tunnel.
func Connect(ctx context.Context, cfg config.Config) (*DB, error) {
	driver, err := cfg.DriverName()
	if err != nil {
		return nil, err
	}
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	d := &DB{Dialect: dialect, timeout: cfg.RequestTimeout()}

	if cfg.SSH.Enabled && dialect != SQLite {
		tunnel, err := ssh.NewTunnel(cfg.SSH, cfg.Host, cfg.Port)
		if err != nil {
			return nil, fmt.Errorf("ssh tunnel: %w", err)
		}
		local, err := tunnel.Start(ctx)
		if err != nil {
			return nil, fmt.Errorf("ssh tunnel start: %w", err)
		}
		d.Tunnel = tunnel
		cfg.Host = local.Host
		cfg.Port = local.Port
	}

	x, err := sqlx.Open(driver, cfg.DSN())
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("%s open: %w", dialect, err)
	}
	configurePool(x, cfg, dialect)
	d.X = x

	pingCtx := ctx
	if t := cfg.ConnectTimeout(); t > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	if err := x.PingContext(pingCtx); err != nil {
		d.Close()
		return nil, fmt.Errorf("%s ping: %w", dialect, err)
	}

	applog.Event("db", "connected", "target", cfg.Redacted(), "pool_max", cfg.PoolMax)
	return d, nil
}

// New wraps an already-open sqlx handle. Used by tests and the migrate command.
func New(x *sqlx.DB, dialect Dialect) *DB {
	return &DB{X: x, Dialect: dialect}
}

// OpenMemory opens a private in-memory SQLite database.
func OpenMemory() (*DB, error) {
	x, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	// One connection, otherwise every new connection sees an empty database.
	x.SetMaxOpenConns(1)
	return New(x, SQLite), nil
}

func configurePool(x *sqlx.DB, cfg config.Config, dialect Dialect) {
	if dialect == SQLite && (cfg.Path == "" || cfg.Path == ":memory:") {
		x.SetMaxOpenConns(1)
		return
	}
	if cfg.PoolMax > 0 {
		x.SetMaxOpenConns(cfg.PoolMax)
	}
	x.SetMaxIdleConns(cfg.PoolMinIdle)
	if t := cfg.IdleTimeout(); t > 0 {
		x.SetConnMaxIdleTime(t)
	}
}

// Close shuts down the pool and SSH tunnel.
func (d *DB) Close() {
	if d.X != nil {
		d.X.Close()
	}
	if d.Tunnel != nil {
		d.Tunnel.Stop()
	}
}

func (d *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.timeout)
}
