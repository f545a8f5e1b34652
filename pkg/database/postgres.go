// Package database wires the Postgres connection pool and schema
// migrations the recorder collaborator needs: a pgxpool.Pool wrapper
// plus a goose Migrator running embedded SQL files.
package database

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"hydroengine/pkg/config"
	"hydroengine/pkg/logger"
)

// Postgres wraps a pgxpool.Pool, satisfying the recorder.DB interface
// directly.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a connection pool per cfg and pings it once so
// misconfiguration fails at startup rather than on the first recorded
// step.
func NewPostgres(ctx context.Context, cfg *config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Log.Info("connected to postgres",
		"host", cfg.Host, "port", cfg.Port, "database", cfg.Database)

	return &Postgres{pool: pool}, nil
}

// Exec implements recorder.DB.
func (p *Postgres) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

// QueryRow implements recorder.DB.
func (p *Postgres) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Pool returns the underlying pool, for Migrator and health checks.
func (p *Postgres) Pool() *pgxpool.Pool { return p.pool }

// Close releases the pool's connections.
func (p *Postgres) Close() { p.pool.Close() }

// Migrator applies embedded goose migrations against a pool.
type Migrator struct {
	pool       *pgxpool.Pool
	migrations embed.FS
	dir        string
}

// NewMigrator builds a Migrator over the given embedded migration
// tree rooted at dir (e.g. "migrations").
func NewMigrator(pool *pgxpool.Pool, migrations embed.FS, dir string) *Migrator {
	return &Migrator{pool: pool, migrations: migrations, dir: dir}
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(m.pool)
	defer db.Close()

	goose.SetBaseFS(m.migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, m.dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Log.Info("migrations applied")
	return nil
}
