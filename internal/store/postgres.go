package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"pdptw/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS optimizer_config (
    tenant_id   TEXT PRIMARY KEY,
    method      TEXT NOT NULL DEFAULT '',
    timeout_ms  BIGINT NOT NULL DEFAULT 0,
    guided_local_search BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Postgres struct {
	db *sql.DB
}

// NewPostgres connects through the pgx database/sql driver and creates the schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	p := &Postgres{db: db}
	if err := p.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := p.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// Migrate creates missing tables.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) GetOptimizerConfig(ctx context.Context, tenantID string) (model.OptimizerConfig, error) {
	row := p.db.QueryRowContext(ctx, `SELECT method, timeout_ms, guided_local_search, updated_at FROM optimizer_config WHERE tenant_id=$1`, tenantID)
	var cfg model.OptimizerConfig
	if err := row.Scan(&cfg.Method, &cfg.Timeout, &cfg.EnableGuidedLocalSearch, &cfg.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.OptimizerConfig{}, ErrNotFound
		}
		return model.OptimizerConfig{}, err
	}
	return cfg, nil
}

func (p *Postgres) SaveOptimizerConfig(ctx context.Context, tenantID string, cfg model.OptimizerConfig) (model.OptimizerConfig, error) {
	row := p.db.QueryRowContext(ctx, `INSERT INTO optimizer_config (tenant_id, method, timeout_ms, guided_local_search, updated_at)
        VALUES ($1, $2, $3, $4, now())
        ON CONFLICT (tenant_id) DO UPDATE SET method=$2, timeout_ms=$3, guided_local_search=$4, updated_at=now()
        RETURNING updated_at`, tenantID, cfg.Method, cfg.Timeout, cfg.EnableGuidedLocalSearch)
	if err := row.Scan(&cfg.UpdatedAt); err != nil {
		return model.OptimizerConfig{}, err
	}
	return cfg, nil
}
