// Package store persists the optimizer defaults of each tenant.
package store

import (
	"context"
	"errors"

	"pdptw/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// GetOptimizerConfig returns ErrNotFound when the tenant never saved a configuration.
	GetOptimizerConfig(ctx context.Context, tenantID string) (model.OptimizerConfig, error)
	SaveOptimizerConfig(ctx context.Context, tenantID string, cfg model.OptimizerConfig) (model.OptimizerConfig, error)
	Ping(ctx context.Context) error
	Close() error
}

var ErrNotFound = errors.New("not found")
