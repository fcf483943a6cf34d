package store

import (
	"context"
	"sync"
	"time"

	"pdptw/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu     sync.Mutex
	optCfg map[string]model.OptimizerConfig // tenant -> config
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{optCfg: map[string]model.OptimizerConfig{}, now: time.Now}
}

func (m *Memory) GetOptimizerConfig(ctx context.Context, tenantID string) (model.OptimizerConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.optCfg[tenantID]
	if !ok {
		return model.OptimizerConfig{}, ErrNotFound
	}
	return cfg, nil
}

func (m *Memory) SaveOptimizerConfig(ctx context.Context, tenantID string, cfg model.OptimizerConfig) (model.OptimizerConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg.UpdatedAt = m.now().UTC()
	m.optCfg[tenantID] = cfg
	return cfg, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
