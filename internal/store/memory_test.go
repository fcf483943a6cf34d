package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdptw/internal/model"
)

func TestMemoryOptimizerConfig(t *testing.T) {
	m := NewMemory()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }
	ctx := context.Background()

	_, err := m.GetOptimizerConfig(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	saved, err := m.SaveOptimizerConfig(ctx, "t1", model.OptimizerConfig{Method: "path_cheapest_arc", Timeout: 500})
	require.NoError(t, err)
	assert.Equal(t, fixed, saved.UpdatedAt)

	got, err := m.GetOptimizerConfig(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	_, err = m.GetOptimizerConfig(ctx, "t2")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, m.Ping(ctx))
	assert.NoError(t, m.Close())
}
