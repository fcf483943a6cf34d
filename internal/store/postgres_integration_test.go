//go:build postgres_integration

package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"pdptw/internal/model"
)

func TestPostgresOptimizerConfig(t *testing.T) {
	ctx := context.Background()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	defer p.Close()

	tenant := "t_integration"
	if _, err := p.db.ExecContext(ctx, `DELETE FROM optimizer_config WHERE tenant_id=$1`, tenant); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := p.GetOptimizerConfig(ctx, tenant); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	saved, err := p.SaveOptimizerConfig(ctx, tenant, model.OptimizerConfig{Method: "automatic", Timeout: 300, EnableGuidedLocalSearch: true})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := p.GetOptimizerConfig(ctx, tenant)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Method != "automatic" || got.Timeout != 300 || !got.EnableGuidedLocalSearch || !got.UpdatedAt.Equal(saved.UpdatedAt) {
		t.Fatalf("unexpected config %+v", got)
	}
}
