// Package events fans solve events out to subscribers of a tenant.
package events

import (
	"context"
	"sync"

	"pdptw/internal/model"
)

// TypeSolveCompleted is the type of the event sent after each solve.
const TypeSolveCompleted = "solve.completed"

// Broker delivers events published for a tenant to that tenant's subscribers. Slow
// subscribers lose events rather than block publishers.
type Broker interface {
	Subscribe(ctx context.Context, tenantID string) (chan model.SolveEvent, error)
	Unsubscribe(tenantID string, ch chan model.SolveEvent)
	Publish(ctx context.Context, tenantID string, evt model.SolveEvent) error
	Close() error
}

// Memory is the in-process Broker.
type Memory struct {
	mu   sync.Mutex
	subs map[string]map[chan model.SolveEvent]struct{} // tenant -> set of channels
}

func NewMemory() *Memory {
	return &Memory{subs: map[string]map[chan model.SolveEvent]struct{}{}}
}

func (b *Memory) Subscribe(_ context.Context, tenantID string) (chan model.SolveEvent, error) {
	ch := make(chan model.SolveEvent, 8)
	b.mu.Lock()
	if b.subs[tenantID] == nil {
		b.subs[tenantID] = map[chan model.SolveEvent]struct{}{}
	}
	b.subs[tenantID][ch] = struct{}{}
	b.mu.Unlock()
	return ch, nil
}

func (b *Memory) Unsubscribe(tenantID string, ch chan model.SolveEvent) {
	b.mu.Lock()
	m := b.subs[tenantID]
	_, ok := m[ch]
	if ok {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, tenantID)
		}
	}
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

func (b *Memory) Publish(_ context.Context, tenantID string, evt model.SolveEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[tenantID] {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

// Close drops every subscriber.
func (b *Memory) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for tenant, m := range b.subs {
		for ch := range m {
			close(ch)
		}
		delete(b.subs, tenant)
	}
	return nil
}
