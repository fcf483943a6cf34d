package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pdptw/internal/model"
)

// Redis is a Broker over Redis Pub/Sub, shared by every replica of the service.
type Redis struct {
	rdb *redis.Client
	log *zap.Logger

	mu   sync.Mutex
	subs map[chan model.SolveEvent]*redis.PubSub
}

// NewRedis connects to url and checks the connection.
func NewRedis(ctx context.Context, url string, log *zap.Logger) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{rdb: rdb, log: log, subs: map[chan model.SolveEvent]*redis.PubSub{}}, nil
}

func (b *Redis) Subscribe(ctx context.Context, tenantID string) (chan model.SolveEvent, error) {
	ps := b.rdb.Subscribe(ctx, b.chanName(tenantID))
	// wait for the subscription confirmation so no event published afterwards is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	ch := make(chan model.SolveEvent, 16)
	b.mu.Lock()
	b.subs[ch] = ps
	b.mu.Unlock()
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt model.SolveEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.log.Warn("dropping malformed event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}()
	return ch, nil
}

// Unsubscribe closes the Pub/Sub connection; ch is closed once its reader goroutine drains.
func (b *Redis) Unsubscribe(_ string, ch chan model.SolveEvent) {
	b.mu.Lock()
	ps, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		_ = ps.Close()
	}
}

func (b *Redis) Publish(ctx context.Context, tenantID string, evt model.SolveEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.chanName(tenantID), data).Err()
}

// Ping checks the Redis connection.
func (b *Redis) Ping(ctx context.Context) error { return b.rdb.Ping(ctx).Err() }

func (b *Redis) Close() error {
	b.mu.Lock()
	for ch, ps := range b.subs {
		_ = ps.Close()
		delete(b.subs, ch)
	}
	b.mu.Unlock()
	return b.rdb.Close()
}

func (b *Redis) chanName(tenantID string) string { return "solve-events:" + tenantID }
