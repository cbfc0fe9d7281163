package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Ledger remembers which deliveries were already handled so an at-least-once
// transport does not run a trigger twice for the same event.
type Ledger interface {
	// Claim records key and reports whether this caller is the first to see it.
	Claim(ctx context.Context, key string) (bool, error)
	// Release forgets key so a redelivery is processed again.
	Release(ctx context.Context, key string) error
}

const keyPrefix = "gearshare:delivery:"

// RedisLedger keeps claims as expiring Redis keys.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, ttl: ttl}
}

func (l *RedisLedger) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("RedisLedger.Claim: %w", err)
	}
	return ok, nil
}

func (l *RedisLedger) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("RedisLedger.Release: %w", err)
	}
	return nil
}

// MemoryLedger is a process-local ledger with the same expiry behaviour.
type MemoryLedger struct {
	mu     sync.Mutex
	ttl    time.Duration
	claims map[string]time.Time
	now    func() time.Time
}

func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	return &MemoryLedger{ttl: ttl, claims: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryLedger) Claim(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if exp, ok := l.claims[key]; ok && (l.ttl <= 0 || now.Before(exp)) {
		return false, nil
	}
	l.claims[key] = now.Add(l.ttl)
	l.sweep(now)
	return true, nil
}

func (l *MemoryLedger) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claims, key)
	return nil
}

// sweep drops expired claims. Caller holds mu.
func (l *MemoryLedger) sweep(now time.Time) {
	if l.ttl <= 0 {
		return
	}
	for k, exp := range l.claims {
		if !now.Before(exp) {
			delete(l.claims, k)
		}
	}
}
