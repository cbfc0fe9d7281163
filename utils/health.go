package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// Probe checks one external dependency.
type Probe struct {
	Name string
	Ping func(ctx context.Context) error
}

func RedisProbe(name string, client *redis.Client) Probe {
	return Probe{Name: name, Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() }}
}

func MongoProbe(name string, client *mongo.Client) Probe {
	return Probe{Name: name, Ping: func(ctx context.Context) error { return client.Ping(ctx, nil) }}
}

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Healthy   bool            `json:"healthy"`
	Checks    map[string]bool `json:"checks"`
	CheckedAt time.Time       `json:"checkedAt"`
}

var (
	currentHealth = HealthStatus{Healthy: true, Checks: map[string]bool{}}
	mu            sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	mu.RLock()
	defer mu.RUnlock()
	return currentHealth
}

// CheckHealth pings every probe with a short timeout.
func CheckHealth(ctx context.Context, probes []Probe) HealthStatus {
	status := HealthStatus{Healthy: true, Checks: make(map[string]bool, len(probes)), CheckedAt: time.Now()}
	for _, p := range probes {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		ok := p.Ping(pctx) == nil
		cancel()
		status.Checks[p.Name] = ok
		status.Healthy = status.Healthy && ok
	}
	return status
}

// StartHealthMonitor performs periodic health checks and updates in-memory
// state until ctx is done.
func StartHealthMonitor(ctx context.Context, probes []Probe, interval time.Duration) {
	update := func() {
		status := CheckHealth(ctx, probes)
		mu.Lock()
		currentHealth = status
		mu.Unlock()
	}
	update()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				update()
			}
		}
	}()
}
