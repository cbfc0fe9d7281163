// File: utils/cache.go
package utils

import (
	"context"
	"fmt"
	"time"

	"gearshare/config"

	"github.com/go-redis/redis/v8"
)

// NewDedupClient connects the Redis client backing the delivery ledger.
func NewDedupClient() (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDedupDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis (Dedup): %w", err)
	}
	return client, nil
}
