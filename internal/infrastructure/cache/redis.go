// Package cache wires the Redis client used for distributed locks,
// presence/notification pub/sub, and rate-limit counters.
package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/EmilynnJ/ccodeseer/internal/config"

	"github.com/go-redis/redis/v8"
)

// Open connects to Redis and verifies the connection with a bounded
// ping, matching the teacher's InitRedis.
func Open(cfg *config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("[cache] failed to connect to redis: %v", err)
	}

	log.Println("[cache] redis connected")
	return client
}
