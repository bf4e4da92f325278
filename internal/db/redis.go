package db

import (
	"context"
	"log/slog"
	"time"

	"backend-lanewatch/internal/config"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns nil when redis is not configured or not reachable;
// callers treat a nil client as "cache and fan-out disabled".
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:                  cfg.RedisAddr,
		Password:              cfg.RedisPassword,
		ContextTimeoutEnabled: true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, continuing without it", slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
		_ = client.Close()
		return nil
	}
	return client
}
