package lock

import (
	"context"
	"fmt"
	"time"

	"ms-travel-sales/internal/config"
	"ms-travel-sales/internal/logger"

	"github.com/go-redis/redis/v8"
)

// Connect opens the Redis client shared by the cart lock and the token
// revocation list and checks that it answers.
func Connect(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Error("REDIS", fmt.Sprintf("Failed to connect to Redis at %s: %v", cfg.Addr, err))
		client.Close()
		return nil, err
	}

	log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s", cfg.Addr))
	return client, nil
}
