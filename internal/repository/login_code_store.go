package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"givto/internal/config"
	"givto/internal/database"
)

// OpenLoginCodeStore returns the login code store selected by configuration
// and a function that releases it
func OpenLoginCodeStore(ctx context.Context, cfg *config.Config, db *database.DB) (LoginCodeStore, func() error, error) {
	switch cfg.LoginCodeStore {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return NewRedisLoginCodeRepository(rdb), rdb.Close, nil
	default:
		return NewLoginCodeRepository(db), func() error { return nil }, nil
	}
}
