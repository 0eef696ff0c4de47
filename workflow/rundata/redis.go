package rundata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/lmgateway/config"
)

// RedisStore keeps each execution's entries in a Redis list.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// DialRedis connects and pings.
func DialRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisStore wraps client. A ttl of zero keeps lists forever.
func NewRedisStore(client *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix + "rundata:",
		ttl:       ttl,
		logger:    logger.With(zap.String("component", "rundata_redis")),
	}
}

func (s *RedisStore) key(executionID string) string {
	return s.keyPrefix + executionID
}

func (s *RedisStore) Append(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	key := s.key(e.ExecutionID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append run data: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, executionID string) ([]Entry, error) {
	raw, err := s.client.LRange(ctx, s.key(executionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list run data: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			s.logger.Warn("skipping corrupt run data entry",
				zap.String("execution_id", executionID), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Ping checks if the store is healthy
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
