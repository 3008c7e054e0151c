package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const scanCount = 100

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RedisStore struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

func NewRedisStore(cfg RedisConfig, logger zerolog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{rdb: rdb, logger: logger.With().Str("component", "redis").Logger()}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	err := s.rdb.Ping(ctx).Err()
	if err != nil {
		s.logger.Error().Err(err).Msg("PING failed")
	}
	return err
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.logger.Debug().Str("key", key).Msg("GET miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	s.logger.Debug().Str("key", key).Int("bytes", len(b)).Msg("GET hit")
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, val, ttl).Err(); err != nil {
		return err
	}
	s.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("SET")
	return nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	n, err := s.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return err
	}
	s.logger.Debug().Strs("keys", keys).Int64("deleted", n).Msg("DEL")
	return nil
}

// DelPrefix deletes every key matching prefix*. The full SCAN runs before any DEL so the
// iteration never observes its own deletions.
func (s *RedisStore) DelPrefix(ctx context.Context, prefix string) (int, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		page, next, err := s.rdb.Scan(ctx, cursor, prefix+"*", scanCount).Result()
		if err != nil {
			return 0, err
		}
		keys = append(keys, page...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	deleted := 0
	for start := 0; start < len(keys); start += scanCount {
		end := start + scanCount
		if end > len(keys) {
			end = len(keys)
		}
		n, err := s.rdb.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return deleted, err
		}
		deleted += int(n)
	}
	s.logger.Debug().Str("prefix", prefix).Int("deleted", deleted).Msg("DEL prefix")
	return deleted, nil
}
