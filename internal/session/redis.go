// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/filter"
	"github.com/pdiddy/litcurate/internal/logging"
	"github.com/pdiddy/litcurate/pkg/types"
)

const keyPrefix = "litcurate:session:"

// RedisStore keeps sessions in Redis as JSON with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisStore connects to the Redis server in cfg and pings it.
func NewRedisStore(ctx context.Context, cfg types.SessionConfig, log *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	s := newRedisStore(client, cfg.TTL, log)
	s.log.Info("session store connected", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", s.ttl))
	return s, nil
}

func newRedisStore(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, log: logging.OrNop(log)}
}

func (r *RedisStore) Load(ctx context.Context, id string) (*filter.Set, error) {
	data, err := r.client.GetEx(ctx, keyPrefix+id, r.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	set := &filter.Set{}
	if err := set.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	r.log.Debug("session loaded", zap.String("session", id), zap.Int("tasks", set.Len()))
	return set, nil
}

func (r *RedisStore) Save(ctx context.Context, id string, set *filter.Set) error {
	data, err := set.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", id, err)
	}
	if err := r.client.Set(ctx, keyPrefix+id, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("saving session %s: %w", id, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
