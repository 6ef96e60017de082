package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const redisKeyPrefix = "scout:job:"

// RedisOptions configures a Redis store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// TTL expires records after their last write. Zero keeps them forever.
	TTL time.Duration
}

// Redis stores each record as a JSON string under scout:job:<id>.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, eris.Wrapf(err, "redis: connect %s", opts.Addr)
	}
	zap.L().Info("redis: connected", zap.String("addr", opts.Addr))
	return NewRedisFromClient(rdb, opts.TTL), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (s *Redis) Put(ctx context.Context, r *Record) error {
	if r == nil || r.ID == "" {
		return eris.New("redis: record id is required")
	}
	r.touch(time.Now().UTC())
	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "redis: marshal record")
	}
	if err := s.rdb.Set(ctx, redisKey(r.ID), data, s.ttl).Err(); err != nil {
		return eris.Wrapf(err, "redis: set %s", r.ID)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, id string) (*Record, error) {
	data, err := s.rdb.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "redis: get %s", id)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrapf(err, "redis: unmarshal %s", id)
	}
	return &r, nil
}

func (s *Redis) Delete(ctx context.Context, id string) error {
	return eris.Wrapf(s.rdb.Del(ctx, redisKey(id)).Err(), "redis: delete %s", id)
}

func (s *Redis) Migrate(context.Context) error { return nil }

func (s *Redis) Close() error {
	return s.rdb.Close()
}
