package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GwennKoi/XorShiftLPC/internal/commons/logger_config"
	"github.com/GwennKoi/XorShiftLPC/internal/config"
	"github.com/GwennKoi/XorShiftLPC/internal/xorshift"
)

const advanceRetries = 8

type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects with the pool settings from conf and pings the server.
func NewRedis(ctx context.Context, conf config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Addr(),
		Password:     conf.Password,
		DB:           conf.Database,
		PoolSize:     conf.PoolSize,
		MinIdleConns: conf.MinIdleConns,
		PoolTimeout:  time.Duration(conf.PoolTimeout) * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis (%s): %w", conf.Addr(), err)
	}
	logger_config.Logger.Debug("redis connected", "addr", conf.Addr(), "db", conf.Database)

	return NewRedisFromClient(client, conf.Prefix), nil
}

func NewRedisFromClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(name string) string { return r.prefix + name }

func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) Get(ctx context.Context, name string) (xorshift.Seed, error) {
	v, err := r.client.Get(ctx, r.key(name)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get sequence %q: %w", name, err)
	}
	return xorshift.Seed(v), nil
}

func (r *Redis) Put(ctx context.Context, name string, seed xorshift.Seed) error {
	if err := r.client.Set(ctx, r.key(name), uint64(seed.Sanitize()), 0).Err(); err != nil {
		return fmt.Errorf("put sequence %q: %w", name, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, name string) error {
	n, err := r.client.Del(ctx, r.key(name)).Result()
	if err != nil {
		return fmt.Errorf("delete sequence %q: %w", name, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Advance runs fn inside a WATCH/MULTI transaction and retries when another
// client moved the sequence in between.
func (r *Redis) Advance(ctx context.Context, name string, fn AdvanceFunc) (xorshift.Seed, error) {
	key := r.key(name)

	var next xorshift.Seed
	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Uint64()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		next, err = fn(xorshift.Seed(cur))
		if err != nil {
			return err
		}
		next = next.Sanitize()

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, uint64(next), 0)
			return nil
		})
		return err
	}

	for attempt := range advanceRetries {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			logger_config.Debugf("sequence %s: advance retry %d/%d", name, attempt+1, advanceRetries)
			continue
		}
		if err != nil {
			return 0, err
		}
		return next, nil
	}
	return 0, fmt.Errorf("advance sequence %q: %w", name, ErrConflict)
}
