package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Redis 多个控制台实例共享登录态时使用；键统一加前缀
type Redis struct {
	RDB    *redis.Client
	prefix string
	sf     singleflight.Group
}

func NewRedis(addr, pass string, db int, prefix string) *Redis {
	return &Redis{
		RDB:    redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		prefix: prefix,
	}
}

func (s *Redis) key(k string) string { return s.prefix + k }

func (s *Redis) Ping(ctx context.Context) error { return s.RDB.Ping(ctx).Err() }

// Get 每次 API 调用都会读 token，并发读合并成一次往返
func (s *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	type hit struct {
		v  string
		ok bool
	}
	v, err, _ := s.sf.Do(key, func() (any, error) {
		val, err := s.RDB.Get(ctx, s.key(key)).Result()
		if errors.Is(err, redis.Nil) {
			return hit{}, nil
		}
		if err != nil {
			return nil, err
		}
		return hit{v: val, ok: true}, nil
	})
	if err != nil {
		return "", false, err
	}
	h := v.(hit)
	return h.v, h.ok, nil
}

func (s *Redis) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.RDB.Set(ctx, s.key(key), value, 0).Err()
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	return s.RDB.Del(ctx, s.key(key)).Err()
}

func (s *Redis) Close() error { return s.RDB.Close() }
