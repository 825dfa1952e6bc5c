package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const DefaultRedisKeyPrefix = "session:"

// RedisConfig mirrors the subset of redis.Options the demo exposes.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

func (c RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		PoolSize:     c.PoolSize,
	}
}

// setNXScript stores ARGV[2] under field ARGV[1] unless present and returns
// whichever value is stored afterwards.
var setNXScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 1 then
  if tonumber(ARGV[3]) > 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[3])
  end
  return ARGV[2]
end
return redis.call('HGET', KEYS[1], ARGV[1])
`)

// renameScript renames KEYS[1] to KEYS[2] when KEYS[1] still exists and
// returns 1, or 0 when there was nothing to move.
var renameScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  redis.call('RENAME', KEYS[1], KEYS[2])
  return 1
end
return 0
`)

// RedisStore keeps each session as a redis hash under KeyPrefix+id.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStore(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.key(id), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: redis get: %w", err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, id, key, value string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.key(id), key, value)
		if s.ttl > 0 {
			p.PExpire(ctx, s.key(id), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) SetNX(ctx context.Context, id, key, value string) (string, error) {
	stored, err := setNXScript.Run(ctx, s.client, []string{s.key(id)}, key, value, s.ttl.Milliseconds()).Text()
	if err != nil {
		return "", fmt.Errorf("session: redis setnx: %w", err)
	}
	return stored, nil
}

func (s *RedisStore) Delete(ctx context.Context, id, key string) error {
	if err := s.client.HDel(ctx, s.key(id), key).Err(); err != nil {
		return fmt.Errorf("session: redis delete: %w", err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("session: redis exists: %w", err)
	}
	return n > 0, nil
}

// Rename is a no-op when the old session no longer exists, including when it
// expired just before the call.
func (s *RedisStore) Rename(ctx context.Context, oldID, newID string) error {
	if err := renameScript.Run(ctx, s.client, []string{s.key(oldID), s.key(newID)}).Err(); err != nil {
		return fmt.Errorf("session: redis rename: %w", err)
	}
	return nil
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("session: redis destroy: %w", err)
	}
	return nil
}

func (s *RedisStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.PExpire(ctx, s.key(id), ttl).Err(); err != nil {
		return fmt.Errorf("session: redis touch: %w", err)
	}
	return nil
}

func (s *RedisStore) key(id string) string {
	return s.keyPrefix + id
}
