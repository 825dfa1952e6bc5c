package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(RedisConfig{Addr: mr.Addr()}.Options())
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "", ttl), mr
}

func TestRedisStoreAttributes(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Hour)

	_, found, err := s.Get(ctx, "sid", "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "sid", "k", "v1"))
	assert.Equal(t, "v1", mr.HGet(DefaultRedisKeyPrefix+"sid", "k"))
	assert.Equal(t, time.Hour, mr.TTL(DefaultRedisKeyPrefix+"sid"))

	stored, err := s.SetNX(ctx, "sid", "k", "v2")
	require.NoError(t, err)
	assert.Equal(t, "v1", stored)

	stored, err = s.SetNX(ctx, "sid", "other", "v3")
	require.NoError(t, err)
	assert.Equal(t, "v3", stored)

	require.NoError(t, s.Delete(ctx, "sid", "k"))
	_, found, err = s.Get(ctx, "sid", "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)

	require.NoError(t, s.Set(ctx, "old", "k", "v"))
	require.NoError(t, s.Rename(ctx, "old", "new"))
	ok, err := s.Exists(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)
	v, found, _ := s.Get(ctx, "new", "k")
	assert.True(t, found)
	assert.Equal(t, "v", v)

	require.NoError(t, s.Rename(ctx, "missing", "other"))

	require.NoError(t, s.Touch(ctx, "new", 10*time.Minute))
	assert.Equal(t, 10*time.Minute, mr.TTL(DefaultRedisKeyPrefix+"new"))

	mr.FastForward(11 * time.Minute)
	ok, _ = s.Exists(ctx, "new")
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "gone", "k", "v"))
	require.NoError(t, s.Destroy(ctx, "gone"))
	assert.False(t, mr.Exists(DefaultRedisKeyPrefix+"gone"))
}

func TestRedisStoreRenameExpiredSession(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)

	require.NoError(t, s.Set(ctx, "old", "k", "v"))
	mr.FastForward(2 * time.Minute)

	require.NoError(t, s.Rename(ctx, "old", "new"))
	assert.False(t, mr.Exists(DefaultRedisKeyPrefix+"old"))
	assert.False(t, mr.Exists(DefaultRedisKeyPrefix+"new"))
}

func TestRedisStoreRenameKeepsTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)

	require.NoError(t, s.Set(ctx, "old", "k", "v"))
	require.NoError(t, s.Rename(ctx, "old", "new"))
	assert.Equal(t, "v", mr.HGet(DefaultRedisKeyPrefix+"new", "k"))
	assert.Equal(t, time.Minute, mr.TTL(DefaultRedisKeyPrefix+"new"))
}

func TestRedisStoreFailure(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 0)
	mr.Close()

	_, _, err := s.Get(ctx, "sid", "k")
	assert.Error(t, err)
	assert.Error(t, s.Set(ctx, "sid", "k", "v"))
	_, err = s.Exists(ctx, "sid")
	assert.Error(t, err)
}
