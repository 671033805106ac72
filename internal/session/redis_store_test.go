package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisStoreGetMissing(t *testing.T) {
	_, client := setupTestRedis(t)
	s := NewRedisStore(client, 0)

	id, ok, err := s.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestRedisStorePutIsInsertOnly(t *testing.T) {
	mr, client := setupTestRedis(t)
	s := NewRedisStore(client, 0)
	ctx := context.Background()

	got, err := s.Put(ctx, "u1", "first")
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, err = s.Put(ctx, "u1", "second")
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	stored, err := mr.Get("relay:session:u1")
	require.NoError(t, err)
	assert.Equal(t, "first", stored)
}

func TestRedisStoreTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	s := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	_, err := s.Put(ctx, "u1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("relay:session:u1"))

	mr.FastForward(30 * time.Minute)
	_, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Hour, mr.TTL("relay:session:u1"), "Get should slide the expiry")

	mr.FastForward(2 * time.Hour)
	_, ok, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	s := NewRedisStore(client, 0)
	mr.Close()

	_, _, err := s.Get(context.Background(), "u1")
	assert.Error(t, err)
	_, err = s.Put(context.Background(), "u1", "x")
	assert.Error(t, err)
}
