package database

import (
	"context"
	"testing"
	"time"

	"shopwhiz/internal/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewRedisFromClient(rdb, "test:")
}

func TestRedisClient_SetGetDel(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	key := client.Key("abc")
	assert.Equal(t, "test:abc", key)

	require.NoError(t, client.Set(ctx, key, []byte(`{"id":"abc"}`), time.Minute))
	assert.True(t, mr.Exists("test:abc"))

	val, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc"}`, string(val))

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisClient_Expiration(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, client.Key("ttl"), "v", time.Second))
	mr.FastForward(2 * time.Second)

	_, err := client.Get(ctx, client.Key("ttl"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)

	c, err := NewRedis(config.RedisConfig{Address: "localhost:6379", KeyPrefix: "p:"})
	require.NoError(t, err)
	assert.Equal(t, "p:x", c.Key("x"))
	assert.NoError(t, c.Close())
}
