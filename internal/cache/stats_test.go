package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/NICValidator/internal/config"
	"github.com/JonMunkholm/NICValidator/internal/core"
	"github.com/JonMunkholm/NICValidator/internal/nic"
)

func newTestStats(t *testing.T, ttl time.Duration) (*Stats, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStats(client, "nic:", ttl), mr
}

func TestStats_SetGet(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStats(t, time.Minute)

	want := []core.GenderCount{{Gender: nic.Female, Count: 4}, {Gender: nic.Male, Count: 3}}
	require.NoError(t, s.Set(ctx, "stats:gender", want))

	var got []core.GenderCount
	require.NoError(t, s.Get(ctx, "stats:gender", &got))
	assert.Equal(t, want, got)

	assert.True(t, mr.Exists("nic:stats:gender"))
	assert.Equal(t, time.Minute, mr.TTL("nic:stats:gender"))
}

func TestStats_Get_Miss(t *testing.T) {
	s, _ := newTestStats(t, time.Minute)

	var got []core.GenderCount
	err := s.Get(context.Background(), "absent", &got)
	require.ErrorIs(t, err, ErrMiss)
	require.ErrorIs(t, err, core.ErrCacheMiss)
	assert.Nil(t, got)
}

func TestStats_Expiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStats(t, time.Minute)

	require.NoError(t, s.Set(ctx, "stats:daily:7", []core.DailyGenderCount{}))
	mr.FastForward(2 * time.Minute)

	var got []core.DailyGenderCount
	assert.ErrorIs(t, s.Get(ctx, "stats:daily:7", &got), ErrMiss)
}

func TestStats_Invalidate(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStats(t, time.Minute)

	require.NoError(t, s.Set(ctx, "stats:gender", 1))
	require.NoError(t, s.Set(ctx, "stats:daily:7", 2))
	require.NoError(t, mr.Set("other:key", "keep"))

	require.NoError(t, s.Invalidate(ctx))

	assert.False(t, mr.Exists("nic:stats:gender"))
	assert.False(t, mr.Exists("nic:stats:daily:7"))
	assert.True(t, mr.Exists("other:key"))

	// Nothing left to delete.
	require.NoError(t, s.Invalidate(ctx))
}

func TestStats_CorruptValue(t *testing.T) {
	s, mr := newTestStats(t, time.Minute)
	require.NoError(t, mr.Set("nic:stats:gender", "not json"))

	var got []core.GenderCount
	err := s.Get(context.Background(), "stats:gender", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}

func TestStats_RedisDown(t *testing.T) {
	s, mr := newTestStats(t, time.Minute)
	mr.Close()

	var got []core.GenderCount
	err := s.Get(context.Background(), "stats:gender", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
	assert.Error(t, s.Ping(context.Background()))
}

func TestNew(t *testing.T) {
	t.Run("disabled without URL", func(t *testing.T) {
		s, err := New(context.Background(), config.CacheConfig{})
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)
		s, err := New(context.Background(), config.CacheConfig{
			RedisURL:  "redis://" + mr.Addr(),
			KeyPrefix: "nic:",
			TTL:       time.Minute,
			PoolSize:  2,
		})
		require.NoError(t, err)
		require.NotNil(t, s)
		t.Cleanup(func() { _ = s.Close() })
		assert.NoError(t, s.Ping(context.Background()))
	})

	t.Run("bad URL", func(t *testing.T) {
		_, err := New(context.Background(), config.CacheConfig{RedisURL: "://nope"})
		assert.Error(t, err)
	})
}
