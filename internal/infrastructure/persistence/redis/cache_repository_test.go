package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/recipesimplifier/api/internal/infrastructure/config"
	"github.com/recipesimplifier/api/internal/ports/outbound"
)

func newTestRepository(t *testing.T) (*miniredis.Miniredis, outbound.CacheRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewCacheRepository(client, "recipes:", zaptest.NewLogger(t))
}

func TestCacheRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, repo := newTestRepository(t)

	require.NoError(t, repo.Set(ctx, "parse:abc", []byte(`{"title":"Pie"}`), time.Hour))

	got, err := repo.Get(ctx, "parse:abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Pie"}`, string(got))
	assert.True(t, mr.Exists("recipes:parse:abc"))
	assert.Equal(t, time.Hour, mr.TTL("recipes:parse:abc"))

	exists, err := repo.Exists(ctx, "parse:abc")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, "parse:abc"))
	_, err = repo.Get(ctx, "parse:abc")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
}

func TestCacheRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	mr, repo := newTestRepository(t)
	require.NoError(t, repo.Set(ctx, "k", []byte("v"), time.Minute))

	mr.FastForward(2 * time.Minute)

	exists, err := repo.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCacheRepository_ServerDown(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewCacheRepository(client, "", zaptest.NewLogger(t))
	mr.Close()

	_, err := repo.Get(ctx, "k")

	require.Error(t, err)
	assert.NotErrorIs(t, err, outbound.ErrCacheMiss)
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	cfg := &config.Config{Redis: config.RedisConfig{Host: mr.Host(), Port: port}}

	client, err := NewClient(context.Background(), cfg)

	require.NoError(t, err)
	assert.NoError(t, client.Close())
}
