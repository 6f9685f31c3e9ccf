package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipesimplifier/api/internal/ports/outbound"
)

func TestCacheRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a copy of the value", func(t *testing.T) {
		repo := NewCacheRepository(time.Hour, time.Minute)
		buf := []byte("pie")

		require.NoError(t, repo.Set(ctx, "k", buf, 0))
		buf[0] = 'x'

		got, err := repo.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "pie", string(got))
	})

	t.Run("missing key is a cache miss", func(t *testing.T) {
		repo := NewCacheRepository(time.Hour, time.Minute)

		_, err := repo.Get(ctx, "absent")

		assert.ErrorIs(t, err, outbound.ErrCacheMiss)
	})

	t.Run("entries expire", func(t *testing.T) {
		repo := NewCacheRepository(time.Hour, time.Minute)
		require.NoError(t, repo.Set(ctx, "k", []byte("v"), 10*time.Millisecond))

		assert.Eventually(t, func() bool {
			ok, _ := repo.Exists(ctx, "k")
			return !ok
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("delete removes the entry", func(t *testing.T) {
		repo := NewCacheRepository(time.Hour, time.Minute)
		require.NoError(t, repo.Set(ctx, "k", []byte("v"), 0))

		require.NoError(t, repo.Delete(ctx, "k"))

		ok, err := repo.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
