package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateStore(t *testing.T) {
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		store := NewMemoryStateStore(time.Minute)
		require.NoError(t, store.Set(ctx, "state-1", "/dashboard"))

		data, err := store.Get(ctx, "state-1")
		require.NoError(t, err)
		assert.Equal(t, "/dashboard", data)
	})

	t.Run("unknown state", func(t *testing.T) {
		store := NewMemoryStateStore(time.Minute)
		_, err := store.Get(ctx, "never-set")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("expired state", func(t *testing.T) {
		store := NewMemoryStateStore(time.Minute)
		require.NoError(t, store.Set(ctx, "state-2", "data"))
		store.states["state-2"].expiresAt = time.Now().Add(-time.Second)

		_, err := store.Get(ctx, "state-2")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("delete", func(t *testing.T) {
		store := NewMemoryStateStore(time.Minute)
		require.NoError(t, store.Set(ctx, "state-3", "data"))
		require.NoError(t, store.Delete(ctx, "state-3"))

		_, err := store.Get(ctx, "state-3")
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}
