package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arohner/shale/pkg/store"
)

func TestTracker(t *testing.T) {
	ctx := context.Background()

	t.Run("create occupies a capacity slot", func(t *testing.T) {
		tr := NewTracker(store.NewMemoryStore())

		s, err := tr.Create(ctx, "node-1", "chrome")
		require.NoError(t, err)
		assert.NotEmpty(t, s.ID)
		assert.Equal(t, "node-1", s.NodeID)
		assert.Equal(t, "chrome", s.Browser)
		assert.False(t, s.SoftDeleted)

		count, err := tr.SessionCount(ctx, "node-1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("released sessions still count", func(t *testing.T) {
		tr := NewTracker(store.NewMemoryStore())

		s, err := tr.Create(ctx, "node-1", "chrome")
		require.NoError(t, err)
		require.NoError(t, tr.Release(ctx, "node-1", s.ID))

		count, err := tr.SessionCount(ctx, "node-1")
		require.NoError(t, err)
		assert.Equal(t, 1, count, "soft-deleted sessions keep their slot until purged")
	})

	t.Run("purge frees the slot", func(t *testing.T) {
		tr := NewTracker(store.NewMemoryStore())

		s, err := tr.Create(ctx, "node-1", "chrome")
		require.NoError(t, err)
		require.NoError(t, tr.Purge(ctx, "node-1", s.ID))

		count, err := tr.SessionCount(ctx, "node-1")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("release of unknown session errors", func(t *testing.T) {
		tr := NewTracker(store.NewMemoryStore())

		err := tr.Release(ctx, "node-1", "no-such-session")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("counts are scoped per node", func(t *testing.T) {
		tr := NewTracker(store.NewMemoryStore())

		_, err := tr.Create(ctx, "node-1", "chrome")
		require.NoError(t, err)
		_, err = tr.Create(ctx, "node-1", "firefox")
		require.NoError(t, err)
		_, err = tr.Create(ctx, "node-2", "chrome")
		require.NoError(t, err)

		count, err := tr.SessionCount(ctx, "node-1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		count, err = tr.SessionCount(ctx, "node-2")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
