package pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	ctx := context.Background()

	t.Run("address hosts pass through", func(t *testing.T) {
		got, err := NormalizeURL(ctx, "http://10.0.0.1:5555/wd/hub")
		require.NoError(t, err)
		assert.Equal(t, "http://10.0.0.1:5555/wd/hub", got)
	})

	t.Run("unresolvable hosts are kept as-is", func(t *testing.T) {
		got, err := NormalizeURL(ctx, "http://surely-not-a-real-host.invalid:5555/wd/hub")
		require.NoError(t, err)
		assert.Equal(t, "http://surely-not-a-real-host.invalid:5555/wd/hub", got)
	})

	t.Run("normalization is deterministic", func(t *testing.T) {
		first, err := NormalizeURL(ctx, "http://localhost:5555/wd/hub")
		require.NoError(t, err)
		second, err := NormalizeURL(ctx, "http://localhost:5555/wd/hub")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("missing host rejected", func(t *testing.T) {
		_, err := NormalizeURL(ctx, "/wd/hub")
		assert.Error(t, err)
	})

	t.Run("unparsable url rejected", func(t *testing.T) {
		_, err := NormalizeURL(ctx, "http://10.0.0.1:string/")
		assert.Error(t, err)
	})
}
