package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipvcore/pkg/requestcontext"
)

func TestInMemoryBucketStore(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	at := func(d time.Duration) context.Context {
		return requestcontext.WithTime(context.Background(), start.Add(d))
	}

	t.Run("allows up to the limit", func(t *testing.T) {
		store := NewInMemoryBucketStore()
		for i := range 3 {
			res, err := store.Allow(at(time.Duration(i)*time.Second), "k", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, 2-i, res.Remaining)
		}

		res, err := store.Allow(at(10*time.Second), "k", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, start.Add(time.Minute), res.ResetAt)
		assert.Equal(t, 50, res.RetryAfter)
	})

	t.Run("window slides", func(t *testing.T) {
		store := NewInMemoryBucketStore()
		_, err := store.Allow(at(0), "k", 1, time.Minute)
		require.NoError(t, err)

		res, err := store.Allow(at(30*time.Second), "k", 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Allowed)

		res, err = store.Allow(at(61*time.Second), "k", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		store := NewInMemoryBucketStore()
		_, err := store.Allow(at(0), "a", 1, time.Minute)
		require.NoError(t, err)

		res, err := store.Allow(at(0), "b", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("reset clears the bucket", func(t *testing.T) {
		store := NewInMemoryBucketStore()
		_, err := store.Allow(at(0), "k", 1, time.Minute)
		require.NoError(t, err)
		require.NoError(t, store.Reset(context.Background(), "k"))

		res, err := store.Allow(at(time.Second), "k", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}
