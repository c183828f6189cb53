package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipvcore/internal/evidence/models"
	id "ipvcore/pkg/domain"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { now = now.Add(time.Second); return now }

	require.NoError(t, s.Save(ctx, models.VerifiableCredential{UserID: "u1", CriID: "passport", Raw: "old"}))
	require.NoError(t, s.Save(ctx, models.VerifiableCredential{UserID: "u1", CriID: "address", Raw: "addr"}))
	require.NoError(t, s.Save(ctx, models.VerifiableCredential{UserID: "u1", CriID: "passport", Raw: "new"}))
	require.NoError(t, s.Save(ctx, models.VerifiableCredential{UserID: "u2", CriID: "passport", Raw: "other"}))

	t.Run("one credential per cri, ordered by storage time", func(t *testing.T) {
		got, err := s.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "addr", got[0].Raw)
		assert.Equal(t, "new", got[1].Raw)
	})

	t.Run("delete selected cris", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "u1", []id.CriID{"address"}))
		got, err := s.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("delete all leaves other users alone", func(t *testing.T) {
		require.NoError(t, s.DeleteAll(ctx, "u1"))
		got, err := s.ListByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, got)

		other, err := s.ListByUser(ctx, "u2")
		require.NoError(t, err)
		assert.Len(t, other, 1)
	})
}
