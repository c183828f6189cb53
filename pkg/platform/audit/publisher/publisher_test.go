package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "ipvcore/pkg/domain"
	audit "ipvcore/pkg/platform/audit"
	"ipvcore/pkg/platform/audit/store/memory"
	"ipvcore/pkg/requestcontext"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestPublisher_StampsEnvelope(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithComponentID("https://identity.example"))

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", chromeUA)

	err := pub.Emit(ctx, audit.New(audit.EventJourneyStart, audit.User{UserID: "urn:uuid:u1", SessionID: "s1"}, nil))
	require.NoError(t, err)

	events, err := store.ListByUser(ctx, "urn:uuid:u1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	e := events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, now, e.Timestamp)
	assert.Equal(t, "https://identity.example", e.ComponentID)
	assert.Equal(t, "10.0.0.1", e.User.IPAddress)

	device, ok := e.Restricted["device_information"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "Chrome", device["browser"])
	assert.Equal(t, "desktop", device["device_type"])
}

func TestPublisher_PreservesCallerFields(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithComponentID("default"))

	custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	err := pub.Emit(context.Background(), audit.Event{
		ID:          "fixed",
		Name:        audit.EventF2FVcConsumed,
		ComponentID: "f2f",
		Timestamp:   custom,
		User:        audit.User{UserID: "urn:uuid:u2", IPAddress: "1.1.1.1"},
	})
	require.NoError(t, err)

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "fixed", events[0].ID)
	assert.Equal(t, custom, events[0].Timestamp)
	assert.Equal(t, "f2f", events[0].ComponentID)
	assert.Equal(t, "1.1.1.1", events[0].User.IPAddress)
	assert.Nil(t, events[0].Restricted)
}

func TestPublisher_FailClosed(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	t.Run("store failure is returned", func(t *testing.T) {
		boom := errors.New("outbox down")
		store.FailWith(boom)
		defer store.FailWith(nil)

		err := pub.Emit(context.Background(), audit.New(audit.EventVcReceived, audit.User{UserID: "u"}, nil))
		require.ErrorIs(t, err, boom)
	})

	t.Run("unnamed event is rejected", func(t *testing.T) {
		err := pub.Emit(context.Background(), audit.Event{User: audit.User{UserID: id.UserID("u")}})
		require.ErrorIs(t, err, ErrMissingName)
	})

	t.Run("nothing was stored", func(t *testing.T) {
		events, err := store.ListAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestPublisher_MultipleEventsKeepOrder(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	user := audit.User{UserID: "urn:uuid:u3"}

	for _, name := range []audit.EventName{audit.EventGpg45ProfileMatched, audit.EventIdentityReuseComplete} {
		require.NoError(t, pub.Emit(context.Background(), audit.New(name, user, nil)))
	}
	assert.Equal(t, []audit.EventName{audit.EventGpg45ProfileMatched, audit.EventIdentityReuseComplete}, store.Names())
}
