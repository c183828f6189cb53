//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "ipvcore/pkg/platform/audit"
	"ipvcore/pkg/platform/audit/store/postgres"
	"ipvcore/pkg/platform/tx"
	"ipvcore/pkg/testutil/containers"
)

type OutboxSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
	tx    *tx.SQLRunner
}

func TestOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxSuite))
}

func (s *OutboxSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.pg.DB)
	s.tx = tx.NewSQLRunner(s.pg.DB)
}

func (s *OutboxSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "audit_outbox"))
}

func (s *OutboxSuite) TestRelayCycle() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, audit.New(audit.EventF2FVcConsumed, audit.User{UserID: "urn:uuid:user-1"}, nil)))
	s.Require().NoError(s.store.Append(ctx, audit.New(audit.EventJourneyStart, audit.User{}, nil)))

	entries, err := s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(audit.CategoryCredential, entries[0].Category)
	s.Equal("urn:uuid:user-1", entries[0].Key)
	s.Equal(audit.CategoryJourney, entries[1].Category)

	s.Require().NoError(s.store.MarkPublished(ctx, []uuid.UUID{entries[0].ID}))
	entries, err = s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.EventJourneyStart, entries[0].EventName)

	purged, err := s.store.PurgePublished(ctx, time.Now().Add(time.Minute))
	s.Require().NoError(err)
	s.EqualValues(1, purged)
}

func (s *OutboxSuite) TestAppendJoinsTransaction() {
	ctx := context.Background()
	event := audit.New(audit.EventF2FVcError, audit.User{UserID: "urn:uuid:user-2"}, nil)

	s.Run("rolled back with the unit of work", func() {
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			s.Require().NoError(s.store.Append(ctx, event))
			return errors.New("settle failed")
		})
		s.Require().Error(err)

		entries, err := s.store.FetchUnpublished(ctx, 10)
		s.Require().NoError(err)
		s.Empty(entries)
	})

	s.Run("visible after commit", func() {
		s.Require().NoError(s.tx.RunInTx(ctx, func(ctx context.Context) error {
			return s.store.Append(ctx, event)
		}))

		entries, err := s.store.FetchUnpublished(ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(audit.EventF2FVcError, entries[0].EventName)
	})
}
