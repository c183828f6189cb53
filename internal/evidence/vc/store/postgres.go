package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ipvcore/internal/evidence/models"
	"ipvcore/internal/evidence/vc"
	id "ipvcore/pkg/domain"
	txcontext "ipvcore/pkg/platform/tx"
)

// PostgresStore persists one credential per {user, CRI} in user_credentials.
// A newer credential from the same CRI replaces the older one.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresClock sets the clock used for stored_at.
func WithPostgresClock(clock func() time.Time) PostgresOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) Save(ctx context.Context, credential models.VerifiableCredential) error {
	query := `
		INSERT INTO user_credentials (user_id, cri_id, issuer, raw_jwt, expires_at, stored_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, cri_id) DO UPDATE SET
			issuer = EXCLUDED.issuer,
			raw_jwt = EXCLUDED.raw_jwt,
			expires_at = EXCLUDED.expires_at,
			stored_at = EXCLUDED.stored_at
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		credential.UserID.String(),
		credential.CriID.String(),
		credential.Issuer,
		credential.Raw,
		nullTime(credential.ExpiresAt),
		s.clock(),
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.VerifiableCredential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cri_id, raw_jwt, stored_at
		FROM user_credentials
		WHERE user_id = $1
		ORDER BY stored_at, cri_id
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []models.VerifiableCredential
	for rows.Next() {
		var (
			criID    string
			raw      string
			storedAt time.Time
		)
		if err := rows.Scan(&criID, &raw, &storedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		credential, err := vc.Decode(raw, id.CriID(criID), userID)
		if err != nil {
			return nil, err
		}
		credential.StoredAt = storedAt
		out = append(out, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

// Delete removes the user's credentials from the given CRIs in one statement.
func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID, criIDs []id.CriID) error {
	if len(criIDs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(criIDs))
	for _, c := range criIDs {
		ids = append(ids, c.String())
	}
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`DELETE FROM user_credentials WHERE user_id = $1 AND cri_id = ANY($2::text[])`,
		userID.String(), pq.Array(ids))
	if err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAll(ctx context.Context, userID id.UserID) error {
	if _, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM user_credentials WHERE user_id = $1`, userID.String()); err != nil {
		return fmt.Errorf("delete all credentials: %w", err)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
