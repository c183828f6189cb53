package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ipvcore/internal/credentials/models"
	id "ipvcore/pkg/domain"
	"ipvcore/pkg/platform/sentinel"
	txcontext "ipvcore/pkg/platform/tx"
)

// PostgresPendingStore persists pending async responses in async_cri_responses.
type PostgresPendingStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresPending(db *sql.DB) *PostgresPendingStore {
	return &PostgresPendingStore{db: db, clock: time.Now}
}

func (s *PostgresPendingStore) Upsert(ctx context.Context, record models.PendingResponse) error {
	now := s.clock()
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO async_cri_responses (user_id, cri_id, status, oauth_state, journey_id, error_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id, cri_id) DO UPDATE SET
			status = EXCLUDED.status,
			oauth_state = EXCLUDED.oauth_state,
			journey_id = EXCLUDED.journey_id,
			error_code = EXCLUDED.error_code,
			updated_at = EXCLUDED.updated_at
	`,
		record.UserID.String(),
		record.CriID.String(),
		string(record.Status),
		record.OAuthState,
		record.JourneyID,
		record.ErrorCode,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert async cri response: %w", err)
	}
	return nil
}

const pendingColumns = `user_id, cri_id, status, oauth_state, journey_id, error_code, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPending(row scanner) (models.PendingResponse, error) {
	var (
		r         models.PendingResponse
		user, cri string
		status    string
	)
	if err := row.Scan(&user, &cri, &status, &r.OAuthState, &r.JourneyID, &r.ErrorCode, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return models.PendingResponse{}, err
	}
	r.UserID = id.UserID(user)
	r.CriID = id.CriID(cri)
	r.Status = models.AsyncStatus(status)
	return r, nil
}

func (s *PostgresPendingStore) Get(ctx context.Context, userID id.UserID, criID id.CriID) (*models.PendingResponse, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pendingColumns+` FROM async_cri_responses WHERE user_id = $1 AND cri_id = $2`,
		userID.String(), criID.String())
	r, err := scanPending(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get async cri response: %w", err)
	}
	return &r, nil
}

func (s *PostgresPendingStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.PendingResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pendingColumns+` FROM async_cri_responses WHERE user_id = $1 ORDER BY cri_id`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("list async cri responses: %w", err)
	}
	defer rows.Close()

	var out []models.PendingResponse
	for rows.Next() {
		r, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("scan async cri response: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate async cri responses: %w", err)
	}
	return out, nil
}

func (s *PostgresPendingStore) UpdateStatus(ctx context.Context, userID id.UserID, criID id.CriID, status models.AsyncStatus, errorCode string) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE async_cri_responses SET status = $3, error_code = $4, updated_at = $5
		WHERE user_id = $1 AND cri_id = $2
	`, userID.String(), criID.String(), string(status), errorCode, s.clock())
	if err != nil {
		return fmt.Errorf("update async cri response: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update async cri response: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
