package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/storefront"
)

// OtpStore implements [storefront.OtpStore]. The (user_id, purpose) unique
// key makes Upsert a single statement.
type OtpStore struct {
	db DBTX
}

func NewOtpStore(db DBTX) *OtpStore {
	return &OtpStore{db: db}
}

func (s *OtpStore) Upsert(ctx context.Context, record storefront.OtpRecord) error {
	query :=
		`INSERT INTO user_otps (user_id, purpose, code, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, purpose)
		 DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at`

	_, err := s.db.ExecContext(ctx, query,
		record.UserID, record.Purpose.String(), record.Code, record.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *OtpStore) Get(ctx context.Context, userID int64, purpose storefront.OtpPurpose) (storefront.OtpRecord, error) {
	query :=
		`SELECT id, code, expires_at FROM user_otps
		 WHERE user_id = $1 AND purpose = $2`

	r := storefront.OtpRecord{UserID: userID, Purpose: purpose}
	err := s.db.QueryRowContext(ctx, query, userID, purpose.String()).Scan(&r.ID, &r.Code, &r.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storefront.OtpRecord{}, storefront.ErrRecordNotFound
		}
		return storefront.OtpRecord{}, fmt.Errorf("db error: %w", err)
	}
	return r, nil
}

func (s *OtpStore) Delete(ctx context.Context, userID int64, purpose storefront.OtpPurpose) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_otps WHERE user_id = $1 AND purpose = $2`, userID, purpose.String())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *OtpStore) DeleteAllForUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_otps WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
