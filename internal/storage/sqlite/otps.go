package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/cookie/internal/models"
	"github.com/mmynk/cookie/internal/storage"
)

// SaveOTP stores a code, replacing any earlier code for the same email and purpose.
func (s *SQLiteStore) SaveOTP(ctx context.Context, otp *models.OTP) error {
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO otps (email, purpose, code, created_at, verified_at) VALUES (?, ?, ?, ?, NULL)
		 ON CONFLICT (email, purpose) DO UPDATE SET code = excluded.code, created_at = excluded.created_at, verified_at = NULL`,
		otp.Email, otp.Purpose, otp.Code, otp.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save otp: %w", err)
	}
	return nil
}

// GetOTP returns the current code for email and purpose.
func (s *SQLiteStore) GetOTP(ctx context.Context, email, purpose string) (*models.OTP, error) {
	var (
		otp       = models.OTP{Email: email, Purpose: purpose}
		createdAt int64
		verified  sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT code, created_at, verified_at FROM otps WHERE email = ? AND purpose = ?",
		email, purpose,
	).Scan(&otp.Code, &createdAt, &verified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("otp for %s: %w", email, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get otp: %w", err)
	}
	otp.CreatedAt = fromUnix(createdAt)
	if verified.Valid {
		t := fromUnix(verified.Int64)
		otp.VerifiedAt = &t
	}
	return &otp, nil
}

// MarkOTPVerified records that the code was confirmed.
func (s *SQLiteStore) MarkOTPVerified(ctx context.Context, email, purpose string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE otps SET verified_at = ? WHERE email = ? AND purpose = ?",
		at.Unix(), email, purpose,
	)
	if err != nil {
		return fmt.Errorf("failed to verify otp: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("otp for %s: %w", email, storage.ErrNotFound)
	}
	return nil
}

// DeleteOTP removes the code for email and purpose.
func (s *SQLiteStore) DeleteOTP(ctx context.Context, email, purpose string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM otps WHERE email = ? AND purpose = ?", email, purpose)
	if err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}
