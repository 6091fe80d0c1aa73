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

// CreateUser inserts a new user into the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	query := `
		INSERT INTO users (name, email, phone, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		user.Name,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.CreatedAt.Unix(),
		user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	user.ID = id
	return nil
}

const userColumns = `id, name, email, phone, password_hash, verified_at, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		user                 models.User
		verified             sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&verified,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = fromUnix(createdAt)
	user.UpdatedAt = fromUnix(updatedAt)
	if verified.Valid {
		t := fromUnix(verified.Int64)
		user.VerifiedAt = &t
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // User not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // User not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// UpdatePassword replaces the user's password hash.
func (s *SQLiteStore) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		hash, now().Unix(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectRow(res, "user", userID)
}

// MarkUserVerified records when the account OTP was confirmed.
func (s *SQLiteStore) MarkUserVerified(ctx context.Context, userID int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET verified_at = ?, updated_at = ? WHERE id = ?",
		at.Unix(), now().Unix(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	return expectRow(res, "user", userID)
}

var _ storage.UserStore = (*SQLiteStore)(nil)
