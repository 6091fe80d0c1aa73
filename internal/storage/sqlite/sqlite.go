// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/cookie/internal/models"
	"github.com/mmynk/cookie/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Open opens a SQLite database at dbPath with foreign keys enabled on every
// pooled connection. Parent directories are created with owner-only access.
func Open(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateGroup inserts the group and the creator's membership in one transaction.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now()
	}
	if group.ShareCode == "" {
		group.ShareCode = NewShareCode()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO groups (name, description, created_by, is_shared, share_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		group.Name, group.Description, group.CreatedBy, bool(group.IsShared), group.ShareCode, group.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read group id: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)",
		id, group.CreatedBy, group.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert creator membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	group.ID = id
	return nil
}

const groupColumns = `g.id, g.name, g.description, g.created_by, g.is_shared, g.share_code, g.created_at, u.name`

func scanGroup(row interface{ Scan(...any) error }) (*models.Group, error) {
	var (
		g         models.Group
		shared    bool
		createdAt int64
		creator   sql.NullString
	)
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &shared, &g.ShareCode, &createdAt, &creator); err != nil {
		return nil, err
	}
	g.IsShared = models.Flag(shared)
	g.CreatedAt = fromUnix(createdAt)
	g.Creator = &models.UserRef{ID: g.CreatedBy, Name: creator.String}
	return &g, nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID int64) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups g LEFT JOIN users u ON u.id = g.created_by WHERE g.id = ?`,
		groupID,
	)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %d: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// GetGroupByShareCode retrieves a group by its share code.
func (s *SQLiteStore) GetGroupByShareCode(ctx context.Context, code string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups g LEFT JOIN users u ON u.id = g.created_by WHERE g.share_code = ?`,
		code,
	)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("share code %q: %w", code, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group by share code: %w", err)
	}
	return g, nil
}

// ListGroupsForUser returns the groups the user belongs to, newest first.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID int64) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+groupColumns+`
		 FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 LEFT JOIN users u ON u.id = g.created_by
		 WHERE m.user_id = ?
		 ORDER BY g.created_at DESC, g.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*models.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// DeleteGroup removes a group. Members, posts and stories cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return expectRow(res, "group", groupID)
}

// SetGroupShared updates the group's sharing flag.
func (s *SQLiteStore) SetGroupShared(ctx context.Context, groupID int64, shared bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE groups SET is_shared = ? WHERE id = ?", shared, groupID)
	if err != nil {
		return fmt.Errorf("failed to update group sharing: %w", err)
	}
	return expectRow(res, "group", groupID)
}

// AddMember adds the user to the group, ignoring existing memberships.
func (s *SQLiteStore) AddMember(ctx context.Context, groupID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)",
		groupID, userID, now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// IsMember reports whether the user belongs to the group.
func (s *SQLiteStore) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?)",
		groupID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

// ListMembers returns the group's members in join order.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID int64) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.email
		 FROM group_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.group_id = ?
		 ORDER BY m.joined_at, u.id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]models.Member, 0)
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.UserName, &m.UserEmail); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// NewShareCode returns an 8-character uppercase hex share code.
func NewShareCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:8])
}

func expectRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
