// Package storage provides abstractions for the reference backend's persistent data.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/cookie/internal/models"
)

// ErrNotFound is returned (wrapped) when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence operations the backend services need.
// This abstraction allows swapping storage backends without changing the
// service layer.
type Store interface {
	UserStore

	// CreateGroup persists a new group and makes its creator a member.
	// The group's ID and CreatedAt fields are populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by its ID, including the creator reference.
	GetGroup(ctx context.Context, groupID int64) (*models.Group, error)

	// GetGroupByShareCode retrieves a group by its share code.
	GetGroupByShareCode(ctx context.Context, code string) (*models.Group, error)

	// ListGroupsForUser returns the groups userID belongs to, newest first.
	ListGroupsForUser(ctx context.Context, userID int64) ([]*models.Group, error)

	// DeleteGroup removes a group and everything inside it.
	DeleteGroup(ctx context.Context, groupID int64) error

	// SetGroupShared updates the sharing flag.
	SetGroupShared(ctx context.Context, groupID int64, shared bool) error

	// AddMember adds userID to the group. Adding an existing member is a no-op.
	AddMember(ctx context.Context, groupID, userID int64) error

	// IsMember reports whether userID belongs to the group.
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)

	// ListMembers returns the group's members in join order.
	ListMembers(ctx context.Context, groupID int64) ([]models.Member, error)

	// CreatePost persists a post. ID and CreatedAt are populated by the store.
	CreatePost(ctx context.Context, post *models.Post) error

	// ListPosts returns the group's posts, newest first.
	ListPosts(ctx context.Context, groupID int64) ([]*models.Post, error)

	// CreateStory persists a story and its recipients.
	CreateStory(ctx context.Context, story *models.Story) error

	// ListStories returns unexpired stories visible to viewerID, newest first.
	ListStories(ctx context.Context, groupID, viewerID int64, now time.Time) ([]*models.Story, error)

	// SaveOTP stores a code, replacing any previous code for the same email and purpose.
	SaveOTP(ctx context.Context, otp *models.OTP) error

	// GetOTP returns the current code for email and purpose.
	GetOTP(ctx context.Context, email, purpose string) (*models.OTP, error)

	// MarkOTPVerified records that the code was confirmed.
	MarkOTPVerified(ctx context.Context, email, purpose string, at time.Time) error

	// DeleteOTP removes the code for email and purpose.
	DeleteOTP(ctx context.Context, email, purpose string) error

	// Close releases any resources held by the store.
	Close() error
}

// UserStore covers user persistence. It is split out so the authenticator
// can depend on it alone.
type UserStore interface {
	// CreateUser inserts a user and populates its ID.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil, nil when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns nil, nil when the user does not exist.
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	// UpdatePassword replaces the user's password hash.
	UpdatePassword(ctx context.Context, userID int64, hash string) error

	// MarkUserVerified sets the account verification timestamp.
	MarkUserVerified(ctx context.Context, userID int64, at time.Time) error
}
