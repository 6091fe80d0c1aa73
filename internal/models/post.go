package models

import (
	"slices"
	"time"
)

// Post is a message inside a group.
type Post struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	Content   string    `json:"content"`
	User      *UserRef  `json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Story is a time-limited message inside a group.
// An empty SharedWith means every member can see it.
type Story struct {
	ID         int64     `json:"id"`
	GroupID    int64     `json:"group_id"`
	Content    string    `json:"content"`
	User       *UserRef  `json:"user,omitempty"`
	SharedWith []int64   `json:"shared_with"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the story is past its expiry at now.
func (s Story) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// VisibleTo reports whether userID may see the story.
func (s Story) VisibleTo(userID int64) bool {
	if len(s.SharedWith) == 0 {
		return true
	}
	if s.User != nil && s.User.ID == userID {
		return true
	}
	return slices.Contains(s.SharedWith, userID)
}
