// Package session persists the client's bearer token and cached user.
//
// A Store holds at most one session. The token is attached to every
// authenticated request until Clear removes it, either on logout or when the
// backend answers 401/403.
package session

import (
	"context"
	"errors"

	"github.com/mmynk/cookie/internal/models"
)

// ErrEmptyToken is returned by Set when the token is empty.
var ErrEmptyToken = errors.New("session: empty token")

// Store reads and writes the current session.
type Store interface {
	// Get returns the stored session. ok is false when no token is stored.
	Get(ctx context.Context) (s models.Session, ok bool, err error)

	// Set replaces the stored session.
	Set(ctx context.Context, token string, user models.User) error

	// Clear removes the stored session. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// Token returns the stored token, or "" when there is none.
func Token(ctx context.Context, store Store) (string, error) {
	s, ok, err := store.Get(ctx)
	if err != nil || !ok {
		return "", err
	}
	return s.Token, nil
}
