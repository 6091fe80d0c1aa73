package session

import (
	"context"
	"sync"

	"github.com/mmynk/cookie/internal/models"
)

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the session in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	session models.Session
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (models.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session, m.session.Token != "", nil
}

func (m *MemoryStore) Set(_ context.Context, token string, user models.User) error {
	if token == "" {
		return ErrEmptyToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = models.Session{Token: token, User: user}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = models.Session{}
	return nil
}
