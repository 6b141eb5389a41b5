// Package storage persists the client's credential token between runs.
package storage

import (
	"context"
	"sync"
)

// TokenKey is the fixed name the credential token is stored under.
const TokenKey = "access_token"

// TokenStore holds at most one credential token. Absence means the client is
// unauthenticated; presence does not imply the token is still valid.
type TokenStore interface {
	// Load returns the persisted token and whether one exists.
	Load(ctx context.Context) (token string, ok bool, err error)

	// Save replaces the persisted token.
	Save(ctx context.Context, token string) error

	// Clear removes the persisted token. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Ensure MemoryTokenStore implements TokenStore
var _ TokenStore = (*MemoryTokenStore)(nil)

// MemoryTokenStore keeps the token for the lifetime of the process only.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != "", nil
}

func (s *MemoryTokenStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

func (s *MemoryTokenStore) Close() error {
	return nil
}
