package storage

import (
	"context"
	"sync"

	"github.com/CliForge/emsapi/pkg/auth/types"
)

// MemoryStorage implements in-memory token storage.
// This storage is ephemeral and tokens are lost when the process exits.
type MemoryStorage struct {
	mu     sync.RWMutex
	tokens map[string]types.Token
}

// NewMemoryStorage creates a new in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// SaveTokens keeps a copy of the snapshot.
func (m *MemoryStorage) SaveTokens(ctx context.Context, tokens map[string]types.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens = copyTokens(tokens)
	return nil
}

// LoadTokens returns a copy of the snapshot.
func (m *MemoryStorage) LoadTokens(ctx context.Context) (map[string]types.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return copyTokens(m.tokens), nil
}

// DeleteTokens drops the snapshot.
func (m *MemoryStorage) DeleteTokens(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens = nil
	return nil
}
