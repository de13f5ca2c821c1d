// Package storage persists snapshots of the token cache between process runs.
//
// A snapshot maps a cache key (see auth.Config.CacheKey) to the token issued
// for that identity. Backends store the whole snapshot as a single JSON
// document.
package storage

import (
	"context"
	"fmt"

	"github.com/CliForge/emsapi/pkg/auth/types"
)

// Factory creates token storage instances based on configuration.
type Factory struct{}

// NewFactory creates a new storage factory.
func NewFactory() *Factory {
	return &Factory{}
}

// TokenStorage stores and retrieves token cache snapshots.
type TokenStorage interface {
	// SaveTokens replaces the stored snapshot.
	SaveTokens(ctx context.Context, tokens map[string]types.Token) error
	// LoadTokens returns the stored snapshot. A missing snapshot is an
	// empty map, not an error.
	LoadTokens(ctx context.Context) (map[string]types.Token, error)
	// DeleteTokens removes the stored snapshot.
	DeleteTokens(ctx context.Context) error
}

// Create creates a token storage instance based on the configuration.
// StorageTypeNone and an empty type yield a nil storage and no error.
func (f *Factory) Create(config *types.StorageConfig, appName string) (TokenStorage, error) {
	if config == nil {
		return nil, fmt.Errorf("storage config is required")
	}

	switch config.Type {
	case types.StorageTypeFile:
		return NewFileStorage(config, appName)
	case types.StorageTypeKeyring:
		return NewKeyringStorage(config)
	case types.StorageTypeMemory:
		return NewMemoryStorage(), nil
	case types.StorageTypeNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}

func copyTokens(src map[string]types.Token) map[string]types.Token {
	dst := make(map[string]types.Token, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
