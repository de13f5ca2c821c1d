package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/CliForge/emsapi/pkg/auth/types"
	"github.com/adrg/xdg"
)

// FileStorage implements file-based token storage.
type FileStorage struct {
	path string
}

// NewFileStorage creates a new file-based storage. Without an explicit path
// the snapshot lives under the XDG cache directory.
func NewFileStorage(config *types.StorageConfig, appName string) (*FileStorage, error) {
	path := config.Path
	if path == "" {
		path = filepath.Join(xdg.CacheHome, appName, "tokens.json")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}

	return &FileStorage{
		path: path,
	}, nil
}

// SaveTokens writes the snapshot with owner-only permissions.
func (f *FileStorage) SaveTokens(ctx context.Context, tokens map[string]types.Token) error {
	if tokens == nil {
		tokens = map[string]types.Token{}
	}

	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	return nil
}

// LoadTokens reads the snapshot.
func (f *FileStorage) LoadTokens(ctx context.Context) (map[string]types.Token, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]types.Token{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	tokens := map[string]types.Token{}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tokens: %w", err)
	}

	return tokens, nil
}

// DeleteTokens deletes the token file.
func (f *FileStorage) DeleteTokens(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}

// GetPath returns the path to the token file.
func (f *FileStorage) GetPath() string {
	return f.path
}
