package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/CliForge/emsapi/pkg/auth/types"
	"github.com/zalando/go-keyring"
)

// KeyringStorage implements OS keyring-based token storage.
type KeyringStorage struct {
	service string
	user    string
}

// NewKeyringStorage creates a new keyring-based storage.
func NewKeyringStorage(config *types.StorageConfig) (*KeyringStorage, error) {
	service := config.KeyringService
	if service == "" {
		return nil, fmt.Errorf("keyring_service is required for keyring storage")
	}

	user := config.KeyringUser
	if user == "" {
		user = "tokens"
	}

	return &KeyringStorage{
		service: service,
		user:    user,
	}, nil
}

// SaveTokens stores the snapshot as one keyring secret.
func (k *KeyringStorage) SaveTokens(ctx context.Context, tokens map[string]types.Token) error {
	if tokens == nil {
		tokens = map[string]types.Token{}
	}

	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	if err := keyring.Set(k.service, k.user, string(data)); err != nil {
		return fmt.Errorf("failed to store tokens in keyring: %w", err)
	}

	return nil
}

// LoadTokens loads the snapshot from the OS keyring.
func (k *KeyringStorage) LoadTokens(ctx context.Context) (map[string]types.Token, error) {
	data, err := keyring.Get(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return map[string]types.Token{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tokens from keyring: %w", err)
	}

	tokens := map[string]types.Token{}
	if err := json.Unmarshal([]byte(data), &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tokens: %w", err)
	}

	return tokens, nil
}

// DeleteTokens deletes the snapshot from the OS keyring.
func (k *KeyringStorage) DeleteTokens(ctx context.Context) error {
	if err := keyring.Delete(k.service, k.user); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete tokens from keyring: %w", err)
	}
	return nil
}

// GetService returns the keyring service name.
func (k *KeyringStorage) GetService() string {
	return k.service
}

// GetUser returns the keyring user name.
func (k *KeyringStorage) GetUser() string {
	return k.user
}
