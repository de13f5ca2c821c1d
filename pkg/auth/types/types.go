// Package types defines common types used across the auth package.
package types

import (
	"time"
)

// ExpiryMargin is subtracted from the server-reported lifetime so a token is
// treated as expired before the server would reject it.
const ExpiryMargin = 60 * time.Second

// Token represents a bearer token issued by the EMS token endpoint.
type Token struct {
	// AccessToken is the opaque bearer value.
	AccessToken string `json:"access_token"`
	// ExpiresAt is the instant after which the token must not be used.
	// It already has ExpiryMargin applied.
	ExpiresAt time.Time `json:"expires_at"`
}

// NewToken builds a token from the raw value and the lifetime reported by the
// server, measured from now.
func NewToken(raw string, secondsUntilExpiration int64, now time.Time) Token {
	lifetime := time.Duration(secondsUntilExpiration) * time.Second
	return Token{
		AccessToken: raw,
		ExpiresAt:   now.UTC().Add(lifetime - ExpiryMargin),
	}
}

// IsValid reports whether the token may still be used at now.
func (t Token) IsValid(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}

// Expire forces the token to be invalid from now on. The raw value is kept.
func (t *Token) Expire(now time.Time) {
	t.ExpiresAt = now.UTC()
}

// Remaining returns how long the token stays valid, or zero.
func (t Token) Remaining(now time.Time) time.Duration {
	d := t.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// StorageConfig represents token storage configuration.
type StorageConfig struct {
	// Type is the storage backend type.
	Type StorageType `yaml:"type" json:"type" mapstructure:"type"`
	// Path is the file path for file-based storage.
	Path string `yaml:"path,omitempty" json:"path,omitempty" mapstructure:"path"`
	// KeyringService is the service name for keyring storage.
	KeyringService string `yaml:"keyring_service,omitempty" json:"keyring_service,omitempty" mapstructure:"keyring_service"`
	// KeyringUser is the user name for keyring storage.
	KeyringUser string `yaml:"keyring_user,omitempty" json:"keyring_user,omitempty" mapstructure:"keyring_user"`
}

// StorageType represents the type of token storage.
type StorageType string

const (
	// StorageTypeFile uses file-based storage.
	StorageTypeFile StorageType = "file"
	// StorageTypeKeyring uses OS keyring storage.
	StorageTypeKeyring StorageType = "keyring"
	// StorageTypeMemory uses in-memory storage.
	StorageTypeMemory StorageType = "memory"
	// StorageTypeNone disables persistence.
	StorageTypeNone StorageType = "none"
)
