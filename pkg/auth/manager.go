package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/CliForge/emsapi/pkg/auth/types"
	"golang.org/x/sync/singleflight"
)

// Acquirer obtains tokens from the token endpoint.
type Acquirer interface {
	Acquire(ctx context.Context, cfg Config) (*Result, error)
}

// Manager hands out valid tokens for a Config, acquiring and caching them
// on demand.
//
// By default concurrent misses for the same key each perform their own
// token request and the last insert wins. WithCoalescing collapses them
// into one request per key.
type Manager struct {
	cache    *TokenCache
	acquirer Acquirer
	logger   *slog.Logger

	coalesce bool
	group    singleflight.Group
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCoalescing enables single-flight acquisition per cache key.
func WithCoalescing(enabled bool) ManagerOption {
	return func(m *Manager) {
		m.coalesce = enabled
	}
}

// WithManagerLogger sets the logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager over cache and acquirer.
func NewManager(cache *TokenCache, acquirer Acquirer, opts ...ManagerOption) *Manager {
	m := &Manager{
		cache:    cache,
		acquirer: acquirer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Cache returns the underlying token cache.
func (m *Manager) Cache() *TokenCache {
	return m.cache
}

// Token returns a valid token for cfg. A cache hit performs no network
// call. A rejection by the token endpoint is returned as
// *AuthenticationError; a cancelled ctx returns ctx.Err() and leaves the
// cache untouched.
func (m *Manager) Token(ctx context.Context, cfg Config) (types.Token, error) {
	key := cfg.CacheKey()
	if tok, ok := m.cache.Valid(key); ok {
		return tok, nil
	}

	if !m.coalesce {
		return m.acquire(ctx, cfg)
	}

	ch := m.group.DoChan(key, func() (any, error) {
		// A flight that just finished may have filled the cache.
		if tok, ok := m.cache.Valid(key); ok {
			return tok, nil
		}
		return m.acquire(ctx, cfg)
	})
	select {
	case <-ctx.Done():
		return types.Token{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			// The leader's context may have ended while ours is still live.
			if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
				if ctx.Err() == nil {
					return m.acquire(ctx, cfg)
				}
			}
			return types.Token{}, res.Err
		}
		return res.Val.(types.Token), nil
	}
}

// Invalidate drops the cached token for cfg.
func (m *Manager) Invalidate(cfg Config) {
	m.cache.Delete(cfg.CacheKey())
}

func (m *Manager) acquire(ctx context.Context, cfg Config) (types.Token, error) {
	key := cfg.CacheKey()
	m.logger.Debug("acquiring token", slog.String("key", key), slog.String("grant_type", string(cfg.GrantType())))

	res, err := m.acquirer.Acquire(ctx, cfg)
	if err != nil {
		return types.Token{}, err
	}
	if !res.Success() {
		if res.Err != nil {
			return types.Token{}, res.Err
		}
		return types.Token{}, &AuthenticationError{Description: "token endpoint returned no token", Key: key}
	}

	// The request may have completed just as the caller gave up.
	if err := ctx.Err(); err != nil {
		return types.Token{}, err
	}

	m.cache.Set(key, *res.Token)
	return *res.Token, nil
}
