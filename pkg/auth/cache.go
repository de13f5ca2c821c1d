package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/CliForge/emsapi/pkg/auth/storage"
	"github.com/CliForge/emsapi/pkg/auth/types"
)

// TokenCache maps cache keys to tokens. It is safe for concurrent use and
// never holds its lock across a network call.
//
// A cache with a scope persists its entries as "scope/key" and on Load
// ignores entries written under any other scope. Those foreign entries are
// carried through Save untouched so caches sharing one storage do not erase
// each other.
type TokenCache struct {
	mu      sync.RWMutex
	tokens  map[string]types.Token
	foreign map[string]types.Token
	scope   string
	now     func() time.Time
}

// CacheOption configures a TokenCache.
type CacheOption func(*TokenCache)

// WithCacheClock replaces time.Now for validity checks.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *TokenCache) {
		c.now = now
	}
}

// WithCacheScope sets the scope used to partition persisted snapshots.
// See CacheScope.
func WithCacheScope(scope string) CacheOption {
	return func(c *TokenCache) {
		c.scope = scope
	}
}

// CacheScope derives a stable scope from the server and the principals
// configured for it. Tokens issued by one endpoint, user or trusted client
// are never offered to another.
func CacheScope(endpoint, username, clientID string) string {
	sum := sha256.Sum256([]byte(strings.TrimRight(endpoint, "/") + "\n" + username + "\n" + clientID))
	return hex.EncodeToString(sum[:scopeLen/2])
}

// scopeLen is the length of a scope in hex characters.
const scopeLen = 16

// NewTokenCache creates an empty cache.
func NewTokenCache(opts ...CacheOption) *TokenCache {
	c := &TokenCache{
		tokens:  make(map[string]types.Token),
		foreign: make(map[string]types.Token),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the cache clock's current time.
func (c *TokenCache) Now() time.Time {
	return c.now()
}

// Get returns the entry for key, valid or not.
func (c *TokenCache) Get(key string) (types.Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tok, ok := c.tokens[key]
	return tok, ok
}

// Valid returns the entry for key only if it is still usable.
func (c *TokenCache) Valid(key string) (types.Token, bool) {
	tok, ok := c.Get(key)
	if !ok || !tok.IsValid(c.now()) {
		return types.Token{}, false
	}
	return tok, true
}

// Set stores tok under key, replacing any previous entry.
func (c *TokenCache) Set(key string, tok types.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = tok
}

// Delete removes the entry for key.
func (c *TokenCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, key)
}

// Has reports whether an entry exists for key, expired or not.
func (c *TokenCache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Clear removes every entry.
func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = make(map[string]types.Token)
}

// ExpireAll marks every entry expired in place. Keys are preserved.
func (c *TokenCache) ExpireAll() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, tok := range c.tokens {
		tok.Expire(now)
		c.tokens[key] = tok
	}
}

// Len returns the number of entries.
func (c *TokenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tokens)
}

// Keys returns the cache keys in sorted order.
func (c *TokenCache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.tokens))
	for key := range c.tokens {
		keys = append(keys, key)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of every entry.
func (c *TokenCache) Snapshot() map[string]types.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]types.Token, len(c.tokens))
	for key, tok := range c.tokens {
		out[key] = tok
	}
	return out
}

// Restore merges tokens into the cache. Existing entries win.
func (c *TokenCache) Restore(tokens map[string]types.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, tok := range tokens {
		if _, ok := c.tokens[key]; !ok {
			c.tokens[key] = tok
		}
	}
}

// Save writes a snapshot of the cache to s.
func (c *TokenCache) Save(ctx context.Context, s storage.TokenStorage) error {
	if err := s.SaveTokens(ctx, c.persisted()); err != nil {
		return fmt.Errorf("failed to save token cache: %w", err)
	}
	return nil
}

// Load restores the entries of this cache's scope from a snapshot
// previously written by Save.
func (c *TokenCache) Load(ctx context.Context, s storage.TokenStorage) error {
	stored, err := s.LoadTokens(ctx)
	if err != nil {
		return fmt.Errorf("failed to load token cache: %w", err)
	}

	own := make(map[string]types.Token)
	c.mu.Lock()
	for storedKey, tok := range stored {
		key, ok := c.unscope(storedKey)
		if !ok {
			c.foreign[storedKey] = tok
			continue
		}
		own[key] = tok
	}
	c.mu.Unlock()

	c.Restore(own)
	return nil
}

func (c *TokenCache) persisted() map[string]types.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]types.Token, len(c.tokens)+len(c.foreign))
	for key, tok := range c.foreign {
		out[key] = tok
	}
	for key, tok := range c.tokens {
		out[c.scoped(key)] = tok
	}
	return out
}

func (c *TokenCache) scoped(key string) string {
	if c.scope == "" {
		return key
	}
	return c.scope + "/" + key
}

func (c *TokenCache) unscope(storedKey string) (string, bool) {
	if c.scope == "" {
		return storedKey, !hasScope(storedKey)
	}
	return strings.CutPrefix(storedKey, c.scope+"/")
}

func hasScope(storedKey string) bool {
	prefix, _, ok := strings.Cut(storedKey, "/")
	if !ok || len(prefix) != scopeLen {
		return false
	}
	_, err := hex.DecodeString(prefix)
	return err == nil
}
