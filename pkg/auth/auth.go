// Package auth implements bearer-token authentication against the EMS API
// token endpoint.
//
// Two grant types are supported. The password grant authenticates a single
// service-wide user. The trusted grant lets a client application, itself
// identified by a client id and secret, vouch for an end-user identity given
// as a name/value pair (for example "SAMAccountName" = "jdoe").
//
// # Components
//
//   - Config: one authentication method (PasswordConfig or TrustedConfig),
//     able to produce its cache key and token request body.
//   - Resolver: picks the Config for a call from service credentials and an
//     optional CallContext.
//   - TokenCache: concurrency-safe map from cache key to token.
//   - TokenAcquirer: POSTs to {endpoint}/token and classifies the outcome.
//   - Manager: combines the cache and the acquirer, optionally coalescing
//     concurrent acquisitions for the same identity.
//
// # Cache keys
//
// Password identities share one fixed key per service. Trusted identities
// are keyed by the upper-cased "name=value" pair, so case differences never
// cause a cache miss:
//
//	auth.TrustedTokenKey("SAMAccountName", "ksk") == auth.TrustedTokenKey("samaccountname", "KSK")
//
// # Example
//
//	cache := auth.NewTokenCache()
//	acquirer := auth.NewTokenAcquirer("https://ems.example.com/api", httpClient)
//	manager := auth.NewManager(cache, acquirer)
//	tok, err := manager.Token(ctx, &auth.TrustedConfig{
//	    ClientID: "app", ClientSecret: "s3cret",
//	    Name: "SAMAccountName", Value: "jdoe",
//	})
package auth

import (
	"net/url"
	"strings"
)

// GrantType is the value sent as grant_type to the token endpoint.
type GrantType string

const (
	// GrantTypePassword authenticates with a username and password.
	GrantTypePassword GrantType = "password"
	// GrantTypeTrusted authenticates a delegated identity.
	GrantTypeTrusted GrantType = "trusted"
)

// PasswordCacheKey is the cache key shared by all password-grant calls of a
// service. It contains no "=" so it can never collide with a trusted key.
const PasswordCacheKey = "PASSWORD"

// Config describes one authentication method.
type Config interface {
	// GrantType returns the grant used for the token request.
	GrantType() GrantType
	// CacheKey identifies the identity in the token cache.
	CacheKey() string
	// TokenRequestBody returns the form fields posted to the token endpoint.
	TokenRequestBody() url.Values
	// Validate checks that every field the grant needs is present.
	Validate() error
}

// PasswordConfig authenticates with a username and password.
type PasswordConfig struct {
	Username string
	Password string
}

// GrantType implements Config.
func (c *PasswordConfig) GrantType() GrantType { return GrantTypePassword }

// CacheKey implements Config.
func (c *PasswordConfig) CacheKey() string { return PasswordCacheKey }

// TokenRequestBody implements Config.
func (c *PasswordConfig) TokenRequestBody() url.Values {
	return url.Values{
		"grant_type": {string(GrantTypePassword)},
		"username":   {c.Username},
		"password":   {c.Password},
	}
}

// Validate implements Config.
func (c *PasswordConfig) Validate() error {
	if c.Username == "" {
		return configErrorf("username", "is required for the password grant")
	}
	if c.Password == "" {
		return configErrorf("password", "is required for the password grant")
	}
	return nil
}

// TrustedConfig authenticates a delegated identity on behalf of a trusted
// client application.
type TrustedConfig struct {
	ClientID     string
	ClientSecret string
	Name         string
	Value        string
}

// GrantType implements Config.
func (c *TrustedConfig) GrantType() GrantType { return GrantTypeTrusted }

// CacheKey implements Config.
func (c *TrustedConfig) CacheKey() string { return TrustedTokenKey(c.Name, c.Value) }

// TokenRequestBody implements Config.
func (c *TrustedConfig) TokenRequestBody() url.Values {
	return url.Values{
		"grant_type":    {string(GrantTypeTrusted)},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
		"name":          {c.Name},
		"value":         {c.Value},
	}
}

// Validate implements Config.
func (c *TrustedConfig) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return configErrorf("trusted.client_id", "client id and client secret are both required for the trusted grant")
	}
	if c.Name == "" || c.Value == "" {
		return configErrorf("trusted.name", "trusted auth name and value must be supplied together")
	}
	return nil
}

// TrustedTokenKey returns the cache key for a trusted identity.
func TrustedTokenKey(name, value string) string {
	return strings.ToUpper(name + "=" + value)
}
