package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrustedTokenKey_CaseInsensitive(t *testing.T) {
	assert.Equal(t, TrustedTokenKey("SAMAccountName", "ksk"), TrustedTokenKey("samaccountname", "KSK"))
	assert.Equal(t, "SAMACCOUNTNAME=KSK", TrustedTokenKey("SAMAccountName", "ksk"))
	assert.NotEqual(t, TrustedTokenKey("SAMAccountName", "ksk"), TrustedTokenKey("SAMAccountName", "other"))
}

func TestCacheKey_NeverCollides(t *testing.T) {
	pw := &PasswordConfig{Username: "u", Password: "p"}
	tr := &TrustedConfig{ClientID: "c", ClientSecret: "s", Name: "PASSWORD", Value: ""}

	assert.Equal(t, PasswordCacheKey, pw.CacheKey())
	assert.Equal(t, PasswordCacheKey, (&PasswordConfig{Username: "other", Password: "x"}).CacheKey())
	assert.NotEqual(t, pw.CacheKey(), tr.CacheKey())
}

func TestPasswordConfig_TokenRequestBody(t *testing.T) {
	cfg := &PasswordConfig{Username: "pilot", Password: "hunter2"}

	body := cfg.TokenRequestBody()

	assert.Equal(t, GrantTypePassword, cfg.GrantType())
	assert.Equal(t, "password", body.Get("grant_type"))
	assert.Equal(t, "pilot", body.Get("username"))
	assert.Equal(t, "hunter2", body.Get("password"))
	assert.Len(t, body, 3)
}

func TestTrustedConfig_TokenRequestBody(t *testing.T) {
	cfg := &TrustedConfig{ClientID: "app", ClientSecret: "s3cret", Name: "SAMAccountName", Value: "jdoe"}

	body := cfg.TokenRequestBody()

	assert.Equal(t, GrantTypeTrusted, cfg.GrantType())
	assert.Equal(t, "trusted", body.Get("grant_type"))
	assert.Equal(t, "app", body.Get("client_id"))
	assert.Equal(t, "s3cret", body.Get("client_secret"))
	assert.Equal(t, "SAMAccountName", body.Get("name"))
	assert.Equal(t, "jdoe", body.Get("value"))
	assert.Len(t, body, 5)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"password ok", &PasswordConfig{Username: "u", Password: "p"}, false},
		{"password missing user", &PasswordConfig{Password: "p"}, true},
		{"password missing password", &PasswordConfig{Username: "u"}, true},
		{"trusted ok", &TrustedConfig{ClientID: "c", ClientSecret: "s", Name: "n", Value: "v"}, false},
		{"trusted missing secret", &TrustedConfig{ClientID: "c", Name: "n", Value: "v"}, true},
		{"trusted missing value", &TrustedConfig{ClientID: "c", ClientSecret: "s", Name: "n"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsConfigurationError(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestErrors_Classification(t *testing.T) {
	authErr := &AuthenticationError{StatusCode: 400, Code: "invalid_grant", Description: "bad credentials"}
	assert.Contains(t, authErr.Error(), "bad credentials")
	assert.Contains(t, authErr.Error(), "400")
	assert.True(t, IsAuthenticationError(authErr))
	assert.False(t, IsTransportError(authErr))

	transportErr := &TransportError{Op: "token request", StatusCode: 503}
	assert.True(t, IsTransportError(transportErr))
	assert.False(t, IsAuthenticationError(transportErr))

	assert.True(t, IsNoCallContext(&NoCallContextError{}))
	assert.True(t, IsNoCallContext(ErrNoCallContext))
	assert.False(t, IsNoCallContext(authErr))

	cfgErr := configErrorf("trusted.name", "missing")
	assert.Equal(t, "auth configuration: trusted.name: missing", cfgErr.Error())
}
