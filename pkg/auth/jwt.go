package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the inspectable claims of a JWT-shaped access token.
type Claims struct {
	Subject   string         `json:"sub,omitempty" yaml:"sub,omitempty"`
	Issuer    string         `json:"iss,omitempty" yaml:"iss,omitempty"`
	Audience  []string       `json:"aud,omitempty" yaml:"aud,omitempty"`
	Username  string         `json:"username,omitempty" yaml:"username,omitempty"`
	IssuedAt  time.Time      `json:"iat,omitempty" yaml:"iat,omitempty"`
	ExpiresAt time.Time      `json:"exp,omitempty" yaml:"exp,omitempty"`
	Extra     map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// IsJWT reports whether raw has the three-part shape of a signed JWT.
func IsJWT(raw string) bool {
	return strings.Count(raw, ".") == 2
}

// InspectToken parses the claims of raw WITHOUT verifying its signature.
// EMS may issue opaque tokens; those return an error.
func InspectToken(raw string) (*Claims, error) {
	if !IsJWT(raw) {
		return nil, fmt.Errorf("token is not a JWT")
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("failed to extract claims from token")
	}

	claims := &Claims{Extra: map[string]any{}}
	if sub, err := mc.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if iss, err := mc.GetIssuer(); err == nil {
		claims.Issuer = iss
	}
	if aud, err := mc.GetAudience(); err == nil {
		claims.Audience = aud
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	for _, k := range []string{"preferred_username", "username", "unique_name", "name"} {
		if v, ok := mc[k].(string); ok && v != "" {
			claims.Username = v
			break
		}
	}

	for k, v := range mc {
		switch k {
		case "sub", "iss", "aud", "exp", "iat":
			continue
		}
		claims.Extra[k] = v
	}

	return claims, nil
}
