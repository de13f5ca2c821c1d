package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/CliForge/emsapi/pkg/auth/types"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Result is the outcome of a token request that reached the server.
// Exactly one of Token and Err is set.
type Result struct {
	Token *types.Token
	Err   *AuthenticationError
}

// Success reports whether a token was issued.
func (r *Result) Success() bool {
	return r != nil && r.Token != nil
}

// TokenAcquirer performs token requests against {endpoint}/token.
type TokenAcquirer struct {
	tokenURL string
	client   *http.Client
	now      func() time.Time
	logger   *slog.Logger
}

// AcquirerOption configures a TokenAcquirer.
type AcquirerOption func(*TokenAcquirer)

// WithAcquirerClock replaces time.Now when computing token expiry.
func WithAcquirerClock(now func() time.Time) AcquirerOption {
	return func(a *TokenAcquirer) {
		a.now = now
	}
}

// WithAcquirerLogger sets the logger.
func WithAcquirerLogger(logger *slog.Logger) AcquirerOption {
	return func(a *TokenAcquirer) {
		a.logger = logger
	}
}

// NewTokenAcquirer creates an acquirer for the API rooted at endpoint. The
// client carries the transport stack (retries, logging) used for token
// requests; nil means http.DefaultClient.
func NewTokenAcquirer(endpoint string, client *http.Client, opts ...AcquirerOption) *TokenAcquirer {
	if client == nil {
		client = http.DefaultClient
	}
	a := &TokenAcquirer{
		tokenURL: TokenURL(endpoint),
		client:   client,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TokenURL returns the token endpoint for an API base URL.
func TokenURL(endpoint string) string {
	return strings.TrimRight(endpoint, "/") + "/token"
}

// Acquire requests a token for cfg.
//
// A rejection by the server is an expected outcome and comes back as a
// Result with Err set and a nil error. The returned error is reserved for
// failures that never produced an answer: a *TransportError, a
// *ConfigurationError, or the context's error when ctx is done.
func (a *TokenAcquirer) Acquire(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	tok, err := a.retrieve(ctx, cfg)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return a.classify(cfg, err)
	}

	lifetime := expiresIn(tok)
	if lifetime <= 0 {
		return nil, &TransportError{Op: "token request", Err: errors.New("response is missing expires_in")}
	}

	issued := types.NewToken(tok.AccessToken, lifetime, a.now())
	a.logger.Debug("token acquired",
		slog.String("grant_type", string(cfg.GrantType())),
		slog.String("key", cfg.CacheKey()),
		slog.Time("expires_at", issued.ExpiresAt))

	return &Result{Token: &issued}, nil
}

func (a *TokenAcquirer) retrieve(ctx context.Context, cfg Config) (*oauth2.Token, error) {
	switch c := cfg.(type) {
	case *PasswordConfig:
		conf := &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  a.tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}
		return conf.PasswordCredentialsToken(ctx, c.Username, c.Password)

	case *TrustedConfig:
		// client_id and client_secret are added by the library itself.
		params := c.TokenRequestBody()
		params.Del("client_id")
		params.Del("client_secret")
		conf := &clientcredentials.Config{
			ClientID:       c.ClientID,
			ClientSecret:   c.ClientSecret,
			TokenURL:       a.tokenURL,
			AuthStyle:      oauth2.AuthStyleInParams,
			EndpointParams: params,
		}
		return conf.Token(ctx)

	default:
		return nil, configErrorf("", "unsupported auth config %T", cfg)
	}
}

// expiresIn returns the server-reported lifetime in seconds. The
// clientcredentials package copies only Expiry into its token, so the raw
// response field is consulted before falling back to Expiry.
func expiresIn(tok *oauth2.Token) int64 {
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if !tok.Expiry.IsZero() {
		return int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}
	return 0
}

func (a *TokenAcquirer) classify(cfg Config, err error) (*Result, error) {
	if IsConfigurationError(err) {
		return nil, err
	}

	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) || rerr.Response == nil {
		return nil, &TransportError{Op: "token request", Err: err}
	}

	status := rerr.Response.StatusCode
	if status == http.StatusRequestTimeout || status >= 500 {
		return nil, &TransportError{Op: "token request", StatusCode: status, Err: err}
	}

	authErr := &AuthenticationError{
		StatusCode:  status,
		Code:        rerr.ErrorCode,
		Description: rerr.ErrorDescription,
		Key:         cfg.CacheKey(),
	}
	if authErr.Description == "" && authErr.Code == "" {
		authErr.Description = strings.TrimSpace(string(rerr.Body))
	}
	a.logger.Warn("token request rejected",
		slog.String("grant_type", string(cfg.GrantType())),
		slog.String("key", cfg.CacheKey()),
		slog.Int("status", status),
		slog.String("error", authErr.Error()))

	return &Result{Err: authErr}, nil
}

// String implements fmt.Stringer for log output.
func (r *Result) String() string {
	if r == nil {
		return "<nil>"
	}
	if r.Success() {
		return fmt.Sprintf("token(expires %s)", r.Token.ExpiresAt.Format(time.RFC3339))
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return "empty result"
}
