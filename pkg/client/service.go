// Package client is the EMS API request pipeline.
//
// A Service resolves the identity for each call, attaches a cached or freshly
// acquired bearer token, retries transient failures and reports failures to
// registered callbacks. Whether failures are also returned to the caller is
// controlled by the throw_on_auth_failure and throw_on_api_failure settings.
//
// # Pipeline
//
// Every call passes through the same middleware chain, outermost first:
//
//	headers -> auth -> retry -> logging -> transport
//
// Token requests use the same chain without the auth stage.
//
// # Example
//
//	cfg := config.Default()
//	cfg.Endpoint = "https://ems.example.com/api"
//	cfg.Username, cfg.Password = "svc", "secret"
//
//	svc, err := client.New(cfg)
//	if err != nil {
//		return err
//	}
//	defer svc.Close(ctx)
//
//	var systems []System
//	err = svc.GetJSON(ctx, "/v2/ems-systems", nil, &systems)
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CliForge/emsapi/pkg/auth"
	"github.com/CliForge/emsapi/pkg/auth/storage"
	"github.com/CliForge/emsapi/pkg/auth/types"
	"github.com/CliForge/emsapi/pkg/config"
	"github.com/CliForge/emsapi/pkg/logging"
)

// Version is reported in the default User-Agent.
const Version = "0.1.0"

// AppName names the token storage location.
const AppName = "emsapi"

// CallContext carries a per-call trusted identity.
type CallContext = auth.CallContext

// Result is delivered by DoAsync.
type Result struct {
	Response *Response
	Err      error
}

// CacheEntry describes one cached identity.
type CacheEntry struct {
	Key       string    `json:"key" yaml:"key"`
	Valid     bool      `json:"valid" yaml:"valid"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}

// Service is the entry point for EMS API calls. It is safe for concurrent
// use.
type Service struct {
	cfg     *config.Config
	logger  *slog.Logger
	base    http.RoundTripper
	timeout time.Duration
	now     func() time.Time
	extra   []Middleware

	storage    storage.TokenStorage
	storageSet bool

	resolver *auth.Resolver
	manager  *auth.Manager
	client   *http.Client

	authFailures *registry[AuthFailure]
	apiFailures  *registry[APIFailure]

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New validates cfg and builds a Service. Invalid credentials are reported
// as *auth.ConfigurationError before any network call.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, &auth.ConfigurationError{Message: "configuration is required"}
	}
	if err := cfg.Validate(); err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &auth.ConfigurationError{Field: verrs[0].Field, Message: verrs.Error()}
		}
		return nil, err
	}

	s := &Service{
		cfg:          cfg,
		logger:       slog.Default(),
		base:         http.DefaultTransport,
		timeout:      cfg.Timeout,
		now:          time.Now,
		authFailures: newRegistry[AuthFailure](),
		apiFailures:  newRegistry[APIFailure](),
	}
	for _, opt := range opts {
		opt(s)
	}

	if !s.storageSet {
		ts, err := storage.NewFactory().Create(&cfg.Storage, AppName)
		if err != nil {
			return nil, &auth.ConfigurationError{Field: "storage", Message: err.Error()}
		}
		s.storage = ts
	}

	s.assemble()

	if s.storage != nil {
		if err := s.manager.Cache().Load(context.Background(), s.storage); err != nil {
			s.logger.Warn("ignoring unreadable token cache", slog.String("error", err.Error()))
		}
	}
	return s, nil
}

// assemble wires the cache, token acquirer and middleware chains.
func (s *Service) assemble() {
	pipeline := logging.Subsystem(s.logger, "pipeline")
	authLog := logging.Subsystem(s.logger, "auth")
	retryLog := logging.Subsystem(s.logger, "retry")
	transportLog := logging.Subsystem(s.logger, "transport")

	userAgent := s.cfg.UserAgent
	if userAgent == "" {
		userAgent = AppName + "-go/" + Version
	}
	policy := RetryPolicy{
		MaxRetries: s.cfg.Retry.MaxRetries,
		WaitMin:    s.cfg.Retry.WaitMin,
		WaitMax:    s.cfg.Retry.WaitMax,
	}
	headers := HeadersMiddleware(userAgent, s.cfg.Headers)
	retry := RetryMiddleware(policy, retryLog)
	logs := LoggingMiddleware(transportLog, nil)

	tokenChain := append([]Middleware{headers, retry, logs}, s.extra...)
	tokenClient := &http.Client{
		Transport: Chain(s.base, tokenChain...),
		Timeout:   s.timeout,
	}

	cache := auth.NewTokenCache(auth.WithCacheClock(s.now),
		auth.WithCacheScope(auth.CacheScope(s.cfg.Endpoint, s.cfg.Username, s.cfg.Trusted.ClientID)))
	acquirer := auth.NewTokenAcquirer(s.cfg.Endpoint, tokenClient,
		auth.WithAcquirerClock(s.now),
		auth.WithAcquirerLogger(authLog))
	s.manager = auth.NewManager(cache, acquirer,
		auth.WithCoalescing(s.cfg.CoalesceTokenRequests),
		auth.WithManagerLogger(authLog))
	s.resolver = auth.NewResolver(s.cfg.Credentials(),
		auth.WithRequireCallContext(s.cfg.RequireCallContext))

	authn := &authenticator{
		manager:   s.manager,
		throw:     s.cfg.ThrowsAuthFailures(),
		onFailure: s.notifyAuthFailure,
		logger:    pipeline,
	}
	mainChain := append([]Middleware{headers, authn.middleware, retry, logs}, s.extra...)
	s.client = &http.Client{
		Transport: Chain(s.base, mainChain...),
		Timeout:   s.timeout,
	}
	s.logger = pipeline
}

// Do sends r with the identity resolved from cc and reads the whole
// response.
//
// Configuration problems and ErrNoCallContext are always returned. A
// cancelled ctx returns ctx.Err(). Token rejections come back as
// *auth.AuthenticationError and API failures as *APIError, unless the
// matching throw setting is off; then the callbacks still fire and Do
// returns the failing response, or an empty one, with a nil error.
func (s *Service) Do(ctx context.Context, r *Request, cc *CallContext) (*Response, error) {
	if s.closed.Load() {
		return nil, ErrServiceClosed
	}
	if r == nil {
		return nil, fmt.Errorf("request is required")
	}

	cfg, source, err := s.resolver.Resolve(cc)
	if err != nil {
		return nil, err
	}

	req, err := r.build(withCallAuth(ctx, &callAuth{config: cfg, source: source, cc: cc}), s.cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	method, target := req.Method, req.URL.Redacted()

	httpResp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var authErr *auth.AuthenticationError
		if errors.As(err, &authErr) {
			return nil, authErr
		}
		var cfgErr *auth.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, cfgErr
		}
		return s.apiFailure(&APIError{
			Method:  method,
			URL:     target,
			Message: "request failed",
			Cause:   unwrapURLError(err),
		}, nil, cc)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return s.apiFailure(&APIError{
			StatusCode: httpResp.StatusCode,
			Status:     httpResp.Status,
			Method:     method,
			URL:        target,
			Message:    "failed to read response body",
			Cause:      err,
		}, nil, cc)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       body,
	}
	if !resp.Success() {
		return s.apiFailure(newStatusError(method, target, resp), resp, cc)
	}

	s.logger.Debug("call completed",
		slog.String("method", method),
		slog.String("url", target),
		slog.String("source", string(source)),
		slog.Int("status", resp.StatusCode))
	return resp, nil
}

// DoAsync runs Do on its own goroutine. The channel receives exactly one
// Result and is then closed.
func (s *Service) DoAsync(ctx context.Context, r *Request, cc *CallContext) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		resp, err := s.Do(ctx, r, cc)
		ch <- Result{Response: resp, Err: err}
	}()
	return ch
}

// GetJSON issues a GET and decodes a successful JSON body into out. When an
// API failure is swallowed, out is left untouched.
func (s *Service) GetJSON(ctx context.Context, path string, cc *CallContext, out any) error {
	return s.doJSON(ctx, &Request{Method: http.MethodGet, Path: path}, cc, out)
}

// PostJSON issues a POST with body encoded as JSON and decodes a successful
// response into out.
func (s *Service) PostJSON(ctx context.Context, path string, body any, cc *CallContext, out any) error {
	return s.doJSON(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, cc, out)
}

func (s *Service) doJSON(ctx context.Context, r *Request, cc *CallContext, out any) error {
	resp, err := s.Do(ctx, r, cc)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return nil
	}
	return resp.Decode(out)
}

// Authenticate makes sure a valid token for the identity resolved from cc is
// cached and returns it. Rejections notify the callbacks and are always
// returned.
func (s *Service) Authenticate(ctx context.Context, cc *CallContext) (*types.Token, error) {
	if s.closed.Load() {
		return nil, ErrServiceClosed
	}
	cfg, _, err := s.resolver.Resolve(cc)
	if err != nil {
		return nil, err
	}

	tok, err := s.manager.Token(ctx, cfg)
	if err != nil {
		var authErr *auth.AuthenticationError
		if errors.As(err, &authErr) {
			s.notifyAuthFailure(ctx, authErr, cc)
		}
		return nil, err
	}
	return &tok, nil
}

// ClearAuthenticationCache drops every cached token.
func (s *Service) ClearAuthenticationCache() {
	s.manager.Cache().Clear()
}

// ExpireAuthenticationCacheEntries marks every cached token expired. The
// identities stay known, so HasAuthenticatedWith* keep reporting them.
func (s *Service) ExpireAuthenticationCacheEntries() {
	s.manager.Cache().ExpireAll()
}

// HasAuthenticatedWithTrusted reports whether a token was cached for the
// trusted identity name=value, expired or not. Matching ignores case.
func (s *Service) HasAuthenticatedWithTrusted(name, value string) bool {
	return s.manager.Cache().Has(auth.TrustedTokenKey(name, value))
}

// HasAuthenticatedWithPassword reports whether a password token was cached.
func (s *Service) HasAuthenticatedWithPassword() bool {
	return s.manager.Cache().Has(auth.PasswordCacheKey)
}

// CachedIdentities returns the cache keys in sorted order.
func (s *Service) CachedIdentities() []string {
	return s.manager.Cache().Keys()
}

// CacheEntries describes every cached identity.
func (s *Service) CacheEntries() []CacheEntry {
	cache := s.manager.Cache()
	now := cache.Now()
	snapshot := cache.Snapshot()

	entries := make([]CacheEntry, 0, len(snapshot))
	for _, key := range cache.Keys() {
		tok, ok := snapshot[key]
		if !ok {
			continue
		}
		entries = append(entries, CacheEntry{Key: key, Valid: tok.IsValid(now), ExpiresAt: tok.ExpiresAt})
	}
	return entries
}

// OnAuthenticationFailure registers fn for token rejections. Registering the
// same id again replaces the earlier callback; an empty id gets a generated
// one.
func (s *Service) OnAuthenticationFailure(id string, fn func(AuthFailure)) *Subscription {
	return s.authFailures.register(id, fn)
}

// OnAPIFailure registers fn for failed API calls, with the same id rules as
// OnAuthenticationFailure.
func (s *Service) OnAPIFailure(id string, fn func(APIFailure)) *Subscription {
	return s.apiFailures.register(id, fn)
}

// PersistTokens writes the token cache to the configured storage. It is a
// no-op without storage.
func (s *Service) PersistTokens(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	return s.manager.Cache().Save(ctx, s.storage)
}

// Close persists the token cache, drops every callback and rejects later
// calls with ErrServiceClosed. Calling it again returns the first result.
func (s *Service) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.PersistTokens(ctx)
		s.authFailures.clear()
		s.apiFailures.clear()
	})
	return s.closeErr
}

func (s *Service) notifyAuthFailure(ctx context.Context, err *auth.AuthenticationError, cc *CallContext) {
	s.logger.Warn("authentication failed",
		slog.String("key", err.Key),
		slog.Int("status", err.StatusCode),
		slog.String("error", err.Error()))
	s.authFailures.notify(AuthFailure{Err: err, CallContext: cc, Time: s.now()})
}

// apiFailure notifies callbacks and applies throw_on_api_failure.
func (s *Service) apiFailure(apiErr *APIError, resp *Response, cc *CallContext) (*Response, error) {
	s.logger.Warn("api call failed",
		slog.String("method", apiErr.Method),
		slog.String("url", apiErr.URL),
		slog.Int("status", apiErr.StatusCode),
		slog.String("error", apiErr.Error()))
	s.apiFailures.notify(APIFailure{Err: apiErr, CallContext: cc, Time: s.now()})

	if s.cfg.ThrowsAPIFailures() {
		return nil, apiErr
	}
	if resp == nil {
		resp = &Response{Header: http.Header{}}
	}
	return resp, nil
}

// unwrapURLError strips the *url.Error added by http.Client.
func unwrapURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err
	}
	return err
}
