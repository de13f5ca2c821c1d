package client

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/CliForge/emsapi/pkg/auth/storage"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Subsystem loggers are derived from it.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTransport replaces the transport that puts requests on the wire.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Service) {
		s.base = rt
	}
}

// WithHTTPClient takes the transport and, if set, the timeout from c.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if c.Transport != nil {
			s.base = c.Transport
		}
		if c.Timeout > 0 {
			s.timeout = c.Timeout
		}
	}
}

// WithClock replaces time.Now for token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithTokenStorage persists the token cache to ts instead of the storage
// named in the configuration.
func WithTokenStorage(ts storage.TokenStorage) Option {
	return func(s *Service) {
		s.storage = ts
		s.storageSet = true
	}
}

// WithMiddleware adds interceptors just above the transport. They see every
// request, token requests included, after headers and credentials are set.
func WithMiddleware(mws ...Middleware) Option {
	return func(s *Service) {
		s.extra = append(s.extra, mws...)
	}
}
