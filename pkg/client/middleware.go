package client

import (
	"net/http"
)

// Middleware wraps a transport with extra behaviour.
type Middleware func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain wraps base with mws. The first middleware is the outermost: it sees
// the request first and the response last.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			rt = mws[i](rt)
		}
	}
	return rt
}

// HeadersMiddleware sets the User-Agent and any fixed headers on every
// request. Headers already present on the request are kept.
func HeadersMiddleware(userAgent string, headers map[string]string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			req = req.Clone(req.Context())
			if userAgent != "" {
				req.Header.Set("User-Agent", userAgent)
			}
			for name, value := range headers {
				if req.Header.Get(name) == "" {
					req.Header.Set(name, value)
				}
			}
			return next.RoundTrip(req)
		})
	}
}
