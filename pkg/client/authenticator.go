package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/CliForge/emsapi/pkg/auth"
)

type callAuthKey struct{}

// callAuth is the per-call authentication state carried on the request
// context from Service.Do to the auth middleware.
type callAuth struct {
	config auth.Config
	source auth.ConfigSource
	cc     *CallContext
}

func withCallAuth(ctx context.Context, ca *callAuth) context.Context {
	return context.WithValue(ctx, callAuthKey{}, ca)
}

func callAuthFrom(ctx context.Context) *callAuth {
	ca, _ := ctx.Value(callAuthKey{}).(*callAuth)
	return ca
}

// authenticator attaches bearer tokens to outgoing requests.
type authenticator struct {
	manager   *auth.Manager
	throw     bool
	onFailure func(ctx context.Context, err *auth.AuthenticationError, cc *CallContext)
	logger    *slog.Logger
}

// middleware returns the auth stage of the pipeline. Requests without call
// auth state pass through untouched.
func (a *authenticator) middleware(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		ca := callAuthFrom(req.Context())
		if ca == nil {
			return next.RoundTrip(req)
		}

		tok, err := a.manager.Token(req.Context(), ca.config)
		if err != nil {
			var authErr *auth.AuthenticationError
			if !errors.As(err, &authErr) {
				return nil, err
			}
			a.onFailure(req.Context(), authErr, ca.cc)
			if a.throw {
				return nil, authErr
			}
			a.logger.Debug("sending request without credentials",
				slog.String("key", ca.config.CacheKey()))
		} else {
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
		}

		resp, err := next.RoundTrip(req)
		if err == nil && resp.StatusCode == http.StatusUnauthorized {
			a.logger.Debug("token rejected by API, dropping cached entry",
				slog.String("key", ca.config.CacheKey()))
			a.manager.Invalidate(ca.config)
		}
		return resp, err
	})
}
