package client

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// RetryPolicy bounds retries of transient failures.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	WaitMin    time.Duration
	WaitMax    time.Duration
}

// RetryMiddleware retries connection errors, 408 and 5xx responses. When
// retries run out the last response is returned as-is so callers can read
// its status and body.
func RetryMiddleware(policy RetryPolicy, logger *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		rc := retryablehttp.NewClient()
		rc.HTTPClient = &http.Client{Transport: next}
		rc.RetryMax = policy.MaxRetries
		if policy.WaitMin > 0 {
			rc.RetryWaitMin = policy.WaitMin
		}
		if policy.WaitMax > 0 {
			rc.RetryWaitMax = policy.WaitMax
		}
		rc.CheckRetry = shouldRetry
		rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
		// A typed nil would still reach the interface, so only set a real logger.
		rc.Logger = nil
		if logger != nil {
			rc.Logger = logger
		}
		return &retryablehttp.RoundTripper{Client: rc}
	}
}

// shouldRetry never retries once ctx is done and never retries 4xx other
// than 408.
func shouldRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return IsRetryableStatus(resp.StatusCode), nil
}

// IsRetryableStatus reports whether status is retried.
func IsRetryableStatus(status int) bool {
	return status == http.StatusRequestTimeout || status >= 500
}
