package client

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/CliForge/emsapi/pkg/secrets"
)

// LoggingMiddleware logs every attempt at debug level with credentials
// masked.
func LoggingMiddleware(logger *slog.Logger, detector *secrets.Detector) Middleware {
	if detector == nil {
		detector = secrets.MustDefault()
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if logger == nil || !logger.Enabled(req.Context(), slog.LevelDebug) {
				return next.RoundTrip(req)
			}

			start := time.Now()
			resp, err := next.RoundTrip(req)
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("url", detector.MaskString(req.URL.Redacted())),
				slog.Duration("duration", time.Since(start)),
				slog.Any("headers", detector.MaskHeaders(req.Header)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(req.Context(), slog.LevelDebug, "request failed", attrs...)
				return resp, err
			}
			attrs = append(attrs, slog.Int("status", resp.StatusCode))
			logger.LogAttrs(context.WithoutCancel(req.Context()), slog.LevelDebug, "request completed", attrs...)
			return resp, nil
		})
	}
}
