package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/CliForge/emsapi/pkg/auth/types"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks structural settings, then credentials. Structural
// problems come back as ValidationErrors; credential problems as
// *auth.ConfigurationError.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Endpoint == "" {
		add("endpoint", "is required")
	} else if u, err := url.Parse(c.Endpoint); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		add("endpoint", "must be an absolute http(s) URL, got %q", c.Endpoint)
	}

	if c.Timeout < 0 {
		add("timeout", "must not be negative")
	}
	if c.Retry.MaxRetries < 0 {
		add("retry.max_retries", "must not be negative")
	}
	if c.Retry.WaitMin < 0 || c.Retry.WaitMax < 0 {
		add("retry.wait_min", "wait durations must not be negative")
	} else if c.Retry.WaitMax > 0 && c.Retry.WaitMin > c.Retry.WaitMax {
		add("retry.wait_min", "must not exceed retry.wait_max")
	}

	switch c.Storage.Type {
	case "", types.StorageTypeNone, types.StorageTypeMemory, types.StorageTypeFile:
	case types.StorageTypeKeyring:
		if c.Storage.KeyringService == "" {
			add("storage.keyring_service", "is required for keyring storage")
		}
	default:
		add("storage.type", "unsupported storage type %q", c.Storage.Type)
	}

	if len(errs) > 0 {
		return errs
	}

	return c.Credentials().Validate()
}
