package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoCallContext is returned when RequireCallContext is set and a call
// arrives without a CallContext.
var ErrNoCallContext = &NoCallContextError{}

// ConfigurationError reports invalid or incomplete authentication settings.
// It is never retried.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "auth configuration: " + e.Message
	}
	return fmt.Sprintf("auth configuration: %s: %s", e.Field, e.Message)
}

func configErrorf(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NoCallContextError is returned when a call context is mandatory but absent.
type NoCallContextError struct{}

func (e *NoCallContextError) Error() string {
	return "auth: a call context is required but none was supplied"
}

// Is makes every NoCallContextError match ErrNoCallContext.
func (e *NoCallContextError) Is(target error) bool {
	_, ok := target.(*NoCallContextError)
	return ok
}

// AuthenticationError reports that the token endpoint rejected the
// credentials.
type AuthenticationError struct {
	StatusCode  int
	Code        string
	Description string
	Key         string
}

func (e *AuthenticationError) Error() string {
	var b strings.Builder
	b.WriteString("authentication failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (%d %s)", e.StatusCode, http.StatusText(e.StatusCode))
	}
	switch {
	case e.Description != "":
		b.WriteString(": ")
		b.WriteString(e.Description)
	case e.Code != "":
		b.WriteString(": ")
		b.WriteString(e.Code)
	}
	return b.String()
}

// TransportError reports a connection failure, a retryable status that
// survived every retry, or a response that could not be understood.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	msg := "transport error during " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsNoCallContext reports whether err is a NoCallContextError.
func IsNoCallContext(err error) bool {
	return errors.Is(err, ErrNoCallContext)
}

// IsAuthenticationError reports whether err is an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// IsTransportError reports whether err is a TransportError.
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}
