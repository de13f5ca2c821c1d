package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrServiceClosed is returned by calls made after Close.
var ErrServiceClosed = errors.New("emsapi: service is closed")

// APIError describes a failed API call: a non-2xx answer, or a transport
// failure that left no answer at all (StatusCode 0, Cause set).
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Method     string
	URL        string
	Body       []byte
	Cause      error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.URL)
	if e.Status != "" {
		fmt.Fprintf(&b, ": %s", e.Status)
	}
	if e.Message != "" && e.Message != e.Status {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Cause != nil && e.StatusCode == 0 {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying transport failure, if any.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// IsAPIError reports whether err is an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// newStatusError builds an APIError from a non-2xx response.
func newStatusError(method, url string, resp *Response) *APIError {
	return &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    failureMessage(resp.Body, resp.Status),
		Method:     method,
		URL:        url,
		Body:       resp.Body,
	}
}

// failureMessage prefers the body's messageDetail, then message, and falls
// back to the status line.
func failureMessage(body []byte, status string) string {
	var payload struct {
		Message       string `json:"message"`
		MessageDetail string `json:"messageDetail"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		if payload.MessageDetail != "" {
			return payload.MessageDetail
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if status == "" {
		return http.StatusText(http.StatusInternalServerError)
	}
	return status
}
