package testutil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// ErrConnectionRefused is returned for scripted connection failures.
var ErrConnectionRefused = errors.New("connection refused")

// ConnectionError is a scripted status that fails the round trip instead of
// producing a response.
const ConnectionError = -1

// ScriptedTransport wraps a transport and replays scripted outcomes for
// requests whose path ends with a given suffix. Unscripted requests, and
// scripted http.StatusOK entries, go to the wrapped transport.
type ScriptedTransport struct {
	next http.RoundTripper

	mu      sync.Mutex
	scripts map[string][]int
	calls   map[string]int
	total   int
}

// NewScriptedTransport wraps next; nil means http.DefaultTransport.
func NewScriptedTransport(next http.RoundTripper) *ScriptedTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &ScriptedTransport{
		next:    next,
		scripts: make(map[string][]int),
		calls:   make(map[string]int),
	}
}

// Script queues outcomes for paths ending in suffix and starts counting
// calls to it.
func (t *ScriptedTransport) Script(suffix string, statuses ...int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scripts[suffix] = append(t.scripts[suffix], statuses...)
	if _, ok := t.calls[suffix]; !ok {
		t.calls[suffix] = 0
	}
}

// Track starts counting calls to paths ending in suffix without scripting
// any outcome.
func (t *ScriptedTransport) Track(suffix string) {
	t.Script(suffix)
}

// Calls returns how many requests with a path ending in suffix were seen
// since it was scripted or tracked.
func (t *ScriptedTransport) Calls(suffix string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[suffix]
}

// Total returns how many requests were seen.
func (t *ScriptedTransport) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// RoundTrip implements http.RoundTripper.
func (t *ScriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	status := http.StatusOK

	t.mu.Lock()
	t.total++
	for suffix, n := range t.calls {
		if !strings.HasSuffix(req.URL.Path, suffix) {
			continue
		}
		t.calls[suffix] = n + 1
		if queue := t.scripts[suffix]; len(queue) > 0 {
			status = queue[0]
			t.scripts[suffix] = queue[1:]
		}
	}
	t.mu.Unlock()

	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		return t.next.RoundTrip(req)
	case ConnectionError:
		return nil, ErrConnectionRefused
	default:
		if req.Body != nil {
			_, _ = io.Copy(io.Discard, req.Body)
			_ = req.Body.Close()
		}
		body := `{"error":"server_error","error_description":"` + http.StatusText(status) + `","message":"` + http.StatusText(status) + `"}`
		return &http.Response{
			StatusCode: status,
			Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
		}, nil
	}
}
