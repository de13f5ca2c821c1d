package client

import (
	"sort"
	"sync"
	"time"

	"github.com/CliForge/emsapi/pkg/auth"
	"github.com/google/uuid"
)

// AuthFailure is delivered to authentication failure callbacks.
type AuthFailure struct {
	Err         *auth.AuthenticationError
	CallContext *CallContext
	Time        time.Time
}

// APIFailure is delivered to API failure callbacks.
type APIFailure struct {
	Err         *APIError
	CallContext *CallContext
	Time        time.Time
}

// Subscription is a handle to a registered callback.
type Subscription struct {
	id     string
	cancel func()
	once   sync.Once
}

// ID returns the id the callback was registered under.
func (s *Subscription) ID() string {
	return s.id
}

// Unsubscribe removes the callback. It is a no-op if the callback was
// already replaced or removed.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

type entry[E any] struct {
	fn  func(E)
	gen uint64
	seq uint64
}

// registry holds callbacks keyed by id. Registering an id again replaces the
// previous callback, so it fires once per event.
type registry[E any] struct {
	mu      sync.RWMutex
	entries map[string]entry[E]
	gen     uint64
}

func newRegistry[E any]() *registry[E] {
	return &registry[E]{entries: make(map[string]entry[E])}
}

func (r *registry[E]) register(id string, fn func(E)) *Subscription {
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	r.gen++
	gen := r.gen
	seq := gen
	if prev, ok := r.entries[id]; ok {
		seq = prev.seq
	}
	r.entries[id] = entry[E]{fn: fn, gen: gen, seq: seq}
	r.mu.Unlock()

	return &Subscription{id: id, cancel: func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.entries[id]; ok && cur.gen == gen {
			delete(r.entries, id)
		}
	}}
}

// notify calls every callback in registration order without holding the lock.
func (r *registry[E]) notify(event E) {
	r.mu.RLock()
	list := make([]entry[E], 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	for _, e := range list {
		e.fn(event)
	}
}

func (r *registry[E]) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *registry[E]) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]entry[E])
}
