package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/CliForge/emsapi/pkg/auth/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingAcquirer issues tokens locally and counts calls per key.
type countingAcquirer struct {
	mu      sync.Mutex
	calls   map[string]int
	now     func() time.Time
	reject  bool
	fail    error
	gate    chan struct{}
	entered chan struct{}
}

func newCountingAcquirer(now func() time.Time) *countingAcquirer {
	return &countingAcquirer{calls: map[string]int{}, now: now}
}

func (a *countingAcquirer) Acquire(ctx context.Context, cfg Config) (*Result, error) {
	a.mu.Lock()
	a.calls[cfg.CacheKey()]++
	n := a.calls[cfg.CacheKey()]
	a.mu.Unlock()

	if a.entered != nil {
		a.entered <- struct{}{}
	}
	if a.gate != nil {
		select {
		case <-a.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.fail != nil {
		return nil, a.fail
	}
	if a.reject {
		return &Result{Err: &AuthenticationError{StatusCode: 400, Description: "bad credentials"}}, nil
	}
	tok := types.NewToken(cfg.CacheKey()+"-"+string(rune('0'+n)), 3600, a.now())
	return &Result{Token: &tok}, nil
}

func (a *countingAcquirer) Calls(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[key]
}

func TestManager_CachesPerIdentity(t *testing.T) {
	clock := newFakeClock()
	acq := newCountingAcquirer(clock.Now)
	m := NewManager(NewTokenCache(WithCacheClock(clock.Now)), acq)
	ctx := context.Background()

	a := &TrustedConfig{ClientID: "c", ClientSecret: "s", Name: "SAMAccountName", Value: "a"}
	aUpper := &TrustedConfig{ClientID: "c", ClientSecret: "s", Name: "SAMACCOUNTNAME", Value: "A"}
	b := &TrustedConfig{ClientID: "c", ClientSecret: "s", Name: "SAMAccountName", Value: "b"}
	pw := &PasswordConfig{Username: "u", Password: "p"}

	first, err := m.Token(ctx, a)
	require.NoError(t, err)
	_, err = m.Token(ctx, pw)
	require.NoError(t, err)
	again, err := m.Token(ctx, aUpper)
	require.NoError(t, err)
	_, err = m.Token(ctx, b)
	require.NoError(t, err)

	assert.Equal(t, first, again, "third call is a cache hit")
	assert.Equal(t, 1, acq.Calls(a.CacheKey()))
	assert.Equal(t, 1, acq.Calls(b.CacheKey()))
	assert.Equal(t, 1, acq.Calls(PasswordCacheKey))
	assert.Equal(t, 3, m.Cache().Len())
}

func TestManager_ReacquiresAfterExpiry(t *testing.T) {
	clock := newFakeClock()
	acq := newCountingAcquirer(clock.Now)
	m := NewManager(NewTokenCache(WithCacheClock(clock.Now)), acq)
	pw := &PasswordConfig{Username: "u", Password: "p"}

	_, err := m.Token(context.Background(), pw)
	require.NoError(t, err)
	clock.Advance(59 * time.Minute)
	_, err = m.Token(context.Background(), pw)
	require.NoError(t, err)
	assert.Equal(t, 2, acq.Calls(PasswordCacheKey))

	m.Cache().ExpireAll()
	_, err = m.Token(context.Background(), pw)
	require.NoError(t, err)
	assert.Equal(t, 3, acq.Calls(PasswordCacheKey))

	m.Invalidate(pw)
	assert.False(t, m.Cache().Has(PasswordCacheKey))
}

func TestManager_RejectionIsAuthenticationError(t *testing.T) {
	acq := newCountingAcquirer(time.Now)
	acq.reject = true
	m := NewManager(NewTokenCache(), acq)

	_, err := m.Token(context.Background(), &PasswordConfig{Username: "u", Password: "p"})

	require.Error(t, err)
	assert.True(t, IsAuthenticationError(err))
	assert.Contains(t, err.Error(), "bad credentials")
	assert.Equal(t, 0, m.Cache().Len())
}

func TestManager_TransportErrorLeavesCacheEmpty(t *testing.T) {
	acq := newCountingAcquirer(time.Now)
	acq.fail = &TransportError{Op: "token request", StatusCode: 503}
	m := NewManager(NewTokenCache(), acq)

	_, err := m.Token(context.Background(), &PasswordConfig{Username: "u", Password: "p"})

	assert.True(t, IsTransportError(err))
	assert.Equal(t, 0, m.Cache().Len())
}

func TestManager_CancelledAcquisitionDoesNotInsert(t *testing.T) {
	acq := newCountingAcquirer(time.Now)
	acq.gate = make(chan struct{})
	acq.entered = make(chan struct{}, 1)
	m := NewManager(NewTokenCache(), acq)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := m.Token(ctx, &PasswordConfig{Username: "u", Password: "p"})
		done <- err
	}()

	<-acq.entered
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 0, m.Cache().Len())
}

func TestManager_DuplicateAcquisitionsTolerated(t *testing.T) {
	acq := newCountingAcquirer(time.Now)
	acq.gate = make(chan struct{})
	acq.entered = make(chan struct{}, 4)
	m := NewManager(NewTokenCache(), acq)
	pw := &PasswordConfig{Username: "u", Password: "p"}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Token(context.Background(), pw)
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < 4; i++ {
		<-acq.entered
	}
	close(acq.gate)
	wg.Wait()

	assert.Equal(t, 4, acq.Calls(PasswordCacheKey))
	assert.Equal(t, 1, m.Cache().Len())
}

func TestManager_CoalescedAcquisition(t *testing.T) {
	acq := newCountingAcquirer(time.Now)
	acq.gate = make(chan struct{})
	acq.entered = make(chan struct{}, 4)
	m := NewManager(NewTokenCache(), acq, WithCoalescing(true))
	pw := &PasswordConfig{Username: "u", Password: "p"}

	var started, wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 4; i++ {
		wg.Add(1)
		started.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			if _, err := m.Token(context.Background(), pw); err == nil {
				ok.Add(1)
			}
		}()
	}
	started.Wait()
	<-acq.entered
	// Give the followers time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(acq.gate)
	wg.Wait()

	assert.Equal(t, int32(4), ok.Load())
	assert.Equal(t, 1, acq.Calls(PasswordCacheKey))
}
