package resilience

import (
	"sync"
	"time"

	"github.com/dealerdesk/backend/internal/domain/shared"
)

// CircuitState describes the health of a single upstream endpoint
type CircuitState string

const (
	// StateClosed allows all calls through
	StateClosed CircuitState = "CLOSED"
	// StateOpen rejects calls until the cooldown elapses
	StateOpen CircuitState = "OPEN"
	// StateHalfOpen allows a single probe call to test recovery
	StateHalfOpen CircuitState = "HALF_OPEN"
)

// breaker tracks consecutive failures for one endpoint. Calls are rejected
// while open; after the cooldown a single probe is let through, and its
// outcome decides whether the circuit closes again or re-opens for another
// full cooldown.
type breaker struct {
	mu        sync.Mutex
	state     CircuitState
	failures  int
	openedAt  time.Time
	probing   bool
	threshold int
	cooldown  time.Duration
	clock     func() time.Time

	onTransition func(state CircuitState)
}

func newBreaker(threshold int, cooldown time.Duration, clock func() time.Time, onTransition func(CircuitState)) *breaker {
	return &breaker{
		state:        StateClosed,
		threshold:    threshold,
		cooldown:     cooldown,
		clock:        clock,
		onTransition: onTransition,
	}
}

// check reports whether a call would currently be rejected, without
// changing state. Used before consulting the in-flight table so a rejected
// caller never registers work.
func (b *breaker) check() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.clock().Sub(b.openedAt) < b.cooldown {
		return shared.ErrCircuitOpen
	}
	if b.state == StateHalfOpen && b.probing {
		return shared.ErrCircuitOpen
	}
	return nil
}

// begin claims permission to make a call. When the cooldown has elapsed the
// circuit moves to half-open and the caller becomes the probe; only one
// probe is outstanding at a time.
func (b *breaker) begin() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		if b.clock().Sub(b.openedAt) < b.cooldown {
			return false, shared.ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
		b.probing = true
		return true, nil
	default: // half-open
		if b.probing {
			return false, shared.ErrCircuitOpen
		}
		b.probing = true
		return true, nil
	}
}

// onSuccess records a successful call. A successful probe closes the
// circuit; any success resets the failure count.
func (b *breaker) onSuccess(probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe || b.state == StateHalfOpen {
		b.transition(StateClosed)
		b.probing = false
	}
	b.failures = 0
}

// onFailure records a failed call. A failed probe re-opens the circuit for
// another full cooldown; consecutive failures while closed open it once the
// threshold is reached.
func (b *breaker) onFailure(probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe || b.state == StateHalfOpen {
		b.transition(StateOpen)
		b.openedAt = b.clock()
		b.probing = false
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.transition(StateOpen)
		b.openedAt = b.clock()
	}
}

// currentState returns the state, accounting for an elapsed cooldown
func (b *breaker) currentState() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.clock().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

func (b *breaker) transition(next CircuitState) {
	if b.state == next {
		return
	}
	b.state = next
	if b.onTransition != nil {
		b.onTransition(next)
	}
}
