package vault

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when calls are short-circuited because the
// vault has been failing persistently.
var ErrCircuitOpen = errors.New("vault circuit open")

// CircuitState represents breaker state.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitOptions configures breaker thresholds.
type CircuitOptions struct {
	FailureThreshold int
	OpenDuration     time.Duration
}

// CircuitBreaker fails vault calls fast while the vault is down instead of
// holding every session lock for a full timeout. It never retries anything:
// a short-circuited mirror is reported exactly like a timed-out one.
type CircuitBreaker struct {
	opts CircuitOptions

	mu        sync.Mutex
	state     CircuitState
	failures  int
	openUntil time.Time
}

// NewCircuitBreaker constructs a breaker with defaults.
func NewCircuitBreaker(opts CircuitOptions) *CircuitBreaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenDuration <= 0 {
		opts.OpenDuration = 30 * time.Second
	}
	return &CircuitBreaker{opts: opts}
}

// Allow reports whether the next call should proceed.
func (cb *CircuitBreaker) Allow() bool {
	if cb == nil {
		return true
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if time.Now().Before(cb.openUntil) {
			return false
		}
		// Probe with a single call.
		cb.state = CircuitHalfOpen
		return true
	case CircuitHalfOpen:
		return false
	default:
		return true
	}
}

// OnSuccess records a confirmed call.
func (cb *CircuitBreaker) OnSuccess() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.state = CircuitClosed
}

// OnFailure records a failed call and trips the breaker at the threshold.
func (cb *CircuitBreaker) OnFailure() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
		cb.openUntil = time.Now().Add(cb.opts.OpenDuration)
		return
	}

	cb.failures++
	if cb.failures >= cb.opts.FailureThreshold {
		cb.state = CircuitOpen
		cb.openUntil = time.Now().Add(cb.opts.OpenDuration)
	}
}

// State reports the current breaker state.
func (cb *CircuitBreaker) State() CircuitState {
	if cb == nil {
		return CircuitClosed
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
