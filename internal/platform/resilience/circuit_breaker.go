package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker trips after consecutive failures and lets a bounded number
// of probes through once the open timeout elapses. A nil breaker allows
// everything.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	openTimeout      time.Duration
	halfOpenMaxReq   int

	state               CircuitState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
	halfOpenSuccesses   int
	now                 func() time.Time
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if openTimeout <= 0 {
		openTimeout = 15 * time.Second
	}
	if halfOpenMaxReq < 1 {
		halfOpenMaxReq = 1
	}

	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		halfOpenMaxReq:   halfOpenMaxReq,
		state:            CircuitStateClosed,
		now:              time.Now,
	}
}

func (b *CircuitBreaker) Allow() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.state == CircuitStateOpen {
		if now.Sub(b.openedAt) < b.openTimeout {
			return ErrCircuitOpen
		}
		b.toHalfOpen()
	}

	if b.state == CircuitStateHalfOpen {
		if b.halfOpenInFlight >= b.halfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.halfOpenInFlight++
	}

	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.consecutiveFailures = 0
	case CircuitStateHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.halfOpenMaxReq && b.halfOpenInFlight == 0 {
			b.toClosed()
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.failureThreshold {
			b.toOpen()
		}
	case CircuitStateHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.toOpen()
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

func (b *CircuitBreaker) State() CircuitState {
	if b == nil {
		return CircuitStateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if b.now().Sub(b.openedAt) >= b.openTimeout {
			return CircuitStateHalfOpen
		}
	}

	return b.state
}

// CallOutcome classifies a guarded call for the breaker.
type CallOutcome int

const (
	// CallSucceeded covers any answer that says nothing about upstream
	// health, including client errors such as 401.
	CallSucceeded CallOutcome = iota
	// CallFailed is a transient upstream failure.
	CallFailed
	// CallAbandoned is a call whose caller went away before it finished.
	// It frees its half-open slot and is neither a success nor a failure.
	CallAbandoned
)

func (o CallOutcome) String() string {
	switch o {
	case CallSucceeded:
		return "succeeded"
	case CallFailed:
		return "failed"
	case CallAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Record reports the outcome of a call admitted by Allow.
func (b *CircuitBreaker) Record(outcome CallOutcome) {
	switch outcome {
	case CallFailed:
		b.RecordFailure()
	case CallAbandoned:
		b.Release()
	default:
		b.RecordSuccess()
	}
}

// Release returns an admitted call's half-open slot without counting it.
// Closed-state failure streaks are left untouched.
func (b *CircuitBreaker) Release() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateHalfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
		if b.halfOpenSuccesses >= b.halfOpenMaxReq && b.halfOpenInFlight == 0 {
			b.toClosed()
		}
	}
}

func (b *CircuitBreaker) toClosed() {
	b.state = CircuitStateClosed
	b.consecutiveFailures = 0
	b.halfOpenInFlight = 0
	b.halfOpenSuccesses = 0
	b.openedAt = time.Time{}
}

func (b *CircuitBreaker) toOpen() {
	b.state = CircuitStateOpen
	b.openedAt = b.now()
	b.halfOpenInFlight = 0
	b.halfOpenSuccesses = 0
}

func (b *CircuitBreaker) toHalfOpen() {
	b.state = CircuitStateHalfOpen
	b.halfOpenInFlight = 0
	b.halfOpenSuccesses = 0
}
