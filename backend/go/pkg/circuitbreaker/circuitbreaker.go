package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State of the breaker.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling the request while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards calls to a dependency that may be failing.
type CircuitBreaker interface {
	Execute(req func() (interface{}, error)) (interface{}, error)
	// Report records the outcome of a call that was admitted by Allow.
	Allow() error
	Report(err error)
	State() State
}

// Option tweaks a breaker built by New.
type Option func(*breaker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *breaker) { b.now = now }
}

// WithIsFailure decides which errors count against the breaker. By default
// every non-nil error does.
func WithIsFailure(fn func(error) bool) Option {
	return func(b *breaker) { b.isFailure = fn }
}

// WithOnStateChange is called (outside the lock) whenever the state changes.
func WithOnStateChange(fn func(from, to State)) Option {
	return func(b *breaker) { b.onChange = fn }
}

type breaker struct {
	failureThreshold uint32
	successThreshold uint32
	timeout          time.Duration

	now       func() time.Time
	isFailure func(error) bool
	onChange  func(from, to State)

	mutex                sync.Mutex
	state                State
	consecutiveFailures  uint32
	consecutiveSuccesses uint32
	openedAt             time.Time
}

// New builds a breaker that opens after failureThreshold consecutive
// failures, waits timeout before letting trial calls through, and closes
// again after successThreshold consecutive trial successes.
func New(failureThreshold, successThreshold uint32, timeout time.Duration, opts ...Option) CircuitBreaker {
	if failureThreshold == 0 {
		failureThreshold = 1
	}
	if successThreshold == 0 {
		successThreshold = 1
	}
	b := &breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		now:              time.Now,
		isFailure:        func(err error) bool { return err != nil },
		state:            Closed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *breaker) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.maybeHalfOpen()
	return b.state
}

// Execute runs req if the breaker admits it and records the outcome.
func (b *breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	if err := b.Allow(); err != nil {
		return nil, err
	}
	res, err := req()
	b.Report(err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Allow returns ErrCircuitOpen while the breaker is open.
func (b *breaker) Allow() error {
	b.mutex.Lock()
	from := b.state
	b.maybeHalfOpen()
	to := b.state
	open := b.state == Open
	b.mutex.Unlock()

	b.notify(from, to)
	if open {
		return ErrCircuitOpen
	}
	return nil
}

func (b *breaker) Report(err error) {
	b.mutex.Lock()
	from := b.state
	if err != nil && b.isFailure(err) {
		b.onFailure()
	} else {
		b.onSuccess()
	}
	to := b.state
	b.mutex.Unlock()

	b.notify(from, to)
}

func (b *breaker) maybeHalfOpen() {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.timeout {
		b.state = HalfOpen
		b.consecutiveSuccesses = 0
	}
}

func (b *breaker) onSuccess() {
	switch b.state {
	case HalfOpen:
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.successThreshold {
			b.state = Closed
			b.consecutiveFailures = 0
			b.consecutiveSuccesses = 0
		}
	case Closed:
		b.consecutiveFailures = 0
	}
}

func (b *breaker) onFailure() {
	switch b.state {
	case HalfOpen:
		b.trip()
	case Closed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.failureThreshold {
			b.trip()
		}
	}
}

func (b *breaker) trip() {
	b.state = Open
	b.openedAt = b.now()
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
}

func (b *breaker) notify(from, to State) {
	if from != to && b.onChange != nil {
		b.onChange(from, to)
	}
}
