// Package circuit wraps sony/gobreaker with the small surface the stores need.
package circuit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"papertrade/internal/logger"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrOpen is returned without calling through while the breaker is open.
var ErrOpen = errors.New("circuit breaker open")

type Settings struct {
	Name string
	// Trips is the number of consecutive failures that opens the breaker.
	Trips uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// Ignore marks errors that are answers rather than failures, e.g. not found.
	Ignore        func(error) bool
	OnStateChange func(name string, from, to State)
}

type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

func New(s Settings) *Breaker {
	trips := s.Trips
	if trips == 0 {
		trips = 5
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ignore := s.Ignore
	onChange := s.OnStateChange
	settings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= trips
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return ignore != nil && ignore(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("circuit %s state change: %s -> %s", name, fromGobreaker(from), fromGobreaker(to))
			if onChange != nil {
				onChange(name, fromGobreaker(from), fromGobreaker(to))
			}
		},
	}
	return &Breaker{name: s.Name, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State { return fromGobreaker(b.cb.State()) }

// Do runs fn through the breaker.
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	_, err := Call(ctx, b, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

// Call runs fn through the breaker and returns its result.
func Call[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if b == nil {
		return fn()
	}
	out, err := b.cb.Execute(func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%s: %w", b.name, ErrOpen)
		}
		if v, ok := out.(T); ok {
			return v, err
		}
		return zero, err
	}
	return out.(T), nil
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
