package store

import (
	"context"
	"errors"

	"papertrade/internal/account"
	"papertrade/internal/pkg/circuit"
)

type breakerStore struct {
	inner   UserStore
	breaker *circuit.Breaker
}

// WithBreaker routes every call except Close through b, so a dead database
// fails fast instead of stalling each user of a tick. Not-found and
// already-exists answers never count as failures. A nil breaker returns inner.
func WithBreaker(inner UserStore, b *circuit.Breaker) UserStore {
	if b == nil {
		return inner
	}
	return &breakerStore{inner: inner, breaker: b}
}

// BreakerSettings fills in the error classification the decorator relies on.
func BreakerSettings(s circuit.Settings) circuit.Settings {
	s.Ignore = func(err error) bool { return IsNotFound(err) || errors.Is(err, ErrExists) }
	return s
}

func (s *breakerStore) Find(ctx context.Context, username string) (*account.Account, error) {
	return circuit.Call(ctx, s.breaker, func() (*account.Account, error) {
		return s.inner.Find(ctx, username)
	})
}

func (s *breakerStore) Create(ctx context.Context, a *account.Account) error {
	return s.breaker.Do(ctx, func() error { return s.inner.Create(ctx, a) })
}

func (s *breakerStore) Save(ctx context.Context, a *account.Account) error {
	return s.breaker.Do(ctx, func() error { return s.inner.Save(ctx, a) })
}

func (s *breakerStore) ListAll(ctx context.Context) ([]*account.Account, error) {
	return circuit.Call(ctx, s.breaker, func() ([]*account.Account, error) {
		return s.inner.ListAll(ctx)
	})
}

func (s *breakerStore) Close() error { return s.inner.Close() }
