// Package memory is a process-local user store, used for tests and the
// memory driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"papertrade/internal/account"
	"papertrade/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	accounts map[string]*account.Account
}

var _ store.UserStore = (*Store)(nil)

func New() *Store {
	return &Store{accounts: make(map[string]*account.Account)}
}

func (s *Store) Find(_ context.Context, username string) (*account.Account, error) {
	key := account.NormalizeUsername(username)
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, store.ErrNotFound)
	}
	return a.Clone(), nil
}

func (s *Store) Create(_ context.Context, a *account.Account) error {
	if a == nil {
		return fmt.Errorf("memory store: nil account")
	}
	key := account.NormalizeUsername(a.Username)
	if key == "" {
		return account.ErrInvalidUsername
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[key]; ok {
		return fmt.Errorf("%s: %w", key, store.ErrExists)
	}
	cp := a.Clone()
	cp.Username = key
	s.accounts[key] = cp
	return nil
}

func (s *Store) Save(_ context.Context, a *account.Account) error {
	if a == nil {
		return fmt.Errorf("memory store: nil account")
	}
	key := account.NormalizeUsername(a.Username)
	if key == "" {
		return account.ErrInvalidUsername
	}
	cp := a.Clone()
	cp.Username = key
	s.mu.Lock()
	s.accounts[key] = cp
	s.mu.Unlock()
	return nil
}

// ListAll returns copies ordered by username.
func (s *Store) ListAll(_ context.Context) ([]*account.Account, error) {
	s.mu.RLock()
	out := make([]*account.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) Close() error { return nil }
