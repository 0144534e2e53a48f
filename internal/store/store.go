// Package store defines the user store contract shared by the memory, sqlite
// and postgres backends.
package store

import (
	"context"
	"errors"

	"papertrade/internal/account"
)

var (
	ErrNotFound = errors.New("account not found")
	ErrExists   = errors.New("account already exists")
)

// UserStore persists whole account documents keyed by normalized username.
// Implementations return copies; callers own what they get back.
type UserStore interface {
	Find(ctx context.Context, username string) (*account.Account, error)
	// Create inserts a new account and fails with ErrExists on a taken username.
	Create(ctx context.Context, a *account.Account) error
	// Save upserts the account.
	Save(ctx context.Context, a *account.Account) error
	ListAll(ctx context.Context) ([]*account.Account, error)
	Close() error
}

// IsNotFound reports whether err means the account does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
