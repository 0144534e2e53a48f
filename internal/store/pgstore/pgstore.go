// Package pgstore is the PostgreSQL user store. Each account is one JSONB
// document with its username and balance lifted into columns.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"papertrade/internal/account"
	"papertrade/internal/logger"
	"papertrade/internal/store"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	username   TEXT PRIMARY KEY,
	balance    DOUBLE PRECISION NOT NULL,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

const (
	findSQL   = `SELECT doc FROM accounts WHERE username = $1`
	listSQL   = `SELECT doc FROM accounts ORDER BY username`
	createSQL = `INSERT INTO accounts (username, balance, doc, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (username) DO NOTHING`
	saveSQL = `INSERT INTO accounts (username, balance, doc, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (username) DO UPDATE
SET balance = EXCLUDED.balance, doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`
)

type Store struct {
	pool *pgxpool.Pool
	db   DBTX
}

var _ store.UserStore = (*Store)(nil)

// New connects, pings and creates the accounts table if needed.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	s := &Store{pool: pool, db: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB builds a store over any executor; Close is then a no-op.
func NewWithDB(db DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Find(ctx context.Context, username string) (*account.Account, error) {
	key := account.NormalizeUsername(username)
	var doc []byte
	err := s.db.QueryRow(ctx, findSQL, key).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: find %s: %w", key, err)
	}
	return decode(doc)
}

func (s *Store) Create(ctx context.Context, a *account.Account) error {
	key, doc, err := encode(a)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, createSQL, key, a.Balance, doc, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgstore: create %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", key, store.ErrExists)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, a *account.Account) error {
	key, doc, err := encode(a)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, saveSQL, key, a.Balance, doc, a.CreatedAt, a.UpdatedAt); err != nil {
		return fmt.Errorf("pgstore: save %s: %w", key, err)
	}
	return nil
}

func (s *Store) ListAll(ctx context.Context) ([]*account.Account, error) {
	rows, err := s.db.Query(ctx, listSQL)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list: %w", err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("pgstore: list: %w", err)
	}
	return decodeAll(docs), nil
}

// decodeAll drops documents that no longer decode so one bad row does not
// hide every other account.
func decodeAll(docs [][]byte) []*account.Account {
	out := make([]*account.Account, 0, len(docs))
	for _, doc := range docs {
		a, err := decode(doc)
		if err != nil {
			logger.With("component", "pgstore").Warnf("list: skipping document: %v", err)
			continue
		}
		out = append(out, a)
	}
	return out
}

func encode(a *account.Account) (string, []byte, error) {
	if a == nil {
		return "", nil, fmt.Errorf("pgstore: nil account")
	}
	key := account.NormalizeUsername(a.Username)
	if key == "" {
		return "", nil, account.ErrInvalidUsername
	}
	cp := *a
	cp.Username = key
	doc, err := json.Marshal(&cp)
	if err != nil {
		return "", nil, fmt.Errorf("pgstore: encode %s: %w", key, err)
	}
	return key, doc, nil
}

func decode(doc []byte) (*account.Account, error) {
	var a account.Account
	if err := json.Unmarshal(doc, &a); err != nil {
		return nil, fmt.Errorf("pgstore: decode: %w", err)
	}
	if a.Portfolio == nil {
		a.Portfolio = []account.Position{}
	}
	if a.History == nil {
		a.History = []account.TradeRecord{}
	}
	if a.BotConfigs == nil {
		a.BotConfigs = map[string]account.BotRule{}
	}
	return &a, nil
}
