package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"papertrade/internal/account"
	"papertrade/internal/store"
)

type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	called := m.Called(sql, args)
	return called.Get(0).(pgconn.CommandTag), called.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.Called(sql, args).Get(0).(pgx.Row)
}

type docRow struct {
	doc []byte
	err error
}

func (r docRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.doc
	return nil
}

func TestFindDecodesDocument(t *testing.T) {
	now := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	a := account.New("alice", 500, now)
	doc, err := json.Marshal(a)
	require.NoError(t, err)

	db := new(mockDB)
	db.On("QueryRow", findSQL, []any{"alice"}).Return(docRow{doc: doc})
	db.On("QueryRow", findSQL, []any{"bob"}).Return(docRow{err: pgx.ErrNoRows})
	s := NewWithDB(db)

	got, err := s.Find(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, 500.0, got.Balance)
	assert.NotNil(t, got.BotConfigs)

	_, err = s.Find(context.Background(), "bob")
	assert.ErrorIs(t, err, store.ErrNotFound)
	db.AssertExpectations(t)
}

func TestCreateReportsConflict(t *testing.T) {
	db := new(mockDB)
	db.On("Exec", createSQL, mock.Anything).Return(pgconn.NewCommandTag("INSERT 0 0"), nil).Once()
	db.On("Exec", createSQL, mock.Anything).Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()
	s := NewWithDB(db)

	a := account.New("alice", 500, time.Now())
	assert.ErrorIs(t, s.Create(context.Background(), a), store.ErrExists)
	assert.NoError(t, s.Create(context.Background(), a))
	assert.ErrorIs(t, s.Create(context.Background(), &account.Account{}), account.ErrInvalidUsername)
	db.AssertExpectations(t)
}

func TestSaveWrapsErrors(t *testing.T) {
	db := new(mockDB)
	db.On("Exec", saveSQL, mock.Anything).Return(pgconn.CommandTag{}, errors.New("conn reset"))
	s := NewWithDB(db)
	err := s.Save(context.Background(), account.New("alice", 1, time.Now()))
	assert.ErrorContains(t, err, "conn reset")
}

// Runs against a real server when PAPERTRADE_TEST_POSTGRES_DSN is set.
func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("PAPERTRADE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PAPERTRADE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := New(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.pool.Exec(ctx, "DELETE FROM accounts WHERE username LIKE 'pgtest-%'")
	require.NoError(t, err)

	a := account.New("pgtest-alice", 1000, time.Now())
	require.NoError(t, s.Create(ctx, a))
	a.Balance = 900
	require.NoError(t, s.Save(ctx, a))
	got, err := s.Find(ctx, "PGTEST-ALICE")
	require.NoError(t, err)
	assert.Equal(t, 900.0, got.Balance)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, all)
}

func TestDecodeAllSkipsBadDocuments(t *testing.T) {
	good, err := json.Marshal(account.New("alice", 500, time.Now()))
	require.NoError(t, err)

	all := decodeAll([][]byte{[]byte(`{"username":`), good})
	require.Len(t, all, 1)
	assert.Equal(t, "alice", all[0].Username)
	assert.Empty(t, decodeAll(nil))
}
