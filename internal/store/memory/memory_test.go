package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/account"
	"papertrade/internal/store"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	_, err := s.Find(ctx, "alice")
	assert.True(t, store.IsNotFound(err))

	a := account.New("Alice", 1000, now)
	require.NoError(t, s.Create(ctx, a))
	assert.ErrorIs(t, s.Create(ctx, account.New("ALICE", 1, now)), store.ErrExists)

	got, err := s.Find(ctx, " ALICE ")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, got.Balance)

	got.Balance = 5
	again, _ := s.Find(ctx, "alice")
	assert.Equal(t, 1000.0, again.Balance, "reads are copies")

	require.NoError(t, s.Save(ctx, got))
	again, _ = s.Find(ctx, "alice")
	assert.Equal(t, 5.0, again.Balance)

	require.NoError(t, s.Save(ctx, account.New("bob", 1, now)))
	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].Username)
	assert.Equal(t, "bob", all[1].Username)

	assert.ErrorIs(t, s.Save(ctx, &account.Account{}), account.ErrInvalidUsername)
	assert.NoError(t, s.Close())
}
