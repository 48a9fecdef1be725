package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	msgs, err := s.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	taken, err := s.IsUsernameTaken(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, taken)

	first, err := s.Append(ctx, "alice", "one")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, now, first.CreatedAt)
	_, err = s.Append(ctx, "bob", "two")
	require.NoError(t, err)

	msgs, err = s.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Message)
	assert.Equal(t, "two", msgs[1].Message)

	// Returned slices are copies.
	msgs[0].Message = "mutated"
	again, _ := s.FetchAll(ctx)
	assert.Equal(t, "one", again[0].Message)

	taken, err = s.IsUsernameTaken(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, taken)

	assert.NoError(t, s.Close())
}
