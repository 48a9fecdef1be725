package store

import (
	"context"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/chatrelay/internal/core"
)

func exerciseRedisStore(t *testing.T, s *RedisStore) {
	t.Helper()
	ctx := context.Background()

	msgs, err := s.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	taken, err := s.IsUsernameTaken(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, taken)

	first, err := s.Append(ctx, "alice", "one")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())
	_, err = s.Append(ctx, "bob", "two")
	require.NoError(t, err)

	msgs, err = s.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, "alice", msgs[0].Username)
	assert.True(t, first.CreatedAt.Equal(msgs[0].CreatedAt))
	assert.Equal(t, "two", msgs[1].Message)

	taken, err = s.IsUsernameTaken(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = s.IsUsernameTaken(ctx, "carol")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(rdb, "test")
	t.Cleanup(func() { _ = s.Close() })

	exerciseRedisStore(t, s)

	list, err := mr.List("test:messages")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	members, err := mr.Members("test:authors")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, members)
}

func TestRedisStore_SkipsUndecodableEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(rdb, "")
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	_, err := s.Append(ctx, "alice", "kept")
	require.NoError(t, err)
	_, err = mr.Push("chat:messages", "not json")
	require.NoError(t, err)

	msgs, err := s.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "kept", msgs[0].Message)
}

// Also runs against a real server when CHAT_TEST_REDIS_ADDR is set.
func TestRedisStore_RealServer(t *testing.T) {
	addr := os.Getenv("CHAT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CHAT_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	s := NewRedisStore(rdb, "chattest:"+uuid.NewString())
	t.Cleanup(func() {
		rdb.Del(context.Background(), s.messagesKey, s.authorsKey)
		_ = s.Close()
	})

	exerciseRedisStore(t, s)
}

func TestRedisStore_Unavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	s := NewRedisStore(rdb, "")
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	assert.Equal(t, "chat:messages", s.messagesKey)
	_, err := s.FetchAll(ctx)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	_, err = s.Append(ctx, "alice", "hi")
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	_, err = s.IsUsernameTaken(ctx, "alice")
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}
