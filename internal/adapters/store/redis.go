package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
)

// RedisStore keeps messages as JSON in a list and authors in a set.
type RedisStore struct {
	rdb         redis.UniversalClient
	messagesKey string
	authorsKey  string
	now         func() time.Time
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "chat"
	}
	return &RedisStore{
		rdb:         rdb,
		messagesKey: prefix + ":messages",
		authorsKey:  prefix + ":authors",
		now:         time.Now,
	}
}

func (s *RedisStore) FetchAll(ctx context.Context) ([]domain.ChatMessage, error) {
	raw, err := s.rdb.LRange(ctx, s.messagesKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: lrange %s: %w", core.ErrStoreUnavailable, s.messagesKey, err)
	}
	out := make([]domain.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			log.Warn().Err(err).Str("module", "store.redis").Msg("skipping undecodable message")
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *RedisStore) Append(ctx context.Context, username, text string) (domain.ChatMessage, error) {
	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		Username:  username,
		Message:   text,
		CreatedAt: s.now().UTC(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: encode message: %w", core.ErrStoreUnavailable, err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, s.messagesKey, b)
		p.SAdd(ctx, s.authorsKey, username)
		return nil
	})
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: append: %w", core.ErrStoreUnavailable, err)
	}
	return msg, nil
}

func (s *RedisStore) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, s.authorsKey, username).Result()
	if err != nil {
		return false, fmt.Errorf("%w: sismember: %w", core.ErrStoreUnavailable, err)
	}
	return ok, nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }
