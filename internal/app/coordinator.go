package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
)

const historyKey = "history"

type Options struct {
	// CheckStoreOnRegister rejects names that already appear in the history store.
	CheckStoreOnRegister bool
	// Now is the clock used for join times and for broadcasts when the store
	// echoes no timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Coordinator owns the connection -> user sessions and fans events out
// through the injected Broadcaster. Session mutations and broadcasts happen
// under mu. History store calls and the registration_success reply to a
// single connection happen outside it.
type Coordinator struct {
	store core.HistoryStore
	out   core.Broadcaster
	opts  Options

	mu  sync.Mutex
	reg *Registry
	// relayed counts broadcast user messages. History fetches are only
	// shared between callers that saw the same count.
	relayed uint64

	history singleflight.Group
}

func NewCoordinator(store core.HistoryStore, out core.Broadcaster, opts Options) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		store: store,
		out:   out,
		opts:  opts,
		reg:   NewRegistry(),
	}
}

func (c *Coordinator) logger(conn core.ConnID) zerolog.Logger {
	return log.With().Str("module", "app.coordinator").Str("conn", string(conn)).Logger()
}

// Register binds conn to username. The name is reserved while the store is
// consulted so two connections cannot claim it at once.
func (c *Coordinator) Register(ctx context.Context, conn core.ConnID, username string) error {
	name, err := domain.NormalizeUsername(username)
	if err != nil {
		return err
	}
	logger := c.logger(conn).With().Str("username", name).Logger()

	c.mu.Lock()
	if _, ok := c.reg.UserOf(conn); ok || c.reg.HasReservation(conn) {
		c.mu.Unlock()
		return core.ErrAlreadyRegistered
	}
	if c.reg.NameInUse(name) {
		c.mu.Unlock()
		logger.Info().Msg("username held by live session")
		return core.ErrUsernameTaken
	}
	c.reg.Reserve(conn, name)
	c.mu.Unlock()

	taken := false
	if c.opts.CheckStoreOnRegister {
		taken, err = c.store.IsUsernameTaken(ctx, name)
		if err != nil {
			logger.Warn().Err(err).Msg("availability check failed, relying on live sessions")
			taken = false
		}
	}

	c.mu.Lock()
	if !c.reg.Release(conn, name) {
		c.mu.Unlock()
		logger.Info().Msg("connection went away during registration")
		return core.ErrConnectionClosed
	}
	if taken {
		c.mu.Unlock()
		logger.Info().Msg("username recorded in history store")
		return core.ErrUsernameTaken
	}
	user, err := domain.NewUser(name, c.opts.Now())
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.reg.Bind(conn, user)
	c.out.SendToAll(core.EventReceiveMessage, core.SystemNotice(fmt.Sprintf("%s has joined the chat.", name)))
	c.out.SendToAll(core.EventUpdateUserList, c.reg.Usernames())
	online := c.reg.Len()
	key := historyKey + ":" + strconv.FormatUint(c.relayed, 10)
	c.mu.Unlock()

	logger.Info().Int("online", online).Msg("user registered")

	history := c.fetchHistory(ctx, key, logger)
	c.out.SendTo(conn, core.EventRegistrationSuccess, core.RegistrationSuccess{History: history})
	return nil
}

// fetchHistory shares one FetchAll between registrations that bound after the
// same relayed message. The shared call is detached from any single caller's
// cancellation and is bounded by the store's own timeout.
func (c *Coordinator) fetchHistory(ctx context.Context, key string, logger zerolog.Logger) []domain.ChatMessage {
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.history.DoChan(key, func() (any, error) {
		return c.store.FetchAll(fetchCtx)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		logger.Warn().Err(ctx.Err()).Msg("history fetch abandoned, sending empty history")
		return []domain.ChatMessage{}
	}
	if res.Err != nil {
		logger.Warn().Err(res.Err).Msg("history fetch failed, sending empty history")
		return []domain.ChatMessage{}
	}
	msgs, _ := res.Val.([]domain.ChatMessage)
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	logger.Debug().Int("messages", len(msgs)).Bool("shared", res.Shared).Msg("history fetched")
	return msgs
}

// Unregister removes the session of conn, if any, and notifies everyone else.
func (c *Coordinator) Unregister(conn core.ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reg.DropReservation(conn)
	user, ok := c.reg.Unbind(conn)
	if !ok {
		return
	}
	c.out.SendToAll(core.EventReceiveMessage, core.SystemNotice(fmt.Sprintf("%s has left the chat.", user.Username)), conn)
	c.out.SendToAll(core.EventUpdateUserList, c.reg.Usernames(), conn)

	l := c.logger(conn)
	l.Info().Str("username", user.Username).Int("online", c.reg.Len()).Msg("user left")
}

// RelayMessage stores text and broadcasts it. A failed append is reported to
// the sender only and the message is dropped.
func (c *Coordinator) RelayMessage(ctx context.Context, conn core.ConnID, text string) error {
	c.mu.Lock()
	user, ok := c.reg.UserOf(conn)
	c.mu.Unlock()
	if !ok {
		return core.ErrNotRegistered
	}
	if strings.TrimSpace(text) == "" {
		return core.ErrEmptyMessage
	}

	rec, err := c.store.Append(ctx, user.Username, text)
	if err != nil {
		if !errors.Is(err, core.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
		}
		l := c.logger(conn)
		l.Error().Err(err).Str("username", user.Username).Msg("append failed, message dropped")

		c.mu.Lock()
		c.out.SendTo(conn, core.EventReceiveMessage, core.SystemNotice("Error: Could not send message."))
		c.mu.Unlock()
		return fmt.Errorf("relay message: %w", err)
	}

	at := rec.CreatedAt
	if at.IsZero() {
		at = c.opts.Now()
	}

	c.mu.Lock()
	c.relayed++
	c.out.SendToAll(core.EventReceiveMessage, core.UserMessage(user.Username, text, at.UTC()))
	c.mu.Unlock()
	return nil
}

// SetTyping forwards a typing indicator to everyone except the sender.
func (c *Coordinator) SetTyping(conn core.ConnID, typing bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	user, ok := c.reg.UserOf(conn)
	if !ok {
		return core.ErrNotRegistered
	}
	if typing {
		c.out.SendToAll(core.EventShowTyping, core.TypingPayload{Username: user.Username}, conn)
	} else {
		c.out.SendToAll(core.EventHideTyping, core.Empty{}, conn)
	}
	return nil
}

// IsUsernameTaken is the advisory check behind the HTTP pre-check.
func (c *Coordinator) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	name, err := domain.NormalizeUsername(username)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	inUse := c.reg.NameInUse(name)
	c.mu.Unlock()
	if inUse {
		return true, nil
	}
	return c.store.IsUsernameTaken(ctx, name)
}

func (c *Coordinator) Presence() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reg.Usernames()
}

func (c *Coordinator) Users() []domain.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reg.Users()
}

func (c *Coordinator) Username(conn core.ConnID) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.reg.UserOf(conn); ok {
		return u.Username, true
	}
	return "", false
}
