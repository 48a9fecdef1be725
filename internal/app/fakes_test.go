package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
)

type delivery struct {
	Event   string
	Payload any
}

// fakeBroadcaster mimics the hub: SendToAll reaches every attached connection.
type fakeBroadcaster struct {
	mu       sync.Mutex
	attached []core.ConnID
	inbox    map[core.ConnID][]delivery
}

func newFakeBroadcaster(conns ...core.ConnID) *fakeBroadcaster {
	b := &fakeBroadcaster{inbox: make(map[core.ConnID][]delivery)}
	for _, c := range conns {
		b.attach(c)
	}
	return b
}

func (b *fakeBroadcaster) attach(conn core.ConnID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attached = append(b.attached, conn)
}

func (b *fakeBroadcaster) detach(conn core.ConnID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, c := range b.attached {
		if c == conn {
			b.attached = append(b.attached[:i], b.attached[i+1:]...)
			return
		}
	}
}

func (b *fakeBroadcaster) SendTo(conn core.ConnID, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inbox[conn] = append(b.inbox[conn], delivery{Event: event, Payload: payload})
}

func (b *fakeBroadcaster) SendToAll(event string, payload any, exclude ...core.ConnID) {
	b.mu.Lock()
	defer b.mu.Unlock()
next:
	for _, c := range b.attached {
		for _, ex := range exclude {
			if c == ex {
				continue next
			}
		}
		b.inbox[c] = append(b.inbox[c], delivery{Event: event, Payload: payload})
	}
}

func (b *fakeBroadcaster) received(conn core.ConnID) []delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]delivery(nil), b.inbox[conn]...)
}

func (b *fakeBroadcaster) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, d := range b.inbox {
		n += len(d)
	}
	return n
}

func (b *fakeBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inbox = make(map[core.ConnID][]delivery)
}

var errBoom = errors.New("boom")

type fakeStore struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
	taken    map[string]bool

	fetchErr  error
	appendErr error
	checkErr  error
	createdAt time.Time

	// checkGate, when set, blocks IsUsernameTaken until closed.
	checkGate chan struct{}
	// checkEntered receives once per IsUsernameTaken call.
	checkEntered chan struct{}
	// fetchGate and fetchEntered do the same for FetchAll.
	fetchGate    chan struct{}
	fetchEntered chan struct{}

	appendCalls int
	fetchCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{taken: make(map[string]bool)}
}

func (s *fakeStore) FetchAll(ctx context.Context) ([]domain.ChatMessage, error) {
	if s.fetchEntered != nil {
		s.fetchEntered <- struct{}{}
	}
	if s.fetchGate != nil {
		select {
		case <-s.fetchGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return append([]domain.ChatMessage(nil), s.messages...), nil
}

func (s *fakeStore) Append(_ context.Context, username, text string) (domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendCalls++
	if s.appendErr != nil {
		return domain.ChatMessage{}, s.appendErr
	}
	m := domain.ChatMessage{Username: username, Message: text, CreatedAt: s.createdAt}
	s.messages = append(s.messages, m)
	s.taken[username] = true
	return m, nil
}

func (s *fakeStore) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	if s.checkEntered != nil {
		s.checkEntered <- struct{}{}
	}
	if s.checkGate != nil {
		select {
		case <-s.checkGate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkErr != nil {
		return false, s.checkErr
	}
	return s.taken[username], nil
}
