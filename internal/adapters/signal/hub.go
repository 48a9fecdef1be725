package signal

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/core"
)

// Hub implements core.Broadcaster over the attached connections.
// Frames are encoded once per emission and enqueued without blocking.
type Hub struct {
	mu     sync.RWMutex
	conns  map[core.ConnID]core.SignalConnection
	policy app.Policy
}

func NewHub(policy app.Policy) *Hub {
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	return &Hub{
		conns:  make(map[core.ConnID]core.SignalConnection),
		policy: policy,
	}
}

func (h *Hub) Attach(id core.ConnID, conn core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[id] = conn
	log.Debug().Str("module", "signal.hub").Str("conn", string(id)).Int("connections", len(h.conns)).Msg("attached")
}

func (h *Hub) Detach(id core.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
	log.Debug().Str("module", "signal.hub").Str("conn", string(id)).Int("connections", len(h.conns)).Msg("detached")
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) SendTo(id core.ConnID, event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Str("event", event).Msg("encode frame")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.conns[id]
	if !ok {
		return
	}
	h.deliver(id, conn, frame)
}

func (h *Hub) SendToAll(event string, payload any, exclude ...core.ConnID) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Str("event", event).Msg("encode frame")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
next:
	for id, conn := range h.conns {
		for _, ex := range exclude {
			if id == ex {
				continue next
			}
		}
		if h.deliver(id, conn, frame) {
			sent++
		}
	}
	log.Debug().Str("module", "signal.hub").Str("event", event).Int("sent_to", sent).Msg("broadcast result")
}

func (h *Hub) deliver(id core.ConnID, conn core.SignalConnection, frame core.Frame) bool {
	err := conn.TrySend(frame)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrBackpressure) {
		return false
	}
	switch h.policy.OnBackPressure(id) {
	case app.Disconnect:
		log.Warn().Str("module", "signal.hub").Str("conn", string(id)).Msg("slow client, disconnecting")
		// The read pump notices the close and unregisters the connection.
		conn.Close()
	case app.DropFrame, app.NoAction:
		log.Warn().Str("module", "signal.hub").Str("conn", string(id)).Msg("slow client, frame dropped")
	}
	return false
}
