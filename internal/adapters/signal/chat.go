package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/core"
)

func (ctl *SignalWSController) handleNewMessage(ctx context.Context, id core.ConnID, data json.RawMessage) {
	type messagePayload struct {
		Message string `json:"message"`
	}
	var p messagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad message payload")
		ctl.sendError(id, "bad_payload")
		return
	}
	if !ctl.Limiter.Allow(id) {
		ctl.sendError(id, "rate_limited")
		return
	}

	err := ctl.Coord.RelayMessage(ctx, id, p.Message)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrNotRegistered), errors.Is(err, core.ErrEmptyMessage):
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("message ignored")
	default:
		// The sender already got a notice from the coordinator.
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("message dropped")
	}
}

func (ctl *SignalWSController) handleTyping(id core.ConnID, typing bool) {
	if err := ctl.Coord.SetTyping(id, typing); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(id)).Bool("typing", typing).Msg("typing ignored")
	}
}
