package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
)

func (ctl *SignalWSController) handleRegister(ctx context.Context, id core.ConnID, data json.RawMessage) {
	type registerPayload struct {
		Username string `json:"username"`
	}
	var p registerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad register payload")
		ctl.sendError(id, "bad_payload")
		return
	}

	err := ctl.Coord.Register(ctx, id, p.Username)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrUsernameTaken):
		ctl.rejectRegistration(id, "username_taken", "This username is already taken.")
	case errors.Is(err, domain.ErrUsernameEmpty), errors.Is(err, domain.ErrUsernameTooLong):
		ctl.rejectRegistration(id, "invalid_username", err.Error())
	case errors.Is(err, core.ErrAlreadyRegistered):
		ctl.rejectRegistration(id, "already_registered", "You are already in the chat.")
	case errors.Is(err, core.ErrConnectionClosed):
	default:
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("register failed")
	}
}

func (ctl *SignalWSController) rejectRegistration(id core.ConnID, reason, msg string) {
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("reason", reason).Msg("registration rejected")
	ctl.Hub.SendTo(id, core.EventRegistrationError, core.RegistrationError{Reason: reason, Message: msg})
}
