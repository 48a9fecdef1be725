package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/domain"
)

// PresenceService is the read side of the coordinator the REST API needs.
type PresenceService interface {
	IsUsernameTaken(ctx context.Context, username string) (bool, error)
	Users() []domain.User
}

type CheckUsernameResponse struct {
	IsTaken bool `json:"is_taken"`
}

type UsersResponse struct {
	Users []domain.User `json:"users"`
	Count int           `json:"count"`
}

type handlers struct {
	svc PresenceService
}

func (h *handlers) checkUsername(c *gin.Context) {
	username := c.Query("username")
	if strings.TrimSpace(username) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username parameter is required"})
		return
	}

	taken, err := h.svc.IsUsernameTaken(c.Request.Context(), username)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, CheckUsernameResponse{IsTaken: taken})
	case errors.Is(err, domain.ErrUsernameEmpty), errors.Is(err, domain.ErrUsernameTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("module", "adapters.http").Str("username", username).Msg("check username")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history store unavailable"})
	}
}

func (h *handlers) users(c *gin.Context) {
	users := h.svc.Users()
	c.JSON(http.StatusOK, UsersResponse{Users: users, Count: len(users)})
}

func handlerHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
