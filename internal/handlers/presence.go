package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/gymhub/internal/presence"
	"github.com/nfrund/gymhub/internal/realtime"
)

// PresenceHandler serves the online users of a gym room.
type PresenceHandler struct {
	presence *presence.Service
	resolver *realtime.Resolver
}

// NewPresenceHandler creates a new presence handler.
func NewPresenceHandler(svc *presence.Service, resolver *realtime.Resolver) *PresenceHandler {
	return &PresenceHandler{presence: svc, resolver: resolver}
}

type presenceUser struct {
	UserID   string     `json:"userId"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type presenceResponse struct {
	GymID string         `json:"gymId"`
	Users []presenceUser `json:"users"`
	Count int            `json:"count"`
}

// GetPresence returns the users online in :gymId. Only participants of the
// gym may ask.
func (h *PresenceHandler) GetPresence(c echo.Context) error {
	caller, err := Caller(c)
	if err != nil {
		return err
	}
	gymID := c.Param("gymId")
	if err := h.resolver.RequireMember(c.Request().Context(), caller, gymID); err != nil {
		return Error(c, err)
	}

	online := h.presence.Online(gymID)
	users := make([]presenceUser, 0, len(online))
	for _, id := range online {
		u := presenceUser{UserID: id, Online: true}
		if t, ok := h.presence.LastSeen(id); ok {
			u.LastSeen = &t
		}
		users = append(users, u)
	}
	return c.JSON(http.StatusOK, presenceResponse{GymID: gymID, Users: users, Count: len(users)})
}
