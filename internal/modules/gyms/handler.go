package gyms

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/handlers"
	"github.com/nfrund/gymhub/internal/middleware"
	"github.com/nfrund/gymhub/internal/pubsub"
	"github.com/nfrund/gymhub/internal/realtime"
)

// Handler serves gym affiliation changes.
type Handler struct {
	directory domain.AffiliationRepository
	registry  *realtime.Registry
	bus       pubsub.Publisher
}

// NewHandler creates a gyms handler.
func NewHandler(directory domain.AffiliationRepository, registry *realtime.Registry, bus pubsub.Publisher) *Handler {
	return &Handler{directory: directory, registry: registry, bus: bus}
}

type leaveResponse struct {
	GymID   string `json:"gymId"`
	Evicted int    `json:"evicted"`
}

// Leave clears the caller's affiliation. Their live connections leave the
// room here, and on other instances through AffiliationChangedEvent.
func (h *Handler) Leave(c echo.Context) error {
	caller, err := handlers.Caller(c)
	if err != nil {
		return err
	}
	if caller.Role != domain.RoleTrainer && caller.Role != domain.RoleMember {
		return handlers.Error(c, fmt.Errorf("%w: only trainers and members can leave a gym", domain.ErrForbidden))
	}

	ctx := c.Request().Context()
	logger := middleware.FromContext(ctx)

	gymID, err := h.directory.GymForUser(ctx, caller.UserID, caller.Role)
	if err != nil {
		return handlers.Error(c, err)
	}
	if gymID == "" {
		return handlers.Error(c, fmt.Errorf("%w: %s %s", domain.ErrNotInGym, caller.Role, caller.UserID))
	}
	if err := h.directory.ClearAffiliation(ctx, caller.UserID, caller.Role); err != nil {
		return handlers.Error(c, err)
	}

	evicted := h.registry.EvictUser(caller.UserID)
	change := realtime.AffiliationChange{
		UserID:        caller.UserID,
		Role:          caller.Role,
		PreviousGymID: gymID,
		Source:        realtime.SourceLeave,
	}
	if err := pubsub.Publish(ctx, h.bus, realtime.AffiliationChangedEvent, caller.UserID, change); err != nil {
		logger.Error("Failed to publish affiliation change", "gym_id", gymID, "error", err)
	}

	logger.Info("User left gym", "gym_id", gymID, "role", caller.Role, "evicted", evicted)
	return c.JSON(http.StatusOK, leaveResponse{GymID: gymID, Evicted: evicted})
}
