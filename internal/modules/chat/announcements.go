package chat

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/handlers"
	"github.com/nfrund/gymhub/internal/realtime"
)

// AnnouncementHandler exposes the announcement broadcaster over HTTP. A gym
// account manages the announcements of its own room.
type AnnouncementHandler struct {
	broadcaster *realtime.Broadcaster
	resolver    *realtime.Resolver
}

// NewAnnouncementHandler creates an announcement handler.
func NewAnnouncementHandler(b *realtime.Broadcaster, resolver *realtime.Resolver) *AnnouncementHandler {
	return &AnnouncementHandler{broadcaster: b, resolver: resolver}
}

// List returns the announcements of the caller's gym.
func (h *AnnouncementHandler) List(c echo.Context) error {
	caller, err := handlers.Caller(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	gymID, err := h.resolver.ResolveIdentity(ctx, caller)
	if err != nil {
		return handlers.Error(c, err)
	}
	return h.list(c, caller, gymID)
}

// ListOwn returns the announcements a gym account has posted.
func (h *AnnouncementHandler) ListOwn(c echo.Context) error {
	caller, err := handlers.Caller(c)
	if err != nil {
		return err
	}
	if caller.Role != domain.RoleGym {
		return handlers.Error(c, domain.ErrForbidden)
	}
	return h.list(c, caller, caller.UserID)
}

func (h *AnnouncementHandler) list(c echo.Context, caller domain.Identity, gymID string) error {
	list, err := h.broadcaster.List(c.Request().Context(), caller, gymID)
	if err != nil {
		return handlers.Error(c, err)
	}
	if list == nil {
		list = []*domain.Announcement{}
	}
	return c.JSON(http.StatusOK, list)
}

// Create posts an announcement to the caller's room.
func (h *AnnouncementHandler) Create(c echo.Context) error {
	caller, err := handlers.Caller(c)
	if err != nil {
		return err
	}
	var req handlers.AnnouncementRequest
	if err := handlers.Bind(c, &req); err != nil {
		return handlers.Error(c, err)
	}

	a, err := h.broadcaster.Post(c.Request().Context(), caller, caller.UserID, req.Message)
	if err != nil {
		return handlers.Error(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// Update replaces the body of announcement :id.
func (h *AnnouncementHandler) Update(c echo.Context) error {
	caller, err := handlers.Caller(c)
	if err != nil {
		return err
	}
	var req handlers.AnnouncementRequest
	if err := handlers.Bind(c, &req); err != nil {
		return handlers.Error(c, err)
	}

	a, err := h.broadcaster.Update(c.Request().Context(), caller, c.Param("id"), caller.UserID, req.Message)
	if err != nil {
		return handlers.Error(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Delete removes announcement :id.
func (h *AnnouncementHandler) Delete(c echo.Context) error {
	caller, err := handlers.Caller(c)
	if err != nil {
		return err
	}
	if err := h.broadcaster.Remove(c.Request().Context(), caller, c.Param("id"), caller.UserID); err != nil {
		return handlers.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
