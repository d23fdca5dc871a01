package chat

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/handlers"
	"github.com/nfrund/gymhub/internal/realtime"
)

// Handler serves direct message history and contact lists.
type Handler struct {
	relay     *realtime.Relay
	resolver  *realtime.Resolver
	directory domain.AffiliationRepository
}

// NewHandler creates a chat handler.
func NewHandler(relay *realtime.Relay, resolver *realtime.Resolver, directory domain.AffiliationRepository) *Handler {
	return &Handler{relay: relay, resolver: resolver, directory: directory}
}

// History returns the conversation between the caller and :counterpartId in
// :gymId, oldest first.
func (h *Handler) History(c echo.Context) error {
	caller, err := handlers.Caller(c)
	if err != nil {
		return err
	}
	var p handlers.HistoryParams
	if err := handlers.Bind(c, &p); err != nil {
		return handlers.Error(c, err)
	}

	msgs, err := h.relay.History(c.Request().Context(), caller, p.GymID, p.CounterpartID)
	if err != nil {
		return handlers.Error(c, err)
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	return c.JSON(http.StatusOK, msgs)
}

// Contact is someone the caller may message.
type Contact struct {
	UserID string `json:"userId"`
	Model  string `json:"model"`
	Name   string `json:"name,omitempty"`
}

// Contacts lists who the caller may message in their gym: trainers for gyms
// and members, the gym and its members for trainers.
func (h *Handler) Contacts(c echo.Context) error {
	caller, err := handlers.Caller(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	gymID, err := h.resolver.ResolveIdentity(ctx, caller)
	if err != nil {
		return handlers.Error(c, err)
	}

	contacts := []Contact{}
	for _, role := range domain.ContactRoles(caller.Role) {
		if role == domain.RoleGym {
			contacts = append(contacts, Contact{UserID: gymID, Model: domain.RoleGym.Model()})
			continue
		}
		affs, err := h.directory.ListAffiliated(ctx, gymID, role)
		if err != nil {
			return handlers.Error(c, err)
		}
		contacts = append(contacts, lo.FilterMap(affs, func(a domain.Affiliation, _ int) (Contact, bool) {
			return Contact{UserID: a.UserID, Model: a.Role.Model(), Name: a.Name}, a.UserID != caller.UserID
		})...)
	}
	return c.JSON(http.StatusOK, map[string]any{"gymId": gymID, "contacts": contacts})
}
