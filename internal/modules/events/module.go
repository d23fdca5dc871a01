// Package events keeps an audit log of channel activity per gym.
package events

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/handlers"
	"github.com/nfrund/gymhub/internal/module"
	"github.com/nfrund/gymhub/internal/pubsub"
)

// DefaultLimit is the number of rows returned when the client gives none.
const DefaultLimit = 50

// EventsModule records audit rows and serves them to gym accounts.
type EventsModule struct {
	module.BaseModule
	cancel context.CancelFunc
}

// New creates the events module.
func New() *EventsModule {
	return &EventsModule{}
}

// Name returns the module name.
func (m *EventsModule) Name() string {
	return "events"
}

// Boot starts the recorder and mounts GET /api/events.
func (m *EventsModule) Boot(ctx context.Context, g *echo.Group, i do.Injector) error {
	store, err := do.Invoke[domain.EventLogRepository](i)
	if err != nil {
		return err
	}
	sub, err := do.Invoke[pubsub.Subscriber](i)
	if err != nil {
		return err
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := NewRecorder(store, slog.Default()).Start(subCtx, sub); err != nil {
		cancel()
		return err
	}
	m.cancel = cancel

	g.GET("", func(c echo.Context) error { return list(c, store) })

	slog.Info("EventsModule booted")
	return nil
}

// Shutdown stops the recorder's subscriptions.
func (m *EventsModule) Shutdown(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}

func list(c echo.Context, store domain.EventLogRepository) error {
	caller, err := handlers.Caller(c)
	if err != nil {
		return err
	}
	if caller.Role != domain.RoleGym {
		return handlers.Error(c, domain.ErrForbidden)
	}
	var q handlers.EventsQuery
	if err := handlers.Bind(c, &q); err != nil {
		return handlers.Error(c, err)
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}

	rows, err := store.ListEvents(c.Request().Context(), caller.UserID, q.Limit)
	if err != nil {
		return handlers.Error(c, err)
	}
	if rows == nil {
		rows = []*domain.EventLog{}
	}
	return c.JSON(http.StatusOK, rows)
}
