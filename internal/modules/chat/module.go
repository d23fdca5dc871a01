package chat

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/module"
	"github.com/nfrund/gymhub/internal/realtime"
)

// ChatModule serves message history, contacts and gym announcements.
type ChatModule struct {
	module.BaseModule
}

// New creates the chat module.
func New() *ChatModule {
	return &ChatModule{}
}

// Name returns the module name.
func (m *ChatModule) Name() string {
	return "chat"
}

// Boot sets up the chat routes. The server mounts us under /api/chat.
func (m *ChatModule) Boot(ctx context.Context, g *echo.Group, i do.Injector) error {
	relay, err := do.Invoke[*realtime.Relay](i)
	if err != nil {
		return err
	}
	resolver, err := do.Invoke[*realtime.Resolver](i)
	if err != nil {
		return err
	}
	directory, err := do.Invoke[domain.AffiliationRepository](i)
	if err != nil {
		return err
	}
	broadcaster, err := do.Invoke[*realtime.Broadcaster](i)
	if err != nil {
		return err
	}

	messages := NewHandler(relay, resolver, directory)
	g.GET("/messages/:gymId/:counterpartId", messages.History)
	g.GET("/contacts", messages.Contacts)

	announcements := NewAnnouncementHandler(broadcaster, resolver)
	g.GET("/announcements", announcements.List)
	g.GET("/announcements/gym", announcements.ListOwn)
	g.POST("/announcements", announcements.Create)
	g.PUT("/announcements/:id", announcements.Update)
	g.DELETE("/announcements/:id", announcements.Delete)

	slog.Info("ChatModule booted")
	return nil
}
