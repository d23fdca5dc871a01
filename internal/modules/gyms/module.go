package gyms

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/handlers"
	"github.com/nfrund/gymhub/internal/module"
	"github.com/nfrund/gymhub/internal/presence"
	"github.com/nfrund/gymhub/internal/pubsub"
	"github.com/nfrund/gymhub/internal/realtime"
)

// GymsModule lets trainers and members leave their gym and exposes room
// presence.
type GymsModule struct {
	module.BaseModule
}

// New creates the gyms module.
func New() *GymsModule {
	return &GymsModule{}
}

// Name returns the module name.
func (m *GymsModule) Name() string {
	return "gyms"
}

// Boot sets up the gyms routes under /api/gyms.
func (m *GymsModule) Boot(ctx context.Context, g *echo.Group, i do.Injector) error {
	directory, err := do.Invoke[domain.AffiliationRepository](i)
	if err != nil {
		return err
	}
	registry, err := do.Invoke[*realtime.Registry](i)
	if err != nil {
		return err
	}
	bus, err := do.Invoke[pubsub.Publisher](i)
	if err != nil {
		return err
	}
	resolver, err := do.Invoke[*realtime.Resolver](i)
	if err != nil {
		return err
	}
	svc, err := do.Invoke[*presence.Service](i)
	if err != nil {
		return err
	}

	h := NewHandler(directory, registry, bus)
	g.POST("/leave", h.Leave)
	g.GET("/:gymId/presence", handlers.NewPresenceHandler(svc, resolver).GetPresence)

	slog.Info("GymsModule booted")
	return nil
}
