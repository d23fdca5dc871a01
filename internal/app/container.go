// Package app wires the service's components into a dependency container.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"

	"github.com/nfrund/gymhub/internal/config"
	"github.com/nfrund/gymhub/internal/database"
	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/handlers"
	"github.com/nfrund/gymhub/internal/memstore"
	"github.com/nfrund/gymhub/internal/presence"
	"github.com/nfrund/gymhub/internal/pubsub"
	"github.com/nfrund/gymhub/internal/realtime"
	"github.com/nfrund/gymhub/internal/websocket"
)

// Bus is the shared pub/sub bus. It closes when the container shuts down.
type Bus struct {
	pubsub.PubSub
}

// Shutdown closes the bus.
func (b *Bus) Shutdown() error {
	return b.Close()
}

// Tracing holds the bus tracer and flushes it on shutdown.
type Tracing struct {
	Tracer  trace.Tracer
	cleanup func()
}

// Shutdown flushes pending spans.
func (t *Tracing) Shutdown() {
	t.cleanup()
}

// HealthChecks are the dependency probes served on /healthz.
type HealthChecks map[string]handlers.HealthCheck

// NewContainer registers every service provider. Providers are lazy: nothing
// connects until the first Invoke.
func NewContainer(cfg *config.Config, logger *slog.Logger) *do.RootScope {
	i := do.New()
	do.ProvideValue(i, cfg)
	do.ProvideValue(i, logger)

	do.Provide(i, provideTracing)
	do.Provide(i, provideBus)
	do.Provide(i, func(i do.Injector) (pubsub.Publisher, error) { return do.Invoke[*Bus](i) })
	do.Provide(i, func(i do.Injector) (pubsub.Subscriber, error) { return do.Invoke[*Bus](i) })

	do.Provide(i, func(do.Injector) (*prometheus.Registry, error) {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		return reg, nil
	})
	do.Provide(i, func(i do.Injector) (*realtime.Metrics, error) {
		return realtime.NewMetrics(do.MustInvoke[*prometheus.Registry](i)), nil
	})

	switch cfg.StoreDriver {
	case config.StoreMemory:
		provideMemoryStores(i)
	default:
		provideSurrealStores(i)
	}

	provideRealtime(i)
	return i
}

func provideTracing(i do.Injector) (*Tracing, error) {
	cfg := do.MustInvoke[*config.Config](i)
	tracer, cleanup, err := pubsub.SetupOTel(context.Background(), pubsub.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ServiceName: cfg.ServiceName,
		Version:     cfg.Version,
		ZipkinURL:   cfg.ZipkinURL,
	})
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	return &Tracing{Tracer: tracer, cleanup: cleanup}, nil
}

func provideBus(i do.Injector) (*Bus, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*slog.Logger](i)

	if cfg.PubSubDriver == config.PubSubRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b, err := pubsub.NewRedisBridge(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		logger.Info("Using Redis pub/sub", "addr", cfg.RedisAddr)
		return &Bus{PubSub: b}, nil
	}

	tracing, err := do.Invoke[*Tracing](i)
	if err != nil {
		return nil, err
	}
	// Room frames and membership changes must reach subscribers in publish order.
	return &Bus{PubSub: pubsub.NewWatermillBridge(
		pubsub.WithBlockingPublish(),
		pubsub.WithTracer(tracing.Tracer),
		pubsub.WithBusLogger(logger),
	)}, nil
}

func provideMemoryStores(i do.Injector) {
	do.Provide(i, func(i do.Injector) (*memstore.Directory, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.DirectoryFile == "" {
			return memstore.NewDirectory(), nil
		}
		return memstore.LoadDirectory(afero.NewOsFs(), cfg.DirectoryFile)
	})
	do.Provide(i, func(i do.Injector) (domain.AffiliationRepository, error) { return do.Invoke[*memstore.Directory](i) })
	do.Provide(i, func(do.Injector) (domain.MessageRepository, error) { return memstore.NewMessageStore(), nil })
	do.Provide(i, func(do.Injector) (domain.AnnouncementRepository, error) { return memstore.NewAnnouncementStore(), nil })
	do.Provide(i, func(do.Injector) (domain.EventLogRepository, error) { return memstore.NewEventLogStore(), nil })
	do.Provide(i, func(do.Injector) (HealthChecks, error) { return HealthChecks{}, nil })
}

func provideSurrealStores(i do.Injector) {
	do.Provide(i, func(i do.Injector) (*database.Connection, error) {
		cfg := do.MustInvoke[*config.Config](i)
		conn := database.NewConnection(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := conn.Connect(ctx); err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, conn); err != nil {
			_ = conn.Close(ctx)
			return nil, err
		}
		conn.StartMonitoring(context.Background(), 30*time.Second)
		return conn, nil
	})
	do.Provide(i, func(i do.Injector) (domain.AffiliationRepository, error) {
		return database.NewAffiliationStore(do.MustInvoke[*database.Connection](i))
	})
	do.Provide(i, func(i do.Injector) (domain.MessageRepository, error) {
		return database.NewMessageStore(do.MustInvoke[*database.Connection](i))
	})
	do.Provide(i, func(i do.Injector) (domain.AnnouncementRepository, error) {
		return database.NewAnnouncementStore(do.MustInvoke[*database.Connection](i))
	})
	do.Provide(i, func(i do.Injector) (domain.EventLogRepository, error) {
		return database.NewEventLogStore(do.MustInvoke[*database.Connection](i))
	})
	do.Provide(i, func(i do.Injector) (HealthChecks, error) {
		conn := do.MustInvoke[*database.Connection](i)
		return HealthChecks{"database": conn.Ping}, nil
	})
}

func provideRealtime(i do.Injector) {
	do.Provide(i, func(i do.Injector) (*realtime.Registry, error) {
		return realtime.NewRegistry(
			realtime.WithRegistryMetrics(do.MustInvoke[*realtime.Metrics](i)),
			realtime.WithRegistryLogger(do.MustInvoke[*slog.Logger](i)),
			realtime.WithObserver(realtime.NewBusObserver(do.MustInvoke[pubsub.Publisher](i))),
		), nil
	})
	do.Provide(i, func(i do.Injector) (*realtime.Resolver, error) {
		return realtime.NewResolver(do.MustInvoke[domain.AffiliationRepository](i)), nil
	})
	do.Provide(i, func(i do.Injector) (realtime.Emitter, error) {
		return realtime.NewBusEmitter(do.MustInvoke[pubsub.Publisher](i)), nil
	})
	do.Provide(i, func(i do.Injector) (*realtime.Relay, error) {
		pub := do.MustInvoke[pubsub.Publisher](i)
		return realtime.NewRelay(
			do.MustInvoke[domain.MessageRepository](i),
			do.MustInvoke[*realtime.Resolver](i),
			do.MustInvoke[realtime.Emitter](i),
			realtime.WithRelayEvents(pub),
			realtime.WithRelayMetrics(do.MustInvoke[*realtime.Metrics](i)),
			realtime.WithRelayLogger(do.MustInvoke[*slog.Logger](i)),
		), nil
	})
	do.Provide(i, func(i do.Injector) (*realtime.Broadcaster, error) {
		return realtime.NewBroadcaster(
			do.MustInvoke[domain.AnnouncementRepository](i),
			do.MustInvoke[*realtime.Resolver](i),
			do.MustInvoke[realtime.Emitter](i),
			realtime.WithBroadcasterEvents(do.MustInvoke[pubsub.Publisher](i)),
			realtime.WithBroadcasterMetrics(do.MustInvoke[*realtime.Metrics](i)),
		), nil
	})
	do.Provide(i, func(i do.Injector) (*realtime.Dispatcher, error) {
		return realtime.NewDispatcher(
			do.MustInvoke[*realtime.Registry](i),
			do.MustInvoke[*realtime.Resolver](i),
			do.MustInvoke[*realtime.Relay](i),
		), nil
	})
	do.Provide(i, func(i do.Injector) (*presence.Service, error) {
		return presence.NewService(
			realtime.NewLocalEmitter(do.MustInvoke[*realtime.Registry](i)),
			presence.WithLogger(do.MustInvoke[*slog.Logger](i).With("service", "presence")),
		), nil
	})
	do.Provide(i, func(i do.Injector) (*websocket.Bridge, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return websocket.NewBridge(websocket.BridgeDependencies{
			Registry:   do.MustInvoke[*realtime.Registry](i),
			Dispatcher: do.MustInvoke[*realtime.Dispatcher](i),
			Publisher:  do.MustInvoke[pubsub.Publisher](i),
		},
			websocket.WithSendBuffer(cfg.WSSendBuffer),
			websocket.WithOriginPatterns(cfg.AllowedOrigins()...),
			websocket.WithLogger(do.MustInvoke[*slog.Logger](i)),
		), nil
	})
}
