package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nfrund/gymhub/internal/app"
	"github.com/nfrund/gymhub/internal/config"
	"github.com/nfrund/gymhub/internal/logging"
	"github.com/nfrund/gymhub/internal/server"
)

var envFiles []string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	Long: `Run the server until SIGINT or SIGTERM.

Configuration comes from the environment, optionally seeded from .env files.
STORE_DRIVER selects SurrealDB ("surreal") or in-memory stores ("memory");
PUBSUB_DRIVER selects the in-process bus ("memory") or Redis ("redis").`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return Serve(ctx, envFiles...)
	},
}

// Serve loads configuration, wires the container and serves until ctx ends.
func Serve(ctx context.Context, files ...string) error {
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	if cfg.Version == "dev" {
		cfg.Version = version
	}
	logger := logging.New(cfg.LogFormat, cfg.LogLevel)

	i := app.NewContainer(cfg, logger)
	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	// Every subscription exists before the directory watch or live query can
	// publish: the in-process bus blocks publishers while a subscribe waits.
	s := server.New(cfg, i, app.NewModules())
	if err := s.RegisterRoutes(bgCtx); err != nil {
		_ = i.Shutdown()
		return fmt.Errorf("register routes: %w", err)
	}
	if err := app.StartBackground(bgCtx, i); err != nil {
		_ = i.Shutdown()
		return fmt.Errorf("start background services: %w", err)
	}

	logger.Info("Starting gymhub", "addr", cfg.Addr, "store", cfg.StoreDriver, "pubsub", cfg.PubSubDriver)
	return s.Start(ctx)
}

func init() {
	serveCmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "Additional .env files to load (default .env)")
	rootCmd.AddCommand(serveCmd)
}
