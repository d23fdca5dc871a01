package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nfrund/gymhub/cmd/gymhub/cmd"
)

// main runs the server without the CLI, for container images.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Serve(ctx); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}
