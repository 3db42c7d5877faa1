package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alertavivo/relay/internal/app"
	"github.com/alertavivo/relay/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "alertavivo relay:", err)
		os.Exit(1)
	}
}

// run keeps the deferred shutdown inside a normal return path so the
// database is closed and logs are flushed before the process exits.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	relay, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer relay.Shutdown()

	return relay.Run(ctx)
}
