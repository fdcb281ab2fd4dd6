// Command gangactl inspects and plays the portal's gamification state from a terminal,
// against the same storage the server uses.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/bootstrap"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/config"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(openFromEnv).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openFromEnv wires the portal exactly like the server does. Logs go to stderr so command
// output stays clean.
func openFromEnv(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	logger := logging.NewLoggerTo(os.Stderr, "gangactl", cfg.LogLevel)
	return bootstrap.New(ctx, cfg, logger)
}
