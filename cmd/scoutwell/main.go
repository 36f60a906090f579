package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wisbric/scoutwell/internal/app"
	"github.com/wisbric/scoutwell/internal/config"
)

func main() {
	mode := flag.String("mode", "", "run mode: server, worker, or collector (overrides SCOUTWELL_MODE)")
	flag.Parse()

	// Optional: a missing .env is normal in deployed environments where
	// config comes from the process environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("loading .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		os.Exit(1)
	}

	if *mode != "" {
		cfg.Mode = *mode
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
