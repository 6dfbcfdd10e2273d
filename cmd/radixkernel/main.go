// Command radixkernel runs transaction manifests against a substate
// store snapshot, replays them to check for nondeterminism, and can
// serve a debug websocket stream of the kernel's execution trace.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/radixdlt/radixkernel/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCommand(os.Args[2:])
	case "replay":
		replayCommand(os.Args[2:])
	case "serve":
		serveCommand(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: radixkernel <run|replay|serve> [flags]")
}

func setupLogger(cfg *config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig(path string) *config.Config {
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	return cfg
}

func waitForSignal(ctx context.Context, cancel context.CancelFunc, logger zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info().Msg("received shutdown signal")
	case <-ctx.Done():
	}
	cancel()
}
