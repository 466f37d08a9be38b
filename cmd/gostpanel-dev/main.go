package main

import (
	"fmt"
	"os"

	"github.com/gostpanel/console/internal/config"
	"github.com/gostpanel/console/internal/logger"
	"github.com/gostpanel/console/internal/server"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	srv, err := server.New(cfg, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create dev panel")
	}

	log.Info().
		Str("version", version).
		Str("database", cfg.Database.URL).
		Bool("demo", cfg.Seed.Demo).
		Msg("Starting gostpanel dev panel...")

	// Start HTTP server (this blocks)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Dev panel failed to start")
	}
}
