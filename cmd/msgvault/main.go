package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/msgvault/internal/app"
	"github.com/ternarybob/msgvault/internal/common"
	"github.com/ternarybob/msgvault/internal/server"
)

func main() {
	configPath := flag.String("config", "msgvault.toml", "Path to TOML configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	host := flag.String("host", "", "HTTP host (overrides config)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	version := common.LoadVersionFromFile()
	if *showVersion {
		fmt.Println(common.GetFullVersion())
		return
	}

	cfg, err := common.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	common.ApplyFlagOverrides(cfg, *port, *host)

	logger := common.InitLogger(cfg)
	common.PrintBanner(version)

	logger.Info().
		Str("version", version).
		Str("environment", cfg.Environment).
		Str("config", *configPath).
		Int("tenants", len(cfg.Tenants)).
		Msg("Starting msgvault")

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start background services")
	}

	srv := server.New(application)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("Server error")
		}
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
