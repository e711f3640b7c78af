package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/ternarybob/msgvault/internal/common"
	"github.com/ternarybob/msgvault/internal/models"
	"github.com/ternarybob/msgvault/internal/services/extractor"
)

// The scraper runs as a detached child of the server. Everything it
// prints lands in the tenant run log, which the stream endpoints tail,
// so stdout is the progress channel.
func main() {
	jobPath := flag.String("config", "", "Path to the scrape job file written by the server")
	level := flag.String("level", "info", "Log level")
	flag.Parse()

	logger := common.NewRunLogger(*level)

	if *jobPath == "" {
		logger.Fatal().Msg("--config is required")
	}

	data, err := os.ReadFile(*jobPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *jobPath).Msg("Failed to read job file")
	}
	var job models.ScrapeJob
	if err := json.Unmarshal(data, &job); err != nil {
		logger.Fatal().Err(err).Msg("Failed to parse job file")
	}

	cfg := common.NewDefaultConfig()
	scraperCfg := cfg.Scraper
	if job.TargetURL != "" {
		scraperCfg.TargetURL = job.TargetURL
	}
	if job.Site != "" {
		scraperCfg.Site = job.Site
	}
	if job.ListingURLBase != "" {
		scraperCfg.ListingURLBase = job.ListingURLBase
	}
	if job.MaxPages > 0 {
		scraperCfg.MaxPages = job.MaxPages
	}
	if job.MaxConvs > 0 {
		scraperCfg.MaxConversations = job.MaxConvs
	}
	scraperCfg.Headless = job.Headless

	logger.Info().
		Str("run_id", job.RunID).
		Str("tenant", job.Tenant).
		Str("target", scraperCfg.TargetURL).
		Int("max_conversations", scraperCfg.MaxConversations).
		Msg("Scrape run starting")

	ext := extractor.New(&scraperCfg, &job, logger)
	result, err := ext.Run(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("Run aborted")
	}
	if result != nil {
		logger.Info().
			Int("total", result.Total).
			Int("succeeded", result.Succeeded).
			Int("failed", result.Failed).
			Msg(fmt.Sprintf("✨ TERMINE: %d/%d conversations archivees, %d en echec",
				result.Succeeded, result.Total, result.Failed))
	}
	if err != nil {
		os.Exit(1)
	}
}
