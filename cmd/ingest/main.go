// Package main provides a CLI tool that runs a single topic ingestion.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/paperdesk/research-assistant/internal/config"
	"github.com/paperdesk/research-assistant/internal/database"
	"github.com/paperdesk/research-assistant/internal/ingest"
	"github.com/paperdesk/research-assistant/internal/observability"
	"github.com/paperdesk/research-assistant/internal/papersources/arxiv"
	"github.com/paperdesk/research-assistant/internal/repository"
	"github.com/paperdesk/research-assistant/internal/search"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	topic := flag.String("topic", "", "Topic to search for (required)")
	maxResults := flag.Int("max-results", 0, "Cap on papers to fetch (0 uses the configured default)")
	flag.Parse()

	if strings.TrimSpace(*topic) == "" {
		flag.Usage()
		return fmt.Errorf("-topic is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "ingest-cli").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	metrics := observability.NewMetrics("research_assistant_ingest")
	paperRepo := repository.NewPgPaperRepository(db)

	arxivClient := arxiv.New(arxiv.Config{
		BaseURL:   cfg.ArXiv.BaseURL,
		Timeout:   cfg.ArXiv.Timeout,
		RateLimit: cfg.ArXiv.RateLimit,
		BurstSize: cfg.ArXiv.BurstSize,
	})

	pipeline := search.New(arxivClient, search.Config{
		StartYear: cfg.Search.StartYear,
		BatchSize: cfg.Search.BatchSize,
	}, logger, metrics)

	ingestor := ingest.New(pipeline, paperRepo, logger, metrics)

	limit := *maxResults
	if limit <= 0 {
		limit = cfg.Search.DefaultMaxResults
	}

	logger.Info().Str("topic", *topic).Int("max_results", limit).Msg("starting ingest run")

	result, err := ingestor.Run(ctx, *topic, limit)
	if err != nil {
		return fmt.Errorf("ingest %q: %w", *topic, err)
	}

	fmt.Printf("discovered: %d\nstored:     %d\nfailed:     %d\nduplicates: %d\n",
		result.Discovered, result.Stored, result.Failed, result.Duplicates)
	if len(result.YearsAbandoned) > 0 {
		fmt.Printf("years abandoned: %v\n", result.YearsAbandoned)
	}
	return nil
}
