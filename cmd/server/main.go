// Package main provides the entry point for the research assistant API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paperdesk/research-assistant/internal/assistant"
	"github.com/paperdesk/research-assistant/internal/config"
	"github.com/paperdesk/research-assistant/internal/database"
	"github.com/paperdesk/research-assistant/internal/ingest"
	"github.com/paperdesk/research-assistant/internal/llm"
	"github.com/paperdesk/research-assistant/internal/observability"
	"github.com/paperdesk/research-assistant/internal/papersources/arxiv"
	"github.com/paperdesk/research-assistant/internal/pdf"
	"github.com/paperdesk/research-assistant/internal/repository"
	"github.com/paperdesk/research-assistant/internal/search"
	httpserver "github.com/paperdesk/research-assistant/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("research-assistant server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	metrics := observability.NewMetrics("research_assistant")

	// Paper store.
	paperRepo := repository.NewPgPaperRepository(db)

	// arXiv search client and pipeline.
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

	// LLM generator and the research agents.
	generator, err := llm.NewGenerator(llm.FactoryConfig{
		Provider:    cfg.LLM.Provider,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
		Ollama: llm.OllamaConfig{
			Model:   cfg.LLM.Ollama.Model,
			BaseURL: cfg.LLM.Ollama.BaseURL,
		},
		OpenAI: llm.OpenAIConfig{
			APIKey:  cfg.LLM.OpenAI.APIKey,
			Model:   cfg.LLM.OpenAI.Model,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
		},
		Anthropic: llm.AnthropicConfig{
			APIKey:  cfg.LLM.Anthropic.APIKey,
			Model:   cfg.LLM.Anthropic.Model,
			BaseURL: cfg.LLM.Anthropic.BaseURL,
		},
	})
	if err != nil {
		return fmt.Errorf("create llm generator: %w", err)
	}
	logger.Info().
		Str("provider", generator.Provider()).
		Str("model", generator.Model()).
		Msg("llm generator ready")

	pdfService := pdf.NewService(pdf.NewDownloader(pdf.DownloaderConfig{
		Timeout: cfg.PDF.Timeout,
		MaxSize: cfg.PDF.MaxSizeBytes,
	}), 0, logger, metrics)

	qnaAgent := assistant.NewQnAAgent(generator, pdfService, nil, cfg.PDF.ContextRunes, logger, metrics)
	futureWorksAgent := assistant.NewFutureWorksAgent(generator, logger, metrics)
	summarizeAgent := assistant.NewSummarizeAgent(generator, logger, metrics)

	// HTTP REST API server.
	httpCfg := httpserver.Config{
		Address:          cfg.Server.HTTPAddress(),
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      2 * time.Minute,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
		IngestMaxResults: cfg.Search.DefaultMaxResults,
	}

	httpSrv := httpserver.NewServer(
		httpCfg,
		paperRepo,
		ingestor,
		qnaAgent,
		futureWorksAgent,
		summarizeAgent,
		db,
		logger,
	)

	// Prometheus metrics on a dedicated port.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("research-assistant is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down research-assistant")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("research-assistant shutdown complete")
	return nil
}
