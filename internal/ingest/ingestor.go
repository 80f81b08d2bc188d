// Package ingest runs topic searches and persists the discovered papers.
package ingest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/paperdesk/research-assistant/internal/observability"
	"github.com/paperdesk/research-assistant/internal/repository"
	"github.com/paperdesk/research-assistant/internal/search"
)

// Ingestor searches a topic and writes each unique paper to the store.
type Ingestor struct {
	pipeline *search.Pipeline
	papers   repository.PaperRepository
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// New creates an ingestor over the given pipeline and repository.
func New(pipeline *search.Pipeline, papers repository.PaperRepository, logger zerolog.Logger, metrics *observability.Metrics) *Ingestor {
	return &Ingestor{
		pipeline: pipeline,
		papers:   papers,
		logger:   logger,
		metrics:  metrics,
	}
}

// Result summarizes an ingest run.
type Result struct {
	// Discovered is the number of unique papers the search produced.
	Discovered int `json:"discovered"`

	// Stored is the number of papers successfully written to the store.
	Stored int `json:"stored"`

	// Failed is the number of papers whose write failed.
	Failed int `json:"failed"`

	// Duplicates is the number of results the search dropped as repeats.
	Duplicates int `json:"duplicates"`

	// YearsAbandoned lists years the search gave up on after source errors.
	YearsAbandoned []int `json:"years_abandoned,omitempty"`
}

// Run searches the topic and upserts every discovered paper in discovery
// order. A failed upsert is logged and skipped; the remaining papers are
// still written. The error return is reserved for failures that stop the
// run outright (invalid input, context cancellation).
func (i *Ingestor) Run(ctx context.Context, topic string, maxResults int) (*Result, error) {
	i.metrics.RecordIngestStarted()

	searchResult, err := i.pipeline.SearchTopic(ctx, topic, maxResults)
	if err != nil {
		i.metrics.RecordIngestFailed()
		return nil, err
	}

	result := &Result{
		Discovered:     len(searchResult.Papers),
		Duplicates:     searchResult.Duplicates,
		YearsAbandoned: searchResult.YearsAbandoned,
	}

	for _, paper := range searchResult.Papers {
		if err := ctx.Err(); err != nil {
			i.metrics.RecordIngestFailed()
			return nil, err
		}

		if _, err := i.papers.Upsert(ctx, paper); err != nil {
			result.Failed++
			i.metrics.RecordUpsertFailed()
			paperLogger := observability.WithPaperContext(i.logger, paper.PaperID, paper.URL)
			paperLogger.Warn().Err(err).Msg("paper upsert failed, skipping")
			continue
		}
		result.Stored++
		i.metrics.RecordPaperUpserted()
	}

	i.metrics.RecordIngestCompleted()
	i.logger.Info().
		Str("topic", topic).
		Int("discovered", result.Discovered).
		Int("stored", result.Stored).
		Int("failed", result.Failed).
		Msg("ingest completed")

	return result, nil
}
