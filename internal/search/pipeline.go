// Package search implements the year-partitioned topic search pipeline.
//
// A topic search walks every calendar year from the configured start year
// through the current year, fetching result pages from the paper source and
// deduplicating on the content-derived paper ID. A source failure abandons
// only the year being fetched; the remaining years still run.
package search

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/paperdesk/research-assistant/internal/domain"
	"github.com/paperdesk/research-assistant/internal/observability"
	"github.com/paperdesk/research-assistant/internal/papersources"
)

// DefaultStartYear is the first calendar year searched when none is configured.
const DefaultStartYear = 2019

// DefaultBatchSize is the page size requested from the source.
const DefaultBatchSize = 100

// Config holds pipeline configuration.
type Config struct {
	// StartYear is the first calendar year of the search. Zero means
	// DefaultStartYear.
	StartYear int

	// BatchSize is the number of results requested per source call.
	// Zero means DefaultBatchSize.
	BatchSize int
}

// Pipeline drives a year-partitioned topic search against a paper source.
type Pipeline struct {
	source    papersources.Source
	logger    zerolog.Logger
	metrics   *observability.Metrics
	startYear int
	batchSize int
	now       func() time.Time
}

// New creates a search pipeline over the given source.
func New(source papersources.Source, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Pipeline {
	if cfg.StartYear == 0 {
		cfg.StartYear = DefaultStartYear
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	return &Pipeline{
		source:    source,
		logger:    logger,
		metrics:   metrics,
		startYear: cfg.StartYear,
		batchSize: cfg.BatchSize,
		now:       time.Now,
	}
}

// Result holds the outcome of a topic search.
type Result struct {
	// Papers are the unique papers found, in discovery order.
	Papers []*domain.Paper

	// Duplicates is the number of results dropped because their paper ID
	// was already seen during this search.
	Duplicates int

	// YearsAbandoned lists the years whose fetch failed partway.
	YearsAbandoned []int

	// Duration is the wall time of the whole search.
	Duration time.Duration
}

// SearchTopic searches the source for the topic, one calendar year at a
// time from the start year through the current year, and returns the
// deduplicated papers in discovery order. maxResults caps the total
// number of unique papers collected; zero or negative means no cap.
//
// Duplicate suppression is scoped to this call: a paper seen in an
// earlier year of the same search is not collected again, but nothing
// already in the store is consulted.
func (p *Pipeline) SearchTopic(ctx context.Context, topic string, maxResults int) (*Result, error) {
	if topic == "" {
		return nil, domain.NewValidationError("topic", "topic is required")
	}

	start := p.now()
	logger := observability.WithSearchContext(p.logger, topic, p.source.Name())
	logger.Info().Int("start_year", p.startYear).Int("max_results", maxResults).Msg("topic search started")
	p.metrics.RecordSearchStarted(p.source.Name())

	seen := make(map[string]struct{})
	result := &Result{Papers: make([]*domain.Paper, 0)}

	currentYear := p.now().Year()
	for year := p.startYear; year <= currentYear; year++ {
		if err := ctx.Err(); err != nil {
			p.metrics.RecordSearchFailed(p.source.Name(), p.now().Sub(start).Seconds())
			return nil, err
		}

		if err := p.searchYear(ctx, topic, year, maxResults, seen, result); err != nil {
			if ctx.Err() != nil {
				p.metrics.RecordSearchFailed(p.source.Name(), p.now().Sub(start).Seconds())
				return nil, ctx.Err()
			}
			// The year is abandoned; later years still run.
			yearLogger := observability.WithYearContext(logger, year)
			yearLogger.Warn().Err(err).Msg("year abandoned after source error")
			p.metrics.RecordYearAbandoned(p.source.Name())
			result.YearsAbandoned = append(result.YearsAbandoned, year)
			continue
		}

		if maxResults > 0 && len(result.Papers) >= maxResults {
			logger.Info().Int("papers", len(result.Papers)).Msg("result cap reached")
			break
		}
	}

	result.Duration = p.now().Sub(start)
	p.metrics.RecordSearchCompleted(p.source.Name(), len(result.Papers), result.Duration.Seconds())
	logger.Info().
		Int("papers", len(result.Papers)).
		Int("duplicates", result.Duplicates).
		Ints("years_abandoned", result.YearsAbandoned).
		Dur("duration", result.Duration).
		Msg("topic search completed")

	return result, nil
}

// searchYear pages through one calendar year, folding unique papers into
// the running result. It stops on an empty batch, on a batch that adds no
// new papers, or when the global cap is reached.
func (p *Pipeline) searchYear(ctx context.Context, topic string, year, maxResults int, seen map[string]struct{}, result *Result) error {
	logger := observability.WithYearContext(observability.WithSearchContext(p.logger, topic, p.source.Name()), year)

	offset := 0
	for {
		batch, err := p.source.Search(ctx, papersources.SearchParams{
			Query:      topic,
			Year:       year,
			MaxResults: p.batchSize,
			Offset:     offset,
		})
		if err != nil {
			return err
		}
		p.metrics.RecordSearchBatch(p.source.Name())

		if len(batch.Papers) == 0 {
			logger.Debug().Int("offset", offset).Msg("empty batch, year exhausted")
			return nil
		}

		added := 0
		for _, paper := range batch.Papers {
			if paper.PaperID == "" {
				paper.Identify()
			}
			if _, dup := seen[paper.PaperID]; dup {
				result.Duplicates++
				p.metrics.RecordPaperDuplicate()
				continue
			}
			seen[paper.PaperID] = struct{}{}
			result.Papers = append(result.Papers, paper)
			added++

			if maxResults > 0 && len(result.Papers) >= maxResults {
				p.metrics.RecordPapersDiscovered(added)
				logger.Debug().Int("papers", len(result.Papers)).Msg("cap reached mid-batch")
				return nil
			}
		}
		p.metrics.RecordPapersDiscovered(added)

		// A batch of nothing but repeats means the source is not moving
		// forward; stop rather than loop on the same page.
		if added == 0 {
			logger.Debug().Int("offset", offset).Msg("no new papers in batch, stopping year")
			return nil
		}

		if !batch.HasMore {
			return nil
		}
		offset = batch.NextOffset
	}
}
