package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/paperdesk/research-assistant/internal/domain"
	"github.com/paperdesk/research-assistant/internal/llm"
	"github.com/paperdesk/research-assistant/internal/observability"
)

// KeyPoints pairs a paper title with its extracted highlights.
type KeyPoints struct {
	Title     string `json:"title"`
	KeyPoints string `json:"key_points"`
}

// SummarizeAgent produces summaries across a set of papers, typically the
// papers published in one calendar year.
type SummarizeAgent struct {
	generator llm.Generator
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// NewSummarizeAgent creates a SummarizeAgent.
func NewSummarizeAgent(generator llm.Generator, logger zerolog.Logger, metrics *observability.Metrics) *SummarizeAgent {
	return &SummarizeAgent{
		generator: generator,
		logger:    logger.With().Str("component", "summarize_agent").Logger(),
		metrics:   metrics,
	}
}

// SummarizeFindings produces a high-level summary of the main findings
// across the papers.
func (a *SummarizeAgent) SummarizeFindings(ctx context.Context, papers []*domain.Paper) (string, error) {
	if len(papers) == 0 {
		return "", domain.NewValidationError("papers", "at least one paper is required")
	}

	prompt := fmt.Sprintf(
		"Summaries of papers published:\n\n%s\n\n"+
			"Provide a high-level summary highlighting the main findings across these papers.",
		combinedSummaries(papers),
	)

	return a.generate(ctx, "summarize", prompt)
}

// FutureWorksFromYear suggests research directions spanning all the papers.
func (a *SummarizeAgent) FutureWorksFromYear(ctx context.Context, papers []*domain.Paper) (string, error) {
	if len(papers) == 0 {
		return "", domain.NewValidationError("papers", "at least one paper is required")
	}

	prompt := fmt.Sprintf(
		"Summaries of papers published:\n\n%s\n\n"+
			"Based on the above summaries, suggest potential improvements, unexplored areas, "+
			"and future research directions across these studies.",
		combinedSummaries(papers),
	)

	return a.generate(ctx, "year_future_works", prompt)
}

// ExtractKeyPoints extracts the most important highlights from each paper,
// one generation per paper, in input order.
func (a *SummarizeAgent) ExtractKeyPoints(ctx context.Context, papers []*domain.Paper) ([]KeyPoints, error) {
	if len(papers) == 0 {
		return nil, domain.NewValidationError("papers", "at least one paper is required")
	}

	results := make([]KeyPoints, 0, len(papers))
	for _, paper := range papers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prompt := fmt.Sprintf(
			"Title: %s\nSummary: %s\n\n"+
				"Extract the key points or most important highlights from this paper.",
			paper.Title, paper.Summary,
		)

		points, err := a.generate(ctx, "key_points", prompt)
		if err != nil {
			return nil, fmt.Errorf("key points for paper %s: %w", paper.PaperID, err)
		}
		results = append(results, KeyPoints{Title: paper.Title, KeyPoints: points})
	}

	return results, nil
}

func (a *SummarizeAgent) generate(ctx context.Context, operation, prompt string) (string, error) {
	start := time.Now()
	out, err := a.generator.Generate(ctx, llm.Request{Prompt: prompt})
	if err != nil {
		a.metrics.RecordLLMRequestFailed(operation, a.generator.Model(), llmErrorType(err))
		return "", domain.NewExternalAPIError(a.generator.Provider(), 0, "generation failed", err)
	}
	a.metrics.RecordLLMRequest(operation, a.generator.Model(), time.Since(start).Seconds())
	return out, nil
}

// combinedSummaries joins the papers' summaries with blank lines.
func combinedSummaries(papers []*domain.Paper) string {
	parts := make([]string, 0, len(papers))
	for _, p := range papers {
		parts = append(parts, p.Summary)
	}
	return strings.Join(parts, "\n\n")
}
