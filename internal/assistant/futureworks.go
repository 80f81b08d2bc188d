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

// FutureWorksAgent suggests research directions building on a paper's
// findings.
type FutureWorksAgent struct {
	generator llm.Generator
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// NewFutureWorksAgent creates a FutureWorksAgent.
func NewFutureWorksAgent(generator llm.Generator, logger zerolog.Logger, metrics *observability.Metrics) *FutureWorksAgent {
	return &FutureWorksAgent{
		generator: generator,
		logger:    logger.With().Str("component", "future_works_agent").Logger(),
		metrics:   metrics,
	}
}

// GenerateFutureWork suggests improvements, unexplored areas and future
// research directions for the paper.
func (a *FutureWorksAgent) GenerateFutureWork(ctx context.Context, paper *domain.Paper) (string, error) {
	if paper == nil {
		return "", domain.NewValidationError("paper", "paper is required")
	}

	prompt := fmt.Sprintf(
		"Title: %s\nSummary: %s\n\n"+
			"Based on the above summary, suggest potential improvements, unexplored areas, "+
			"and future research directions.",
		paper.Title, paper.Summary,
	)

	return a.generate(ctx, prompt)
}

// CreateReviewPaper compiles a review document over the papers, with each
// paper's metadata followed by generated future-work suggestions.
func (a *FutureWorksAgent) CreateReviewPaper(ctx context.Context, papers []*domain.Paper) (string, error) {
	if len(papers) == 0 {
		return "", domain.NewValidationError("papers", "at least one paper is required")
	}

	var b strings.Builder
	b.WriteString("Review Paper: Future Directions in Research\n\n")

	for i, paper := range papers {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		fmt.Fprintf(&b, "### %d. %s\n", i+1, paper.Title)
		fmt.Fprintf(&b, "**Authors**: %s\n", strings.Join(paper.Authors, ", "))
		fmt.Fprintf(&b, "**Published Date**: %s\n", paper.PublishedDate.Format("2006-01-02"))
		fmt.Fprintf(&b, "**Summary**: %s\n\n", paper.Summary)

		directions, err := a.GenerateFutureWork(ctx, paper)
		if err != nil {
			return "", fmt.Errorf("future work for paper %s: %w", paper.PaperID, err)
		}
		fmt.Fprintf(&b, "**Future Work Suggestions**:\n%s\n\n", directions)
	}

	a.logger.Info().Int("papers", len(papers)).Msg("review paper compiled")
	return b.String(), nil
}

func (a *FutureWorksAgent) generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := a.generator.Generate(ctx, llm.Request{Prompt: prompt})
	if err != nil {
		a.metrics.RecordLLMRequestFailed("future_works", a.generator.Model(), llmErrorType(err))
		return "", domain.NewExternalAPIError(a.generator.Provider(), 0, "generation failed", err)
	}
	a.metrics.RecordLLMRequest("future_works", a.generator.Model(), time.Since(start).Seconds())
	return out, nil
}
