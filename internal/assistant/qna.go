package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/paperdesk/research-assistant/internal/domain"
	"github.com/paperdesk/research-assistant/internal/llm"
	"github.com/paperdesk/research-assistant/internal/observability"
)

// DefaultContextRunes caps how much extracted PDF text is included in the
// QnA prompt.
const DefaultContextRunes = 2000

// TextExtractor retrieves the plain text of a paper's PDF.
type TextExtractor interface {
	ExtractFromURL(ctx context.Context, url string) (string, error)
}

// QnAAgent answers questions about a single paper.
//
// Text questions are answered from the paper's title and summary, enriched
// with the opening of the PDF full text when the paper carries a PDF link.
// Image questions are routed to a metadata-only prompt since the text
// context cannot show figures.
type QnAAgent struct {
	generator    llm.Generator
	extractor    TextExtractor
	classifier   QuestionClassifier
	contextRunes int
	logger       zerolog.Logger
	metrics      *observability.Metrics
}

// NewQnAAgent creates a QnAAgent. extractor may be nil, in which case PDF
// full text is never fetched. contextRunes <= 0 uses DefaultContextRunes.
func NewQnAAgent(generator llm.Generator, extractor TextExtractor, classifier QuestionClassifier, contextRunes int, logger zerolog.Logger, metrics *observability.Metrics) *QnAAgent {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	if contextRunes <= 0 {
		contextRunes = DefaultContextRunes
	}
	return &QnAAgent{
		generator:    generator,
		extractor:    extractor,
		classifier:   classifier,
		contextRunes: contextRunes,
		logger:       logger.With().Str("component", "qna_agent").Logger(),
		metrics:      metrics,
	}
}

// AnswerQuestion answers the question about the paper.
func (a *QnAAgent) AnswerQuestion(ctx context.Context, paper *domain.Paper, question string) (string, error) {
	if paper == nil {
		return "", domain.NewValidationError("paper", "paper is required")
	}
	if strings.TrimSpace(question) == "" {
		return "", domain.NewValidationError("question", "question must not be empty")
	}

	class := a.classifier.Classify(question)

	var prompt string
	if class == ImageQuestion {
		prompt = a.buildImagePrompt(paper, question)
	} else {
		prompt = a.buildTextPrompt(ctx, paper, question)
	}

	a.logger.Debug().
		Str("paper_id", paper.PaperID).
		Str("question_class", class.String()).
		Msg("answering question")

	return a.generate(ctx, "qna", prompt)
}

// buildTextPrompt assembles the metadata context, prepending a bounded slice
// of extracted PDF text when available.
func (a *QnAAgent) buildTextPrompt(ctx context.Context, paper *domain.Paper, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nSummary: %s\n", paper.Title, paper.Summary)

	if pdfURL := paper.PDFLink(); pdfURL != "" && a.extractor != nil {
		text, err := a.extractor.ExtractFromURL(ctx, pdfURL)
		if err != nil {
			// Metadata-only context still produces a usable answer.
			paperLogger := observability.WithPaperContext(a.logger, paper.PaperID, pdfURL)
			paperLogger.Warn().Err(err).Msg("pdf context unavailable, answering from metadata")
		} else {
			fmt.Fprintf(&b, "\nContent:\n%s", truncateRunes(text, a.contextRunes))
		}
	}

	fmt.Fprintf(&b, "\n\nQuestion: %s\nAnswer:", question)
	return b.String()
}

// buildImagePrompt builds the prompt for questions about visual content.
func (a *QnAAgent) buildImagePrompt(paper *domain.Paper, question string) string {
	return fmt.Sprintf(
		"Title: %s\nSummary: %s\n\nQuestion: %s\n"+
			"Answer with details if this paper contains images, charts, or figures relevant to the question.",
		paper.Title, paper.Summary, question,
	)
}

func (a *QnAAgent) generate(ctx context.Context, operation, prompt string) (string, error) {
	start := time.Now()
	answer, err := a.generator.Generate(ctx, llm.Request{Prompt: prompt})
	if err != nil {
		a.metrics.RecordLLMRequestFailed(operation, a.generator.Model(), llmErrorType(err))
		return "", domain.NewExternalAPIError(a.generator.Provider(), 0, "generation failed", err)
	}
	a.metrics.RecordLLMRequest(operation, a.generator.Model(), time.Since(start).Seconds())
	return answer, nil
}

// truncateRunes bounds s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// llmErrorType maps a generation error onto a low-cardinality metric label.
func llmErrorType(err error) string {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return "rate_limited"
		case apiErr.StatusCode >= 500:
			return "server_error"
		case apiErr.StatusCode >= 400:
			return "client_error"
		default:
			return "network_error"
		}
	}
	return "unknown"
}
