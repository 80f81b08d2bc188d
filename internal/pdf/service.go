package pdf

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/paperdesk/research-assistant/internal/observability"
)

// Service downloads a paper's PDF and extracts its text in one step.
type Service struct {
	downloader *Downloader
	maxPages   int
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// NewService creates a Service around the given downloader. maxPages caps
// text extraction per document; zero reads all pages.
func NewService(downloader *Downloader, maxPages int, logger zerolog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		downloader: downloader,
		maxPages:   maxPages,
		logger:     logger.With().Str("component", "pdf").Logger(),
		metrics:    metrics,
	}
}

// ExtractFromURL downloads the PDF at url and returns its plain text.
func (s *Service) ExtractFromURL(ctx context.Context, url string) (string, error) {
	content, err := s.downloader.Download(ctx, url)
	if err != nil {
		s.metrics.RecordPDFDownload("download_failed")
		s.logger.Warn().Err(err).Str("url", url).Msg("pdf download failed")
		return "", err
	}

	text, err := ExtractText(content, s.maxPages)
	if err != nil {
		s.metrics.RecordPDFDownload("extract_failed")
		s.logger.Warn().Err(err).Str("url", url).Msg("pdf text extraction failed")
		return "", err
	}

	s.metrics.RecordPDFDownload("success")
	s.logger.Debug().
		Str("url", url).
		Int("bytes", len(content)).
		Int("text_runes", len([]rune(text))).
		Msg("pdf text extracted")

	return text, nil
}
