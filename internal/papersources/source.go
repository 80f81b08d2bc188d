// Package papersources provides interfaces and types for academic paper source clients.
//
// This package defines the foundational abstractions that paper source
// implementations must follow. Each academic database (arXiv today, others
// later) implements the Source interface, allowing the search pipeline to
// walk a source page by page with a unified API.
//
// Example usage:
//
//	source := arxiv.New(cfg)
//	params := papersources.SearchParams{
//		Query:      "quantum error correction",
//		Year:       2021,
//		MaxResults: 100,
//	}
//	result, err := source.Search(ctx, params)
package papersources

import (
	"context"
	"time"

	"github.com/paperdesk/research-assistant/internal/domain"
)

// SearchParams defines the parameters for searching academic papers.
type SearchParams struct {
	// Query is the search topic (required). The format may vary by
	// source; arXiv supports fielded boolean queries.
	Query string

	// Year restricts results to papers submitted in this calendar year.
	// A value of 0 applies no year filter.
	Year int

	// MaxResults limits the number of papers returned in a single request.
	// Sources may have their own maximum limits that override this value.
	// A value of 0 uses the source's default limit.
	MaxResults int

	// Offset specifies the starting position for paginated results.
	// Used in conjunction with MaxResults for pagination.
	Offset int
}

// SearchResult contains the results from a paper source search operation.
type SearchResult struct {
	// Papers contains the papers returned by the search.
	// May be empty if no papers match the search criteria.
	Papers []*domain.Paper

	// TotalResults is the total number of papers matching the query,
	// regardless of pagination limits. This value is provided by the
	// source API and may be an estimate for large result sets.
	TotalResults int

	// HasMore indicates whether additional results are available
	// beyond the current page.
	HasMore bool

	// NextOffset is the offset value to use for fetching the next page
	// of results. Only meaningful when HasMore is true.
	NextOffset int

	// Duration is the time taken to execute the search,
	// including network latency and response parsing.
	Duration time.Duration
}

// Source defines the interface that paper source clients must implement.
type Source interface {
	// Search queries the paper source for papers matching the given
	// parameters. Returns a SearchResult containing the matching papers
	// and pagination info.
	//
	// Implementations should:
	//   - Respect context cancellation
	//   - Apply rate limiting as needed
	//   - Transform source-specific responses to domain.Paper
	//   - Wrap failures with domain.ExternalAPIError
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// GetByID retrieves a specific paper by its source-specific
	// identifier. Returns domain.ErrNotFound if the paper does not exist.
	GetByID(ctx context.Context, id string) (*domain.Paper, error)

	// Name returns a stable lowercase identifier for this paper source,
	// used for logging and metric labels.
	Name() string
}
