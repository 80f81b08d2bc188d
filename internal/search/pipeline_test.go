package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdesk/research-assistant/internal/domain"
	"github.com/paperdesk/research-assistant/internal/observability"
	"github.com/paperdesk/research-assistant/internal/papersources"
)

var metricsSeq int

// testMetrics returns a Metrics instance with a unique namespace, since
// promauto registers into the default registry.
func testMetrics() *observability.Metrics {
	metricsSeq++
	return observability.NewMetrics(fmt.Sprintf("test_search_pipeline_%d", metricsSeq))
}

// stubSource replays canned responses keyed by year then call order.
type stubSource struct {
	responses map[int][]*papersources.SearchResult
	errs      map[int]error
	calls     []papersources.SearchParams
	byYear    map[int]int
}

func (s *stubSource) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	s.calls = append(s.calls, params)
	if err, ok := s.errs[params.Year]; ok {
		return nil, err
	}
	if s.byYear == nil {
		s.byYear = make(map[int]int)
	}
	pages := s.responses[params.Year]
	i := s.byYear[params.Year]
	s.byYear[params.Year]++
	if i >= len(pages) {
		return &papersources.SearchResult{Papers: nil}, nil
	}
	return pages[i], nil
}

func (s *stubSource) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	return nil, domain.NewNotFoundError("paper", id)
}

func (s *stubSource) Name() string { return "stub" }

func makePaper(year int, n int) *domain.Paper {
	p := &domain.Paper{
		Title:         fmt.Sprintf("Paper %d-%d", year, n),
		URL:           fmt.Sprintf("http://arxiv.org/abs/%d.%05dv1", year, n),
		PublishedDate: time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	return p.Identify()
}

func page(hasMore bool, nextOffset int, papers ...*domain.Paper) *papersources.SearchResult {
	return &papersources.SearchResult{
		Papers:     papers,
		HasMore:    hasMore,
		NextOffset: nextOffset,
	}
}

func newTestPipeline(source papersources.Source, startYear, batchSize int, nowYear int) *Pipeline {
	p := New(source, Config{StartYear: startYear, BatchSize: batchSize}, zerolog.Nop(), testMetrics())
	p.now = func() time.Time {
		return time.Date(nowYear, 7, 1, 12, 0, 0, 0, time.UTC)
	}
	return p
}

func TestSearchTopic(t *testing.T) {
	ctx := context.Background()

	t.Run("walks every year from start to current", func(t *testing.T) {
		source := &stubSource{
			responses: map[int][]*papersources.SearchResult{
				2019: {page(false, 1, makePaper(2019, 1))},
				2020: {page(false, 1, makePaper(2020, 1))},
				2021: {page(false, 1, makePaper(2021, 1))},
			},
		}

		p := newTestPipeline(source, 2019, 100, 2021)
		result, err := p.SearchTopic(ctx, "quantum computing", 0)
		require.NoError(t, err)

		assert.Len(t, result.Papers, 3)
		years := make(map[int]bool)
		for _, c := range source.calls {
			years[c.Year] = true
		}
		assert.Equal(t, map[int]bool{2019: true, 2020: true, 2021: true}, years)
	})

	t.Run("pages within a year until source reports no more", func(t *testing.T) {
		source := &stubSource{
			responses: map[int][]*papersources.SearchResult{
				2019: {
					page(true, 2, makePaper(2019, 1), makePaper(2019, 2)),
					page(false, 4, makePaper(2019, 3), makePaper(2019, 4)),
				},
			},
		}

		p := newTestPipeline(source, 2019, 2, 2019)
		result, err := p.SearchTopic(ctx, "topic", 0)
		require.NoError(t, err)

		assert.Len(t, result.Papers, 4)
		require.Len(t, source.calls, 2)
		assert.Equal(t, 0, source.calls[0].Offset)
		assert.Equal(t, 2, source.calls[1].Offset)
	})

	t.Run("empty first batch exhausts the year after one call", func(t *testing.T) {
		source := &stubSource{
			responses: map[int][]*papersources.SearchResult{
				// Nothing configured for 2019: its first batch is empty.
				2020: {page(false, 1, makePaper(2020, 1))},
			},
		}

		p := newTestPipeline(source, 2019, 100, 2020)
		result, err := p.SearchTopic(ctx, "topic", 0)
		require.NoError(t, err)

		assert.Len(t, result.Papers, 1)
		assert.Empty(t, result.YearsAbandoned)

		calls2019 := 0
		for _, c := range source.calls {
			if c.Year == 2019 {
				calls2019++
			}
		}
		assert.Equal(t, 1, calls2019, "an empty batch must end the year without another request")
	})

	t.Run("drops duplicates across years", func(t *testing.T) {
		shared := makePaper(2019, 1)
		source := &stubSource{
			responses: map[int][]*papersources.SearchResult{
				2019: {page(false, 1, shared)},
				2020: {page(false, 2, shared, makePaper(2020, 2))},
			},
		}

		p := newTestPipeline(source, 2019, 100, 2020)
		result, err := p.SearchTopic(ctx, "topic", 0)
		require.NoError(t, err)

		assert.Len(t, result.Papers, 2)
		assert.Equal(t, 1, result.Duplicates)

		// Discovery order preserved, no repeated IDs.
		ids := make(map[string]struct{})
		for _, paper := range result.Papers {
			_, dup := ids[paper.PaperID]
			assert.False(t, dup)
			ids[paper.PaperID] = struct{}{}
		}
	})

	t.Run("stops year when batch adds no new papers", func(t *testing.T) {
		repeat := makePaper(2019, 1)
		source := &stubSource{
			responses: map[int][]*papersources.SearchResult{
				// Source ignores the offset and keeps returning the same page.
				2019: {
					page(true, 1, repeat),
					page(true, 1, repeat),
					page(true, 1, repeat),
				},
			},
		}

		p := newTestPipeline(source, 2019, 100, 2019)
		result, err := p.SearchTopic(ctx, "topic", 0)
		require.NoError(t, err)

		assert.Len(t, result.Papers, 1)
		assert.Len(t, source.calls, 2, "second batch with no progress must end the year")
	})

	t.Run("honors global result cap mid-batch", func(t *testing.T) {
		source := &stubSource{
			responses: map[int][]*papersources.SearchResult{
				2019: {page(true, 3, makePaper(2019, 1), makePaper(2019, 2), makePaper(2019, 3))},
				2020: {page(false, 1, makePaper(2020, 1))},
			},
		}

		p := newTestPipeline(source, 2019, 100, 2020)
		result, err := p.SearchTopic(ctx, "topic", 2)
		require.NoError(t, err)

		assert.Len(t, result.Papers, 2)
		// No call for 2020: the cap ended the whole search.
		for _, c := range source.calls {
			assert.Equal(t, 2019, c.Year)
		}
	})

	t.Run("source error abandons only that year", func(t *testing.T) {
		source := &stubSource{
			responses: map[int][]*papersources.SearchResult{
				2019: {page(false, 1, makePaper(2019, 1))},
				2021: {page(false, 1, makePaper(2021, 1))},
			},
			errs: map[int]error{
				2020: domain.NewExternalAPIError("stub", 503, "unavailable", nil),
			},
		}

		p := newTestPipeline(source, 2019, 100, 2021)
		result, err := p.SearchTopic(ctx, "topic", 0)
		require.NoError(t, err)

		assert.Len(t, result.Papers, 2)
		assert.Equal(t, []int{2020}, result.YearsAbandoned)
	})

	t.Run("empty topic is rejected", func(t *testing.T) {
		p := newTestPipeline(&stubSource{}, 2019, 100, 2020)
		result, err := p.SearchTopic(ctx, "", 0)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("canceled context ends the search", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		source := &stubSource{
			errs: map[int]error{2019: context.Canceled},
		}
		p := newTestPipeline(source, 2019, 100, 2020)

		result, err := p.SearchTopic(cancelCtx, "topic", 0)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("all years failing still returns a result", func(t *testing.T) {
		source := &stubSource{
			errs: map[int]error{
				2019: errors.New("boom"),
				2020: errors.New("boom"),
			},
		}

		p := newTestPipeline(source, 2019, 100, 2020)
		result, err := p.SearchTopic(ctx, "topic", 0)
		require.NoError(t, err)

		assert.Empty(t, result.Papers)
		assert.Equal(t, []int{2019, 2020}, result.YearsAbandoned)
	})
}

func TestNewDefaults(t *testing.T) {
	p := New(&stubSource{}, Config{}, zerolog.Nop(), testMetrics())
	assert.Equal(t, DefaultStartYear, p.startYear)
	assert.Equal(t, DefaultBatchSize, p.batchSize)
}
