package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdesk/research-assistant/internal/domain"
	"github.com/paperdesk/research-assistant/internal/observability"
	"github.com/paperdesk/research-assistant/internal/papersources"
	"github.com/paperdesk/research-assistant/internal/search"
)

var metricsSeq int

func testMetrics() *observability.Metrics {
	metricsSeq++
	return observability.NewMetrics(fmt.Sprintf("test_ingest_%d", metricsSeq))
}

// fakeSource returns one fixed page per year.
type fakeSource struct {
	byYear map[int][]*domain.Paper
}

func (f *fakeSource) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	papers := f.byYear[params.Year]
	if params.Offset > 0 {
		papers = nil
	}
	return &papersources.SearchResult{Papers: papers}, nil
}

func (f *fakeSource) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	return nil, domain.NewNotFoundError("paper", id)
}

func (f *fakeSource) Name() string { return "fake" }

// memoryRepo is an in-memory PaperRepository used to exercise the full
// search-then-store path.
type memoryRepo struct {
	mu      sync.Mutex
	store   map[string]*domain.Paper
	failIDs map[string]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{store: make(map[string]*domain.Paper), failIDs: make(map[string]bool)}
}

func (m *memoryRepo) Upsert(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if paper.PaperID == "" {
		paper.Identify()
	}
	if m.failIDs[paper.PaperID] {
		return nil, domain.NewStoreError("upsert paper", fmt.Errorf("injected failure"))
	}
	now := time.Now().UTC()
	if existing, ok := m.store[paper.PaperID]; ok {
		paper.CreatedAt = existing.CreatedAt
	} else {
		paper.CreatedAt = now
	}
	paper.UpdatedAt = now
	m.store[paper.PaperID] = paper
	return paper, nil
}

func (m *memoryRepo) FindByID(ctx context.Context, paperID string) (*domain.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	paper, ok := m.store[paperID]
	if !ok {
		return nil, domain.NewNotFoundError("paper", paperID)
	}
	return paper, nil
}

func (m *memoryRepo) FindByYear(ctx context.Context, year int) ([]*domain.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var papers []*domain.Paper
	for _, p := range m.store {
		if p.Year() == year {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

func makePaper(year, n int) *domain.Paper {
	p := &domain.Paper{
		Title:         fmt.Sprintf("Paper %d-%d", year, n),
		URL:           fmt.Sprintf("http://arxiv.org/abs/%d.%05dv1", year, n),
		PublishedDate: time.Date(year, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	return p.Identify()
}

func newTestIngestor(source papersources.Source, repo *memoryRepo, nowYear int) *Ingestor {
	pipeline := search.New(source, search.Config{StartYear: 2019, BatchSize: 100}, zerolog.Nop(), testMetrics())
	ingestor := New(pipeline, repo, zerolog.Nop(), testMetrics())
	return ingestor
}

func TestIngestor_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("stores every discovered paper and makes it retrievable", func(t *testing.T) {
		first := makePaper(2019, 1)
		second := makePaper(2019, 2)
		third := makePaper(2020, 1)

		source := &fakeSource{byYear: map[int][]*domain.Paper{
			2019: {first, second},
			2020: {third},
		}}
		repo := newMemoryRepo()

		result, err := newTestIngestor(source, repo, 2020).Run(ctx, "graph neural networks", 10)
		require.NoError(t, err)

		assert.Equal(t, 3, result.Discovered)
		assert.Equal(t, 3, result.Stored)
		assert.Equal(t, 0, result.Failed)

		for _, want := range []*domain.Paper{first, second, third} {
			got, err := repo.FindByID(ctx, want.PaperID)
			require.NoError(t, err)
			assert.Equal(t, want.URL, got.URL)
		}
	})

	t.Run("running twice leaves a single row per paper", func(t *testing.T) {
		paper := makePaper(2019, 7)
		source := &fakeSource{byYear: map[int][]*domain.Paper{2019: {paper}}}
		repo := newMemoryRepo()
		ingestor := newTestIngestor(source, repo, 2019)

		_, err := ingestor.Run(ctx, "topic", 0)
		require.NoError(t, err)
		_, err = ingestor.Run(ctx, "topic", 0)
		require.NoError(t, err)

		assert.Len(t, repo.store, 1)
	})

	t.Run("failed upsert is skipped, remaining papers stored", func(t *testing.T) {
		good := makePaper(2019, 1)
		bad := makePaper(2019, 2)
		alsoGood := makePaper(2019, 3)

		source := &fakeSource{byYear: map[int][]*domain.Paper{
			2019: {good, bad, alsoGood},
		}}
		repo := newMemoryRepo()
		repo.failIDs[bad.PaperID] = true

		result, err := newTestIngestor(source, repo, 2019).Run(ctx, "topic", 0)
		require.NoError(t, err)

		assert.Equal(t, 3, result.Discovered)
		assert.Equal(t, 2, result.Stored)
		assert.Equal(t, 1, result.Failed)

		_, err = repo.FindByID(ctx, bad.PaperID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = repo.FindByID(ctx, alsoGood.PaperID)
		assert.NoError(t, err)
	})

	t.Run("invalid topic fails the run", func(t *testing.T) {
		result, err := newTestIngestor(&fakeSource{}, newMemoryRepo(), 2019).Run(ctx, "", 0)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
