package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdesk/research-assistant/internal/assistant"
	"github.com/paperdesk/research-assistant/internal/domain"
	"github.com/paperdesk/research-assistant/internal/ingest"
)

// stubPaperRepo serves canned papers.
type stubPaperRepo struct {
	byID   map[string]*domain.Paper
	byYear map[int][]*domain.Paper
	err    error
}

func (s *stubPaperRepo) Upsert(_ context.Context, paper *domain.Paper) (*domain.Paper, error) {
	return paper, s.err
}

func (s *stubPaperRepo) FindByID(_ context.Context, paperID string) (*domain.Paper, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.byID[paperID]
	if !ok {
		return nil, domain.NewNotFoundError("paper", paperID)
	}
	return p, nil
}

func (s *stubPaperRepo) FindByYear(_ context.Context, year int) ([]*domain.Paper, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byYear[year], nil
}

// stubIngestor returns a fixed ingestion result.
type stubIngestor struct {
	result *ingest.Result
	err    error
	topic  string
	max    int
}

func (s *stubIngestor) Run(_ context.Context, topic string, maxResults int) (*ingest.Result, error) {
	s.topic = topic
	s.max = maxResults
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// stubAgents implements the QnA, future-work and summarizer interfaces.
type stubAgents struct {
	answer     string
	futureWork string
	summary    string
	keyPoints  []assistant.KeyPoints
	err        error
}

func (s *stubAgents) AnswerQuestion(_ context.Context, _ *domain.Paper, _ string) (string, error) {
	return s.answer, s.err
}

func (s *stubAgents) GenerateFutureWork(_ context.Context, _ *domain.Paper) (string, error) {
	return s.futureWork, s.err
}

func (s *stubAgents) SummarizeFindings(_ context.Context, _ []*domain.Paper) (string, error) {
	return s.summary, s.err
}

func (s *stubAgents) FutureWorksFromYear(_ context.Context, _ []*domain.Paper) (string, error) {
	return s.summary, s.err
}

func (s *stubAgents) ExtractKeyPoints(_ context.Context, _ []*domain.Paper) ([]assistant.KeyPoints, error) {
	return s.keyPoints, s.err
}

func storedPaper() *domain.Paper {
	p := (&domain.Paper{
		Title:         "Attention Is All You Need",
		Authors:       []string{"Ashish Vaswani"},
		PublishedDate: time.Date(2017, 6, 12, 0, 0, 0, 0, time.UTC),
		Summary:       "Transformers.",
		URL:           "http://arxiv.org/abs/1706.03762v7",
		Links:         []string{"http://arxiv.org/pdf/1706.03762v7.pdf"},
	}).Identify()
	p.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.UpdatedAt = p.CreatedAt
	return p
}

// newTestServer wires a Server with stub dependencies.
func newTestServer(repo *stubPaperRepo, ingestor TopicIngestor, agents *stubAgents) *Server {
	if repo == nil {
		repo = &stubPaperRepo{}
	}
	if agents == nil {
		agents = &stubAgents{}
	}
	if ingestor == nil {
		ingestor = &stubIngestor{result: &ingest.Result{}}
	}
	return NewServer(Config{Address: ":0"}, repo, ingestor, agents, agents, agents, nil, zerolog.Nop())
}

func doRequest(t *testing.T, s *Server, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reqBody)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestListPapersByYear(t *testing.T) {
	paper := storedPaper()
	repo := &stubPaperRepo{byYear: map[int][]*domain.Paper{2017: {paper}}}
	s := newTestServer(repo, nil, nil)

	t.Run("returns papers for the year", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/papers?year=2017", nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp listPapersResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, paper.PaperID, resp.Papers[0].PaperID)
		assert.Equal(t, "2017-06-12", resp.Papers[0].PublishedDate)
		assert.Equal(t, []string{"Ashish Vaswani"}, resp.Papers[0].Authors)
	})

	t.Run("404 when the year has no papers", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/papers?year=2015", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("400 when year is missing", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/papers", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("400 when year is not a number", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/papers?year=twenty", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("400 when year predates the archive", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/papers?year=1980", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("503 when the store is unavailable", func(t *testing.T) {
		broken := newTestServer(&stubPaperRepo{err: domain.NewStoreError("query", assert.AnError)}, nil, nil)
		rec := doRequest(t, broken, http.MethodGet, "/api/v1/papers?year=2017", nil)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "paper store unavailable")
	})
}

func TestGetPaper(t *testing.T) {
	paper := storedPaper()
	repo := &stubPaperRepo{byID: map[string]*domain.Paper{paper.PaperID: paper}}
	s := newTestServer(repo, nil, nil)

	t.Run("returns the paper", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/papers/"+paper.PaperID, nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp paperResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, paper.PaperID, resp.PaperID)
		assert.Equal(t, paper.URL, resp.URL)
	})

	t.Run("404 for unknown paper", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/papers/ffffffffffffffffffffffffffffffff", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestIngestTopic(t *testing.T) {
	t.Run("runs ingestion and returns counts", func(t *testing.T) {
		ingestor := &stubIngestor{result: &ingest.Result{
			Discovered:     12,
			Stored:         11,
			Failed:         1,
			YearsAbandoned: []int{2020},
		}}
		s := newTestServer(nil, ingestor, nil)

		rec := doRequest(t, s, http.MethodPost, "/api/v1/ingest",
			map[string]interface{}{"topic": "sparse attention", "max_results": 100})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "sparse attention", ingestor.topic)
		assert.Equal(t, 100, ingestor.max)

		var resp ingestResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 12, resp.PapersDiscovered)
		assert.Equal(t, 11, resp.PapersStored)
		assert.Equal(t, 1, resp.PapersFailed)
		assert.Equal(t, []int{2020}, resp.YearsAbandoned)
	})

	t.Run("omitted max_results falls back to the default cap", func(t *testing.T) {
		ingestor := &stubIngestor{result: &ingest.Result{}}
		s := newTestServer(nil, ingestor, nil)

		rec := doRequest(t, s, http.MethodPost, "/api/v1/ingest",
			map[string]interface{}{"topic": "sparse attention"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, DefaultIngestMaxResults, ingestor.max)
	})

	t.Run("configured cap overrides the default", func(t *testing.T) {
		ingestor := &stubIngestor{result: &ingest.Result{}}
		s := NewServer(Config{Address: ":0", IngestMaxResults: 250},
			&stubPaperRepo{}, ingestor, &stubAgents{}, &stubAgents{}, &stubAgents{}, nil, zerolog.Nop())

		rec := doRequest(t, s, http.MethodPost, "/api/v1/ingest",
			map[string]interface{}{"topic": "sparse attention"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 250, ingestor.max)
	})

	t.Run("400 when topic is missing", func(t *testing.T) {
		s := newTestServer(nil, nil, nil)
		rec := doRequest(t, s, http.MethodPost, "/api/v1/ingest", map[string]interface{}{"max_results": 10})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Topic")
	})

	t.Run("400 when max_results is out of range", func(t *testing.T) {
		s := newTestServer(nil, nil, nil)
		rec := doRequest(t, s, http.MethodPost, "/api/v1/ingest",
			map[string]interface{}{"topic": "llms", "max_results": 100000})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("400 on malformed JSON", func(t *testing.T) {
		s := newTestServer(nil, nil, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("502 when search is unavailable", func(t *testing.T) {
		ingestor := &stubIngestor{err: domain.NewExternalAPIError("arxiv", 503, "down", nil)}
		s := newTestServer(nil, ingestor, nil)

		rec := doRequest(t, s, http.MethodPost, "/api/v1/ingest", map[string]interface{}{"topic": "llms"})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestAnswerQuestion(t *testing.T) {
	paper := storedPaper()
	repo := &stubPaperRepo{byID: map[string]*domain.Paper{paper.PaperID: paper}}

	t.Run("answers the question", func(t *testing.T) {
		s := newTestServer(repo, nil, &stubAgents{answer: "It introduces the Transformer."})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/papers/"+paper.PaperID+"/answer",
			map[string]string{"question": "What does it propose?"})

		require.Equal(t, http.StatusOK, rec.Code)

		var resp answerResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "It introduces the Transformer.", resp.Answer)
	})

	t.Run("404 for unknown paper", func(t *testing.T) {
		s := newTestServer(repo, nil, &stubAgents{answer: "x"})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/papers/ffffffffffffffffffffffffffffffff/answer",
			map[string]string{"question": "What does it propose?"})

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("400 when question is missing", func(t *testing.T) {
		s := newTestServer(repo, nil, &stubAgents{answer: "x"})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/papers/"+paper.PaperID+"/answer",
			map[string]string{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("502 when the LLM is unavailable", func(t *testing.T) {
		s := newTestServer(repo, nil, &stubAgents{err: domain.NewExternalAPIError("ollama", 0, "down", nil)})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/papers/"+paper.PaperID+"/answer",
			map[string]string{"question": "What does it propose?"})

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "upstream service unavailable")
	})
}

func TestGenerateFutureWorkEndpoint(t *testing.T) {
	paper := storedPaper()
	repo := &stubPaperRepo{byID: map[string]*domain.Paper{paper.PaperID: paper}}
	s := newTestServer(repo, nil, &stubAgents{futureWork: "Scale it up."})

	rec := doRequest(t, s, http.MethodPost, "/api/v1/papers/"+paper.PaperID+"/future-works", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp futureWorkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Scale it up.", resp.FutureWork)
}

func TestYearEndpoints(t *testing.T) {
	paper := storedPaper()
	repo := &stubPaperRepo{byYear: map[int][]*domain.Paper{2017: {paper}}}

	t.Run("summary", func(t *testing.T) {
		s := newTestServer(repo, nil, &stubAgents{summary: "Transformers emerged."})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/years/2017/summary", nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp findingsSummaryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Transformers emerged.", resp.FindingsSummary)
	})

	t.Run("future works", func(t *testing.T) {
		s := newTestServer(repo, nil, &stubAgents{summary: "Try sparse attention."})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/years/2017/future-works", nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp futureWorksSummaryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Try sparse attention.", resp.FutureWorksSummary)
	})

	t.Run("key points", func(t *testing.T) {
		points := []assistant.KeyPoints{{Title: paper.Title, KeyPoints: "Self-attention only."}}
		s := newTestServer(repo, nil, &stubAgents{keyPoints: points})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/years/2017/key-points", nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp keyPointsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, points, resp.KeyPoints)
	})

	t.Run("404 when the year has no papers", func(t *testing.T) {
		s := newTestServer(repo, nil, &stubAgents{summary: "x"})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/years/2015/summary", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("400 for invalid year", func(t *testing.T) {
		s := newTestServer(repo, nil, &stubAgents{summary: "x"})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/years/abc/summary", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestResponseContentType(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/papers?year=2017", nil)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
