package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/paperdesk/research-assistant/internal/domain"
)

// Validation constants.
const (
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
	minSearchYear      = 1991    // arXiv has no submissions before 1991
)

// ingestRequest is the JSON request body for starting a topic ingestion.
type ingestRequest struct {
	Topic      string `json:"topic" validate:"required,min=2,max=300"`
	MaxResults int    `json:"max_results" validate:"omitempty,gte=1,lte=5000"`
}

// answerRequest is the JSON request body for a paper question.
type answerRequest struct {
	Question string `json:"question" validate:"required,min=3,max=2000"`
}

// decodeAndValidate reads, unmarshals and validates a JSON request body.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("invalid field %q: failed %q constraint", verrs[0].Field(), verrs[0].Tag()))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	return true
}

// listPapersByYear handles GET /api/v1/papers?year=YYYY.
func (s *Server) listPapersByYear(w http.ResponseWriter, r *http.Request) {
	year, ok := parseYearParam(w, r.URL.Query().Get("year"))
	if !ok {
		return
	}

	papers, err := s.papers.FindByYear(r.Context(), year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if len(papers) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no papers found for year %d", year))
		return
	}

	writeJSON(w, http.StatusOK, domainPapersToResponse(papers))
}

// getPaper handles GET /api/v1/papers/{paperID}.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	paper, ok := s.lookupPaper(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, domainPaperToResponse(paper))
}

// ingestTopic handles POST /api/v1/ingest.
func (s *Server) ingestTopic(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	// An omitted max_results must not turn into an uncapped crawl.
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = s.ingestMaxResults
	}

	result, err := s.ingestor.Run(r.Context(), req.Topic, maxResults)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		PapersDiscovered: result.Discovered,
		PapersStored:     result.Stored,
		PapersFailed:     result.Failed,
		YearsAbandoned:   result.YearsAbandoned,
	})
}

// answerQuestion handles POST /api/v1/papers/{paperID}/answer.
func (s *Server) answerQuestion(w http.ResponseWriter, r *http.Request) {
	paper, ok := s.lookupPaper(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	answer, err := s.qna.AnswerQuestion(r.Context(), paper, req.Question)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answerResponse{Answer: answer})
}

// generateFutureWork handles POST /api/v1/papers/{paperID}/future-works.
func (s *Server) generateFutureWork(w http.ResponseWriter, r *http.Request) {
	paper, ok := s.lookupPaper(w, r)
	if !ok {
		return
	}

	futureWork, err := s.futureWorks.GenerateFutureWork(r.Context(), paper)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, futureWorkResponse{FutureWork: futureWork})
}

// summarizeYear handles POST /api/v1/years/{year}/summary.
func (s *Server) summarizeYear(w http.ResponseWriter, r *http.Request) {
	papers, ok := s.lookupYearPapers(w, r)
	if !ok {
		return
	}

	summary, err := s.summarizer.SummarizeFindings(r.Context(), papers)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, findingsSummaryResponse{FindingsSummary: summary})
}

// futureWorksForYear handles POST /api/v1/years/{year}/future-works.
func (s *Server) futureWorksForYear(w http.ResponseWriter, r *http.Request) {
	papers, ok := s.lookupYearPapers(w, r)
	if !ok {
		return
	}

	suggestions, err := s.summarizer.FutureWorksFromYear(r.Context(), papers)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, futureWorksSummaryResponse{FutureWorksSummary: suggestions})
}

// keyPointsForYear handles POST /api/v1/years/{year}/key-points.
func (s *Server) keyPointsForYear(w http.ResponseWriter, r *http.Request) {
	papers, ok := s.lookupYearPapers(w, r)
	if !ok {
		return
	}

	points, err := s.summarizer.ExtractKeyPoints(r.Context(), papers)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, keyPointsResponse{KeyPoints: points})
}

// lookupPaper resolves the {paperID} path parameter to a stored paper,
// writing the error response itself when the lookup fails.
func (s *Server) lookupPaper(w http.ResponseWriter, r *http.Request) (*domain.Paper, bool) {
	paperID := chi.URLParam(r, "paperID")
	if paperID == "" {
		writeError(w, http.StatusBadRequest, "paper_id is required")
		return nil, false
	}

	paper, err := s.papers.FindByID(r.Context(), paperID)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return paper, true
}

// lookupYearPapers resolves the {year} path parameter to that year's papers,
// writing the error response itself when the lookup fails or the year is
// empty.
func (s *Server) lookupYearPapers(w http.ResponseWriter, r *http.Request) ([]*domain.Paper, bool) {
	year, ok := parseYearParam(w, chi.URLParam(r, "year"))
	if !ok {
		return nil, false
	}

	papers, err := s.papers.FindByYear(r.Context(), year)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	if len(papers) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no papers found for year %d", year))
		return nil, false
	}
	return papers, true
}

// parseYearParam validates a year parameter, writing the error response when
// it is missing or out of range.
func parseYearParam(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		writeError(w, http.StatusBadRequest, "year is required")
		return 0, false
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < minSearchYear || year > 9999 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid year %q", raw))
		return 0, false
	}
	return year, true
}
