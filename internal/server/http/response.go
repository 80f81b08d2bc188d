package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/paperdesk/research-assistant/internal/assistant"
	"github.com/paperdesk/research-assistant/internal/domain"
)

// paperResponse is the JSON shape of a stored paper.
type paperResponse struct {
	PaperID       string    `json:"paper_id"`
	Title         string    `json:"title"`
	Authors       []string  `json:"authors"`
	PublishedDate string    `json:"published_date"`
	Summary       string    `json:"summary"`
	URL           string    `json:"url"`
	Links         []string  `json:"links"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type listPapersResponse struct {
	Papers []paperResponse `json:"papers"`
	Count  int             `json:"count"`
}

type ingestResponse struct {
	PapersDiscovered int   `json:"papers_discovered"`
	PapersStored     int   `json:"papers_stored"`
	PapersFailed     int   `json:"papers_failed"`
	YearsAbandoned   []int `json:"years_abandoned,omitempty"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

type futureWorkResponse struct {
	FutureWork string `json:"future_work"`
}

type findingsSummaryResponse struct {
	FindingsSummary string `json:"findings_summary"`
}

type futureWorksSummaryResponse struct {
	FutureWorksSummary string `json:"future_works_summary"`
}

type keyPointsResponse struct {
	KeyPoints []assistant.KeyPoints `json:"key_points"`
}

func domainPaperToResponse(p *domain.Paper) paperResponse {
	authors := p.Authors
	if authors == nil {
		authors = []string{}
	}
	links := p.Links
	if links == nil {
		links = []string{}
	}
	return paperResponse{
		PaperID:       p.PaperID,
		Title:         p.Title,
		Authors:       authors,
		PublishedDate: p.PublishedDate.Format("2006-01-02"),
		Summary:       p.Summary,
		URL:           p.URL,
		Links:         links,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func domainPapersToResponse(papers []*domain.Paper) listPapersResponse {
	out := make([]paperResponse, 0, len(papers))
	for _, p := range papers {
		out = append(out, domainPaperToResponse(p))
	}
	return listPapersResponse{Papers: out, Count: len(out)}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// writeDomainError maps a domain error onto an HTTP status. Store and
// external-service failures deliberately share one generic message so the
// API does not leak infrastructure details.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "paper store unavailable")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusBadGateway, "upstream service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
