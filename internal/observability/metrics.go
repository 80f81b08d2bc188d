package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the research assistant service.
// Metrics are organized by subsystem: searches, papers, sources, ingests,
// and LLM operations. All counters and histograms are registered via promauto
// for automatic registration with the default Prometheus registry.
type Metrics struct {
	// SearchesStarted counts topic searches initiated, labeled by paper source.
	SearchesStarted *prometheus.CounterVec

	// SearchesCompleted counts successful topic searches, labeled by paper source.
	SearchesCompleted *prometheus.CounterVec

	// SearchesFailed counts failed topic searches, labeled by paper source.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes topic search duration in seconds, labeled by paper source.
	SearchDuration *prometheus.HistogramVec

	// SearchBatches counts service result pages fetched, labeled by source.
	SearchBatches *prometheus.CounterVec

	// PapersPerSearch observes the distribution of papers returned per topic search.
	PapersPerSearch *prometheus.HistogramVec

	// PapersDiscovered counts the total number of unique papers discovered.
	PapersDiscovered prometheus.Counter

	// PapersDuplicate counts the total number of duplicate papers dropped during a search.
	PapersDuplicate prometheus.Counter

	// YearsAbandoned counts year partitions abandoned because of a service error.
	YearsAbandoned *prometheus.CounterVec

	// PapersUpserted counts the total number of papers written to the store.
	PapersUpserted prometheus.Counter

	// UpsertsFailed counts the total number of failed paper store writes.
	UpsertsFailed prometheus.Counter

	// SourceRequestsTotal counts HTTP requests to paper source APIs, labeled by source.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests to paper source APIs, labeled by source and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration to paper source APIs in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses from paper source APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// IngestsStarted counts ingest runs initiated.
	IngestsStarted prometheus.Counter

	// IngestsCompleted counts ingest runs that completed.
	IngestsCompleted prometheus.Counter

	// IngestsFailed counts ingest runs that failed outright.
	IngestsFailed prometheus.Counter

	// LLMRequestsTotal counts LLM API requests, labeled by operation and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests, labeled by operation, model, and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM API request duration in seconds, labeled by operation and model.
	LLMRequestDuration *prometheus.HistogramVec

	// PDFDownloads counts PDF downloads for full-text question answering, labeled by outcome.
	PDFDownloads *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Searches
		SearchesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of topic searches started by source",
		}, []string{"source"}),
		SearchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of topic searches completed successfully by source",
		}, []string{"source"}),
		SearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of topic searches that failed by source",
		}, []string{"source"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of topic searches in seconds by source",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"source"}),
		SearchBatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_batches_total",
			Help:      "Total number of result batches fetched by source",
		}, []string{"source"}),
		PapersPerSearch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_search",
			Help:      "Number of unique papers returned per topic search by source",
			Buckets:   []float64{1, 10, 50, 100, 250, 500, 1000, 2500},
		}, []string{"source"}),

		// Papers
		PapersDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_discovered_total",
			Help:      "Total number of unique papers discovered",
		}),
		PapersDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_duplicate_total",
			Help:      "Total number of duplicate papers dropped during searches",
		}),
		YearsAbandoned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "years_abandoned_total",
			Help:      "Total number of year partitions abandoned due to source errors",
		}, []string{"source"}),
		PapersUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_upserted_total",
			Help:      "Total number of papers written to the store",
		}),
		UpsertsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upserts_failed_total",
			Help:      "Total number of failed paper store writes",
		}),

		// Source API requests
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of HTTP requests to paper source APIs",
		}, []string{"source"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed HTTP requests to paper source APIs",
		}, []string{"source", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of HTTP requests to paper source APIs in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate-limited responses from paper source APIs",
		}, []string{"source"}),

		// Ingests
		IngestsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingests_started_total",
			Help:      "Total number of ingest runs started",
		}),
		IngestsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingests_completed_total",
			Help:      "Total number of ingest runs completed",
		}),
		IngestsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingests_failed_total",
			Help:      "Total number of ingest runs that failed",
		}),

		// LLM
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM API requests",
		}, []string{"operation", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM API requests",
		}, []string{"operation", "model", "error_type"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM API requests in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"operation", "model"}),

		// PDFs
		PDFDownloads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdf_downloads_total",
			Help:      "Total number of PDF downloads by outcome",
		}, []string{"outcome"}),
	}
}

// RecordSearchStarted records that a topic search has started.
func (m *Metrics) RecordSearchStarted(source string) {
	m.SearchesStarted.WithLabelValues(source).Inc()
}

// RecordSearchCompleted records that a topic search has completed.
func (m *Metrics) RecordSearchCompleted(source string, paperCount int, durationSeconds float64) {
	m.SearchesCompleted.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.PapersPerSearch.WithLabelValues(source).Observe(float64(paperCount))
}

// RecordSearchFailed records that a topic search has failed.
func (m *Metrics) RecordSearchFailed(source string, durationSeconds float64) {
	m.SearchesFailed.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSearchBatch records that a result batch was fetched from a source.
func (m *Metrics) RecordSearchBatch(source string) {
	m.SearchBatches.WithLabelValues(source).Inc()
}

// RecordPapersDiscovered records newly discovered unique papers.
func (m *Metrics) RecordPapersDiscovered(count int) {
	m.PapersDiscovered.Add(float64(count))
}

// RecordPaperDuplicate records a duplicate paper dropped during a search.
func (m *Metrics) RecordPaperDuplicate() {
	m.PapersDuplicate.Inc()
}

// RecordYearAbandoned records a year partition abandoned after a source error.
func (m *Metrics) RecordYearAbandoned(source string) {
	m.YearsAbandoned.WithLabelValues(source).Inc()
}

// RecordPaperUpserted records a paper written to the store.
func (m *Metrics) RecordPaperUpserted() {
	m.PapersUpserted.Inc()
}

// RecordUpsertFailed records a failed paper store write.
func (m *Metrics) RecordUpsertFailed() {
	m.UpsertsFailed.Inc()
}

// RecordSourceRequest records an HTTP request to a paper source API.
func (m *Metrics) RecordSourceRequest(source string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(source).Inc()
	m.SourceRequestDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed HTTP request to a paper source API.
func (m *Metrics) RecordSourceRequestFailed(source, errorType string) {
	m.SourceRequestsFailed.WithLabelValues(source, errorType).Inc()
}

// RecordSourceRateLimited records a rate-limited response from a paper source API.
func (m *Metrics) RecordSourceRateLimited(source string) {
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordIngestStarted records that an ingest run has started.
func (m *Metrics) RecordIngestStarted() {
	m.IngestsStarted.Inc()
}

// RecordIngestCompleted records that an ingest run has completed.
func (m *Metrics) RecordIngestCompleted() {
	m.IngestsCompleted.Inc()
}

// RecordIngestFailed records that an ingest run has failed.
func (m *Metrics) RecordIngestFailed() {
	m.IngestsFailed.Inc()
}

// RecordLLMRequest records a successful LLM API request.
func (m *Metrics) RecordLLMRequest(operation, model string, durationSeconds float64) {
	m.LLMRequestsTotal.WithLabelValues(operation, model).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, model).Observe(durationSeconds)
}

// RecordLLMRequestFailed records a failed LLM API request.
func (m *Metrics) RecordLLMRequestFailed(operation, model, errorType string) {
	m.LLMRequestsFailed.WithLabelValues(operation, model, errorType).Inc()
}

// RecordPDFDownload records a PDF download attempt with its outcome.
func (m *Metrics) RecordPDFDownload(outcome string) {
	m.PDFDownloads.WithLabelValues(outcome).Inc()
}
