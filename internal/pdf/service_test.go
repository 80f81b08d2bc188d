package pdf

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdesk/research-assistant/internal/observability"
)

// pdfMetricsSeq keeps metric namespaces unique across tests since promauto
// registers collectors globally.
var pdfMetricsSeq atomic.Int64

func newServiceMetrics() *observability.Metrics {
	return observability.NewMetrics(fmt.Sprintf("test_pdf_service_%d", pdfMetricsSeq.Add(1)))
}

func newTestService(t *testing.T, metrics *observability.Metrics) *Service {
	t.Helper()
	downloader := NewDownloader(DownloaderConfig{AllowPrivateNetworks: true})
	return NewService(downloader, 0, zerolog.Nop(), metrics)
}

func TestService_ExtractFromURL(t *testing.T) {
	t.Run("records failure when download fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		t.Cleanup(server.Close)

		metrics := newServiceMetrics()
		svc := newTestService(t, metrics)

		_, err := svc.ExtractFromURL(context.Background(), server.URL)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDownloadFailed)
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PDFDownloads.WithLabelValues("download_failed")))
	})

	t.Run("records failure when extraction fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4 not really parseable"))
		}))
		t.Cleanup(server.Close)

		metrics := newServiceMetrics()
		svc := newTestService(t, metrics)

		_, err := svc.ExtractFromURL(context.Background(), server.URL)

		require.Error(t, err)
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PDFDownloads.WithLabelValues("extract_failed")))
	})
}
