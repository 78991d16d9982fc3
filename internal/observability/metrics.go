package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks counters for a single scrape run.
type Metrics struct {
	// Acquisition metrics
	BytesDownloaded atomic.Int64

	// Extraction metrics
	ContainersFound   atomic.Int64
	ProductsExtracted atomic.Int64
	ProductsSkipped   atomic.Int64
	FieldsMissing     atomic.Int64

	// Sink metrics
	ProductsStored atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves the counters in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"gleaner_bytes_downloaded_total", "Total bytes downloaded", m.BytesDownloaded.Load()},
		{"gleaner_containers_found_total", "Total product containers located", m.ContainersFound.Load()},
		{"gleaner_products_extracted_total", "Total products extracted", m.ProductsExtracted.Load()},
		{"gleaner_products_skipped_total", "Total products skipped on extraction failure", m.ProductsSkipped.Load()},
		{"gleaner_fields_missing_total", "Total fields filled with the missing sentinel", m.FieldsMissing.Load()},
		{"gleaner_products_stored_total", "Total products written to storage", m.ProductsStored.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server in the background.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all counters as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"bytes_downloaded":   m.BytesDownloaded.Load(),
		"containers_found":   m.ContainersFound.Load(),
		"products_extracted": m.ProductsExtracted.Load(),
		"products_skipped":   m.ProductsSkipped.Load(),
		"fields_missing":     m.FieldsMissing.Load(),
		"products_stored":    m.ProductsStored.Load(),
	}
}

// LogSummary emits a single line with every counter, meant for the end of
// a run.
func (m *Metrics) LogSummary() {
	m.logger.Info("run summary",
		"containers_found", m.ContainersFound.Load(),
		"products_extracted", m.ProductsExtracted.Load(),
		"products_skipped", m.ProductsSkipped.Load(),
		"fields_missing", m.FieldsMissing.Load(),
		"products_stored", m.ProductsStored.Load(),
		"bytes_downloaded", m.BytesDownloaded.Load(),
	)
}
