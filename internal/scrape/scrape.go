package scrape

import (
	"log/slog"

	"github.com/shelf-tools/gleaner/internal/browser"
	"github.com/shelf-tools/gleaner/internal/config"
	"github.com/shelf-tools/gleaner/internal/extract"
	"github.com/shelf-tools/gleaner/internal/fetcher"
	"github.com/shelf-tools/gleaner/internal/observability"
	"github.com/shelf-tools/gleaner/internal/query"
	"github.com/shelf-tools/gleaner/internal/storage"
	"github.com/shelf-tools/gleaner/internal/types"
)

// Session is the slice of a browser session the dynamic pipeline drives.
// *browser.Session satisfies it.
type Session interface {
	Navigate(url string) error
	Scope() query.Scope
	ScrollToBottom() error
	Release() error
}

// SessionFactory acquires a fresh session for one run.
type SessionFactory func(cfg *config.BrowserConfig, logger *slog.Logger) (Session, error)

func acquireSession(cfg *config.BrowserConfig, logger *slog.Logger) (Session, error) {
	return browser.Acquire(cfg, logger)
}

// Option configures a pipeline.
type Option func(*pipelineOptions)

type pipelineOptions struct {
	metrics  *observability.Metrics
	fetch    fetcher.Fetcher
	sessions SessionFactory
}

// WithMetrics shares a metrics instance with the pipeline instead of
// letting it create its own.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *pipelineOptions) { o.metrics = m }
}

// WithFetcher substitutes the transport used by the static pipeline.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(o *pipelineOptions) { o.fetch = f }
}

// WithSessionFactory substitutes how the dynamic pipeline acquires
// browser sessions.
func WithSessionFactory(f SessionFactory) Option {
	return func(o *pipelineOptions) { o.sessions = f }
}

func applyOptions(logger *slog.Logger, opts []Option) *pipelineOptions {
	o := &pipelineOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observability.NewMetrics(logger)
	}
	if o.sessions == nil {
		o.sessions = acquireSession
	}
	return o
}

// collectProducts extracts one product per container, preserving page
// order. A container whose extraction failed is logged and skipped;
// its siblings are unaffected.
func collectProducts(containers []query.Node, rules extract.Rules, m *observability.Metrics, logger *slog.Logger) []types.Product {
	m.ContainersFound.Add(int64(len(containers)))

	results := extract.Records(containers, rules)
	products := make([]types.Product, 0, len(results))
	for i, res := range results {
		if !res.Ok() {
			m.ProductsSkipped.Add(1)
			logger.Warn("skipping product", "index", i, "error", res.Err)
			continue
		}
		m.FieldsMissing.Add(countMissing(res.Product))
		m.ProductsExtracted.Add(1)
		products = append(products, res.Product)
	}
	return products
}

func countMissing(p types.Product) int64 {
	var n int64
	for _, v := range p.Row() {
		if v == types.Missing {
			n++
		}
	}
	return n
}

// storeProducts opens the configured sink and writes every product. The
// sink is opened only here, after acquisition and extraction succeeded,
// so an aborted run never leaves an output file behind. The sink is
// closed on every path, including a failed store.
func storeProducts(cfg *config.StorageConfig, products []types.Product, m *observability.Metrics, logger *slog.Logger) error {
	sink, err := storage.New(cfg, logger)
	if err != nil {
		return &types.StorageError{Backend: cfg.Type, Err: err}
	}

	storeErr := sink.Store(products)
	closeErr := sink.Close()

	if storeErr != nil {
		return &types.StorageError{Backend: sink.Name(), Err: storeErr}
	}
	if closeErr != nil {
		return &types.StorageError{Backend: sink.Name(), Err: closeErr}
	}

	m.ProductsStored.Add(int64(len(products)))
	return nil
}
