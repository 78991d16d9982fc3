package scrape

import (
	"context"
	"log/slog"

	"github.com/shelf-tools/gleaner/internal/config"
	"github.com/shelf-tools/gleaner/internal/extract"
	"github.com/shelf-tools/gleaner/internal/fetcher"
	"github.com/shelf-tools/gleaner/internal/observability"
	"github.com/shelf-tools/gleaner/internal/query"
	"github.com/shelf-tools/gleaner/internal/types"
)

// Static is the fetch-and-parse pipeline. It sees only what the server
// puts in the initial response; content that materializes through script
// execution is the dynamic pipeline's job.
type Static struct {
	cfg     *config.Config
	rules   extract.Rules
	fetch   fetcher.Fetcher
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewStatic builds the static pipeline from configuration.
func NewStatic(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Static, error) {
	rules, err := extract.CompileRules(cfg.Selectors.Static)
	if err != nil {
		return nil, err
	}

	o := applyOptions(logger, opts)
	if o.fetch == nil {
		o.fetch, err = fetcher.NewHTTPFetcher(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	return &Static{
		cfg:     cfg,
		rules:   rules,
		fetch:   o.fetch,
		metrics: o.metrics,
		logger:  logger.With("component", "static_pipeline"),
	}, nil
}

// Run fetches the target page once, extracts every product, and writes
// them to the configured sink. A fatal condition is logged and returned;
// no output file exists in that case.
func (s *Static) Run(ctx context.Context, url string) error {
	resp, err := s.fetch.Fetch(ctx, url)
	if err != nil {
		s.logger.Error("fetch failed", "url", url, "error", err)
		return err
	}
	s.metrics.BytesDownloaded.Add(int64(len(resp.Body)))

	doc, err := resp.Document()
	if err != nil {
		perr := &types.ParseError{URL: url, Err: err}
		s.logger.Error("document parse failed", "url", url, "error", perr)
		return perr
	}

	containers, err := extract.Containers(query.NewHTMLScope(doc), s.rules)
	if err != nil {
		perr := &types.ParseError{URL: url, Selector: s.rules.Container.String(), Err: err}
		s.logger.Error("container query failed", "url", url, "error", perr)
		return perr
	}

	products := collectProducts(containers, s.rules, s.metrics, s.logger)

	if err := storeProducts(&s.cfg.Storage, products, s.metrics, s.logger); err != nil {
		s.logger.Error("store failed", "url", url, "error", err)
		return err
	}

	s.logger.Info("static scrape complete",
		"url", url,
		"containers", len(containers),
		"products", len(products),
		"path", s.cfg.Storage.Path,
	)
	s.metrics.LogSummary()
	return nil
}

// Close releases the transport's idle connections.
func (s *Static) Close() error {
	return s.fetch.Close()
}
