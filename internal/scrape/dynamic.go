package scrape

import (
	"context"
	"log/slog"
	"time"

	"github.com/shelf-tools/gleaner/internal/config"
	"github.com/shelf-tools/gleaner/internal/extract"
	"github.com/shelf-tools/gleaner/internal/observability"
	"github.com/shelf-tools/gleaner/internal/query"
	"github.com/shelf-tools/gleaner/internal/types"
)

// Dynamic is the browser-driven pipeline for pages whose listings only
// materialize after script execution and scrolling. Each run acquires its
// own session and releases it on every exit path.
type Dynamic struct {
	cfg      *config.Config
	rules    extract.Rules
	sessions SessionFactory
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewDynamic builds the dynamic pipeline from configuration.
func NewDynamic(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Dynamic, error) {
	rules, err := extract.CompileRules(cfg.Selectors.Dynamic)
	if err != nil {
		return nil, err
	}

	o := applyOptions(logger, opts)

	return &Dynamic{
		cfg:      cfg,
		rules:    rules,
		sessions: o.sessions,
		metrics:  o.metrics,
		logger:   logger.With("component", "dynamic_pipeline"),
	}, nil
}

// Run navigates a fresh browser session to the target page, waits for
// results to render, scrolls once to trigger lazy loading, extracts every
// product, and writes them to the configured sink. A fatal condition is
// logged and returned with no output file written; the session is
// released regardless of which path exits.
func (d *Dynamic) Run(ctx context.Context, url string) error {
	sess, err := d.sessions(&d.cfg.Browser, d.logger)
	if err != nil {
		d.logger.Error("session acquisition failed", "url", url, "error", err)
		return err
	}
	defer func() {
		if rerr := sess.Release(); rerr != nil {
			d.logger.Warn("session release failed", "url", url, "error", rerr)
		}
	}()

	if err := sess.Navigate(url); err != nil {
		d.logger.Error("navigation failed", "url", url, "error", err)
		return err
	}

	scope := sess.Scope()
	if err := d.awaitContainers(ctx, scope, url); err != nil {
		d.logger.Error("results never rendered", "url", url, "error", err)
		return err
	}

	// One pass: jump to the bottom, then give lazy rows a fixed window to
	// attach. Deliberately not a scroll-until-stable loop.
	if err := sess.ScrollToBottom(); err != nil {
		d.logger.Warn("scroll failed, extracting what rendered", "url", url, "error", err)
	}
	time.Sleep(d.cfg.Browser.SettleDelay)

	// Re-query after the settle so rows added by the scroll are included.
	containers, err := extract.Containers(scope, d.rules)
	if err != nil {
		berr := &types.BrowserError{URL: url, Stage: "query", Err: err}
		d.logger.Error("container query failed", "url", url, "error", berr)
		return berr
	}

	products := collectProducts(containers, d.rules, d.metrics, d.logger)

	if err := storeProducts(&d.cfg.Storage, products, d.metrics, d.logger); err != nil {
		d.logger.Error("store failed", "url", url, "error", err)
		return err
	}

	d.logger.Info("dynamic scrape complete",
		"url", url,
		"containers", len(containers),
		"products", len(products),
		"path", d.cfg.Storage.Path,
	)
	d.metrics.LogSummary()
	return nil
}

// awaitContainers polls the live page until at least one product
// container exists, up to the configured ceiling. The readiness window is
// what separates "slow render" from "no results will ever come".
func (d *Dynamic) awaitContainers(ctx context.Context, scope query.Scope, url string) error {
	deadline := time.Now().Add(d.cfg.Browser.RenderWait)
	for {
		if err := ctx.Err(); err != nil {
			return &types.BrowserError{URL: url, Stage: "wait", Err: err}
		}

		containers, err := extract.Containers(scope, d.rules)
		if err != nil {
			// The page may still be mid-navigation; treat a failed probe
			// like an empty one and keep polling.
			d.logger.Debug("readiness probe failed", "url", url, "error", err)
		} else if len(containers) > 0 {
			return nil
		}

		if time.Now().After(deadline) {
			return &types.RenderTimeoutError{
				URL:      url,
				Selector: d.rules.Container.String(),
				Wait:     d.cfg.Browser.RenderWait,
			}
		}
		time.Sleep(d.cfg.Browser.PollInterval)
	}
}
