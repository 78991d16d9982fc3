// Package gleaner provides a public SDK for embedding the product scraper
// as a library.
//
// Example usage:
//
//	g := gleaner.New(
//	    gleaner.WithOutput("csv", "laptops.csv"),
//	    gleaner.WithHeadless(false),
//	)
//
//	if err := g.Dynamic(context.Background(), "https://www.amazon.in/s?k=laptop"); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(g.Stats()["products_extracted"])
package gleaner

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shelf-tools/gleaner/internal/config"
	"github.com/shelf-tools/gleaner/internal/observability"
	"github.com/shelf-tools/gleaner/internal/scrape"
)

// Scraper is the high-level API for running either pipeline in-process.
type Scraper struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures a Scraper.
type Option func(*config.Config)

// WithTarget sets the default target URL used when Static or Dynamic is
// given none.
func WithTarget(url string) Option {
	return func(c *config.Config) { c.Target.URL = url }
}

// WithOutput sets the output format (csv, json, jsonl, mongo, or a
// comma-separated combination) and file path.
func WithOutput(format, path string) Option {
	return func(c *config.Config) {
		c.Storage.Type = format
		c.Storage.Path = path
	}
}

// WithMongo points the mongo backend at a specific deployment.
func WithMongo(uri, database, collection string) Option {
	return func(c *config.Config) {
		c.Storage.Mongo.URI = uri
		c.Storage.Mongo.Database = database
		c.Storage.Mongo.Collection = collection
	}
}

// WithUserAgent sets a custom User-Agent for the static fetch.
func WithUserAgent(ua string) Option {
	return func(c *config.Config) { c.Fetch.UserAgent = ua }
}

// WithTimeout bounds the static HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *config.Config) { c.Fetch.Timeout = d }
}

// WithHeadless toggles whether the browser runs without a visible window.
func WithHeadless(headless bool) Option {
	return func(c *config.Config) { c.Browser.Headless = headless }
}

// WithStealth applies bot-detection countermeasure patches to the
// browser session.
func WithStealth() Option {
	return func(c *config.Config) { c.Browser.Stealth = true }
}

// WithRenderWait sets the ceiling on how long the dynamic pipeline waits
// for the first product container to render.
func WithRenderWait(d time.Duration) Option {
	return func(c *config.Config) { c.Browser.RenderWait = d }
}

// WithSettleDelay sets the fixed pause after the scroll-to-bottom pass.
func WithSettleDelay(d time.Duration) Option {
	return func(c *config.Config) { c.Browser.SettleDelay = d }
}

// WithStaticSelector overrides one static-pipeline selector. Field is one
// of "container", "name", "price", "rating"; kind is "css" or "xpath". An
// optional attribute name extracts that attribute instead of the node text.
func WithStaticSelector(field, kind, expr string, attr ...string) Option {
	return func(c *config.Config) { setSelector(&c.Selectors.Static, field, kind, expr, attr) }
}

// WithDynamicSelector overrides one dynamic-pipeline selector. Field is
// one of "container", "name", "price", "rating"; kind is "css" or "xpath".
// An optional attribute name extracts that attribute instead of the node text.
func WithDynamicSelector(field, kind, expr string, attr ...string) Option {
	return func(c *config.Config) { setSelector(&c.Selectors.Dynamic, field, kind, expr, attr) }
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(c *config.Config) { c.Logging.Level = "debug" }
}

func setSelector(set *config.SelectorSet, field, kind, expr string, attr []string) {
	rule := config.SelectorRule{Type: kind, Expr: expr}
	if len(attr) > 0 {
		rule.Attr = attr[0]
	}
	switch field {
	case "container":
		set.Container = rule
	case "name":
		set.Name = rule
	case "price":
		set.Price = rule
	case "rating":
		set.Rating = rule
	}
}

// New creates a Scraper with the given options applied over defaults.
func New(opts ...Option) *Scraper {
	cfg := config.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	level := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return &Scraper{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(logger),
	}
}

// Static runs the fetch-and-parse pipeline against url, or against the
// configured target when url is empty.
func (s *Scraper) Static(ctx context.Context, url string) error {
	url = s.target(url)
	if err := config.Validate(s.cfg); err != nil {
		return err
	}

	p, err := scrape.NewStatic(s.cfg, s.logger, scrape.WithMetrics(s.metrics))
	if err != nil {
		return err
	}
	defer p.Close()

	return p.Run(ctx, url)
}

// Dynamic runs the browser-driven pipeline against url, or against the
// configured target when url is empty.
func (s *Scraper) Dynamic(ctx context.Context, url string) error {
	url = s.target(url)
	if err := config.Validate(s.cfg); err != nil {
		return err
	}

	p, err := scrape.NewDynamic(s.cfg, s.logger, scrape.WithMetrics(s.metrics))
	if err != nil {
		return err
	}

	return p.Run(ctx, url)
}

// Stats returns the counters accumulated across this Scraper's runs.
func (s *Scraper) Stats() map[string]int64 {
	return s.metrics.Snapshot()
}

func (s *Scraper) target(url string) string {
	if url == "" {
		return s.cfg.Target.URL
	}
	s.cfg.Target.URL = url
	return url
}
