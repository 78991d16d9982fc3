package integration

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shelf-tools/gleaner/internal/config"
	"github.com/shelf-tools/gleaner/internal/fetcher"
	"github.com/shelf-tools/gleaner/internal/observability"
	"github.com/shelf-tools/gleaner/internal/scrape"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// booksConfig targets the scraping sandbox at books.toscrape.com, which
// serves a stable product grid without bot countermeasures.
func booksConfig(outputPath string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Target.URL = "https://books.toscrape.com/"
	cfg.Storage.Path = outputPath
	cfg.Selectors.Static = config.SelectorSet{
		Container: config.SelectorRule{Type: "css", Expr: "article.product_pod"},
		Name:      config.SelectorRule{Type: "css", Expr: "h3 a", Attr: "title"},
		Price:     config.SelectorRule{Type: "css", Expr: "p.price_color"},
		Rating:    config.SelectorRule{Type: "css", Expr: "p.star-rating", Attr: "class"},
	}
	cfg.Selectors.Dynamic = cfg.Selectors.Static
	return cfg
}

// TestLiveFetch tests fetching a real URL.
func TestLiveFetch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live test")
	}

	cfg := config.DefaultConfig()
	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("create fetcher: %v", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resp, err := f.Fetch(ctx, "https://books.toscrape.com/")
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}

	t.Logf("Status: %d", resp.StatusCode)
	t.Logf("Content-Type: %s", resp.ContentType)
	t.Logf("Body size: %d bytes", len(resp.Body))
	t.Logf("Duration: %s", resp.FetchDuration)

	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if len(resp.Body) < 1000 {
		t.Error("body too short")
	}
}

// TestLiveStaticScrape runs the full static pipeline against a real site.
func TestLiveStaticScrape(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live test")
	}

	outputPath := filepath.Join(t.TempDir(), "books.csv")
	cfg := booksConfig(outputPath)
	metrics := observability.NewMetrics(testLogger)

	p, err := scrape.NewStatic(cfg, testLogger, scrape.WithMetrics(metrics))
	if err != nil {
		t.Fatalf("create pipeline: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.Run(ctx, cfg.Target.URL); err != nil {
		t.Fatalf("run: %v", err)
	}

	snap := metrics.Snapshot()
	t.Logf("Results:")
	t.Logf("  Containers: %v found", snap["containers_found"])
	t.Logf("  Products:   %v extracted, %v skipped", snap["products_extracted"], snap["products_skipped"])
	t.Logf("  Fields:     %v missing", snap["fields_missing"])
	t.Logf("  Data:       %v bytes", snap["bytes_downloaded"])

	// The landing page lists 20 books.
	if snap["containers_found"] < 10 {
		t.Errorf("expected a full product grid, got %v containers", snap["containers_found"])
	}
	if snap["products_extracted"] < 10 {
		t.Errorf("expected extracted products, got %v", snap["products_extracted"])
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		t.Fatalf("output file: %v", err)
	}
	if info.Size() < 100 {
		t.Errorf("output file suspiciously small: %d bytes", info.Size())
	}
}

// TestLiveDynamicScrape runs the browser pipeline end to end. It needs a
// Chromium; the launcher will download one on first use.
func TestLiveDynamicScrape(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live test")
	}

	outputPath := filepath.Join(t.TempDir(), "books_dynamic.csv")
	cfg := booksConfig(outputPath)
	cfg.Browser.RenderWait = 20 * time.Second
	cfg.Browser.SettleDelay = 1 * time.Second
	metrics := observability.NewMetrics(testLogger)

	p, err := scrape.NewDynamic(cfg, testLogger, scrape.WithMetrics(metrics))
	if err != nil {
		t.Fatalf("create pipeline: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	if err := p.Run(ctx, cfg.Target.URL); err != nil {
		t.Fatalf("run: %v", err)
	}

	snap := metrics.Snapshot()
	t.Logf("Containers: %v, Products: %v", snap["containers_found"], snap["products_extracted"])

	if snap["products_extracted"] < 10 {
		t.Errorf("expected extracted products, got %v", snap["products_extracted"])
	}

	if _, err := os.Stat(outputPath); err != nil {
		t.Fatalf("output file: %v", err)
	}
}

// TestLiveStaticAndDynamicAgree points both strategies at the same
// server-rendered page with equivalent selectors; they should extract the
// same products.
func TestLiveStaticAndDynamicAgree(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live test")
	}

	dir := t.TempDir()

	staticCfg := booksConfig(filepath.Join(dir, "static.csv"))
	sp, err := scrape.NewStatic(staticCfg, testLogger)
	if err != nil {
		t.Fatalf("create static pipeline: %v", err)
	}
	defer sp.Close()
	if err := sp.Run(context.Background(), staticCfg.Target.URL); err != nil {
		t.Fatalf("static run: %v", err)
	}

	dynamicCfg := booksConfig(filepath.Join(dir, "dynamic.csv"))
	dynamicCfg.Browser.RenderWait = 20 * time.Second
	dp, err := scrape.NewDynamic(dynamicCfg, testLogger)
	if err != nil {
		t.Fatalf("create dynamic pipeline: %v", err)
	}
	if err := dp.Run(context.Background(), dynamicCfg.Target.URL); err != nil {
		t.Fatalf("dynamic run: %v", err)
	}

	staticOut, err := os.ReadFile(filepath.Join(dir, "static.csv"))
	if err != nil {
		t.Fatalf("read static output: %v", err)
	}
	dynamicOut, err := os.ReadFile(filepath.Join(dir, "dynamic.csv"))
	if err != nil {
		t.Fatalf("read dynamic output: %v", err)
	}

	if string(staticOut) != string(dynamicOut) {
		t.Error("static and dynamic outputs differ for a server-rendered page")
		t.Logf("static:  %d bytes", len(staticOut))
		t.Logf("dynamic: %d bytes", len(dynamicOut))
	}
}
