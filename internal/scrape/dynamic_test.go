package scrape

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shelf-tools/gleaner/internal/config"
	"github.com/shelf-tools/gleaner/internal/observability"
	"github.com/shelf-tools/gleaner/internal/query"
	"github.com/shelf-tools/gleaner/internal/types"
)

// fakeSession drives the dynamic pipeline against a parsed fixture
// instead of a live browser.
type fakeSession struct {
	scope      query.Scope
	navErr     error
	scrollErr  error
	releaseErr error

	navigated string
	scrolled  bool
	releases  int
}

func (s *fakeSession) Navigate(url string) error {
	s.navigated = url
	return s.navErr
}

func (s *fakeSession) Scope() query.Scope { return s.scope }

func (s *fakeSession) ScrollToBottom() error {
	s.scrolled = true
	return s.scrollErr
}

func (s *fakeSession) Release() error {
	s.releases++
	return s.releaseErr
}

func sessionFactory(s Session, err error) SessionFactory {
	return func(*config.BrowserConfig, *slog.Logger) (Session, error) {
		return s, err
	}
}

func dynamicConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testConfig(t)
	cfg.Browser.RenderWait = 200 * time.Millisecond
	cfg.Browser.PollInterval = 10 * time.Millisecond
	cfg.Browser.SettleDelay = 0
	return cfg
}

// --- Dynamic Pipeline Tests ---

func TestDynamicRunWritesRows(t *testing.T) {
	cfg := dynamicConfig(t)
	metrics := observability.NewMetrics(testLogger)
	sess := &fakeSession{scope: parseScope(t, resultsHTML)}

	p, err := NewDynamic(cfg, testLogger,
		WithSessionFactory(sessionFactory(sess, nil)),
		WithMetrics(metrics),
	)
	if err != nil {
		t.Fatalf("new dynamic: %v", err)
	}

	url := "https://example.com/s?k=laptop"
	if err := p.Run(context.Background(), url); err != nil {
		t.Fatalf("run: %v", err)
	}

	if sess.navigated != url {
		t.Errorf("expected navigation to %q, got %q", url, sess.navigated)
	}
	if !sess.scrolled {
		t.Error("expected one scroll pass")
	}
	if sess.releases != 1 {
		t.Errorf("session must be released exactly once, got %d", sess.releases)
	}

	records := readCSV(t, cfg.Storage.Path)
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(records))
	}
	if records[1][0] != "Aurora Laptop 14" || records[3][0] != "Cascade Chromebook" {
		t.Errorf("rows out of order: %v", records)
	}
	if records[2][1] != types.Missing {
		t.Errorf("expected %q price for second product, got %q", types.Missing, records[2][1])
	}

	if metrics.Snapshot()["products_stored"] != 3 {
		t.Errorf("expected 3 products stored, got %d", metrics.Snapshot()["products_stored"])
	}
}

func TestDynamicRenderTimeoutLeavesNoFile(t *testing.T) {
	cfg := dynamicConfig(t)
	sess := &fakeSession{scope: parseScope(t, emptyHTML)}

	p, err := NewDynamic(cfg, testLogger, WithSessionFactory(sessionFactory(sess, nil)))
	if err != nil {
		t.Fatalf("new dynamic: %v", err)
	}

	err = p.Run(context.Background(), "https://example.com/s?k=ghost")

	var rerr *types.RenderTimeoutError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *types.RenderTimeoutError, got %T: %v", err, err)
	}
	if rerr.Wait != cfg.Browser.RenderWait {
		t.Errorf("expected wait ceiling %s in error, got %s", cfg.Browser.RenderWait, rerr.Wait)
	}

	if sess.releases != 1 {
		t.Errorf("session must be released exactly once on timeout, got %d", sess.releases)
	}
	if _, err := os.Stat(cfg.Storage.Path); !os.IsNotExist(err) {
		t.Error("a timed-out run must not leave an output file behind")
	}
}

func TestDynamicAcquisitionFailure(t *testing.T) {
	cfg := dynamicConfig(t)
	berr := &types.BrowserError{Stage: "launch", Err: errors.New("chrome not found")}

	p, err := NewDynamic(cfg, testLogger, WithSessionFactory(sessionFactory(nil, berr)))
	if err != nil {
		t.Fatalf("new dynamic: %v", err)
	}

	err = p.Run(context.Background(), "https://example.com/s")
	var got *types.BrowserError
	if !errors.As(err, &got) {
		t.Fatalf("expected *types.BrowserError, got %T", err)
	}
	if got.Stage != "launch" {
		t.Errorf("expected launch stage, got %q", got.Stage)
	}

	if _, err := os.Stat(cfg.Storage.Path); !os.IsNotExist(err) {
		t.Error("a failed acquisition must not leave an output file behind")
	}
}

func TestDynamicNavigateFailureReleasesSession(t *testing.T) {
	cfg := dynamicConfig(t)
	sess := &fakeSession{
		scope:  parseScope(t, resultsHTML),
		navErr: &types.BrowserError{URL: "https://example.com/s", Stage: "navigate", Err: errors.New("net::ERR_NAME_NOT_RESOLVED")},
	}

	p, err := NewDynamic(cfg, testLogger, WithSessionFactory(sessionFactory(sess, nil)))
	if err != nil {
		t.Fatalf("new dynamic: %v", err)
	}

	err = p.Run(context.Background(), "https://example.com/s")
	var got *types.BrowserError
	if !errors.As(err, &got) {
		t.Fatalf("expected *types.BrowserError, got %T", err)
	}

	if sess.releases != 1 {
		t.Errorf("session must be released exactly once after a failed navigation, got %d", sess.releases)
	}
	if _, err := os.Stat(cfg.Storage.Path); !os.IsNotExist(err) {
		t.Error("a failed navigation must not leave an output file behind")
	}
}

func TestDynamicScrollFailureStillExtracts(t *testing.T) {
	cfg := dynamicConfig(t)
	sess := &fakeSession{
		scope:     parseScope(t, resultsHTML),
		scrollErr: errors.New("execution context destroyed"),
	}

	p, err := NewDynamic(cfg, testLogger, WithSessionFactory(sessionFactory(sess, nil)))
	if err != nil {
		t.Fatalf("new dynamic: %v", err)
	}

	// A failed scroll degrades to whatever already rendered.
	if err := p.Run(context.Background(), "https://example.com/s"); err != nil {
		t.Fatalf("scroll failure must not fail the run: %v", err)
	}

	records := readCSV(t, cfg.Storage.Path)
	if len(records) != 4 {
		t.Errorf("expected full extraction despite failed scroll, got %d records", len(records))
	}
}

func TestDynamicReleaseFailureDoesNotFailRun(t *testing.T) {
	cfg := dynamicConfig(t)
	sess := &fakeSession{
		scope:      parseScope(t, resultsHTML),
		releaseErr: errors.New("browser already gone"),
	}

	p, err := NewDynamic(cfg, testLogger, WithSessionFactory(sessionFactory(sess, nil)))
	if err != nil {
		t.Fatalf("new dynamic: %v", err)
	}

	if err := p.Run(context.Background(), "https://example.com/s"); err != nil {
		t.Fatalf("release failure must not fail a successful run: %v", err)
	}
}

func TestDynamicContextCancelled(t *testing.T) {
	cfg := dynamicConfig(t)
	sess := &fakeSession{scope: parseScope(t, emptyHTML)}

	p, err := NewDynamic(cfg, testLogger, WithSessionFactory(sessionFactory(sess, nil)))
	if err != nil {
		t.Fatalf("new dynamic: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = p.Run(ctx, "https://example.com/s")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if sess.releases != 1 {
		t.Errorf("session must be released exactly once on cancellation, got %d", sess.releases)
	}
}

func TestNewDynamicRejectsBadSelectors(t *testing.T) {
	cfg := dynamicConfig(t)
	cfg.Selectors.Dynamic.Container.Expr = "//div["

	if _, err := NewDynamic(cfg, testLogger); err == nil {
		t.Fatal("expected error for malformed selector")
	}
}
