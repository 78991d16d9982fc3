package browser

import (
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/shelf-tools/gleaner/internal/config"
	"github.com/shelf-tools/gleaner/internal/query"
	"github.com/shelf-tools/gleaner/internal/types"
)

// Session owns one browser process and the single tab a scrape runs in.
// It must be released on every exit path; Release is idempotent, so a
// deferred call and an explicit early one cannot double-free.
type Session struct {
	cfg      *config.BrowserConfig
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	logger   *slog.Logger

	releaseOnce sync.Once
	releaseErr  error
}

// Acquire launches a Chromium instance and opens a blank tab. On failure
// the partially acquired resources are torn down before the error is
// returned, so callers never hold half a session.
func Acquire(cfg *config.BrowserConfig, logger *slog.Logger) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		// Chromium is chatty on stderr; keep driver noise out of our logs.
		Set("log-level", "3").
		Set("disable-logging")

	if cfg.BinPath != "" {
		l = l.Bin(cfg.BinPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, &types.BrowserError{Stage: "launch", Err: err}
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, &types.BrowserError{Stage: "connect", Err: err}
	}

	var page *rod.Page
	if cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, &types.BrowserError{Stage: "page", Err: err}
	}

	s := &Session{
		cfg:      cfg,
		launcher: l,
		browser:  b,
		page:     page,
		logger:   logger.With("component", "browser_session"),
	}

	s.logger.Debug("browser session acquired", "headless", cfg.Headless, "stealth", cfg.Stealth)
	return s, nil
}

// Navigate drives the tab to the target page. The load event is waited
// for best-effort only; the caller's readiness poll decides when the page
// is actually usable.
func (s *Session) Navigate(url string) error {
	if err := s.page.Timeout(s.cfg.NavigateTimeout).Navigate(url); err != nil {
		return &types.BrowserError{URL: url, Stage: "navigate", Err: err}
	}
	if err := s.page.Timeout(s.cfg.NavigateTimeout).WaitLoad(); err != nil {
		s.logger.Warn("page load wait timed out, continuing", "url", url, "error", err)
	}
	return nil
}

// Scope exposes the live page to the query layer.
func (s *Session) Scope() query.Scope {
	return query.NewPageScope(s.page)
}

// Release tears the session down: tab, browser connection, then the
// launched process and its temp profile. Only the first call does work;
// later calls return the first call's result.
func (s *Session) Release() error {
	s.releaseOnce.Do(func() {
		if s.page != nil {
			_ = s.page.Close()
		}
		if s.browser != nil {
			s.releaseErr = s.browser.Close()
		}
		if s.launcher != nil {
			s.launcher.Cleanup()
		}
		s.logger.Debug("browser session released")
	})
	return s.releaseErr
}
