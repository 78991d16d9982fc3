package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shelf-tools/gleaner/internal/query"
	"github.com/shelf-tools/gleaner/internal/types"
)

// Validate checks the configuration for invalid values. Selector
// expressions are compiled here so typos fail the run up front instead of
// matching nothing at scrape time.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Target.URL); err != nil {
		return fmt.Errorf("target.url: %w", err)
	}

	if cfg.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0")
	}
	if cfg.Fetch.MaxBodySize <= 0 {
		return fmt.Errorf("fetch.max_body_size must be > 0")
	}
	if cfg.Fetch.MaxRedirects < 0 {
		return fmt.Errorf("fetch.max_redirects must be >= 0")
	}

	if cfg.Browser.NavigateTimeout <= 0 {
		return fmt.Errorf("browser.navigate_timeout must be > 0")
	}
	if cfg.Browser.RenderWait <= 0 {
		return fmt.Errorf("browser.render_wait must be > 0")
	}
	if cfg.Browser.PollInterval <= 0 {
		return fmt.Errorf("browser.poll_interval must be > 0")
	}
	if cfg.Browser.SettleDelay < 0 {
		return fmt.Errorf("browser.settle_delay must be >= 0")
	}

	if err := validateSelectorSet("selectors.static", cfg.Selectors.Static); err != nil {
		return err
	}
	if err := validateSelectorSet("selectors.dynamic", cfg.Selectors.Dynamic); err != nil {
		return err
	}

	validStorageTypes := map[string]bool{
		"csv": true, "json": true, "jsonl": true, "mongo": true,
	}
	// storage.type may be a comma-separated list for fan-out.
	for _, kind := range strings.Split(cfg.Storage.Type, ",") {
		kind = strings.TrimSpace(kind)
		if !validStorageTypes[kind] {
			return fmt.Errorf("storage.type %q is not supported (valid: csv, json, jsonl, mongo)", kind)
		}
		if kind == "mongo" {
			if cfg.Storage.Mongo.URI == "" {
				return fmt.Errorf("storage.mongo.uri is required for the mongo backend")
			}
			if cfg.Storage.Mongo.Database == "" || cfg.Storage.Mongo.Collection == "" {
				return fmt.Errorf("storage.mongo.database and storage.mongo.collection are required for the mongo backend")
			}
		} else if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s backend", kind)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
		}
	}

	return nil
}

func validateSelectorSet(prefix string, set SelectorSet) error {
	rules := map[string]SelectorRule{
		"container": set.Container,
		"name":      set.Name,
		"price":     set.Price,
		"rating":    set.Rating,
	}
	for key, rule := range rules {
		if _, err := rule.Compile(); err != nil {
			return fmt.Errorf("%s.%s: %w", prefix, key, err)
		}
	}
	return nil
}

// Compile turns the rule into a typed selector, validating it.
func (r SelectorRule) Compile() (query.Selector, error) {
	return query.Parse(r.Type, r.Expr)
}

// ValidateURL checks if a URL string is a usable scrape target.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", types.ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", types.ErrInvalidURL)
	}
	return nil
}
