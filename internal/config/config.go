package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for Gleaner.
type Config struct {
	Target    TargetConfig    `mapstructure:"target"    yaml:"target"`
	Fetch     FetchConfig     `mapstructure:"fetch"     yaml:"fetch"`
	Browser   BrowserConfig   `mapstructure:"browser"   yaml:"browser"`
	Selectors SelectorsConfig `mapstructure:"selectors" yaml:"selectors"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// TargetConfig identifies the listing page to scrape.
type TargetConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// FetchConfig controls the static HTTP fetch.
type FetchConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"          yaml:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"       yaml:"user_agent"`
	AcceptLanguage  string        `mapstructure:"accept_language"  yaml:"accept_language"`
	FollowRedirects bool          `mapstructure:"follow_redirects" yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"    yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"    yaml:"max_body_size"`
}

// BrowserConfig controls the dynamic browser session.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless"         yaml:"headless"`
	Stealth         bool          `mapstructure:"stealth"          yaml:"stealth"`
	BinPath         string        `mapstructure:"bin_path"         yaml:"bin_path"`
	NavigateTimeout time.Duration `mapstructure:"navigate_timeout" yaml:"navigate_timeout"`
	RenderWait      time.Duration `mapstructure:"render_wait"      yaml:"render_wait"`
	PollInterval    time.Duration `mapstructure:"poll_interval"    yaml:"poll_interval"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"     yaml:"settle_delay"`
}

// SelectorsConfig holds the selector sets for both pipelines. The static
// set runs against the parsed response document, the dynamic set against
// the live page after rendering.
type SelectorsConfig struct {
	Static  SelectorSet `mapstructure:"static"  yaml:"static"`
	Dynamic SelectorSet `mapstructure:"dynamic" yaml:"dynamic"`
}

// SelectorSet names the container selector plus one selector per product
// field. Field selectors are evaluated inside each container.
type SelectorSet struct {
	Container SelectorRule `mapstructure:"container" yaml:"container"`
	Name      SelectorRule `mapstructure:"name"      yaml:"name"`
	Price     SelectorRule `mapstructure:"price"     yaml:"price"`
	Rating    SelectorRule `mapstructure:"rating"    yaml:"rating"`
}

// SelectorRule defines a single lookup. Type selects the engine (css or
// xpath, css when empty). Attr, when set, reads that attribute off the
// matched node instead of its inner text.
type SelectorRule struct {
	Type string `mapstructure:"type" yaml:"type"`
	Expr string `mapstructure:"expr" yaml:"expr"`
	Attr string `mapstructure:"attr" yaml:"attr"`
}

// StorageConfig controls output/export.
type StorageConfig struct {
	Type  string      `mapstructure:"type"  yaml:"type"`
	Path  string      `mapstructure:"path"  yaml:"path"`
	Mongo MongoConfig `mapstructure:"mongo" yaml:"mongo"`
}

// MongoConfig holds connection settings for the mongo backend.
type MongoConfig struct {
	URI        string        `mapstructure:"uri"        yaml:"uri"`
	Database   string        `mapstructure:"database"   yaml:"database"`
	Collection string        `mapstructure:"collection" yaml:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"    yaml:"timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults. Selector defaults
// target Amazon-style search result pages, the site the tool grew up on.
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			URL: "https://www.amazon.in/s?k=laptop",
		},
		Fetch: FetchConfig{
			Timeout:         10 * time.Second,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/100.0.4896.127 Safari/537.36",
			AcceptLanguage:  "en-US, en;q=0.9",
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
		},
		Browser: BrowserConfig{
			Headless:        true,
			Stealth:         false,
			NavigateTimeout: 30 * time.Second,
			RenderWait:      15 * time.Second,
			PollInterval:    500 * time.Millisecond,
			SettleDelay:     2 * time.Second,
		},
		Selectors: SelectorsConfig{
			Static: SelectorSet{
				Container: SelectorRule{Type: "css", Expr: "div[data-component-type='s-search-result']"},
				Name:      SelectorRule{Type: "css", Expr: "h2"},
				Price:     SelectorRule{Type: "css", Expr: "span.a-price-whole"},
				Rating:    SelectorRule{Type: "css", Expr: "span.a-icon-alt"},
			},
			Dynamic: SelectorSet{
				Container: SelectorRule{Type: "xpath", Expr: "//div[@data-component-type='s-search-result']"},
				Name:      SelectorRule{Type: "xpath", Expr: ".//h2//span"},
				Price:     SelectorRule{Type: "xpath", Expr: ".//span[@class='a-price-whole']"},
				Rating:    SelectorRule{Type: "xpath", Expr: ".//span[@class='a-icon-alt']"},
			},
		},
		Storage: StorageConfig{
			Type: "csv",
			Path: "products.csv",
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "gleaner",
				Collection: "products",
				Timeout:    10 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
