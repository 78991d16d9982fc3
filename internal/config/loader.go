package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults from struct
	setDefaults(v, cfg)

	// Environment variable support
	v.SetEnvPrefix("GLEANER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Search default locations
		v.SetConfigName("gleaner")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".gleaner"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	return Load(path)
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("target.url", cfg.Target.URL)

	v.SetDefault("fetch.timeout", cfg.Fetch.Timeout)
	v.SetDefault("fetch.user_agent", cfg.Fetch.UserAgent)
	v.SetDefault("fetch.accept_language", cfg.Fetch.AcceptLanguage)
	v.SetDefault("fetch.follow_redirects", cfg.Fetch.FollowRedirects)
	v.SetDefault("fetch.max_redirects", cfg.Fetch.MaxRedirects)
	v.SetDefault("fetch.max_body_size", cfg.Fetch.MaxBodySize)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.bin_path", cfg.Browser.BinPath)
	v.SetDefault("browser.navigate_timeout", cfg.Browser.NavigateTimeout)
	v.SetDefault("browser.render_wait", cfg.Browser.RenderWait)
	v.SetDefault("browser.poll_interval", cfg.Browser.PollInterval)
	v.SetDefault("browser.settle_delay", cfg.Browser.SettleDelay)

	setSelectorDefaults(v, "selectors.static", cfg.Selectors.Static)
	setSelectorDefaults(v, "selectors.dynamic", cfg.Selectors.Dynamic)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.mongo.uri", cfg.Storage.Mongo.URI)
	v.SetDefault("storage.mongo.database", cfg.Storage.Mongo.Database)
	v.SetDefault("storage.mongo.collection", cfg.Storage.Mongo.Collection)
	v.SetDefault("storage.mongo.timeout", cfg.Storage.Mongo.Timeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

func setSelectorDefaults(v *viper.Viper, prefix string, set SelectorSet) {
	rules := map[string]SelectorRule{
		"container": set.Container,
		"name":      set.Name,
		"price":     set.Price,
		"rating":    set.Rating,
	}
	for key, rule := range rules {
		v.SetDefault(prefix+"."+key+".type", rule.Type)
		v.SetDefault(prefix+"."+key+".expr", rule.Expr)
		v.SetDefault(prefix+"."+key+".attr", rule.Attr)
	}
}
