package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelf-tools/gleaner/internal/config"
	"github.com/shelf-tools/gleaner/internal/observability"
	"github.com/shelf-tools/gleaner/internal/scrape"
	"github.com/shelf-tools/gleaner/internal/types"
)

var (
	cfgFile      string
	verbose      bool
	logFile      string
	outputPath   string
	outputFormat string
	userAgent    string
	fetchTimeout time.Duration
	headless     bool
	stealthMode  bool
	renderWait   time.Duration
	settleDelay  time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gleaner",
		Short: "Gleaner — product listing scraper",
		Long: `Gleaner extracts product listings (name, price, rating) from e-commerce
search result pages and writes them as tabular records.

Two acquisition strategies against the same target:
  • static  — one GET plus HTML parsing, for server-rendered pages
  • dynamic — a headless browser session with scroll-triggered loading,
              for pages that only fill in after script execution

Output goes to CSV by default; JSON, JSONL, and MongoDB sinks are
available, alone or fanned out together.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file instead of stderr")

	rootCmd.AddCommand(staticCmd())
	rootCmd.AddCommand(dynamicCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// staticCmd creates the "static" subcommand.
func staticCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "static [url]",
		Short: "Scrape using a single HTTP fetch",
		Long:  "Scrape the listing page with one GET request and parse the initial response. Content that only renders in a browser will be missed; use the dynamic command for that.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStatic,
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format: csv, json, jsonl, mongo (comma-separate to fan out)")
	cmd.Flags().StringVar(&userAgent, "user-agent", "", "custom User-Agent string")
	cmd.Flags().DurationVar(&fetchTimeout, "timeout", 0, "HTTP request timeout (0 = use config default)")

	return cmd
}

// dynamicCmd creates the "dynamic" subcommand.
func dynamicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dynamic [url]",
		Short: "Scrape using a headless browser session",
		Long:  "Scrape the listing page in a browser: wait for results to render, scroll once to trigger lazy loading, then extract whatever is on the page.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDynamic,
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format: csv, json, jsonl, mongo (comma-separate to fan out)")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the browser without a visible window")
	cmd.Flags().BoolVar(&stealthMode, "stealth", false, "apply bot-detection countermeasure patches")
	cmd.Flags().DurationVar(&renderWait, "render-wait", 0, "ceiling for the first-container wait (0 = use config default)")
	cmd.Flags().DurationVar(&settleDelay, "settle-delay", 0, "pause after the scroll pass (0 = use config default)")

	return cmd
}

// runStatic executes the static command.
func runStatic(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)

	logger, closeLog, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	url := targetURL(cfg, args)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Info("starting static scrape",
		"url", url,
		"output", cfg.Storage.Path,
		"format", cfg.Storage.Type,
	)

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	pipe, err := scrape.NewStatic(cfg, logger, scrape.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer pipe.Close()

	start := time.Now()
	if err := pipe.Run(signalContext(logger), url); err != nil {
		return err
	}

	printSummary(metrics, cfg, time.Since(start))
	return nil
}

// runDynamic executes the dynamic command.
func runDynamic(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if cmd.Flags().Changed("stealth") {
		cfg.Browser.Stealth = stealthMode
	}

	logger, closeLog, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	url := targetURL(cfg, args)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Info("starting dynamic scrape",
		"url", url,
		"headless", cfg.Browser.Headless,
		"output", cfg.Storage.Path,
		"format", cfg.Storage.Type,
	)

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	pipe, err := scrape.NewDynamic(cfg, logger, scrape.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	start := time.Now()
	if err := pipe.Run(signalContext(logger), url); err != nil {
		return err
	}

	printSummary(metrics, cfg, time.Since(start))
	return nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gleaner %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Target:\n")
			fmt.Printf("  URL:               %s\n", cfg.Target.URL)
			fmt.Printf("\nFetch:\n")
			fmt.Printf("  Timeout:           %s\n", cfg.Fetch.Timeout)
			fmt.Printf("  User-Agent:        %s\n", cfg.Fetch.UserAgent)
			fmt.Printf("  Accept-Language:   %s\n", cfg.Fetch.AcceptLanguage)
			fmt.Printf("  Follow Redirects:  %v\n", cfg.Fetch.FollowRedirects)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetch.MaxBodySize)
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Headless:          %v\n", cfg.Browser.Headless)
			fmt.Printf("  Stealth:           %v\n", cfg.Browser.Stealth)
			fmt.Printf("  Navigate Timeout:  %s\n", cfg.Browser.NavigateTimeout)
			fmt.Printf("  Render Wait:       %s\n", cfg.Browser.RenderWait)
			fmt.Printf("  Poll Interval:     %s\n", cfg.Browser.PollInterval)
			fmt.Printf("  Settle Delay:      %s\n", cfg.Browser.SettleDelay)
			fmt.Printf("\nSelectors (static):\n")
			printSelectorSet(cfg.Selectors.Static)
			fmt.Printf("\nSelectors (dynamic):\n")
			printSelectorSet(cfg.Selectors.Dynamic)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Path:              %s\n", cfg.Storage.Path)
			fmt.Printf("\nLogging:\n")
			fmt.Printf("  Level:             %s\n", cfg.Logging.Level)
			fmt.Printf("  Format:            %s\n", cfg.Logging.Format)
			fmt.Printf("  Output:            %s\n", cfg.Logging.Output)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			fmt.Printf("  Path:              %s\n", cfg.Metrics.Path)
			return nil
		},
	}
}

func printSelectorSet(set config.SelectorSet) {
	fmt.Printf("  Container:         %s %s\n", set.Container.Type, set.Container.Expr)
	fmt.Printf("  Name:              %s %s\n", set.Name.Type, set.Name.Expr)
	fmt.Printf("  Price:             %s %s\n", set.Price.Type, set.Price.Expr)
	fmt.Printf("  Rating:            %s %s\n", set.Rating.Type, set.Rating.Expr)
}

// setupLogger creates the process logger from config. The returned close
// function flushes the log file, if one is in use, and must run at exit.
func setupLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	level := parseLevel(cfg.Logging.Level)
	if verbose {
		level = slog.LevelDebug
	}

	var out io.Writer
	closeFn := func() {}
	switch cfg.Logging.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Logging.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { f.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closeFn, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if logFile != "" {
		cfg.Logging.Output = logFile
	}
	if outputPath != "" {
		cfg.Storage.Path = outputPath
	}
	if outputFormat != "" {
		cfg.Storage.Type = strings.ToLower(outputFormat)
	}
	if userAgent != "" {
		cfg.Fetch.UserAgent = userAgent
	}
	if fetchTimeout > 0 {
		cfg.Fetch.Timeout = fetchTimeout
	}
	if renderWait > 0 {
		cfg.Browser.RenderWait = renderWait
	}
	if settleDelay > 0 {
		cfg.Browser.SettleDelay = settleDelay
	}
}

// targetURL picks the positional URL argument over the configured target.
func targetURL(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		cfg.Target.URL = args[0]
	}
	return cfg.Target.URL
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", "signal", sig)
		cancel()
	}()
	return ctx
}

func printSummary(metrics *observability.Metrics, cfg *config.Config, elapsed time.Duration) {
	stats := metrics.Snapshot()
	fmt.Printf("\nScrape complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("   Containers: %v found\n", stats["containers_found"])
	fmt.Printf("   Products:   %v extracted, %v skipped\n", stats["products_extracted"], stats["products_skipped"])
	fmt.Printf("   Fields:     %v filled with %s\n", stats["fields_missing"], types.Missing)
	fmt.Printf("   Output:     %s\n", cfg.Storage.Path)
}
