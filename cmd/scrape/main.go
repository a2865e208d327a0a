// Command scrape runs the content-scraping pipeline: it loads URLs from a
// CSV export, fans them out to a worker pool, extracts article content from
// HTTP 200 responses, and checkpoints results into numbered batch files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sodas-cph/urlharvest/internal/cache"
	"github.com/sodas-cph/urlharvest/internal/loader"
	"github.com/sodas-cph/urlharvest/internal/pipeline"
	"github.com/sodas-cph/urlharvest/pkg/logging"
)

func main() {
	cfg := pipeline.DefaultConfig(pipeline.ModeScrape)

	var (
		input         = flag.String("input", "", "input CSV file with a url/URL/link/Link column (required)")
		outputDir     = flag.String("output-dir", cfg.OutputDir, "directory for batch output files")
		cachePath     = flag.String("cache", "", "cache database path (default <output-dir>/scrape_cache.db)")
		timeout       = flag.Duration("timeout", cfg.Timeout, "per-request timeout")
		batchSize     = flag.Int("batch-size", cfg.BatchSize, "results per batch file")
		workers       = flag.Int("workers", cfg.Workers, "concurrent fetch workers")
		maxRedirects  = flag.Int("max-redirects", cfg.MaxRedirects, "maximum redirects to follow")
		maxAttempts   = flag.Int("max-attempts", cfg.MaxAttempts, "fetch attempts per URL (1 = no retry)")
		ratePerSec    = flag.Float64("rate", cfg.RequestsPerSecond, "global requests per second (0 = unlimited)")
		logEvery      = flag.Int("log-every", cfg.LogEvery, "log progress every N completions")
		useBlocklist  = flag.Bool("filter-blocklist", false, "drop search/social/auth domains before scraping")
		respectRobots = flag.Bool("respect-robots", false, "check robots.txt before fetching")
		logLevel      = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "missing required -input flag")
		flag.Usage()
		os.Exit(1)
	}

	cfg.OutputDir = *outputDir
	cfg.Timeout = *timeout
	cfg.BatchSize = *batchSize
	cfg.Workers = *workers
	cfg.MaxRedirects = *maxRedirects
	cfg.MaxAttempts = *maxAttempts
	cfg.RequestsPerSecond = *ratePerSec
	cfg.LogEvery = *logEvery
	cfg.RespectRobots = *respectRobots
	if *useBlocklist {
		cfg.Blocklist = loader.DefaultBlocklist()
	}
	cfg.CachePath = *cachePath
	if cfg.CachePath == "" {
		cfg.CachePath = filepath.Join(cfg.OutputDir, "scrape_cache.db")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "cannot create output dir: %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = *logLevel
	logCfg.OutputFile = logging.RunLogFile(cfg.OutputDir, "scrape")
	if err := logging.SetupLogger(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}

	urls, err := loader.ReadURLs(*input)
	if err != nil {
		log.Fatal().Err(err).Str("input", *input).Msg("Failed to load URLs")
	}

	store, err := cache.Open(cfg.CachePath)
	if err != nil {
		log.Fatal().Err(err).Str("cache", cfg.CachePath).Msg("Failed to open cache")
	}
	defer store.Close()

	if cached, err := store.Count(context.Background()); err == nil && cached > 0 {
		log.Info().Int64("cached_urls", cached).Msg("Cache will short-circuit known URLs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	coord := pipeline.NewCoordinator(cfg, nil, store)
	start := time.Now()
	stats, err := coord.Run(ctx, urls)
	if err != nil {
		log.Fatal().Err(err).Msg("Pipeline failed")
	}

	// Per-URL failures are data, not errors: exit 0 either way.
	log.Info().
		Int("processed", stats.Processed).
		Dur("elapsed", time.Since(start).Round(time.Second)).
		Msg("Scrape finished")
}
