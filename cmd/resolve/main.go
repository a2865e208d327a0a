// Command resolve runs the redirect-resolution pipeline: it follows HTTP and
// meta-refresh redirects for every URL in a CSV export and records the final
// destination, chain length, and outcome in numbered batch files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/sodas-cph/urlharvest/internal/cache"
	"github.com/sodas-cph/urlharvest/internal/loader"
	"github.com/sodas-cph/urlharvest/internal/pipeline"
	"github.com/sodas-cph/urlharvest/pkg/logging"
)

func main() {
	cfg := pipeline.DefaultConfig(pipeline.ModeResolve)

	var (
		input        = flag.String("input", "", "input CSV file with a url/URL/link/Link column (required)")
		outputDir    = flag.String("output-dir", cfg.OutputDir, "directory for batch output files")
		source       = flag.String("source", string(loader.SourceBrowser), "url source label: browser or facebook")
		cachePath    = flag.String("cache", "", "cache database path (default <output-dir>/url_resolution_cache.db)")
		timeout      = flag.Duration("timeout", cfg.Timeout, "per-request timeout")
		batchSize    = flag.Int("batch-size", cfg.BatchSize, "results per batch file")
		workers      = flag.Int("workers", cfg.Workers, "concurrent resolution workers")
		maxRedirects = flag.Int("max-redirects", cfg.MaxRedirects, "maximum redirects to follow")
		maxAttempts  = flag.Int("max-attempts", cfg.MaxAttempts, "attempts per URL (1 = no retry)")
		ratePerSec   = flag.Float64("rate", cfg.RequestsPerSecond, "global requests per second (0 = unlimited)")
		logEvery     = flag.Int("log-every", cfg.LogEvery, "log progress every N completions")
		logLevel     = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "missing required -input flag")
		flag.Usage()
		os.Exit(1)
	}
	if *source != string(loader.SourceBrowser) && *source != string(loader.SourceFacebook) {
		fmt.Fprintf(os.Stderr, "invalid -source %q: must be browser or facebook\n", *source)
		os.Exit(1)
	}

	cfg.OutputDir = *outputDir
	cfg.Source = loader.Source(*source)
	cfg.Timeout = *timeout
	cfg.BatchSize = *batchSize
	cfg.Workers = *workers
	cfg.MaxRedirects = *maxRedirects
	cfg.MaxAttempts = *maxAttempts
	cfg.RequestsPerSecond = *ratePerSec
	cfg.LogEvery = *logEvery
	cfg.CachePath = *cachePath
	if cfg.CachePath == "" {
		cfg.CachePath = filepath.Join(cfg.OutputDir, "url_resolution_cache.db")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "cannot create output dir: %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = *logLevel
	logCfg.OutputFile = logging.RunLogFile(cfg.OutputDir, "resolve_"+*source)
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	coord := pipeline.NewCoordinator(cfg, nil, store)
	if _, err := coord.Run(ctx, urls); err != nil {
		log.Fatal().Err(err).Msg("Pipeline failed")
	}
}
