// Package pipeline fans URLs out to a bounded pool of fetch workers,
// checkpoints completed results into numbered CSV batch files, and keeps
// running statistics for progress logging.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sodas-cph/urlharvest/internal/cache"
	"github.com/sodas-cph/urlharvest/internal/fetch"
	"github.com/sodas-cph/urlharvest/pkg/logging"
)

// Coordinator runs one batch pipeline: it owns the worker pool, the result
// writer, and the durable cache. Results arrive in completion order, not
// submission order; batch numbering reflects that.
type Coordinator struct {
	cfg    *Config
	client *fetch.Client
	store  *cache.Store
	log    zerolog.Logger
	runID  string
}

// NewCoordinator wires a coordinator from config. The cache store may be nil,
// which disables the cache short-circuit (used by discovery runs).
func NewCoordinator(cfg *Config, client *fetch.Client, store *cache.Store) *Coordinator {
	if client == nil {
		client = fetch.NewClient(cfg.FetchConfig())
	}
	runID := uuid.NewString()[:8]
	return &Coordinator{
		cfg:    cfg,
		client: client,
		store:  store,
		log:    logging.GetPipelineLogger(string(cfg.Mode), "coordinator").With().Str("run_id", runID).Logger(),
		runID:  runID,
	}
}

// Run processes the URL list to completion and returns the run statistics.
// Per-URL failures never abort the run; the only errors returned are
// coordinator-level ones (an unwritable output directory, a broken cache).
// Cancelling the context stops dispatching new URLs; in-flight requests run
// to completion or timeout and their results are still flushed.
func (c *Coordinator) Run(ctx context.Context, urls []string) (*Stats, error) {
	if c.cfg.Blocklist != nil {
		urls = c.cfg.Blocklist.Filter(urls)
	}

	writer, err := newBatchWriter(c.cfg.OutputDir, c.cfg.BatchPrefix(), c.cfg.Mode, c.cfg.Source, c.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	stats := newStats(len(urls))
	c.log.Info().
		Int("urls", len(urls)).
		Int("workers", c.cfg.Workers).
		Int("batch_size", c.cfg.BatchSize).
		Dur("timeout", c.cfg.Timeout).
		Msg("Starting pipeline run")

	if len(urls) == 0 {
		return stats, nil
	}

	workers := c.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	results := make(chan *fetch.Result, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				results <- c.process(ctx, u)
			}
		}()
	}

	// Feeder: stops dispatching when the context is cancelled; workers
	// drain and exit on the closed channel.
	go func() {
		defer close(jobs)
		for _, u := range urls {
			select {
			case jobs <- u:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single aggregation point: stats and the batch writer are only touched
	// here, in completion order.
	var writeErr error
	for r := range results {
		stats.record(r)
		if writeErr == nil {
			writeErr = writer.Append(r)
		}
		if c.cfg.LogEvery > 0 && stats.Processed%c.cfg.LogEvery == 0 {
			c.logProgress(stats)
		}
	}
	if writeErr != nil {
		return stats, fmt.Errorf("writing batch output: %w", writeErr)
	}
	if err := writer.Flush(); err != nil {
		return stats, fmt.Errorf("flushing final batch: %w", err)
	}

	c.logSummary(stats, writer.Batches())
	return stats, nil
}

// process handles one URL: cache short-circuit, fetch, persist. It always
// returns a result; cache write failures are logged, not fatal, since the
// result still reaches the batch output.
func (c *Coordinator) process(ctx context.Context, url string) *fetch.Result {
	if c.store != nil {
		entry, ok, err := c.store.Get(ctx, url)
		if err != nil {
			c.log.Warn().Err(err).Str("url", url).Msg("Cache read failed")
		} else if ok {
			return resultFromEntry(entry)
		}
	}

	var result *fetch.Result
	if c.cfg.Mode == ModeResolve || !c.cfg.ExtractContent {
		result = c.client.Resolve(ctx, url)
	} else {
		result = c.client.Scrape(ctx, url)
	}

	if c.store != nil {
		if err := c.store.Put(ctx, entryFromResult(result)); err != nil {
			c.log.Warn().Err(err).Str("url", url).Msg("Cache write failed")
		}
	}
	return result
}

// resultFromEntry reconstructs a worker result from a prior run's cache
// entry. Cached outcomes are authoritative; no network call is made.
func resultFromEntry(e *cache.Entry) *fetch.Result {
	return &fetch.Result{
		URL:           e.OriginalURL,
		ResolvedURL:   e.ResolvedURL,
		StatusCode:    e.StatusCode,
		RedirectCount: e.RedirectCount,
		Outcome:       fetch.Outcome(e.Outcome),
		Error:         e.Error,
		ResponseTime:  e.ResponseTime,
		ScrapedAt:     e.CachedAt,
		CacheHit:      true,
	}
}

func entryFromResult(r *fetch.Result) *cache.Entry {
	return &cache.Entry{
		OriginalURL:   r.URL,
		ResolvedURL:   r.ResolvedURL,
		StatusCode:    r.StatusCode,
		RedirectCount: r.RedirectCount,
		Success:       r.Success(),
		Outcome:       string(r.Outcome),
		Error:         r.Error,
		ResponseTime:  r.ResponseTime,
		CachedAt:      time.Now(),
	}
}

func (c *Coordinator) logProgress(s *Stats) {
	c.log.Info().
		Int("processed", s.Processed).
		Int("total", s.Total).
		Str("pct", fmt.Sprintf("%.1f%%", 100*float64(s.Processed)/float64(s.Total))).
		Int("success", s.Success).
		Int("failed", s.Failed).
		Int("cache_hits", s.CacheHits).
		Str("rate", fmt.Sprintf("%.1f/sec", s.Rate())).
		Str("eta", s.ETA().Round(time.Second).String()).
		Msg("Progress")
}

func (c *Coordinator) logSummary(s *Stats, batches int) {
	ev := c.log.Info().
		Int("total", s.Total).
		Int("processed", s.Processed).
		Int("success", s.Success).
		Int("failed", s.Failed).
		Int("cache_hits", s.CacheHits).
		Int("batches", batches).
		Str("success_rate", fmt.Sprintf("%.1f%%", 100*s.SuccessRate())).
		Dur("elapsed", s.Elapsed().Round(time.Millisecond)).
		Str("throughput", fmt.Sprintf("%.1f/sec", s.Rate()))
	for outcome, n := range s.ByOutcome {
		ev = ev.Int(string(outcome), n)
	}
	ev.Msg("Run complete")
}
