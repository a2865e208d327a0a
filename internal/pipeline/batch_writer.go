package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sodas-cph/urlharvest/internal/fetch"
	"github.com/sodas-cph/urlharvest/internal/loader"
)

// scrapeHeader matches the scraped-content dataset schema.
var scrapeHeader = []string{
	"url", "status_code", "content", "title", "author", "date",
	"word_count", "response_time", "scraped_at", "outcome", "error",
}

// resolveHeader matches the resolved-URL dataset schema.
var resolveHeader = []string{
	"original_url", "resolved_url", "status_code", "redirect_count",
	"success", "outcome", "source", "response_time", "resolved_at", "error",
}

// batchWriter accumulates results and flushes them to uniquely numbered CSV
// files: <prefix>_batch_0001.csv, _0002, and so on. Numbering continues after
// any batches already present in the output directory, so interrupted runs
// append rather than overwrite. Only the coordinator goroutine touches it.
type batchWriter struct {
	dir       string
	prefix    string
	mode      Mode
	source    loader.Source
	batchSize int
	batchNum  int
	written   int
	buf       []*fetch.Result
}

func newBatchWriter(dir, prefix string, mode Mode, source loader.Source, batchSize int) (*batchWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output dir %s: %w", dir, err)
	}
	if batchSize < 1 {
		batchSize = 1
	}

	w := &batchWriter{
		dir:       dir,
		prefix:    prefix,
		mode:      mode,
		source:    source,
		batchSize: batchSize,
	}

	last, err := lastBatchNumber(dir, prefix)
	if err != nil {
		return nil, err
	}
	w.batchNum = last
	if last > 0 {
		log.Info().Int("last_batch", last).Msg("Continuing batch numbering from existing files")
	}

	return w, nil
}

// lastBatchNumber finds the highest existing batch number for a prefix.
func lastBatchNumber(dir, prefix string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"_batch_*.csv"))
	if err != nil {
		return 0, err
	}
	last := 0
	for _, m := range matches {
		stem := strings.TrimSuffix(filepath.Base(m), ".csv")
		numPart := stem[strings.LastIndex(stem, "_")+1:]
		if n, err := strconv.Atoi(numPart); err == nil && n > last {
			last = n
		}
	}
	return last, nil
}

// Append buffers one result, flushing a full batch to disk when the
// threshold is reached.
func (w *batchWriter) Append(r *fetch.Result) error {
	w.buf = append(w.buf, r)
	if len(w.buf) >= w.batchSize {
		return w.Flush()
	}
	return nil
}

// Flush writes buffered results to the next numbered batch file. A flush
// with an empty buffer is a no-op, so the end-of-run flush never produces
// an empty file.
func (w *batchWriter) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}

	w.batchNum++
	path := filepath.Join(w.dir, fmt.Sprintf("%s_batch_%04d.csv", w.prefix, w.batchNum))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating batch file %s: %w", path, err)
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(w.header()); err != nil {
		f.Close()
		return fmt.Errorf("writing header to %s: %w", path, err)
	}
	for _, r := range w.buf {
		if err := cw.Write(w.row(r)); err != nil {
			f.Close()
			return fmt.Errorf("writing row to %s: %w", path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}

	log.Debug().Str("file", path).Int("rows", len(w.buf)).Msg("Wrote batch file")
	w.written++
	w.buf = w.buf[:0]
	return nil
}

// Batches returns how many batch files this writer has produced this run.
func (w *batchWriter) Batches() int {
	return w.written
}

func (w *batchWriter) header() []string {
	if w.mode == ModeResolve {
		return resolveHeader
	}
	return scrapeHeader
}

func (w *batchWriter) row(r *fetch.Result) []string {
	if w.mode == ModeResolve {
		return []string{
			r.URL,
			r.ResolvedURL,
			strconv.Itoa(r.StatusCode),
			strconv.Itoa(r.RedirectCount),
			strconv.FormatBool(r.Success()),
			string(r.Outcome),
			string(w.source),
			formatSeconds(r.ResponseTime),
			r.ScrapedAt.Format(time.RFC3339),
			r.Error,
		}
	}
	return []string{
		r.URL,
		strconv.Itoa(r.StatusCode),
		r.Content,
		r.Title,
		r.Author,
		r.Date,
		strconv.Itoa(r.WordCount),
		formatSeconds(r.ResponseTime),
		r.ScrapedAt.Format(time.RFC3339),
		string(r.Outcome),
		r.Error,
	}
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// sortedBatchFiles lists a directory's batch files for a pattern in stable
// lexical order; the zero-padded numbering makes that chronological too.
func sortedBatchFiles(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
