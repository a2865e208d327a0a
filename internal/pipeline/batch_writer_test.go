package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sodas-cph/urlharvest/internal/fetch"
	"github.com/sodas-cph/urlharvest/internal/loader"
)

func TestBatchWriterFlushesAtThreshold(t *testing.T) {
	dir := t.TempDir()
	w, err := newBatchWriter(dir, "scraped", ModeScrape, loader.SourceBrowser, 2)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Append(&fetch.Result{
			URL:       "https://example.com/a",
			Outcome:   fetch.OutcomeSuccess,
			ScrapedAt: time.Now(),
		}))
	}
	require.NoError(t, w.Flush())

	files, err := filepath.Glob(filepath.Join(dir, "scraped_batch_*.csv"))
	require.NoError(t, err)
	assert.Len(t, files, 3) // 2 + 2 + remainder of 1
	assert.Equal(t, 3, w.Batches())
}

func TestBatchWriterEmptyFlushWritesNothing(t *testing.T) {
	dir := t.TempDir()
	w, err := newBatchWriter(dir, "scraped", ModeScrape, loader.SourceBrowser, 10)
	require.NoError(t, err)

	require.NoError(t, w.Flush())

	files, err := filepath.Glob(filepath.Join(dir, "scraped_batch_*.csv"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestBatchWriterScrapeRow(t *testing.T) {
	dir := t.TempDir()
	w, err := newBatchWriter(dir, "scraped", ModeScrape, loader.SourceBrowser, 10)
	require.NoError(t, err)

	scrapedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, w.Append(&fetch.Result{
		URL:          "https://example.com/story",
		StatusCode:   200,
		Content:      "body text",
		Title:        "A story",
		Author:       "Jane Reporter",
		Date:         "2025-02-28",
		WordCount:    2,
		ResponseTime: 0.1234,
		ScrapedAt:    scrapedAt,
		Outcome:      fetch.OutcomeSuccess,
	}))
	require.NoError(t, w.Flush())

	f, err := os.Open(filepath.Join(dir, "scraped_batch_0001.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, scrapeHeader, records[0])
	assert.Equal(t, []string{
		"https://example.com/story", "200", "body text", "A story",
		"Jane Reporter", "2025-02-28", "2", "0.123",
		"2025-03-01T12:00:00Z", "success", "",
	}, records[1])
}

func TestLastBatchNumber(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scraped_batch_0003.csv"), []byte("url\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scraped_batch_0011.csv"), []byte("url\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resolved_browser_batch_0099.csv"), []byte("url\n"), 0644))

	n, err := lastBatchNumber(dir, "scraped")
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}
