package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBatch(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestCombineConcatenatesInFilenameOrder(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "scraped_batch_0002.csv", "url,outcome\nhttps://b.example,success\n")
	writeBatch(t, dir, "scraped_batch_0001.csv", "url,outcome\nhttps://a.example,success\nhttps://a2.example,http_error\n")

	out := filepath.Join(dir, "combined.csv")
	rows, err := Combine(dir, "scraped_batch_*.csv", out)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t,
		"url,outcome\n"+
			"https://a.example,success\n"+
			"https://a2.example,http_error\n"+
			"https://b.example,success\n",
		string(data))
}

func TestCombineIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "scraped_batch_0001.csv", "url,outcome\nhttps://a.example,success\n")
	writeBatch(t, dir, "scraped_batch_0002.csv", "url,outcome\nhttps://b.example,timeout\n")

	first := filepath.Join(dir, "combined_1.csv")
	second := filepath.Join(dir, "combined_2.csv")

	_, err := Combine(dir, "scraped_batch_*.csv", first)
	require.NoError(t, err)
	_, err = Combine(dir, "scraped_batch_*.csv", second)
	require.NoError(t, err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b, "re-running combine must produce byte-identical output")
}

func TestCombineNoFiles(t *testing.T) {
	dir := t.TempDir()

	rows, err := Combine(dir, "scraped_batch_*.csv", filepath.Join(dir, "combined.csv"))
	require.NoError(t, err)
	assert.Equal(t, 0, rows)
}

func TestCombineSkipsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "scraped_batch_0001.csv", "url,outcome\nhttps://a.example,success\n")
	// A file with a mangled quote that the CSV reader rejects outright.
	writeBatch(t, dir, "scraped_batch_0002.csv", "url,outcome\n\"broken,success\n")
	writeBatch(t, dir, "scraped_batch_0003.csv", "url,outcome\nhttps://c.example,success\n")

	out := filepath.Join(dir, "combined.csv")
	rows, err := Combine(dir, "scraped_batch_*.csv", out)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
}
