package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadURLsDeduplicatesPreservingOrder(t *testing.T) {
	path := writeCSV(t, "urls.csv",
		"id,url\n"+
			"1,https://example.com/a\n"+
			"2,https://example.com/b\n"+
			"3,https://example.com/a\n"+
			"4,\n"+
			"5,https://example.com/c\n")

	urls, err := ReadURLs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	}, urls)
}

func TestReadURLsRecognizesAlternateColumnNames(t *testing.T) {
	for _, col := range []string{"url", "URL", "link", "Link"} {
		path := writeCSV(t, "urls.csv", col+"\nhttps://example.com/x\n")
		urls, err := ReadURLs(path)
		require.NoError(t, err, "column %s", col)
		assert.Equal(t, []string{"https://example.com/x"}, urls, "column %s", col)
	}
}

func TestReadURLsMissingColumnReturnsEmpty(t *testing.T) {
	path := writeCSV(t, "urls.csv", "id,title\n1,hello\n")

	urls, err := ReadURLs(path)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestReadURLsMissingFileFails(t *testing.T) {
	_, err := ReadURLs(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestReadURLFilesDeduplicatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(a, []byte("url\nhttps://example.com/1\nhttps://example.com/2\n"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("url\nhttps://example.com/2\nhttps://example.com/3\n"), 0644))

	urls, err := ReadURLFiles([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/3",
	}, urls)
}

func TestBlocklistBlocksDomainsAndSubdomains(t *testing.T) {
	b := DefaultBlocklist()

	assert.True(t, b.Blocked("https://facebook.com/some-post"))
	assert.True(t, b.Blocked("https://m.facebook.com/some-post"))
	assert.True(t, b.Blocked("https://www.google.com/maps"))
	assert.False(t, b.Blocked("https://politiken.dk/article"))
}

func TestBlocklistBlocksGenericPatterns(t *testing.T) {
	b := DefaultBlocklist()

	assert.True(t, b.Blocked("https://news.example.com/search?q=climate"))
	assert.True(t, b.Blocked("https://example.com/login"))
	assert.True(t, b.Blocked("https://example.com/cb?oauth=1"))
	assert.False(t, b.Blocked("https://example.com/news/story-1"))
}

func TestBlocklistFilterPreservesOrder(t *testing.T) {
	b := DefaultBlocklist()
	in := []string{
		"https://politiken.dk/a",
		"https://facebook.com/x",
		"https://dr.dk/b",
	}

	out := b.Filter(in)
	assert.Equal(t, []string{"https://politiken.dk/a", "https://dr.dk/b"}, out)
}

func TestNilBlocklistPassesThrough(t *testing.T) {
	var b *Blocklist
	in := []string{"https://facebook.com/x"}
	assert.Equal(t, in, b.Filter(in))
}
