package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entry := &Entry{
		OriginalURL:   "https://bit.ly/abc",
		ResolvedURL:   "https://example.com/article",
		StatusCode:    200,
		RedirectCount: 2,
		Success:       true,
		Outcome:       "success",
		ResponseTime:  0.42,
	}
	require.NoError(t, s.Put(ctx, entry))

	got, ok, err := s.Get(ctx, "https://bit.ly/abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/article", got.ResolvedURL)
	assert.Equal(t, 200, got.StatusCode)
	assert.Equal(t, 2, got.RedirectCount)
	assert.True(t, got.Success)
	assert.Equal(t, "success", got.Outcome)
	assert.False(t, got.CachedAt.IsZero())
}

func TestGetAbsent(t *testing.T) {
	s := openTestStore(t)

	got, ok, err := s.Get(context.Background(), "https://example.com/unknown")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestKeysAreLiteralURLs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// No normalization: a trailing slash is a different key.
	require.NoError(t, s.Put(ctx, &Entry{OriginalURL: "https://example.com/a", Outcome: "success", Success: true}))

	_, ok, err := s.Get(ctx, "https://example.com/a/")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutReplacesExistingEntry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &Entry{OriginalURL: "https://example.com/a", Outcome: "timeout", Error: "timeout"}))
	require.NoError(t, s.Put(ctx, &Entry{OriginalURL: "https://example.com/a", Outcome: "success", Success: true}))

	got, ok, err := s.Get(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "success", got.Outcome)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		require.NoError(t, s.Put(ctx, &Entry{OriginalURL: u, Outcome: "success", Success: true}))
	}

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
