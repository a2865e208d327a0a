// Package loader reads URL lists out of donated-export CSV files and Excel
// startlists, de-duplicating and optionally filtering them before the
// pipeline runs.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Source labels which export a URL list came from.
type Source string

const (
	SourceBrowser  Source = "browser"
	SourceFacebook Source = "facebook"
)

// urlColumns are the header names recognized as URL-bearing, checked in order.
var urlColumns = []string{"url", "URL", "link", "Link"}

// ReadURLs reads a CSV file and returns its unique URLs in first-seen order.
// A file without a recognized URL column logs a warning and yields an empty
// list rather than failing the whole run.
func ReadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		log.Warn().Str("file", path).Msg("Empty input file")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	col := -1
	for _, name := range urlColumns {
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				col = i
				break
			}
		}
		if col >= 0 {
			break
		}
	}
	if col < 0 {
		log.Warn().
			Str("file", path).
			Strs("header", header).
			Msg("No recognized URL column (url/URL/link/Link), skipping file")
		return nil, nil
	}

	seen := make(map[string]struct{})
	var urls []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed rows are skipped; exports are messy.
			continue
		}
		if col >= len(record) {
			continue
		}
		u := strings.TrimSpace(record[col])
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	log.Info().Str("file", path).Int("unique_urls", len(urls)).Msg("Loaded URLs")
	return urls, nil
}

// ReadURLFiles reads several CSV files, de-duplicating across all of them.
func ReadURLFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var urls []string
	for _, p := range paths {
		list, err := ReadURLs(p)
		if err != nil {
			return nil, err
		}
		for _, u := range list {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	return urls, nil
}
