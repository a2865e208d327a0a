package loader

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// StartlistEntry is one row of a media startlist used for the URL discovery
// task: a news outlet's website and the country it belongs to.
type StartlistEntry struct {
	Website string `json:"website"`
	Country string `json:"country"`
}

// ReadStartlist reads an Excel startlist with Website and Country columns.
// When country is non-empty, only rows for that country (case-insensitive)
// are returned.
func ReadStartlist(path, country string) ([]StartlistEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening startlist %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("startlist %s is empty", path)
	}

	websiteCol, countryCol := -1, -1
	for i, h := range rows[0] {
		switch strings.TrimSpace(h) {
		case "Website":
			websiteCol = i
		case "Country":
			countryCol = i
		}
	}
	if websiteCol < 0 || countryCol < 0 {
		return nil, fmt.Errorf("startlist %s must have Website and Country columns", path)
	}

	var entries []StartlistEntry
	for _, row := range rows[1:] {
		if websiteCol >= len(row) || countryCol >= len(row) {
			continue
		}
		e := StartlistEntry{
			Website: strings.TrimSpace(row[websiteCol]),
			Country: strings.TrimSpace(row[countryCol]),
		}
		if e.Website == "" {
			continue
		}
		if country != "" && !strings.EqualFold(e.Country, country) {
			continue
		}
		entries = append(entries, e)
	}

	log.Info().
		Str("file", path).
		Str("country", country).
		Int("entries", len(entries)).
		Msg("Loaded startlist")
	return entries, nil
}

// SeedURL turns a startlist entry into a fetchable URL, prefixing a scheme
// where the startlist only carries a bare domain.
func SeedURL(e StartlistEntry) string {
	u := e.Website
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}

// SeedURLs turns startlist entries into fetchable URLs, de-duplicating while
// preserving order.
func SeedURLs(entries []StartlistEntry) []string {
	seen := make(map[string]struct{}, len(entries))
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		u := SeedURL(e)
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}
