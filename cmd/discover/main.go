// Command discover turns an Excel media startlist (Website/Country columns)
// into a seed URL CSV for the resolution and scraping pipelines.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/sodas-cph/urlharvest/internal/loader"
	"github.com/sodas-cph/urlharvest/pkg/logging"
)

func main() {
	var (
		startlist = flag.String("startlist", "", "Excel startlist with Website and Country columns (required)")
		country   = flag.String("country", "", "only include outlets for this country (optional)")
		output    = flag.String("output", "seed_urls.csv", "output CSV of seed URLs")
		logLevel  = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	if *startlist == "" {
		fmt.Fprintln(os.Stderr, "missing required -startlist flag")
		flag.Usage()
		os.Exit(1)
	}

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = *logLevel
	if err := logging.SetupLogger(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}

	entries, err := loader.ReadStartlist(*startlist, *country)
	if err != nil {
		log.Fatal().Err(err).Str("startlist", *startlist).Msg("Failed to read startlist")
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatal().Err(err).Str("output", *output).Msg("Failed to create output file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"url", "country"}); err != nil {
		log.Fatal().Err(err).Msg("Failed to write header")
	}
	seen := make(map[string]struct{}, len(entries))
	written := 0
	for _, e := range entries {
		u := loader.SeedURL(e)
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		if err := w.Write([]string{u, e.Country}); err != nil {
			log.Fatal().Err(err).Msg("Failed to write row")
		}
		written++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatal().Err(err).Msg("Failed to flush output")
	}

	log.Info().Int("urls", written).Str("output", *output).Msg("Wrote seed URLs")
}
