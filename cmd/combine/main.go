// Command combine concatenates numbered batch files into one consolidated
// CSV for analysis. Re-running it over the same directory produces identical
// output.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sodas-cph/urlharvest/internal/pipeline"
	"github.com/sodas-cph/urlharvest/pkg/logging"
)

func main() {
	var (
		dataDir  = flag.String("data-dir", "", "directory containing batch files (required)")
		pattern  = flag.String("pattern", "scraped_batch_*.csv", "glob pattern for batch files")
		output   = flag.String("output", "", "consolidated output file (default <data-dir>/<prefix>_combined.csv)")
		logLevel = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	if *dataDir == "" {
		fmt.Fprintln(os.Stderr, "missing required -data-dir flag")
		flag.Usage()
		os.Exit(1)
	}
	if _, err := os.Stat(*dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "data dir not accessible: %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = *logLevel
	if err := logging.SetupLogger(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}

	outPath := *output
	if outPath == "" {
		prefix := strings.SplitN(*pattern, "_batch_", 2)[0]
		outPath = filepath.Join(*dataDir, prefix+"_combined.csv")
	}

	rows, err := pipeline.Combine(*dataDir, *pattern, outPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Combine failed")
	}
	log.Info().Int("rows", rows).Str("output", outPath).Msg("Combine finished")
}
