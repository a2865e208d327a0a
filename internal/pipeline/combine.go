package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// Combine concatenates all batch files in dir matching pattern (for example
// "scraped_batch_*.csv") into a single CSV at outPath, keeping one header
// row. Files are read in lexical filename order, so output is deterministic
// and re-running produces byte-identical results. Returns the number of data
// rows written.
func Combine(dir, pattern, outPath string) (int, error) {
	files, err := sortedBatchFiles(dir, pattern)
	if err != nil {
		return 0, fmt.Errorf("listing batch files: %w", err)
	}
	if len(files) == 0 {
		log.Warn().Str("dir", dir).Str("pattern", pattern).Msg("No batch files found")
		return 0, nil
	}

	log.Info().Int("files", len(files)).Str("dir", dir).Msg("Combining batch files")

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	rows := 0
	wroteHeader := false

	for i, path := range files {
		n, header, err := appendFile(w, path, wroteHeader)
		if err != nil {
			// One unreadable batch should not lose the rest.
			log.Error().Err(err).Str("file", path).Msg("Skipping unreadable batch file")
			continue
		}
		wroteHeader = wroteHeader || header
		rows += n
		if (i+1)%100 == 0 {
			log.Info().Int("loaded", i+1).Int("total", len(files)).Msg("Combining progress")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return rows, fmt.Errorf("writing %s: %w", outPath, err)
	}

	log.Info().Int("rows", rows).Str("output", outPath).Msg("Combined batch files")
	return rows, nil
}

// appendFile copies one batch file's rows into the combined writer,
// emitting the header only when none has been written yet.
func appendFile(w *csv.Writer, path string, haveHeader bool) (int, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return 0, false, err
	}
	if len(records) == 0 {
		return 0, false, nil
	}

	start := 1 // skip per-file header
	wroteHeader := false
	if !haveHeader {
		if err := w.Write(records[0]); err != nil {
			return 0, false, err
		}
		wroteHeader = true
	}

	n := 0
	for _, rec := range records[start:] {
		if err := w.Write(rec); err != nil {
			return n, wroteHeader, err
		}
		n++
	}
	return n, wroteHeader, nil
}
