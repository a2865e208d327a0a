package fetch

import "time"

// Outcome is the terminal classification of a single URL attempt. Every
// processed URL ends in exactly one outcome.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeHTTPError        Outcome = "http_error"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeTooManyRedirects Outcome = "too_many_redirects"
	OutcomeOtherError       Outcome = "other_error"
	OutcomeExhaustedRetries Outcome = "exhausted_retries"
)

// Transient reports whether an outcome may be retried within a run.
// Timeouts and transport errors are transient; everything else is a
// definitive answer from the remote side.
func (o Outcome) Transient() bool {
	return o == OutcomeTimeout || o == OutcomeOtherError
}

// Result captures the complete outcome of resolving or scraping one URL.
// It is the only thing a worker ever hands back: errors are folded into
// Outcome/Error, never raised past the worker boundary.
type Result struct {
	URL           string    `json:"url"`
	ResolvedURL   string    `json:"resolved_url"`
	StatusCode    int       `json:"status_code"`
	Outcome       Outcome   `json:"outcome"`
	Content       string    `json:"content,omitempty"`
	Title         string    `json:"title,omitempty"`
	Author        string    `json:"author,omitempty"`
	Date          string    `json:"date,omitempty"`
	WordCount     int       `json:"word_count"`
	RedirectCount int       `json:"redirect_count"`
	ResponseTime  float64   `json:"response_time_seconds"`
	ScrapedAt     time.Time `json:"scraped_at"`
	Error         string    `json:"error,omitempty"`
	Attempts      int       `json:"attempts"`
	CacheHit      bool      `json:"cache_hit"`
}

// Success reports whether the fetch ended in a usable 200 response.
func (r *Result) Success() bool {
	return r.Outcome == OutcomeSuccess
}

// maxErrorLen bounds stored error messages, matching the cache column width.
const maxErrorLen = 200

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return msg
}
