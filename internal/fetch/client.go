package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// Config configures fetch behavior for a run.
type Config struct {
	UserAgent         string        `json:"user_agent"`
	Timeout           time.Duration `json:"timeout"`
	MaxRedirects      int           `json:"max_redirects"`
	MaxBodySize       int64         `json:"max_body_size"`
	MaxAttempts       int           `json:"max_attempts"`
	RetryBaseDelay    time.Duration `json:"retry_base_delay"`
	RequestsPerSecond float64       `json:"requests_per_second"`
	RespectRobots     bool          `json:"respect_robots"`
}

// DefaultConfig returns default fetch configuration.
func DefaultConfig() *Config {
	return &Config{
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		Timeout:           15 * time.Second,
		MaxRedirects:      10,
		MaxBodySize:       10 * 1024 * 1024, // 10MB
		MaxAttempts:       1,
		RetryBaseDelay:    500 * time.Millisecond,
		RequestsPerSecond: 10,
	}
}

var errTooManyRedirects = errors.New("too many redirects")

// Client performs HTTP fetches for the resolver and scraper workers. It is
// safe for concurrent use; the underlying transport pools connections across
// workers the way a shared requests.Session would.
type Client struct {
	http    *http.Client // follows redirects up to MaxRedirects
	bare    *http.Client // never follows redirects, used by the resolver
	cfg     *Config
	limiter *rate.Limiter
	robots  *RobotsCache
}

// NewClient creates a fetch client from config.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= cfg.MaxRedirects {
					return errTooManyRedirects
				}
				return nil
			},
		},
		bare: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}

	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if cfg.RespectRobots {
		c.robots = NewRobotsCache(cfg.UserAgent, cfg.Timeout)
	}

	return c
}

// Scrape fetches a URL with redirects followed and, on HTTP 200, extracts
// readable article content and metadata. It always returns a Result; retry
// policy is bounded by MaxAttempts with exponential backoff and jitter, and
// only transient outcomes are retried.
func (c *Client) Scrape(ctx context.Context, rawURL string) *Result {
	return c.withRetry(ctx, rawURL, c.scrapeOnce)
}

// Resolve follows HTTP and meta-refresh redirects from a URL without
// extracting content, recording the final URL and chain length.
func (c *Client) Resolve(ctx context.Context, rawURL string) *Result {
	return c.withRetry(ctx, rawURL, c.resolveOnce)
}

func (c *Client) withRetry(ctx context.Context, rawURL string, attempt func(context.Context, string) *Result) *Result {
	maxAttempts := c.cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var result *Result
	for i := 1; i <= maxAttempts; i++ {
		result = attempt(ctx, rawURL)
		result.Attempts = i
		if !result.Outcome.Transient() {
			return result
		}
		if i == maxAttempts {
			break
		}

		delay := backoffDelay(c.cfg.RetryBaseDelay, i)
		log.Debug().
			Str("url", rawURL).
			Int("attempt", i).
			Dur("backoff", delay).
			Str("outcome", string(result.Outcome)).
			Msg("Transient failure, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return result
		}
	}

	// A single-attempt run reports the plain transient outcome; only real
	// retry exhaustion gets its own terminal state.
	if maxAttempts > 1 {
		result.Outcome = OutcomeExhaustedRetries
	}
	return result
}

// backoffDelay returns base*2^(attempt-1) with up to 50% jitter.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	d := base << (attempt - 1)
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}

func (c *Client) scrapeOnce(ctx context.Context, rawURL string) *Result {
	start := time.Now()
	result := &Result{
		URL:         rawURL,
		ResolvedURL: rawURL,
		ScrapedAt:   time.Now(),
	}

	if !c.preflight(ctx, rawURL, result) {
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.Outcome = OutcomeOtherError
		result.Error = truncateError(err)
		return result
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	result.ResponseTime = time.Since(start).Seconds()
	if err != nil {
		c.classifyError(err, result)
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.ResolvedURL = resp.Request.URL.String()
	if result.ResolvedURL != rawURL {
		result.RedirectCount = countRedirects(resp)
	}

	if resp.StatusCode != http.StatusOK {
		result.Outcome = OutcomeHTTPError
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return result
	}

	body, err := c.readBody(resp)
	if err != nil {
		result.Outcome = OutcomeOtherError
		result.Error = truncateError(err)
		return result
	}

	c.extract(body, resp.Request.URL, result)
	result.ResponseTime = time.Since(start).Seconds()
	result.Outcome = OutcomeSuccess
	return result
}

// preflight runs the optional robots.txt check. A disallowed URL is an
// other_error outcome, not a transport failure.
func (c *Client) preflight(ctx context.Context, rawURL string, result *Result) bool {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			result.Outcome = OutcomeOtherError
			result.Error = truncateError(err)
			return false
		}
	}
	if c.robots != nil && !c.robots.Allowed(ctx, rawURL) {
		result.Outcome = OutcomeOtherError
		result.Error = "disallowed by robots.txt"
		return false
	}
	return true
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "da,en-US;q=0.7,en;q=0.3")
}

// readBody reads the response body with a size cap, decoding the declared
// charset to UTF-8 so extraction works on non-UTF-8 news sites.
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, c.cfg.MaxBodySize)
	reader, err := charset.NewReader(limited, resp.Header.Get("Content-Type"))
	if err != nil {
		// Undetectable charset: fall back to the raw bytes.
		return io.ReadAll(limited)
	}
	return io.ReadAll(reader)
}

// extract pulls readable article content plus metadata out of an HTML body.
func (c *Client) extract(body []byte, pageURL *url.URL, result *Result) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		log.Debug().Err(err).Str("url", pageURL.String()).Msg("Readability extraction failed")
	} else {
		result.Title = strings.TrimSpace(article.Title)
		result.Author = strings.TrimSpace(article.Byline)
		result.Content = strings.TrimSpace(article.TextContent)
		result.WordCount = len(strings.Fields(result.Content))
	}

	// Meta tags fill whatever readability could not.
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return
	}
	if result.Title == "" {
		result.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if result.Author == "" {
		result.Author = metaContent(doc, `meta[name="author"]`, `meta[property="article:author"]`)
	}
	result.Date = metaContent(doc,
		`meta[property="article:published_time"]`,
		`meta[property="og:published_time"]`,
		`meta[name="publish_date"]`,
		`meta[name="publication_date"]`,
	)
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// countRedirects walks the response chain built by the http client.
func countRedirects(resp *http.Response) int {
	n := 0
	for r := resp.Request.Response; r != nil; r = r.Request.Response {
		n++
	}
	if n == 0 {
		// Redirect happened but the chain is unavailable; report at least one.
		n = 1
	}
	return n
}

// classifyError maps a transport error onto the outcome taxonomy.
func (c *Client) classifyError(err error, result *Result) {
	result.Error = truncateError(err)

	var netErr net.Error
	switch {
	case errors.Is(err, errTooManyRedirects):
		result.Outcome = OutcomeTooManyRedirects
	case errors.Is(err, context.DeadlineExceeded):
		result.Outcome = OutcomeTimeout
		result.Error = "timeout"
	case errors.As(err, &netErr) && netErr.Timeout():
		result.Outcome = OutcomeTimeout
		result.Error = "timeout"
	default:
		result.Outcome = OutcomeOtherError
	}
}
