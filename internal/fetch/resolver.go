package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// metaRefreshSize bounds how much of a 200 body is inspected for a
// meta-refresh redirect during resolution.
const metaRefreshSize = 256 * 1024

var metaRefreshURL = regexp.MustCompile(`(?i)url\s*=\s*([^;]+)`)

// resolveOnce follows redirects manually so the chain length is exact and
// meta-refresh redirects (common on shorteners and consent pages) are
// followed too.
func (c *Client) resolveOnce(ctx context.Context, rawURL string) *Result {
	start := time.Now()
	result := &Result{
		URL:         rawURL,
		ResolvedURL: rawURL,
		ScrapedAt:   time.Now(),
	}

	if !c.preflight(ctx, rawURL, result) {
		return result
	}

	current := rawURL
	for {
		if result.RedirectCount > c.cfg.MaxRedirects {
			result.Outcome = OutcomeTooManyRedirects
			result.Error = fmt.Sprintf("stopped after %d redirects", c.cfg.MaxRedirects)
			result.ResponseTime = time.Since(start).Seconds()
			return result
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			result.Outcome = OutcomeOtherError
			result.Error = truncateError(err)
			result.ResponseTime = time.Since(start).Seconds()
			return result
		}
		c.setHeaders(req)

		resp, err := c.bare.Do(req)
		if err != nil {
			c.classifyError(err, result)
			result.ResponseTime = time.Since(start).Seconds()
			return result
		}

		result.StatusCode = resp.StatusCode
		result.ResolvedURL = current

		switch {
		case isRedirect(resp.StatusCode):
			location := resp.Header.Get("Location")
			resp.Body.Close()
			if location == "" {
				result.Outcome = OutcomeHTTPError
				result.Error = fmt.Sprintf("HTTP %d without Location", resp.StatusCode)
				result.ResponseTime = time.Since(start).Seconds()
				return result
			}
			next, err := joinURL(current, location)
			if err != nil {
				result.Outcome = OutcomeOtherError
				result.Error = truncateError(err)
				result.ResponseTime = time.Since(start).Seconds()
				return result
			}
			current = next
			result.RedirectCount++

		case resp.StatusCode == http.StatusOK:
			// A 200 can still redirect via <meta http-equiv="refresh">.
			body, _ := io.ReadAll(io.LimitReader(resp.Body, metaRefreshSize))
			resp.Body.Close()
			if target := extractMetaRefresh(body, current); target != "" && target != current {
				current = target
				result.RedirectCount++
				continue
			}
			result.ResolvedURL = current
			result.Outcome = OutcomeSuccess
			result.ResponseTime = time.Since(start).Seconds()
			return result

		default:
			resp.Body.Close()
			result.Outcome = OutcomeHTTPError
			result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
			result.ResponseTime = time.Since(start).Seconds()
			return result
		}
	}
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}

// joinURL resolves a possibly relative Location header against the current URL.
func joinURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

// extractMetaRefresh returns the target of a meta-refresh tag, resolved
// against the page URL, or "" when there is none.
func extractMetaRefresh(body []byte, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}

	var target string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		equiv, _ := s.Attr("http-equiv")
		if !strings.EqualFold(equiv, "refresh") {
			return true
		}
		content, _ := s.Attr("content")
		m := metaRefreshURL.FindStringSubmatch(content)
		if m == nil {
			return true
		}
		raw := strings.Trim(strings.TrimSpace(m[1]), `'"`)
		if resolved, err := joinURL(pageURL, raw); err == nil {
			target = resolved
		}
		return false
	})
	return target
}
