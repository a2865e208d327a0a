package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsCache fetches and caches robots.txt per host. A missing or broken
// robots.txt allows everything. Enabled with --respect-robots; donated-export
// runs usually leave it off since the URLs were shared by the participants.
type RobotsCache struct {
	userAgent string
	client    *http.Client

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

// NewRobotsCache creates a robots.txt cache.
func NewRobotsCache(userAgent string, timeout time.Duration) *RobotsCache {
	return &RobotsCache{
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		robots:    make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether the URL may be fetched for the configured agent.
func (rc *RobotsCache) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	base := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)

	rc.mu.Lock()
	data, seen := rc.robots[base]
	rc.mu.Unlock()

	if !seen {
		data = rc.fetch(ctx, base)
		rc.mu.Lock()
		rc.robots[base] = data
		rc.mu.Unlock()
	}

	if data == nil {
		return true
	}
	return data.TestAgent(parsed.Path, rc.userAgent)
}

// fetch retrieves robots.txt for a host; nil means "no restrictions".
func (rc *RobotsCache) fetch(ctx context.Context, base string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/robots.txt", nil)
	if err != nil {
		return nil
	}

	resp, err := rc.client.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		if resp != nil {
			resp.Body.Close()
		}
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return data
}
