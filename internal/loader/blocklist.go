package loader

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// Blocklist filters URLs whose domain is a known search engine, social
// platform, or auth endpoint with no scrapeable article content.
type Blocklist struct {
	domains  map[string]struct{}
	patterns []string
}

// defaultBlockedDomains mirrors the generic-domain list used when the
// donated browser histories were first extracted.
var defaultBlockedDomains = []string{
	"google.com",
	"google.dk",
	"google.co.uk",
	"bing.com",
	"yahoo.com",
	"duckduckgo.com",
	"facebook.com",
	"instagram.com",
	"twitter.com",
	"linkedin.com",
	"youtube.com",
	"youtu.be",
	"login.microsoftonline.com",
	"accounts.google.com",
	"localhost",
	"127.0.0.1",
}

// defaultBlockedPatterns match low-value URL shapes: searches, logins, and
// OAuth round-trips.
var defaultBlockedPatterns = []string{
	"/search?",
	"/search/",
	"login",
	"signin",
	"signup",
	"logout",
	"signout",
	"oauth",
}

// DefaultBlocklist returns the study's static blocklist.
func DefaultBlocklist() *Blocklist {
	return NewBlocklist(defaultBlockedDomains, defaultBlockedPatterns)
}

// NewBlocklist builds a blocklist from domain and substring-pattern lists.
func NewBlocklist(domains, patterns []string) *Blocklist {
	b := &Blocklist{
		domains:  make(map[string]struct{}, len(domains)),
		patterns: patterns,
	}
	for _, d := range domains {
		b.domains[strings.ToLower(d)] = struct{}{}
	}
	return b
}

// Blocked reports whether a URL should be excluded from processing.
// Domains match exactly or as a parent of the URL's host, so m.facebook.com
// is blocked by facebook.com.
func (b *Blocklist) Blocked(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, p := range b.patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")

	if _, ok := b.domains[host]; ok {
		return true
	}
	for d := range b.domains {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Filter returns the URLs not matched by the blocklist, preserving order.
// A nil blocklist passes everything through.
func (b *Blocklist) Filter(urls []string) []string {
	if b == nil {
		return urls
	}
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		if !b.Blocked(u) {
			kept = append(kept, u)
		}
	}
	if dropped := len(urls) - len(kept); dropped > 0 {
		log.Info().Int("dropped", dropped).Int("kept", len(kept)).Msg("Blocklist filtered URLs")
	}
	return kept
}
