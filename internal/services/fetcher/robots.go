package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"github.com/ternarybob/arbor"
)

// robotsCache fetches and caches robots.txt verdicts per host for the
// lifetime of the fetcher. Robots fetch failures are treated as allow so an
// unreachable robots.txt never stalls a crawl.
type robotsCache struct {
	groups    map[string]*robotstxt.Group
	mu        sync.Mutex
	client    *http.Client
	userAgent string
	timeout   time.Duration
	logger    arbor.ILogger
}

func newRobotsCache(client *http.Client, userAgent string, timeout time.Duration, logger arbor.ILogger) *robotsCache {
	return &robotsCache{
		groups:    make(map[string]*robotstxt.Group),
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		logger:    logger,
	}
}

// Allowed reports whether the URL may be fetched under the host's robots.txt.
func (rc *robotsCache) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	group := rc.groupFor(ctx, u)
	if group == nil {
		return true
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

// CrawlDelay returns the host's Crawl-delay directive, or zero when the
// host's robots.txt does not set one.
func (rc *robotsCache) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return 0
	}

	group := rc.groupFor(ctx, u)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

func (rc *robotsCache) groupFor(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if group, exists := rc.groups[key]; exists {
		return group
	}

	group := rc.fetchGroup(ctx, key)
	rc.groups[key] = group
	return group
}

// fetchGroup retrieves and parses robots.txt for one host. Returns nil
// (allow all) when the file cannot be fetched or parsed. The request gets
// the same per-request timeout as a page fetch so a hanging robots
// endpoint cannot hold a page hostage for the whole site budget.
func (rc *robotsCache) fetchGroup(ctx context.Context, base string) *robotstxt.Group {
	robotsURL := fmt.Sprintf("%s/robots.txt", base)

	if rc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		rc.logger.Debug().Err(err).Str("url", robotsURL).Msg("robots.txt fetch failed, allowing crawl")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		rc.logger.Debug().Err(err).Str("url", robotsURL).Msg("robots.txt parse failed, allowing crawl")
		return nil
	}

	rc.logger.Debug().
		Str("url", robotsURL).
		Int("status_code", resp.StatusCode).
		Msg("robots.txt loaded")

	return data.FindGroup(rc.userAgent)
}
