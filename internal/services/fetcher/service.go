// -----------------------------------------------------------------------
// Fetcher - rate-limited HTTP GET with retry and failure classification
// -----------------------------------------------------------------------

package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/common"
	"github.com/ternarybob/forager/internal/interfaces"
	"github.com/ternarybob/forager/internal/models"
)

// Service performs single-page fetches for all site crawls in a session.
// One Service instance is shared across concurrently running orchestrators
// so the per-domain rate-limit clock is enforced regardless of global
// concurrency.
type Service struct {
	client  *http.Client
	limiter *RateLimiter
	robots  *robotsCache
	retry   *RetryPolicy
	config  common.CrawlerConfig
	logger  arbor.ILogger
}

var _ interfaces.Fetcher = (*Service)(nil)

// NewService creates a fetcher with the configured rate limit, retry policy,
// and robots.txt checking.
func NewService(config common.CrawlerConfig, logger arbor.ILogger) *Service {
	client := &http.Client{} // timeouts applied per request via context

	s := &Service{
		client:  client,
		limiter: NewRateLimiter(config.PerDomainInterval),
		retry:   NewRetryPolicy(config.MaxRetries),
		config:  config,
		logger:  logger,
	}
	if config.RespectRobotsTxt {
		s.robots = newRobotsCache(client, config.UserAgent, config.PageTimeout, logger)
	}
	return s
}

// Fetch performs an HTTP GET with per-domain rate limiting, a hard per-page
// timeout, and retry of transient failures. Non-transient failures (404,
// DNS, malformed URL, robots disallow) fail immediately.
func (s *Service) Fetch(ctx context.Context, rawURL string) (*models.FetchResult, error) {
	start := time.Now()

	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, &models.FetchError{
			Kind:   models.FetchErrNetwork,
			URL:    rawURL,
			Detail: "malformed URL",
			Err:    err,
		}
	}

	if s.robots != nil {
		if !s.robots.Allowed(ctx, rawURL) {
			return nil, &models.FetchError{
				Kind:   models.FetchErrBlocked,
				URL:    rawURL,
				Detail: "disallowed by robots.txt",
			}
		}
		// A Crawl-delay directive stretches the domain's interval; it
		// never shortens the configured politeness floor.
		if delay := s.robots.CrawlDelay(ctx, rawURL); delay > s.config.PerDomainInterval {
			s.limiter.SetDomainInterval(common.Domain(rawURL), delay)
		}
	}

	var lastErr *models.FetchError
	for attempt := 0; attempt <= s.retry.MaxAttempts; attempt++ {
		if err := s.limiter.Wait(ctx, rawURL); err != nil {
			return nil, &models.FetchError{
				Kind:   models.FetchErrNetwork,
				URL:    rawURL,
				Detail: "cancelled while waiting for rate limit",
				Err:    err,
			}
		}

		result, ferr, retryAfter := s.doRequest(ctx, rawURL)
		if ferr == nil {
			result.Duration = time.Since(start)
			s.logger.Debug().
				Str("url", rawURL).
				Int("status_code", result.StatusCode).
				Int("attempt", attempt+1).
				Dur("duration", result.Duration).
				Msg("Page fetched")
			return result, nil
		}
		lastErr = ferr

		if !s.shouldRetry(attempt, ferr) {
			break
		}

		backoff := s.retry.CalculateBackoff(attempt)
		if retryAfter > backoff {
			backoff = retryAfter
		}

		s.logger.Debug().
			Str("url", rawURL).
			Int("attempt", attempt+1).
			Int("status_code", ferr.StatusCode).
			Dur("backoff", backoff).
			Msg("Retrying after backoff")

		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(backoff):
		}
	}

	s.logger.Debug().
		Str("url", rawURL).
		Str("kind", string(lastErr.Kind)).
		Msg("Fetch failed")

	return nil, lastErr
}

// shouldRetry applies the failure taxonomy: timeouts and policy blocks are
// never retried, HTTP errors follow the retryable status table, network
// errors follow transient-error detection.
func (s *Service) shouldRetry(attempt int, ferr *models.FetchError) bool {
	switch ferr.Kind {
	case models.FetchErrTimeout, models.FetchErrBlocked:
		return false
	case models.FetchErrHTTP:
		return s.retry.ShouldRetry(attempt, ferr.StatusCode, nil)
	default:
		return s.retry.ShouldRetry(attempt, 0, ferr.Err)
	}
}

// doRequest performs one GET attempt, classifying any failure. The returned
// retryAfter is non-zero when the server sent an explicit Retry-After.
func (s *Service) doRequest(ctx context.Context, rawURL string) (*models.FetchResult, *models.FetchError, time.Duration) {
	reqCtx, cancel := context.WithTimeout(ctx, s.config.PageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &models.FetchError{Kind: models.FetchErrNetwork, URL: rawURL, Detail: "build request", Err: err}, 0
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &models.FetchError{Kind: models.FetchErrTimeout, URL: rawURL, Detail: "page timeout exceeded", Err: err}, 0
		}
		return nil, &models.FetchError{Kind: models.FetchErrNetwork, URL: rawURL, Detail: err.Error(), Err: err}, 0
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		ferr := &models.FetchError{
			Kind:       models.FetchErrHTTP,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Detail:     resp.Status,
		}
		return nil, ferr, parseRetryAfter(resp.Header.Get("Retry-After"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(s.config.MaxBodySize)))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &models.FetchError{Kind: models.FetchErrTimeout, URL: rawURL, Detail: "page timeout while reading body", Err: err}, 0
		}
		return nil, &models.FetchError{Kind: models.FetchErrNetwork, URL: rawURL, Detail: "read body", Err: err}, 0
	}

	headers := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	// Redirects may land somewhere other than the requested URL; report
	// the address the body actually came from.
	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &models.FetchResult{
		URL:        finalURL,
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    headers,
	}, nil, 0
}

// parseRetryAfter handles the delay-seconds form of the Retry-After header.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}
