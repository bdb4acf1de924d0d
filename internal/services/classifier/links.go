package classifier

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/common"
	"github.com/ternarybob/forager/internal/models"
)

// LinkExtractor handles link discovery and filtering from HTML content.
type LinkExtractor struct {
	includeRegexes []*regexp.Regexp
	excludeRegexes []*regexp.Regexp
	config         common.CrawlerConfig
	logger         arbor.ILogger
}

// NewLinkExtractor creates a link extractor with compiled include/exclude
// patterns. Invalid patterns are logged and skipped.
func NewLinkExtractor(config common.CrawlerConfig, logger arbor.ILogger) *LinkExtractor {
	le := &LinkExtractor{
		config: config,
		logger: logger,
	}

	for _, pattern := range config.IncludePatterns {
		if re, err := regexp.Compile(pattern); err == nil {
			le.includeRegexes = append(le.includeRegexes, re)
		} else {
			logger.Warn().Err(err).Str("pattern", pattern).Msg("Failed to compile include pattern")
		}
	}
	for _, pattern := range config.ExcludePatterns {
		if re, err := regexp.Compile(pattern); err == nil {
			le.excludeRegexes = append(le.excludeRegexes, re)
		} else {
			logger.Warn().Err(err).Str("pattern", pattern).Msg("Failed to compile exclude pattern")
		}
	}

	return le
}

// Extract discovers anchor links, resolves them against the source URL, and
// applies origin, pattern, and seen filters. Excess links beyond the per-site
// page budget are dropped, not queued, preventing unbounded fan-out.
func (le *LinkExtractor) Extract(doc *goquery.Document, sourceURL string, seen models.SeenFunc) []string {
	baseURL, err := url.Parse(sourceURL)
	if err != nil {
		le.logger.Warn().Err(err).Str("source_url", sourceURL).Msg("Failed to parse source URL for link resolution")
		return nil
	}

	var links []string
	linkSet := make(map[string]bool)
	found := 0

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, exists := sel.Attr("href")
		if !exists || shouldSkipLink(href) {
			return
		}
		found++

		if len(links) >= le.config.MaxPagesPerSite {
			return
		}

		resolved, err := baseURL.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		normalized := common.NormalizeURL(resolved.String())

		if linkSet[normalized] {
			return
		}
		if !le.config.FollowExternalLinks && !common.SameOrigin(sourceURL, normalized) {
			return
		}
		if !le.matchesPatterns(normalized) {
			return
		}
		if seen != nil && seen(normalized) {
			return
		}

		linkSet[normalized] = true
		links = append(links, normalized)
	})

	le.logger.Debug().
		Str("source_url", sourceURL).
		Int("found", found).
		Int("kept", len(links)).
		Msg("Links extracted")

	return links
}

// matchesPatterns applies exclude patterns first (fastest rejection), then
// include patterns when any are configured.
func (le *LinkExtractor) matchesPatterns(link string) bool {
	for _, re := range le.excludeRegexes {
		if re.MatchString(link) {
			return false
		}
	}

	if len(le.includeRegexes) == 0 {
		return true
	}
	for _, re := range le.includeRegexes {
		if re.MatchString(link) {
			return true
		}
	}
	return false
}

// shouldSkipLink filters non-navigational href values.
func shouldSkipLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))

	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "sms:", "ftp:", "data:"} {
		if strings.HasPrefix(href, prefix) {
			return true
		}
	}

	// Skip common media and download targets
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico", ".css", ".js", ".pdf", ".zip", ".tar", ".gz"} {
		if strings.HasSuffix(href, ext) {
			return true
		}
	}

	return false
}
