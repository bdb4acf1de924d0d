// -----------------------------------------------------------------------
// Page Classifier - page-type detection and link discovery
// -----------------------------------------------------------------------

package classifier

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/common"
	"github.com/ternarybob/forager/internal/interfaces"
	"github.com/ternarybob/forager/internal/models"
)

// typeRule is a compiled (pattern -> type) classification rule.
type typeRule struct {
	re       *regexp.Regexp
	pageType models.PageType
}

// Service classifies pages by URL path and textual cues and extracts
// candidate outbound links.
type Service struct {
	rules  []typeRule
	cues   map[models.PageType][]string
	links  *LinkExtractor
	config common.CrawlerConfig
	logger arbor.ILogger
}

var _ interfaces.Classifier = (*Service)(nil)

// NewService creates a classifier. When the config carries no type rules the
// built-in table is used.
func NewService(config common.CrawlerConfig, logger arbor.ILogger) (*Service, error) {
	rules, err := compileRules(config.TypeRules)
	if err != nil {
		return nil, err
	}

	return &Service{
		rules:  rules,
		cues:   defaultTextCues(),
		links:  NewLinkExtractor(config, logger),
		config: config,
		logger: logger,
	}, nil
}

// compileRules compiles configured rules, falling back to the default table.
func compileRules(configured []common.TypeRule) ([]typeRule, error) {
	source := configured
	if len(source) == 0 {
		source = defaultTypeRules()
	}

	rules := make([]typeRule, 0, len(source))
	for _, r := range source {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid page-type pattern %q: %w", r.Pattern, err)
		}
		rules = append(rules, typeRule{re: re, pageType: models.PageType(r.Type)})
	}
	return rules, nil
}

// defaultTypeRules is the built-in (URL-path pattern -> type) table.
func defaultTypeRules() []common.TypeRule {
	return []common.TypeRule{
		{Pattern: `(?i)/(menu|menus|food|dishes|carte|dinner|lunch|breakfast)(/|\.|$)`, Type: string(models.PageTypeMenu)},
		{Pattern: `(?i)/(contact|contact-us|find-us|location|locations|directions|reservations?)(/|\.|$)`, Type: string(models.PageTypeContact)},
		{Pattern: `(?i)/(about|about-us|story|our-story|history|team)(/|\.|$)`, Type: string(models.PageTypeAbout)},
		{Pattern: `(?i)/(hours|opening-hours|opening-times|open)(/|\.|$)`, Type: string(models.PageTypeHours)},
		{Pattern: `(?i)^/?(index\.[a-z]+)?$|/home(/|\.|$)`, Type: string(models.PageTypeHome)},
	}
}

// defaultTextCues lists content keywords consulted when the URL path is
// inconclusive. Matched against the page title and top-level headings.
func defaultTextCues() map[models.PageType][]string {
	return map[models.PageType][]string{
		models.PageTypeMenu:    {"menu", "our dishes", "starters", "mains", "entrees", "desserts"},
		models.PageTypeContact: {"contact us", "get in touch", "find us", "reservations", "book a table"},
		models.PageTypeAbout:   {"about us", "our story", "our history", "who we are"},
		models.PageTypeHours:   {"opening hours", "opening times", "we are open", "hours of operation"},
	}
}

// Classify determines the page type and discovers outbound links. Links the
// caller already knows (per seen) are dropped, and at most the configured
// per-site page budget of unvisited links is returned.
func (s *Service) Classify(pageURL string, body []byte, seen models.SeenFunc) (*models.Classification, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for classification: %w", err)
	}

	pageType := s.classifyURL(pageURL)
	if pageType == models.PageTypeOther {
		pageType = s.classifyContent(doc)
	}

	links := s.links.Extract(doc, pageURL, seen)

	s.logger.Debug().
		Str("url", pageURL).
		Str("page_type", string(pageType)).
		Int("links_found", len(links)).
		Msg("Page classified")

	return &models.Classification{
		PageType: pageType,
		Links:    links,
	}, nil
}

// classifyURL matches the URL path against the rule table.
func (s *Service) classifyURL(pageURL string) models.PageType {
	u, err := url.Parse(pageURL)
	if err != nil {
		return models.PageTypeOther
	}

	path := u.Path
	for _, rule := range s.rules {
		if rule.re.MatchString(path) {
			return rule.pageType
		}
	}
	return models.PageTypeOther
}

// classifyContent scans the title, headings, and nav text for type cues.
func (s *Service) classifyContent(doc *goquery.Document) models.PageType {
	var text strings.Builder
	text.WriteString(doc.Find("title").Text())
	text.WriteString(" ")
	doc.Find("h1, h2").Each(func(_ int, sel *goquery.Selection) {
		text.WriteString(sel.Text())
		text.WriteString(" ")
	})

	haystack := strings.ToLower(text.String())
	for _, pageType := range []models.PageType{models.PageTypeMenu, models.PageTypeContact, models.PageTypeHours, models.PageTypeAbout} {
		for _, cue := range s.cues[pageType] {
			if strings.Contains(haystack, cue) {
				return pageType
			}
		}
	}
	return models.PageTypeOther
}
