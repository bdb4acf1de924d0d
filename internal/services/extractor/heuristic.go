// -----------------------------------------------------------------------
// Heuristic strategy - pattern and keyword matching over visible content
// -----------------------------------------------------------------------

package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/models"
)

var (
	phoneRe = regexp.MustCompile(`(\+?1[\s.-]?)?(\(\d{3}\)|\d{3})[\s.-]?\d{3}[\s.-]?\d{4}\b|\b\d{3}[\s.-]\d{4}\b`)
	mailRe  = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	priceRe = regexp.MustCompile(`(^|\s)(\${1,4})(\s|$)`)
	// 123 Main St / 45 Old Mill Road, optionally with city fragment after a comma
	addressRe = regexp.MustCompile(`(?i)\b\d{1,6}\s+[A-Za-z][A-Za-z'.]*(\s+[A-Za-z][A-Za-z'.]*){0,4}\s+(St|Street|Ave|Avenue|Rd|Road|Blvd|Boulevard|Dr|Drive|Ln|Lane|Way|Pl|Place|Ct|Court|Sq|Square)\b\.?(,\s*[A-Za-z .]+)?(,?\s*\d{4,5})?`)
	hoursRe   = regexp.MustCompile(`(?i)\b(mon|tue|wed|thu|fri|sat|sun)[a-z]*\b[^.\n]{0,60}?\d{1,2}(:\d{2})?\s*(am|pm)?\s*(-|–|to)\s*\d{1,2}(:\d{2})?\s*(am|pm)?`)
	// trailing price on a menu line: "Pasta  $14" / "Pizza ... 12.50"
	menuPriceSuffixRe = regexp.MustCompile(`[\s.·-]*\$?\d+([.,]\d{2})?\s*$`)
)

// fieldLabels lists the visible labels a field commonly appears behind
// ("Phone: ..."), consulted in definition lists and labeled spans.
var fieldLabels = map[string][]string{
	"phone":   {"phone", "tel", "telephone", "call us"},
	"email":   {"email", "e-mail"},
	"address": {"address", "location", "find us"},
	"hours":   {"hours", "opening hours", "open"},
}

// HeuristicStrategy matches patterns and keywords over visible text and
// common DOM structures. Lowest confidence; always runs to fill the gaps
// the structured strategies missed.
type HeuristicStrategy struct {
	logger arbor.ILogger
}

// NewHeuristicStrategy creates the pattern-matching strategy.
func NewHeuristicStrategy(logger arbor.ILogger) *HeuristicStrategy {
	return &HeuristicStrategy{logger: logger}
}

func (s *HeuristicStrategy) Name() models.ExtractionStrategy {
	return models.StrategyHeuristic
}

func (s *HeuristicStrategy) Extract(doc *goquery.Document, schema models.FieldSchema) map[string][]models.FieldValue {
	out := make(map[string][]models.FieldValue)

	body := visibleText(doc)

	for _, spec := range schema.Fields {
		if spec.List {
			if items := s.extractMenuItems(doc, spec.Name); len(items) > 0 {
				out[spec.Name] = append(out[spec.Name], models.FieldValue{
					Values:     items,
					Confidence: models.ConfidenceHeuristic,
					Strategy:   models.StrategyHeuristic,
				})
			}
			continue
		}

		raw := s.extractScalar(doc, body, spec.Name)
		if raw == "" {
			continue
		}
		value := NormalizeValue(spec.Name, raw)
		out[spec.Name] = append(out[spec.Name], models.FieldValue{
			Value:      value,
			Confidence: scoreConfidence(models.ConfidenceHeuristic, spec.Name, value),
			Strategy:   models.StrategyHeuristic,
		})
	}

	return out
}

func (s *HeuristicStrategy) extractScalar(doc *goquery.Document, body, field string) string {
	// Labeled values win over free-text pattern matches.
	if labeled := labeledValue(doc, field); labeled != "" {
		return labeled
	}

	switch field {
	case "name":
		if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
			return h1
		}
		return siteNameFromTitle(doc)
	case "phone":
		if tel := linkValue(doc, "tel:"); tel != "" {
			return tel
		}
		return phoneRe.FindString(body)
	case "email":
		if mail := linkValue(doc, "mailto:"); mail != "" {
			return mail
		}
		return mailRe.FindString(body)
	case "address":
		if addr := strings.TrimSpace(doc.Find("address").First().Text()); addr != "" {
			return addr
		}
		return addressRe.FindString(body)
	case "hours":
		return hoursRe.FindString(body)
	case "price_range":
		if m := priceRe.FindStringSubmatch(body); m != nil {
			return m[2]
		}
		return ""
	case "description":
		if content, ok := doc.Find("meta[name='description']").Attr("content"); ok {
			return content
		}
		return ""
	case "website":
		if href, ok := doc.Find("link[rel='canonical']").Attr("href"); ok {
			return href
		}
		return ""
	default:
		return ""
	}
}

// labeledValue finds "Label: value" spans and dt/dd pairs for the field.
func labeledValue(doc *goquery.Document, field string) string {
	labels := fieldLabels[field]
	if len(labels) == 0 {
		return ""
	}

	var found string
	doc.Find("p, span, div, li, dt").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		// Only leaf-ish elements; deep containers produce noisy matches.
		if sel.Children().Length() > 3 {
			return true
		}
		text := collapseWhitespace(sel.Text())
		lower := strings.ToLower(text)
		for _, label := range labels {
			prefix := label + ":"
			if strings.HasPrefix(lower, prefix) {
				value := strings.TrimSpace(text[len(prefix):])
				if value == "" && goquery.NodeName(sel) == "dt" {
					value = strings.TrimSpace(sel.Next().Text())
				}
				if value != "" {
					found = value
					return false
				}
			}
		}
		return true
	})
	return found
}

// linkValue reads the first tel:/mailto: anchor target.
func linkValue(doc *goquery.Document, scheme string) string {
	var value string
	doc.Find("a[href^='" + scheme + "']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		value = strings.TrimSpace(strings.TrimPrefix(href, scheme))
		return value == ""
	})
	return value
}

// siteNameFromTitle strips common "| tagline" and "- tagline" suffixes.
func siteNameFromTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	for _, sep := range []string{" | ", " - ", " – "} {
		if idx := strings.Index(title, sep); idx > 0 {
			return strings.TrimSpace(title[:idx])
		}
	}
	return title
}

// extractMenuItems collects list entries under menu-ish containers, falling
// back to any heading named "menu" followed by a list.
func (s *HeuristicStrategy) extractMenuItems(doc *goquery.Document, field string) []string {
	if field != "menu_items" {
		return nil
	}

	containers := doc.Find("#menu, .menu, [class*='menu-list'], [id*='menu-items'], section[aria-label*='menu' i]")
	if containers.Length() == 0 {
		// Heading fallback: a list following an h1-h3 that says "menu"
		doc.Find("h1, h2, h3").Each(func(_ int, sel *goquery.Selection) {
			if strings.Contains(strings.ToLower(sel.Text()), "menu") {
				containers = containers.AddSelection(sel.NextAllFiltered("ul, ol").First())
			}
		})
	}

	seen := make(map[string]bool)
	var items []string
	containers.Find("li, .menu-item, [itemprop='name']").Each(func(_ int, sel *goquery.Selection) {
		if sel.Children().Length() > 3 {
			return
		}
		item := collapseWhitespace(sel.Text())
		item = menuPriceSuffixRe.ReplaceAllString(item, "")
		item = strings.TrimSpace(item)
		if item == "" || len(item) > 80 {
			return
		}
		key := strings.ToLower(item)
		if !seen[key] {
			seen[key] = true
			items = append(items, item)
		}
	})

	return items
}

// visibleText extracts page text with boilerplate elements removed.
func visibleText(doc *goquery.Document) string {
	clone := doc.Selection.Clone()
	clone.Find("script, style, noscript").Remove()
	return collapseWhitespace(clone.Text())
}
