// -----------------------------------------------------------------------
// Semantic-markup strategy - microdata itemprop attributes
// -----------------------------------------------------------------------

package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/models"
)

// itempropNames maps schema field names to the microdata itemprop values
// that carry them.
var itempropNames = map[string][]string{
	"name":        {"name"},
	"phone":       {"telephone"},
	"email":       {"email"},
	"website":     {"url"},
	"price_range": {"priceRange"},
	"description": {"description"},
	"hours":       {"openingHours"},
}

// SemanticStrategy parses attribute-based microdata tags (itemscope /
// itemprop). Medium confidence: semantic markup is explicit but frequently
// stale or template-generated.
type SemanticStrategy struct {
	logger arbor.ILogger
}

// NewSemanticStrategy creates the microdata extraction strategy.
func NewSemanticStrategy(logger arbor.ILogger) *SemanticStrategy {
	return &SemanticStrategy{logger: logger}
}

func (s *SemanticStrategy) Name() models.ExtractionStrategy {
	return models.StrategySemantic
}

// Extract scopes extraction to an itemscope describing the entity when one
// exists, otherwise scans the whole document for itemprop attributes.
func (s *SemanticStrategy) Extract(doc *goquery.Document, schema models.FieldSchema) map[string][]models.FieldValue {
	out := make(map[string][]models.FieldValue)

	scope := doc.Selection
	entityScope := doc.Find("[itemscope][itemtype*='Restaurant'], [itemscope][itemtype*='FoodEstablishment'], [itemscope][itemtype*='LocalBusiness']").First()
	if entityScope.Length() > 0 {
		scope = entityScope
	}

	for _, spec := range schema.Fields {
		if spec.List {
			if items := s.extractList(scope, spec.Name); len(items) > 0 {
				out[spec.Name] = append(out[spec.Name], models.FieldValue{
					Values:     items,
					Confidence: models.ConfidenceSemantic,
					Strategy:   models.StrategySemantic,
				})
			}
			continue
		}

		raw := s.extractScalar(scope, spec.Name)
		if raw == "" {
			continue
		}
		value := NormalizeValue(spec.Name, raw)
		out[spec.Name] = append(out[spec.Name], models.FieldValue{
			Value:      value,
			Confidence: scoreConfidence(models.ConfidenceSemantic, spec.Name, value),
			Strategy:   models.StrategySemantic,
		})
	}

	return out
}

func (s *SemanticStrategy) extractScalar(scope *goquery.Selection, field string) string {
	if field == "address" {
		return s.extractAddress(scope)
	}

	for _, prop := range itempropNames[field] {
		sel := scope.Find("[itemprop='" + prop + "']").First()
		if sel.Length() == 0 {
			continue
		}
		if v := itempropValue(sel); v != "" {
			return v
		}
	}
	return ""
}

// extractAddress composes a PostalAddress itemscope, falling back to the
// flat address itemprop.
func (s *SemanticStrategy) extractAddress(scope *goquery.Selection) string {
	addr := scope.Find("[itemprop='address']").First()
	if addr.Length() == 0 {
		return ""
	}

	var parts []string
	for _, prop := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode"} {
		sel := addr.Find("[itemprop='" + prop + "']").First()
		if sel.Length() == 0 {
			continue
		}
		if v := itempropValue(sel); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	return itempropValue(addr)
}

// extractList collects menu items from MenuItem itemscopes.
func (s *SemanticStrategy) extractList(scope *goquery.Selection, field string) []string {
	if field != "menu_items" {
		return nil
	}

	var items []string
	scope.Find("[itemtype*='MenuItem'] [itemprop='name'], [itemprop='hasMenuItem'] [itemprop='name']").Each(func(_ int, sel *goquery.Selection) {
		if v := itempropValue(sel); v != "" {
			items = append(items, normalizeListItem(v))
		}
	})
	return items
}

// itempropValue reads a microdata value from content attributes, link-style
// attributes, or element text, in that order.
func itempropValue(sel *goquery.Selection) string {
	if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
		return strings.TrimSpace(content)
	}
	if href, ok := sel.Attr("href"); ok && strings.TrimSpace(href) != "" {
		return strings.TrimSpace(href)
	}
	return strings.TrimSpace(sel.Text())
}
