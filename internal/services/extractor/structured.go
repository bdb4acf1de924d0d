// -----------------------------------------------------------------------
// Structured-data strategy - JSON-LD linked data blocks
// -----------------------------------------------------------------------

package extractor

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kaptinlin/jsonrepair"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/models"
)

// entityTypes are the schema.org types accepted as describing the target
// entity. Anything else (BreadcrumbList, WebSite, ...) is ignored.
var entityTypes = map[string]bool{
	"Restaurant":        true,
	"FoodEstablishment": true,
	"CafeOrCoffeeShop":  true,
	"Bakery":            true,
	"BarOrPub":          true,
	"LocalBusiness":     true,
	"Organization":      true,
}

// StructuredStrategy parses embedded JSON-LD blocks matching expected entity
// types. Highest confidence: structured markup is author-declared data.
type StructuredStrategy struct {
	logger arbor.ILogger
}

// NewStructuredStrategy creates the JSON-LD extraction strategy.
func NewStructuredStrategy(logger arbor.ILogger) *StructuredStrategy {
	return &StructuredStrategy{logger: logger}
}

func (s *StructuredStrategy) Name() models.ExtractionStrategy {
	return models.StrategyStructured
}

// Extract walks every application/ld+json block, repairs malformed JSON when
// strict parsing fails, and harvests schema fields from matching entities.
func (s *StructuredStrategy) Extract(doc *goquery.Document, schema models.FieldSchema) map[string][]models.FieldValue {
	out := make(map[string][]models.FieldValue)

	doc.Find("script[type='application/ld+json']").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}

		var data interface{}
		if err := json.Unmarshal([]byte(text), &data); err != nil {
			repaired, repairErr := jsonrepair.JSONRepair(text)
			if repairErr != nil {
				s.logger.Debug().Err(err).Msg("Failed to parse JSON-LD block")
				return
			}
			if err := json.Unmarshal([]byte(repaired), &data); err != nil {
				s.logger.Debug().Err(err).Msg("Failed to parse repaired JSON-LD block")
				return
			}
		}

		for _, node := range flattenNodes(data) {
			if matchesEntityType(node["@type"]) {
				s.harvest(node, schema, out)
			}
		}
	})

	return out
}

// flattenNodes expands top-level objects, arrays, and @graph containers into
// a flat node list.
func flattenNodes(data interface{}) []map[string]interface{} {
	var nodes []map[string]interface{}

	switch v := data.(type) {
	case []interface{}:
		for _, item := range v {
			nodes = append(nodes, flattenNodes(item)...)
		}
	case map[string]interface{}:
		nodes = append(nodes, v)
		if graph, ok := v["@graph"].([]interface{}); ok {
			for _, item := range graph {
				nodes = append(nodes, flattenNodes(item)...)
			}
		}
	}

	return nodes
}

// matchesEntityType accepts both string and array forms of @type.
func matchesEntityType(t interface{}) bool {
	switch v := t.(type) {
	case string:
		return entityTypes[v]
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && entityTypes[s] {
				return true
			}
		}
	}
	return false
}

// jsonLDProperty maps a schema field name to the JSON-LD properties that
// carry it.
var jsonLDProperty = map[string][]string{
	"name":        {"name"},
	"phone":       {"telephone"},
	"email":       {"email"},
	"website":     {"url"},
	"price_range": {"priceRange"},
	"description": {"description"},
	"hours":       {"openingHours"},
}

// harvest emits values for every schema field the node carries.
func (s *StructuredStrategy) harvest(node map[string]interface{}, schema models.FieldSchema, out map[string][]models.FieldValue) {
	for _, spec := range schema.Fields {
		if spec.List {
			if items := s.harvestList(node, spec.Name); len(items) > 0 {
				out[spec.Name] = append(out[spec.Name], models.FieldValue{
					Values:     items,
					Confidence: models.ConfidenceStructured,
					Strategy:   models.StrategyStructured,
				})
			}
			continue
		}

		raw := s.harvestScalar(node, spec.Name)
		if raw == "" {
			continue
		}
		value := NormalizeValue(spec.Name, raw)
		out[spec.Name] = append(out[spec.Name], models.FieldValue{
			Value:      value,
			Confidence: scoreConfidence(models.ConfidenceStructured, spec.Name, value),
			Strategy:   models.StrategyStructured,
		})
	}
}

// harvestScalar resolves one scalar field from a node, handling the nested
// shapes JSON-LD commonly uses (PostalAddress, openingHoursSpecification).
func (s *StructuredStrategy) harvestScalar(node map[string]interface{}, field string) string {
	switch field {
	case "address":
		return addressFromNode(node["address"])
	case "hours":
		if v := stringValue(node["openingHours"]); v != "" {
			return v
		}
		return hoursFromSpecification(node["openingHoursSpecification"])
	default:
		for _, prop := range jsonLDProperty[field] {
			if v := stringValue(node[prop]); v != "" {
				return v
			}
		}
	}
	return ""
}

// harvestList pulls list-valued fields; currently menu items via the
// schema.org hasMenu / hasMenuSection / hasMenuItem chain.
func (s *StructuredStrategy) harvestList(node map[string]interface{}, field string) []string {
	if field != "menu_items" {
		return nil
	}

	var items []string
	collectMenuItems(node["hasMenu"], &items)
	collectMenuItems(node["hasMenuSection"], &items)
	collectMenuItems(node["hasMenuItem"], &items)
	for i, item := range items {
		items[i] = normalizeListItem(item)
	}
	return items
}

// collectMenuItems recursively walks menu containers collecting item names.
func collectMenuItems(v interface{}, items *[]string) {
	switch node := v.(type) {
	case []interface{}:
		for _, item := range node {
			collectMenuItems(item, items)
		}
	case map[string]interface{}:
		typ, _ := node["@type"].(string)
		if typ == "MenuItem" {
			if name := stringValue(node["name"]); name != "" {
				*items = append(*items, name)
			}
			return
		}
		collectMenuItems(node["hasMenuSection"], items)
		collectMenuItems(node["hasMenuItem"], items)
	}
}

// addressFromNode handles both string addresses and PostalAddress objects.
func addressFromNode(v interface{}) string {
	switch node := v.(type) {
	case string:
		return node
	case map[string]interface{}:
		parts := []string{}
		for _, prop := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode"} {
			if p := stringValue(node[prop]); p != "" {
				parts = append(parts, p)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// hoursFromSpecification flattens openingHoursSpecification entries into a
// single readable string.
func hoursFromSpecification(v interface{}) string {
	specs, ok := v.([]interface{})
	if !ok {
		if single, ok := v.(map[string]interface{}); ok {
			specs = []interface{}{single}
		} else {
			return ""
		}
	}

	var parts []string
	for _, item := range specs {
		spec, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		days := stringValue(spec["dayOfWeek"])
		if list, ok := spec["dayOfWeek"].([]interface{}); ok {
			var names []string
			for _, d := range list {
				if name := stringValue(d); name != "" {
					names = append(names, shortDay(name))
				}
			}
			days = strings.Join(names, ", ")
		} else {
			days = shortDay(days)
		}
		opens := stringValue(spec["opens"])
		closes := stringValue(spec["closes"])
		if days == "" || opens == "" || closes == "" {
			continue
		}
		parts = append(parts, days+" "+opens+"-"+closes)
	}
	return strings.Join(parts, "; ")
}

// shortDay strips schema.org URL prefixes and abbreviates day names.
func shortDay(day string) string {
	day = strings.TrimPrefix(day, "https://schema.org/")
	day = strings.TrimPrefix(day, "http://schema.org/")
	if len(day) > 3 {
		return day[:3]
	}
	return day
}

// stringValue extracts a string from scalar or single-element array shapes.
func stringValue(v interface{}) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case []interface{}:
		if len(s) > 0 {
			return stringValue(s[0])
		}
	}
	return ""
}
