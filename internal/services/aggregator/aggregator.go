// -----------------------------------------------------------------------
// Data aggregator - merges page results into a single entity record
// -----------------------------------------------------------------------

package aggregator

import (
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/common"
	"github.com/ternarybob/forager/internal/models"
)

// fieldAuthority ranks page types by how authoritative they are for a
// field. Higher wins. Types not listed rank 0.
var fieldAuthority = map[string]map[models.PageType]int{
	"phone":       {models.PageTypeContact: 3, models.PageTypeHome: 2, models.PageTypeAbout: 1},
	"email":       {models.PageTypeContact: 3, models.PageTypeHome: 2, models.PageTypeAbout: 1},
	"address":     {models.PageTypeContact: 3, models.PageTypeHome: 2, models.PageTypeAbout: 1},
	"hours":       {models.PageTypeHours: 3, models.PageTypeContact: 2, models.PageTypeHome: 1},
	"name":        {models.PageTypeHome: 3, models.PageTypeAbout: 2, models.PageTypeContact: 1},
	"description": {models.PageTypeAbout: 3, models.PageTypeHome: 2},
	"menu_items":  {models.PageTypeMenu: 3, models.PageTypeHome: 1},
	"price_range": {models.PageTypeMenu: 3, models.PageTypeHome: 1},
	"website":     {models.PageTypeHome: 3},
}

// candidate is one observed value for a field with its provenance.
type candidate struct {
	value    models.FieldValue
	pageType models.PageType
	order    int
}

// Service merges the field values from a site's crawled pages into one
// EntityRecord, resolving conflicts deterministically.
type Service struct {
	logger arbor.ILogger
}

func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// Aggregate builds the entity record for a site. Pages are first put in
// canonical order (depth, then URL) so the result is identical no matter
// which order the crawl completed them in. "First seen" means first in
// that canonical order.
func (s *Service) Aggregate(siteURL string, pages []*models.PageResult, schema models.FieldSchema) *models.EntityRecord {
	record := &models.EntityRecord{
		SiteURL:   siteURL,
		Domain:    common.Domain(siteURL),
		Fields:    make(map[string]models.ResolvedField),
		CreatedAt: time.Now().UTC(),
	}

	ordered := canonicalOrder(pages)

	for _, spec := range schema.Fields {
		candidates := gatherCandidates(ordered, spec.Name)
		if len(candidates) == 0 {
			if spec.Required {
				record.AbsentFields = append(record.AbsentFields, spec.Name)
			}
			continue
		}

		var resolved models.ResolvedField
		if spec.List {
			resolved = mergeList(candidates)
		} else {
			var conflict *models.Conflict
			resolved, conflict = resolveScalar(spec.Name, candidates)
			if conflict != nil {
				record.UnresolvedConflicts = append(record.UnresolvedConflicts, *conflict)
			}
		}
		record.Fields[spec.Name] = resolved
	}

	record.Confidence = overallConfidence(record, schema)

	if s.logger != nil {
		s.logger.Debug().
			Str("site_url", siteURL).
			Int("fields", len(record.Fields)).
			Int("conflicts", len(record.UnresolvedConflicts)).
			Msg("Aggregated entity record")
	}

	return record
}

// canonicalOrder sorts successful pages by depth then URL and discards
// the rest. Failed pages contribute no fields.
func canonicalOrder(pages []*models.PageResult) []*models.PageResult {
	ordered := make([]*models.PageResult, 0, len(pages))
	for _, page := range pages {
		if page != nil && page.Status == models.PageStatusSuccess {
			ordered = append(ordered, page)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Task.Depth != ordered[j].Task.Depth {
			return ordered[i].Task.Depth < ordered[j].Task.Depth
		}
		return ordered[i].Task.URL < ordered[j].Task.URL
	})
	return ordered
}

func gatherCandidates(ordered []*models.PageResult, field string) []candidate {
	var candidates []candidate
	for _, page := range ordered {
		for _, value := range page.Fields[field] {
			candidates = append(candidates, candidate{
				value:    value,
				pageType: page.PageType,
				order:    len(candidates),
			})
		}
	}
	return candidates
}

// resolveScalar picks one value for the field. Equal values (after
// case-insensitive comparison) are merged, keeping the highest
// confidence and every source. When distinct values remain, the winner
// is chosen by confidence, then page authority for the field, then
// value length. Only a tie that survives all three rules counts as
// unresolved: the canonical first-seen value is used and the tie is
// recorded as a conflict. A value that lost on any rule was resolved,
// not conflicted.
func resolveScalar(field string, candidates []candidate) (models.ResolvedField, *models.Conflict) {
	type group struct {
		value      string
		confidence float64
		strategy   models.ExtractionStrategy
		authority  int
		order      int
		sources    []string
	}

	byValue := make(map[string]*group)
	var groups []*group
	for _, cand := range candidates {
		key := strings.ToLower(strings.TrimSpace(cand.value.Value))
		if key == "" {
			continue
		}
		authority := fieldAuthority[field][cand.pageType]
		g, ok := byValue[key]
		if !ok {
			g = &group{
				value:      cand.value.Value,
				confidence: cand.value.Confidence,
				strategy:   cand.value.Strategy,
				authority:  authority,
				order:      cand.order,
				sources:    []string{},
			}
			byValue[key] = g
			groups = append(groups, g)
		}
		if cand.value.Confidence > g.confidence {
			g.confidence = cand.value.Confidence
			g.strategy = cand.value.Strategy
		}
		if authority > g.authority {
			g.authority = authority
		}
		g.sources = appendUnique(g.sources, cand.value.SourceURL)
	}

	if len(groups) == 0 {
		return models.ResolvedField{}, nil
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].confidence != groups[j].confidence {
			return groups[i].confidence > groups[j].confidence
		}
		if groups[i].authority != groups[j].authority {
			return groups[i].authority > groups[j].authority
		}
		if len(groups[i].value) != len(groups[j].value) {
			return len(groups[i].value) > len(groups[j].value)
		}
		return groups[i].order < groups[j].order
	})

	winner := groups[0]
	resolved := models.ResolvedField{
		Value:      winner.value,
		Confidence: winner.confidence,
		Strategy:   winner.strategy,
		SourceURLs: winner.sources,
	}

	if len(groups) == 1 {
		return resolved, nil
	}

	var conflict *models.Conflict
	for _, g := range groups[1:] {
		if g.confidence != winner.confidence || g.authority != winner.authority || len(g.value) != len(winner.value) {
			break
		}
		if conflict == nil {
			conflict = &models.Conflict{
				Field:       field,
				ChosenValue: winner.value,
				SourceURLs:  append([]string{}, winner.sources...),
			}
		}
		conflict.CompetingValues = append(conflict.CompetingValues, g.value)
		for _, src := range g.sources {
			conflict.SourceURLs = appendUnique(conflict.SourceURLs, src)
		}
	}
	return resolved, conflict
}

// mergeList unions list values across pages in canonical order,
// deduplicating case-insensitively while keeping the first spelling.
func mergeList(candidates []candidate) models.ResolvedField {
	seen := make(map[string]bool)
	resolved := models.ResolvedField{}
	for _, cand := range candidates {
		items := cand.value.Values
		if len(items) == 0 && cand.value.Value != "" {
			items = []string{cand.value.Value}
		}
		contributed := false
		for _, item := range items {
			key := strings.ToLower(strings.TrimSpace(item))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			resolved.Values = append(resolved.Values, item)
			contributed = true
		}
		if contributed {
			if cand.value.Confidence > resolved.Confidence {
				resolved.Confidence = cand.value.Confidence
				resolved.Strategy = cand.value.Strategy
			}
			resolved.SourceURLs = appendUnique(resolved.SourceURLs, cand.value.SourceURL)
		}
	}
	return resolved
}

// overallConfidence is the weight-normalized confidence across the
// schema. Fields with no value contribute zero, so missing data lowers
// the score.
func overallConfidence(record *models.EntityRecord, schema models.FieldSchema) float64 {
	var total, weighted float64
	for _, spec := range schema.Fields {
		weight := spec.Weight
		if weight <= 0 {
			weight = 1
		}
		total += weight
		if resolved, ok := record.Fields[spec.Name]; ok {
			weighted += weight * resolved.Confidence
		}
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

func appendUnique(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
