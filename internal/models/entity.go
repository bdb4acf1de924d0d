package models

import "time"

// ResolvedField is the winning value for one field after cross-page conflict
// resolution, with provenance back to the contributing pages.
type ResolvedField struct {
	Value      string             `json:"value,omitempty"`
	Values     []string           `json:"values,omitempty"`
	Confidence float64            `json:"confidence"`
	Strategy   ExtractionStrategy `json:"strategy"`
	SourceURLs []string           `json:"source_urls"`
}

// Conflict records a tie the aggregator could not resolve by confidence,
// page-type authority, or content length. The first-seen value is kept as a
// best-effort default; the record documents what else was observed.
type Conflict struct {
	Field           string   `json:"field"`
	ChosenValue     string   `json:"chosen_value"`
	CompetingValues []string `json:"competing_values"`
	SourceURLs      []string `json:"source_urls"`
}

// EntityRecord is the finalized merged output for one site. It is never
// mutated after creation; a re-run builds a fresh record.
type EntityRecord struct {
	SiteURL             string                   `json:"site_url"`
	Domain              string                   `json:"domain"`
	Fields              map[string]ResolvedField `json:"fields"`
	AbsentFields        []string                 `json:"absent_fields,omitempty"`
	Confidence          float64                  `json:"confidence"`
	UnresolvedConflicts []Conflict               `json:"unresolved_conflicts,omitempty"`
	CreatedAt           time.Time                `json:"created_at"`
}

// FieldValue returns the resolved scalar value for a field, or "" when the
// field is absent.
func (r *EntityRecord) FieldValue(name string) string {
	if f, ok := r.Fields[name]; ok {
		return f.Value
	}
	return ""
}

// FieldValues returns the resolved list value for a field, or nil.
func (r *EntityRecord) FieldValues(name string) []string {
	if f, ok := r.Fields[name]; ok {
		return f.Values
	}
	return nil
}
