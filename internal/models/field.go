package models

import "fmt"

// ExtractionStrategy identifies which engine strategy produced a value.
type ExtractionStrategy string

const (
	StrategyStructured ExtractionStrategy = "structured_data"
	StrategySemantic   ExtractionStrategy = "semantic_markup"
	StrategyHeuristic  ExtractionStrategy = "heuristic"
)

// Base confidence per strategy. Completeness bonuses are applied on top by
// the extraction engine, capped at 1.0.
const (
	ConfidenceStructured = 0.9
	ConfidenceSemantic   = 0.7
	ConfidenceHeuristic  = 0.4
)

// FieldValue is a single extracted datum for one field on one page. Scalar
// fields populate Value; list fields populate Values.
type FieldValue struct {
	Value      string             `json:"value,omitempty"`
	Values     []string           `json:"values,omitempty"`
	Confidence float64            `json:"confidence"`
	SourceURL  string             `json:"source_url"`
	Strategy   ExtractionStrategy `json:"strategy"`
}

// IsList reports whether the value carries a list payload.
func (v FieldValue) IsList() bool {
	return v.Values != nil
}

// FieldSpec describes one field in a target-domain schema.
type FieldSpec struct {
	Name     string  `json:"name" yaml:"name" toml:"name" validate:"required"`
	Required bool    `json:"required" yaml:"required" toml:"required"`
	Weight   float64 `json:"weight" yaml:"weight" toml:"weight" validate:"gte=0"`
	List     bool    `json:"list" yaml:"list" toml:"list"`
}

// FieldSchema is the ordered field set for one target domain. It is passed
// explicitly into the extraction engine and the aggregator.
type FieldSchema struct {
	Domain string      `json:"domain" yaml:"domain" toml:"domain"`
	Fields []FieldSpec `json:"fields" yaml:"fields" toml:"fields" validate:"min=1,dive"`
}

// Field looks up a spec by name.
func (s FieldSchema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames returns the schema's field names in declared order.
func (s FieldSchema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Validate checks structural sanity beyond tag validation: duplicate names.
func (s FieldSchema) Validate() error {
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %q in schema %q", f.Name, s.Domain)
		}
		seen[f.Name] = true
	}
	return nil
}

// DefaultRestaurantSchema returns the built-in field set for restaurant
// sites. Required fields carry higher importance weights so the overall
// record confidence reflects them more strongly.
func DefaultRestaurantSchema() FieldSchema {
	return FieldSchema{
		Domain: "restaurant",
		Fields: []FieldSpec{
			{Name: "name", Required: true, Weight: 3.0},
			{Name: "address", Required: true, Weight: 3.0},
			{Name: "phone", Required: true, Weight: 2.0},
			{Name: "menu_items", Required: false, Weight: 2.0, List: true},
			{Name: "hours", Required: false, Weight: 1.0},
			{Name: "email", Required: false, Weight: 1.0},
			{Name: "website", Required: false, Weight: 0.5},
			{Name: "price_range", Required: false, Weight: 0.5},
			{Name: "description", Required: false, Weight: 0.5},
		},
	}
}
