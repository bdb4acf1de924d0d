// -----------------------------------------------------------------------
// Extraction engine - runs strategies in fixed priority order
// -----------------------------------------------------------------------

package extractor

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/interfaces"
	"github.com/ternarybob/forager/internal/models"
)

// Engine parses a page once and applies each strategy in priority order:
// structured data, then semantic markup, then heuristics. A field filled
// by a higher-priority strategy is not overwritten by a lower one; lower
// strategies only fill fields the earlier passes missed.
type Engine struct {
	strategies []interfaces.Strategy
	logger     arbor.ILogger
}

var _ interfaces.Extractor = (*Engine)(nil)

// NewEngine creates the engine with the default strategy chain.
func NewEngine(logger arbor.ILogger) *Engine {
	return &Engine{
		strategies: []interfaces.Strategy{
			NewStructuredStrategy(logger),
			NewSemanticStrategy(logger),
			NewHeuristicStrategy(logger),
		},
		logger: logger,
	}
}

// Extract returns every field the strategies could produce for the page.
// Malformed or empty content degrades to an empty result rather than an
// error; only a document that cannot be parsed at all fails.
func (e *Engine) Extract(body []byte, schema models.FieldSchema) (map[string][]models.FieldValue, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	fields := make(map[string][]models.FieldValue)
	for _, strategy := range e.strategies {
		extracted := strategy.Extract(doc, schema)
		filled := 0
		for name, values := range extracted {
			if len(fields[name]) > 0 {
				continue
			}
			if len(values) == 0 {
				continue
			}
			fields[name] = values
			filled++
		}
		if filled > 0 && e.logger != nil {
			e.logger.Debug().
				Str("strategy", string(strategy.Name())).
				Int("fields", filled).
				Msg("Strategy extracted fields")
		}
	}

	return fields, nil
}
