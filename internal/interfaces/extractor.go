package interfaces

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/forager/internal/models"
)

// Strategy is one content-extraction pass over a parsed page. Strategies
// run in fixed priority order; each returns a partial field map for the
// fields it could extract. A strategy never synthesizes values for fields
// it found nothing for.
type Strategy interface {
	Name() models.ExtractionStrategy
	Extract(doc *goquery.Document, schema models.FieldSchema) map[string][]models.FieldValue
}

// Extractor turns one page's markup into typed field values with per-field
// confidence. Malformed content degrades to an empty field map.
type Extractor interface {
	Extract(body []byte, schema models.FieldSchema) (map[string][]models.FieldValue, error)
}
