package interfaces

import "github.com/ternarybob/forager/internal/models"

// Classifier determines a page's type and discovers outbound links.
// Links already known to the caller (per the seen callback) are silently
// dropped, and at most the configured page budget of unvisited links is
// returned to bound fan-out.
type Classifier interface {
	Classify(pageURL string, body []byte, seen models.SeenFunc) (*models.Classification, error)
}
