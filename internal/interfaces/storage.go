package interfaces

import (
	"context"

	"github.com/ternarybob/forager/internal/models"
)

// ResultStore persists finalized entity records and batch results for the
// downstream retrieval layer. Only finalized records are ever written; the
// store is not consulted during a crawl.
type ResultStore interface {
	SaveEntity(ctx context.Context, record *models.EntityRecord) error
	SaveBatch(ctx context.Context, result *models.BatchResult) error
	GetEntity(ctx context.Context, siteURL string) (*models.EntityRecord, error)
	ListEntities(ctx context.Context) ([]*models.EntityRecord, error)
	Close() error
}
