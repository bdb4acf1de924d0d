package interfaces

import (
	"context"

	"github.com/ternarybob/forager/internal/models"
)

// Fetcher performs a single rate-limited HTTP GET with retry and timeout
// handling. Failures are returned as *models.FetchError with a classified
// kind. Fetch blocks the caller while the per-domain rate-limit interval
// elapses; the per-domain clock is shared across all concurrent callers.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*models.FetchResult, error)
}
