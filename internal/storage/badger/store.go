package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/forager/internal/common"
	"github.com/ternarybob/forager/internal/interfaces"
	"github.com/ternarybob/forager/internal/models"
)

// Store implements the ResultStore interface for Badger. Entity records
// are keyed by site URL so re-running a site replaces its record; batch
// results are keyed by session ID.
type Store struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewStore opens the Badger database at the configured path.
func NewStore(logger arbor.ILogger, config *common.StorageConfig) (interfaces.ResultStore, error) {
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // Disable default badger logger to use arbor

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Badger result store initialized")

	return &Store{
		store:  store,
		logger: logger,
	}, nil
}

// SaveEntity upserts the record under its site URL.
func (s *Store) SaveEntity(ctx context.Context, record *models.EntityRecord) error {
	if record.SiteURL == "" {
		return fmt.Errorf("entity record site URL is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if err := s.store.Upsert(record.SiteURL, record); err != nil {
		return fmt.Errorf("failed to save entity record: %w", err)
	}
	return nil
}

// SaveBatch upserts the batch result under its session ID.
func (s *Store) SaveBatch(ctx context.Context, result *models.BatchResult) error {
	if result.SessionID == "" {
		return fmt.Errorf("batch session ID is required")
	}

	if err := s.store.Upsert(result.SessionID, result); err != nil {
		return fmt.Errorf("failed to save batch result: %w", err)
	}
	return nil
}

// GetEntity fetches the record stored for a site URL.
func (s *Store) GetEntity(ctx context.Context, siteURL string) (*models.EntityRecord, error) {
	var record models.EntityRecord
	if err := s.store.Get(siteURL, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("entity record not found: %s", siteURL)
		}
		return nil, fmt.Errorf("failed to get entity record: %w", err)
	}
	return &record, nil
}

// ListEntities returns every stored entity record.
func (s *Store) ListEntities(ctx context.Context) ([]*models.EntityRecord, error) {
	var records []models.EntityRecord
	if err := s.store.Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list entity records: %w", err)
	}

	out := make([]*models.EntityRecord, len(records))
	for i := range records {
		out[i] = &records[i]
	}
	return out, nil
}

// Close runs value-log garbage collection and closes the database.
func (s *Store) Close() error {
	if s.store == nil {
		return nil
	}

	for {
		if err := s.store.Badger().RunValueLogGC(0.5); err != nil {
			if err != badger.ErrNoRewrite {
				s.logger.Warn().Err(err).Msg("Badger value log GC failed")
			}
			break
		}
	}

	return s.store.Close()
}
