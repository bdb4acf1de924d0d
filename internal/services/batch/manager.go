// -----------------------------------------------------------------------
// Batch session manager - runs many site crawls under shared budgets
// -----------------------------------------------------------------------

package batch

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/common"
	"github.com/ternarybob/forager/internal/interfaces"
	"github.com/ternarybob/forager/internal/models"
	"github.com/ternarybob/forager/internal/services/aggregator"
	"github.com/ternarybob/forager/internal/services/orchestrator"
)

// Manager runs a batch of site crawls through a fixed-size worker pool.
// All workers share one Fetcher so the per-domain rate clock is global
// to the batch; everything else is per-site state owned by the worker
// running that site.
type Manager struct {
	fetcher    interfaces.Fetcher
	classifier interfaces.Classifier
	extractor  interfaces.Extractor
	aggregator *aggregator.Service
	events     interfaces.EventService
	store      interfaces.ResultStore
	config     *common.Config
	logger     arbor.ILogger

	// runnerFactory overrides orchestrator construction in tests.
	runnerFactory func() siteRunner
	// heapProbe overrides the runtime heap sampler in tests.
	heapProbe func() uint64
}

// NewManager creates a batch manager. store may be nil when persistence
// is disabled.
func NewManager(
	fetcher interfaces.Fetcher,
	classifier interfaces.Classifier,
	extractor interfaces.Extractor,
	agg *aggregator.Service,
	events interfaces.EventService,
	store interfaces.ResultStore,
	config *common.Config,
	logger arbor.ILogger,
) *Manager {
	return &Manager{
		fetcher:    fetcher,
		classifier: classifier,
		extractor:  extractor,
		aggregator: agg,
		events:     events,
		store:      store,
		config:     config,
		logger:     logger,
	}
}

// Run crawls every site and always returns a BatchResult, even when the
// context is cancelled partway: completed sites keep their records and
// undispatched sites are recorded as failures. Duplicate input URLs are
// collapsed before dispatch so a site is crawled once per session.
func (m *Manager) Run(ctx context.Context, siteURLs []string, schema models.FieldSchema) (*models.BatchResult, error) {
	started := time.Now()
	sessionID := common.NewSessionID()

	sites := dedupeSites(siteURLs)
	result := &models.BatchResult{
		SessionID: sessionID,
		StartedAt: started,
	}
	result.Stats.SitesAttempted = len(sites)

	m.logger.Info().
		Str("session_id", sessionID).
		Int("sites", len(sites)).
		Int("concurrency", m.config.Batch.Concurrency).
		Msg("Batch session started")

	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var highWater uint64

	workers := m.config.Batch.Concurrency
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		common.SafeGo(m.logger, "batch-worker", func() {
			defer wg.Done()
			runner := m.newRunner()
			for siteURL := range jobs {
				site := runner.Run(ctx, siteURL, schema)

				mu.Lock()
				result.Sites = append(result.Sites, *site)
				result.Stats.PagesProcessed += site.Stats.PagesAttempted
				if site.State == models.SiteStateDone && site.Entity != nil {
					result.Records = append(result.Records, site.Entity)
					result.Stats.SitesSucceeded++
				} else {
					result.Failures = append(result.Failures, models.SiteFailure{
						SiteURL: site.SiteURL,
						Reason:  site.Error,
					})
					result.Stats.SitesFailed++
				}
				if sample := m.heapInUse(); sample > highWater {
					highWater = sample
				}
				mu.Unlock()
			}
		})
	}

	var skipped []models.SiteFailure
dispatch:
	for _, siteURL := range sites {
		if ctx.Err() != nil {
			skipped = append(skipped, models.SiteFailure{SiteURL: siteURL, Reason: "batch cancelled"})
			continue
		}
		if m.overMemoryBudget() {
			m.logger.Warn().
				Str("site_url", siteURL).
				Int64("heap_bytes", int64(m.heapInUse())).
				Msg("Memory budget exceeded, not launching further sites")
			skipped = append(skipped, models.SiteFailure{SiteURL: siteURL, Reason: "memory budget exceeded"})
			continue
		}
		select {
		case jobs <- siteURL:
		case <-ctx.Done():
			skipped = append(skipped, models.SiteFailure{SiteURL: siteURL, Reason: "batch cancelled"})
			continue dispatch
		}
	}
	close(jobs)
	wg.Wait()

	mu.Lock()
	for _, failure := range skipped {
		result.Failures = append(result.Failures, failure)
		result.Stats.SitesFailed++
	}
	if sample := m.heapInUse(); sample > highWater {
		highWater = sample
	}
	result.Stats.MemoryHighWater = highWater
	result.Stats.Elapsed = time.Since(started)
	mu.Unlock()

	m.persist(context.WithoutCancel(ctx), result)

	m.publishProgress(ctx, models.ProgressEvent{
		Status:         "batch_completed",
		SitesCompleted: result.Stats.SitesSucceeded + result.Stats.SitesFailed,
		SitesTotal:     len(sites),
		Timestamp:      time.Now(),
	})

	m.logger.Info().
		Str("session_id", sessionID).
		Int("succeeded", result.Stats.SitesSucceeded).
		Int("failed", result.Stats.SitesFailed).
		Int("pages", result.Stats.PagesProcessed).
		Dur("elapsed", result.Stats.Elapsed).
		Msg("Batch session completed")

	return result, nil
}

// siteRunner is the per-site crawl entry point, satisfied by
// orchestrator.Orchestrator and replaceable in tests.
type siteRunner interface {
	Run(ctx context.Context, siteURL string, schema models.FieldSchema) *models.SiteResult
}

func (m *Manager) newRunner() siteRunner {
	if m.runnerFactory != nil {
		return m.runnerFactory()
	}
	return orchestrator.NewOrchestrator(m.fetcher, m.classifier, m.extractor, m.aggregator, m.events, m.config, m.logger)
}

// overMemoryBudget reports whether heap usage exceeds the configured
// budget. A budget of zero disables the check.
func (m *Manager) overMemoryBudget() bool {
	budget := uint64(m.config.Batch.MemoryBudgetMB) * 1024 * 1024
	if budget == 0 {
		return false
	}
	return m.heapInUse() > budget
}

func (m *Manager) heapInUse() uint64 {
	if m.heapProbe != nil {
		return m.heapProbe()
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapInuse
}

// persist saves the batch and its records when a store is configured.
// Storage failures are logged, never fatal to the batch.
func (m *Manager) persist(ctx context.Context, result *models.BatchResult) {
	if m.store == nil {
		return
	}
	for _, record := range result.Records {
		if err := m.store.SaveEntity(ctx, record); err != nil {
			m.logger.Error().Err(err).Str("site_url", record.SiteURL).Msg("Failed to persist entity record")
		}
	}
	if err := m.store.SaveBatch(ctx, result); err != nil {
		m.logger.Error().Err(err).Str("session_id", result.SessionID).Msg("Failed to persist batch result")
	}
}

func (m *Manager) publishProgress(ctx context.Context, progress models.ProgressEvent) {
	if m.events == nil {
		return
	}
	_ = m.events.Publish(ctx, interfaces.Event{Type: interfaces.EventBatchDone, Progress: progress})
}

func dedupeSites(siteURLs []string) []string {
	seen := make(map[string]bool, len(siteURLs))
	var sites []string
	for _, raw := range siteURLs {
		url := common.NormalizeURL(raw)
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		sites = append(sites, url)
	}
	return sites
}
