// -----------------------------------------------------------------------
// Site orchestrator - drives the crawl state machine for one site
// -----------------------------------------------------------------------

package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/common"
	"github.com/ternarybob/forager/internal/interfaces"
	"github.com/ternarybob/forager/internal/models"
	"github.com/ternarybob/forager/internal/services/aggregator"
)

// Orchestrator walks one site from its start URL: fetch, classify,
// extract per page, breadth-first, until the frontier is empty or a
// budget (pages, depth, wall clock) runs out, then aggregates the page
// results into an entity record. All crawl state is owned by a single
// Run call; instances are safe to reuse across sites sequentially.
type Orchestrator struct {
	fetcher    interfaces.Fetcher
	classifier interfaces.Classifier
	extractor  interfaces.Extractor
	aggregator *aggregator.Service
	events     interfaces.EventService
	config     *common.Config
	logger     arbor.ILogger
}

// NewOrchestrator wires the per-page pipeline together.
func NewOrchestrator(
	fetcher interfaces.Fetcher,
	classifier interfaces.Classifier,
	extractor interfaces.Extractor,
	agg *aggregator.Service,
	events interfaces.EventService,
	config *common.Config,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		fetcher:    fetcher,
		classifier: classifier,
		extractor:  extractor,
		aggregator: agg,
		events:     events,
		config:     config,
		logger:     logger,
	}
}

// Run crawls one site and returns its result. The passed context is the
// batch context: cancelling it lets the in-flight page finish, then the
// site skips straight to aggregation of whatever completed. The site's
// own wall-clock budget is enforced independently.
func (o *Orchestrator) Run(ctx context.Context, siteURL string, schema models.FieldSchema) *models.SiteResult {
	started := time.Now()
	crawlID := common.NewCrawlID()
	result := &models.SiteResult{
		SiteURL: siteURL,
		State:   models.SiteStateDiscovering,
	}

	o.logger.Debug().
		Str("crawl_id", crawlID).
		Str("site_url", siteURL).
		Msg("Site crawl started")

	o.publishProgress(ctx, interfaces.EventSiteStarted, models.ProgressEvent{
		SiteURL:   siteURL,
		Status:    string(models.SiteStateDiscovering),
		Timestamp: started,
	})

	queue := newPageQueue(o.config.Crawler.MaxPagesPerSite, o.config.Crawler.MaxCrawlDepth)
	if !queue.Push(models.PageTask{URL: siteURL, Depth: 0}) {
		return o.fail(ctx, result, started, fmt.Sprintf("invalid start URL: %s", siteURL))
	}

	// Site wall clock is independent of batch cancellation: fetches run
	// under this context so a cancelled batch still lets the current
	// page complete before the site moves to aggregation.
	siteCtx, cancel := context.WithTimeout(context.Background(), o.config.Crawler.SiteTimeout)
	defer cancel()

	var pages []*models.PageResult

	for {
		task, ok := queue.Pop()
		if !ok {
			break
		}

		o.publishProgress(ctx, interfaces.EventPageStarted, models.ProgressEvent{
			SiteURL:   siteURL,
			PageURL:   task.URL,
			Status:    "fetching",
			Timestamp: time.Now(),
		})

		page := o.processPage(siteCtx, task, queue, schema)
		pages = append(pages, page)
		result.Stats.PagesAttempted++
		switch {
		case page.Succeeded():
			result.Stats.PagesSucceeded++
		case page.Status == models.PageStatusSkippedDuplicate:
			// A redirect onto an already-crawled page is neither a
			// success nor a failure.
		default:
			result.Stats.PagesFailed++
		}

		o.publishProgress(ctx, interfaces.EventPageCompleted, models.ProgressEvent{
			SiteURL:        siteURL,
			PageURL:        task.URL,
			PageType:       page.PageType,
			Status:         string(page.Status),
			PagesCompleted: len(pages),
			PagesTotal:     queue.Enqueued(),
			Timestamp:      time.Now(),
		})

		// Start URL failure means nothing was discovered; the site
		// cannot proceed.
		if task.Depth == 0 && !page.Succeeded() {
			return o.fail(ctx, result, started, fmt.Sprintf("start URL failed: %s", page.Error))
		}

		if task.Depth == 0 {
			result.State = models.SiteStateCrawling
		}

		if siteCtx.Err() != nil {
			o.logger.Warn().
				Str("site_url", siteURL).
				Dur("elapsed", time.Since(started)).
				Msg("Site time budget exceeded, stopping crawl")
			break
		}
		if ctx.Err() != nil {
			o.logger.Info().
				Str("site_url", siteURL).
				Msg("Batch cancelled, stopping crawl after in-flight page")
			break
		}

		for _, link := range page.Links {
			queue.Push(models.PageTask{
				URL:       link,
				Depth:     task.Depth + 1,
				ParentURL: task.URL,
			})
		}
	}

	if result.Stats.PagesSucceeded == 0 {
		return o.fail(ctx, result, started, "no pages succeeded within site budget")
	}

	result.State = models.SiteStateAggregating
	result.Entity = o.aggregator.Aggregate(siteURL, pages, schema)
	result.State = models.SiteStateDone
	result.Stats.Duration = time.Since(started)

	o.publishProgress(ctx, interfaces.EventSiteCompleted, models.ProgressEvent{
		SiteURL:        siteURL,
		Status:         string(models.SiteStateDone),
		PagesCompleted: result.Stats.PagesAttempted,
		PagesTotal:     result.Stats.PagesAttempted,
		Timestamp:      time.Now(),
	})

	o.logger.Info().
		Str("site_url", siteURL).
		Int("pages_succeeded", result.Stats.PagesSucceeded).
		Int("pages_failed", result.Stats.PagesFailed).
		Dur("duration", result.Stats.Duration).
		Float64("confidence", result.Entity.Confidence).
		Msg("Site crawl completed")

	return result
}

// processPage runs fetch, classify, extract for one task. Every failure
// is contained in the returned PageResult; nothing here aborts the
// site loop.
func (o *Orchestrator) processPage(ctx context.Context, task models.PageTask, queue *pageQueue, schema models.FieldSchema) *models.PageResult {
	started := time.Now()
	page := &models.PageResult{
		Task:     task,
		PageType: models.PageTypeOther,
		Status:   models.PageStatusSuccess,
	}

	fetched, err := o.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		page.Status = models.PageStatusFailed
		if fe, ok := models.AsFetchError(err); ok {
			page.StatusCode = fe.StatusCode
			if fe.Kind == models.FetchErrTimeout {
				page.Status = models.PageStatusTimeout
			}
		}
		page.Error = err.Error()
		page.Duration = time.Since(started)
		o.logger.Warn().
			Str("url", task.URL).
			Int("depth", task.Depth).
			Err(err).
			Msg("Page fetch failed")
		return page
	}
	page.StatusCode = fetched.StatusCode

	// The fetch may have been redirected onto a page this crawl already
	// processed under its own URL.
	if fetched.URL != "" && common.NormalizeURL(fetched.URL) != common.NormalizeURL(task.URL) && queue.Seen(fetched.URL) {
		page.Status = models.PageStatusSkippedDuplicate
		page.Duration = time.Since(started)
		o.logger.Debug().
			Str("url", task.URL).
			Str("redirected_to", fetched.URL).
			Msg("Redirect target already crawled, skipping page")
		return page
	}

	classification, err := o.classifier.Classify(task.URL, fetched.Body, queue.Seen)
	if err != nil {
		// Unparseable content yields no fields or links but the fetch
		// itself still counts as processed.
		o.logger.Warn().Str("url", task.URL).Err(err).Msg("Page classification failed")
		page.Duration = time.Since(started)
		return page
	}
	page.PageType = classification.PageType
	page.Task.TypeHint = classification.PageType
	page.Links = classification.Links

	fields, err := o.extractor.Extract(fetched.Body, schema)
	if err != nil {
		o.logger.Warn().Str("url", task.URL).Err(err).Msg("Field extraction failed")
		fields = map[string][]models.FieldValue{}
	}
	for name, values := range fields {
		for i := range values {
			values[i].SourceURL = task.URL
		}
		fields[name] = values
	}
	page.Fields = fields
	page.Duration = time.Since(started)

	o.logger.Debug().
		Str("url", task.URL).
		Str("page_type", string(page.PageType)).
		Int("fields", len(fields)).
		Int("links", len(page.Links)).
		Dur("duration", page.Duration).
		Msg("Page processed")

	return page
}

func (o *Orchestrator) fail(ctx context.Context, result *models.SiteResult, started time.Time, reason string) *models.SiteResult {
	result.State = models.SiteStateFailed
	result.Error = reason
	result.Stats.Duration = time.Since(started)

	o.publishProgress(ctx, interfaces.EventSiteCompleted, models.ProgressEvent{
		SiteURL:   result.SiteURL,
		Status:    string(models.SiteStateFailed),
		Timestamp: time.Now(),
	})

	o.logger.Warn().
		Str("site_url", result.SiteURL).
		Str("reason", reason).
		Msg("Site crawl failed")

	return result
}

func (o *Orchestrator) publishProgress(ctx context.Context, eventType interfaces.EventType, progress models.ProgressEvent) {
	if o.events == nil {
		return
	}
	_ = o.events.Publish(ctx, interfaces.Event{Type: eventType, Progress: progress})
}
