package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/common"
	"github.com/ternarybob/forager/internal/interfaces"
	"github.com/ternarybob/forager/internal/models"
	"github.com/ternarybob/forager/internal/services/aggregator"
)

// fakePage describes one crawlable page for the fakes below. finalURL
// simulates a redirect: the fetch reports it as the landing address.
type fakePage struct {
	pageType models.PageType
	links    []string
	fields   map[string][]models.FieldValue
	finalURL string
	err      error
}

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]fakePage
	delay time.Duration
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*models.FetchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(f.delay):
		}
	}

	page, ok := f.pages[url]
	if !ok {
		return nil, &models.FetchError{Kind: models.FetchErrHTTP, URL: url, StatusCode: 404, Detail: "not found"}
	}
	if page.err != nil {
		return nil, page.err
	}
	finalURL := url
	if page.finalURL != "" {
		finalURL = page.finalURL
	}
	return &models.FetchResult{URL: finalURL, StatusCode: 200, Body: []byte(url)}, nil
}

type fakeClassifier struct {
	pages map[string]fakePage
}

func (f *fakeClassifier) Classify(pageURL string, body []byte, seen models.SeenFunc) (*models.Classification, error) {
	page := f.pages[string(body)]
	var links []string
	for _, link := range page.links {
		if seen == nil || !seen(link) {
			links = append(links, link)
		}
	}
	pageType := page.pageType
	if pageType == "" {
		pageType = models.PageTypeOther
	}
	return &models.Classification{PageType: pageType, Links: links}, nil
}

type fakeExtractor struct {
	pages map[string]fakePage
}

func (f *fakeExtractor) Extract(body []byte, schema models.FieldSchema) (map[string][]models.FieldValue, error) {
	fields := make(map[string][]models.FieldValue)
	for name, values := range f.pages[string(body)].fields {
		fields[name] = append([]models.FieldValue{}, values...)
	}
	return fields, nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (r *recordingEvents) Subscribe(interfaces.EventType, interfaces.EventHandler) error { return nil }

func (r *recordingEvents) Publish(ctx context.Context, event interfaces.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEvents) PublishSync(ctx context.Context, event interfaces.Event) error {
	return r.Publish(ctx, event)
}

func (r *recordingEvents) Close() error { return nil }

func (r *recordingEvents) countByType(eventType interfaces.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.events {
		if e.Type == eventType {
			count++
		}
	}
	return count
}

func testSiteConfig() *common.Config {
	config := common.NewDefaultConfig()
	config.Crawler.MaxPagesPerSite = 10
	config.Crawler.MaxCrawlDepth = 2
	config.Crawler.SiteTimeout = 30 * time.Second
	return config
}

func newTestOrchestrator(pages map[string]fakePage, config *common.Config, events interfaces.EventService) *Orchestrator {
	logger := arbor.NewLogger()
	return NewOrchestrator(
		&fakeFetcher{pages: pages},
		&fakeClassifier{pages: pages},
		&fakeExtractor{pages: pages},
		aggregator.NewService(logger),
		events,
		config,
		logger,
	)
}

func namedValue(value string, confidence float64) models.FieldValue {
	return models.FieldValue{Value: value, Confidence: confidence, Strategy: models.StrategyStructured}
}

func TestRun_MultiPageSiteMergesIntoOneRecord(t *testing.T) {
	pages := map[string]fakePage{
		"https://example.com": {
			pageType: models.PageTypeHome,
			links:    []string{"https://example.com/menu", "https://example.com/contact"},
			fields: map[string][]models.FieldValue{
				"name": {namedValue("Luigi's", 0.9)},
			},
		},
		"https://example.com/menu": {
			pageType: models.PageTypeMenu,
			fields: map[string][]models.FieldValue{
				"menu_items": {{Values: []string{"Pizza", "Pasta"}, Confidence: 0.9, Strategy: models.StrategyStructured}},
			},
		},
		"https://example.com/contact": {
			pageType: models.PageTypeContact,
			fields: map[string][]models.FieldValue{
				"phone":   {namedValue("(555) 123-4567", 0.9)},
				"address": {namedValue("123 Main St", 0.7)},
			},
		},
	}

	events := &recordingEvents{}
	orch := newTestOrchestrator(pages, testSiteConfig(), events)
	result := orch.Run(context.Background(), "https://example.com", models.DefaultRestaurantSchema())

	require.Equal(t, models.SiteStateDone, result.State)
	assert.Equal(t, 3, result.Stats.PagesAttempted)
	assert.Equal(t, 3, result.Stats.PagesSucceeded)
	assert.Equal(t, 0, result.Stats.PagesFailed)

	require.NotNil(t, result.Entity)
	assert.Equal(t, "Luigi's", result.Entity.FieldValue("name"))
	assert.Equal(t, "(555) 123-4567", result.Entity.FieldValue("phone"))
	assert.Equal(t, []string{"Pizza", "Pasta"}, result.Entity.FieldValues("menu_items"))

	// Source URLs are stamped by the orchestrator.
	assert.Equal(t, []string{"https://example.com/contact"}, result.Entity.Fields["phone"].SourceURLs)

	assert.Equal(t, 1, events.countByType(interfaces.EventSiteStarted))
	assert.Equal(t, 3, events.countByType(interfaces.EventPageStarted))
	assert.Equal(t, 3, events.countByType(interfaces.EventPageCompleted))
	assert.Equal(t, 1, events.countByType(interfaces.EventSiteCompleted))
}

func TestRun_StartURLFailureFailsSite(t *testing.T) {
	pages := map[string]fakePage{
		"https://example.com": {
			err: &models.FetchError{Kind: models.FetchErrHTTP, URL: "https://example.com", StatusCode: 404, Detail: "not found"},
		},
	}

	orch := newTestOrchestrator(pages, testSiteConfig(), &recordingEvents{})
	result := orch.Run(context.Background(), "https://example.com", models.DefaultRestaurantSchema())

	assert.Equal(t, models.SiteStateFailed, result.State)
	assert.Nil(t, result.Entity)
	assert.Contains(t, result.Error, "start URL failed")
}

func TestRun_PageFailureIsolated(t *testing.T) {
	pages := map[string]fakePage{
		"https://example.com": {
			pageType: models.PageTypeHome,
			links:    []string{"https://example.com/menu", "https://example.com/contact"},
			fields: map[string][]models.FieldValue{
				"name": {namedValue("Resilient Cafe", 0.9)},
			},
		},
		"https://example.com/menu": {
			err: &models.FetchError{Kind: models.FetchErrTimeout, URL: "https://example.com/menu", Detail: "page timeout"},
		},
		"https://example.com/contact": {
			pageType: models.PageTypeContact,
			fields: map[string][]models.FieldValue{
				"phone": {namedValue("(555) 123-4567", 0.9)},
			},
		},
	}

	orch := newTestOrchestrator(pages, testSiteConfig(), &recordingEvents{})
	result := orch.Run(context.Background(), "https://example.com", models.DefaultRestaurantSchema())

	require.Equal(t, models.SiteStateDone, result.State)
	assert.Equal(t, 3, result.Stats.PagesAttempted)
	assert.Equal(t, 2, result.Stats.PagesSucceeded)
	assert.Equal(t, 1, result.Stats.PagesFailed)

	require.NotNil(t, result.Entity)
	assert.Equal(t, "Resilient Cafe", result.Entity.FieldValue("name"))
	assert.Equal(t, "(555) 123-4567", result.Entity.FieldValue("phone"))
}

func TestRun_PageBudgetEnforced(t *testing.T) {
	var links []string
	pages := map[string]fakePage{}
	for i := 1; i <= 11; i++ {
		url := fmt.Sprintf("https://example.com/p%d", i)
		links = append(links, url)
		pages[url] = fakePage{pageType: models.PageTypeOther}
	}
	pages["https://example.com"] = fakePage{
		pageType: models.PageTypeHome,
		links:    links,
		fields:   map[string][]models.FieldValue{"name": {namedValue("Budget Bistro", 0.9)}},
	}

	orch := newTestOrchestrator(pages, testSiteConfig(), &recordingEvents{})
	result := orch.Run(context.Background(), "https://example.com", models.DefaultRestaurantSchema())

	require.Equal(t, models.SiteStateDone, result.State)
	// Start page plus nine links; the tenth and eleventh links are dropped.
	assert.Equal(t, 10, result.Stats.PagesAttempted)
}

func TestRun_DuplicateLinksCrawledOnce(t *testing.T) {
	pages := map[string]fakePage{
		"https://example.com": {
			pageType: models.PageTypeHome,
			links:    []string{"https://example.com/menu", "https://example.com/menu"},
			fields:   map[string][]models.FieldValue{"name": {namedValue("Dedup Deli", 0.9)}},
		},
		"https://example.com/menu": {
			pageType: models.PageTypeMenu,
			links:    []string{"https://example.com"},
		},
	}

	fetcher := &fakeFetcher{pages: pages}
	logger := arbor.NewLogger()
	orch := NewOrchestrator(fetcher, &fakeClassifier{pages: pages}, &fakeExtractor{pages: pages},
		aggregator.NewService(logger), nil, testSiteConfig(), logger)

	result := orch.Run(context.Background(), "https://example.com", models.DefaultRestaurantSchema())

	require.Equal(t, models.SiteStateDone, result.State)
	assert.Equal(t, 2, result.Stats.PagesAttempted)
	assert.Len(t, fetcher.calls, 2)
}

func TestRun_CancelledBatchStopsAfterInFlightPage(t *testing.T) {
	pages := map[string]fakePage{
		"https://example.com": {
			pageType: models.PageTypeHome,
			links:    []string{"https://example.com/menu", "https://example.com/contact"},
			fields:   map[string][]models.FieldValue{"name": {namedValue("Partial Palace", 0.9)}},
		},
		"https://example.com/menu":    {pageType: models.PageTypeMenu},
		"https://example.com/contact": {pageType: models.PageTypeContact},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := newTestOrchestrator(pages, testSiteConfig(), &recordingEvents{})
	result := orch.Run(ctx, "https://example.com", models.DefaultRestaurantSchema())

	// The start page completes, then cancellation is observed and the
	// site aggregates what it has.
	require.Equal(t, models.SiteStateDone, result.State)
	assert.Equal(t, 1, result.Stats.PagesAttempted)
	require.NotNil(t, result.Entity)
	assert.Equal(t, "Partial Palace", result.Entity.FieldValue("name"))
}

func TestRun_UnreachableSiteFails(t *testing.T) {
	pages := map[string]fakePage{}

	config := testSiteConfig()
	orch := newTestOrchestrator(pages, config, &recordingEvents{})
	result := orch.Run(context.Background(), "https://example.com", models.DefaultRestaurantSchema())

	assert.Equal(t, models.SiteStateFailed, result.State)
	assert.Nil(t, result.Entity)
}

func TestRun_SiteTimeoutFinishesWithPartialRecord(t *testing.T) {
	pages := map[string]fakePage{
		"https://example.com": {
			pageType: models.PageTypeHome,
			links:    []string{"https://example.com/menu", "https://example.com/contact"},
			fields: map[string][]models.FieldValue{
				"name": {namedValue("Slow Host Grill", 0.9)},
			},
		},
		"https://example.com/menu":    {pageType: models.PageTypeMenu},
		"https://example.com/contact": {pageType: models.PageTypeContact},
	}

	config := testSiteConfig()
	config.Crawler.SiteTimeout = 50 * time.Millisecond

	logger := arbor.NewLogger()
	fetcher := &fakeFetcher{pages: pages, delay: 80 * time.Millisecond}
	orch := NewOrchestrator(
		fetcher,
		&fakeClassifier{pages: pages},
		&fakeExtractor{pages: pages},
		aggregator.NewService(logger),
		&recordingEvents{},
		config,
		logger,
	)

	result := orch.Run(context.Background(), "https://example.com", models.DefaultRestaurantSchema())

	// The in-flight start page finishes, then the budget stops the crawl
	// before any discovered link is attempted.
	require.Equal(t, models.SiteStateDone, result.State)
	assert.Equal(t, 1, result.Stats.PagesAttempted)
	assert.Equal(t, 1, result.Stats.PagesSucceeded)

	require.NotNil(t, result.Entity)
	assert.Equal(t, "Slow Host Grill", result.Entity.FieldValue("name"))
}

func TestProcessPage_AssignsTypeHintAfterClassification(t *testing.T) {
	pages := map[string]fakePage{
		"https://example.com/menu": {pageType: models.PageTypeMenu},
	}

	orch := newTestOrchestrator(pages, testSiteConfig(), nil)
	queue := newPageQueue(10, 2)
	require.True(t, queue.Push(models.PageTask{URL: "https://example.com/menu"}))
	task, ok := queue.Pop()
	require.True(t, ok)
	assert.Empty(t, task.TypeHint)

	page := orch.processPage(context.Background(), task, queue, models.DefaultRestaurantSchema())

	require.True(t, page.Succeeded())
	assert.Equal(t, models.PageTypeMenu, page.PageType)
	assert.Equal(t, models.PageTypeMenu, page.Task.TypeHint)
}

func TestProcessPage_RedirectOntoCrawledPageSkipped(t *testing.T) {
	pages := map[string]fakePage{
		"https://example.com/menu": {pageType: models.PageTypeMenu},
		"https://example.com/food": {finalURL: "https://example.com/menu"},
	}

	orch := newTestOrchestrator(pages, testSiteConfig(), nil)
	queue := newPageQueue(10, 2)
	require.True(t, queue.Push(models.PageTask{URL: "https://example.com/menu"}))
	require.True(t, queue.Push(models.PageTask{URL: "https://example.com/food"}))

	task, _ := queue.Pop()
	page := orch.processPage(context.Background(), task, queue, models.DefaultRestaurantSchema())
	require.True(t, page.Succeeded())

	task, _ = queue.Pop()
	page = orch.processPage(context.Background(), task, queue, models.DefaultRestaurantSchema())

	assert.Equal(t, models.PageStatusSkippedDuplicate, page.Status)
	assert.False(t, page.Succeeded())
	assert.Empty(t, page.Fields)
}

func TestRun_RedirectDuplicateNotCountedAsFailure(t *testing.T) {
	pages := map[string]fakePage{
		"https://example.com": {
			pageType: models.PageTypeHome,
			links:    []string{"https://example.com/menu", "https://example.com/food"},
			fields: map[string][]models.FieldValue{
				"name": {namedValue("Mirror Bistro", 0.9)},
			},
		},
		"https://example.com/menu": {pageType: models.PageTypeMenu},
		"https://example.com/food": {finalURL: "https://example.com/menu"},
	}

	orch := newTestOrchestrator(pages, testSiteConfig(), &recordingEvents{})
	result := orch.Run(context.Background(), "https://example.com", models.DefaultRestaurantSchema())

	require.Equal(t, models.SiteStateDone, result.State)
	assert.Equal(t, 3, result.Stats.PagesAttempted)
	assert.Equal(t, 2, result.Stats.PagesSucceeded)
	assert.Equal(t, 0, result.Stats.PagesFailed)
}
