package models

import (
	"time"
)

// PageType classifies a crawled page within a site.
type PageType string

const (
	PageTypeHome    PageType = "home"
	PageTypeMenu    PageType = "menu"
	PageTypeContact PageType = "contact"
	PageTypeAbout   PageType = "about"
	PageTypeHours   PageType = "hours"
	PageTypeOther   PageType = "other"
)

// PageStatus is the outcome of processing a single page task.
type PageStatus string

const (
	PageStatusSuccess          PageStatus = "success"
	PageStatusFailed           PageStatus = "failed"
	PageStatusTimeout          PageStatus = "timeout"
	PageStatusSkippedDuplicate PageStatus = "skipped_duplicate"
)

// PageTask represents one page to fetch within a site crawl. Tasks are created
// during link discovery and owned by the site orchestrator's queue until a
// PageResult is recorded for them.
type PageTask struct {
	URL       string `json:"url"`
	Depth     int    `json:"depth"`
	ParentURL string `json:"parent_url,omitempty"`
	// TypeHint stays empty until the page has been classified.
	TypeHint PageType `json:"type_hint,omitempty"`
}

// PageResult is the immutable outcome of processing one PageTask.
type PageResult struct {
	Task       PageTask                `json:"task"`
	PageType   PageType                `json:"page_type"`
	Status     PageStatus              `json:"status"`
	StatusCode int                     `json:"status_code,omitempty"`
	Fields     map[string][]FieldValue `json:"fields,omitempty"`
	Links      []string                `json:"links,omitempty"`
	Duration   time.Duration           `json:"duration"`
	Error      string                  `json:"error,omitempty"`
}

// Succeeded reports whether the page was fetched and processed.
func (r *PageResult) Succeeded() bool {
	return r.Status == PageStatusSuccess
}

// Classification is the page classifier's verdict for one page.
type Classification struct {
	PageType PageType `json:"page_type"`
	Links    []string `json:"links"`
}

// SeenFunc reports whether a URL is already visited or queued for the
// current site crawl. Passed into the classifier so already-known links
// are dropped before they become tasks.
type SeenFunc func(url string) bool
