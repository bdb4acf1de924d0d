package models

import "time"

// SiteState tracks a site orchestrator through its lifecycle.
type SiteState string

const (
	SiteStateDiscovering SiteState = "discovering"
	SiteStateCrawling    SiteState = "crawling"
	SiteStateAggregating SiteState = "aggregating"
	SiteStateDone        SiteState = "done"
	SiteStateFailed      SiteState = "failed"
)

// SiteStats summarizes one site crawl.
type SiteStats struct {
	PagesAttempted int           `json:"pages_attempted"`
	PagesSucceeded int           `json:"pages_succeeded"`
	PagesFailed    int           `json:"pages_failed"`
	Duration       time.Duration `json:"duration"`
}

// SiteResult is everything the batch session manager receives back for one
// site: the final state, the entity record (nil when the site failed before
// any page succeeded), and crawl statistics.
type SiteResult struct {
	SiteURL string        `json:"site_url"`
	State   SiteState     `json:"state"`
	Entity  *EntityRecord `json:"entity,omitempty"`
	Stats   SiteStats     `json:"stats"`
	Error   string        `json:"error,omitempty"`
}

// SiteFailure records a site that did not reach DONE, with its reason.
type SiteFailure struct {
	SiteURL string `json:"site_url"`
	Reason  string `json:"reason"`
}

// BatchStats aggregates counters across one batch session.
type BatchStats struct {
	SitesAttempted  int           `json:"sites_attempted"`
	SitesSucceeded  int           `json:"sites_succeeded"`
	SitesFailed     int           `json:"sites_failed"`
	PagesProcessed  int           `json:"pages_processed"`
	Elapsed         time.Duration `json:"elapsed"`
	MemoryHighWater uint64        `json:"memory_high_water_bytes"`
}

// BatchResult is the immutable aggregate outcome of one batch session.
// Record order need not match input order; each EntityRecord carries its
// originating SiteURL so callers can re-associate.
type BatchResult struct {
	SessionID string          `json:"session_id"`
	Records   []*EntityRecord `json:"records"`
	Failures  []SiteFailure   `json:"failures,omitempty"`
	Sites     []SiteResult    `json:"sites"`
	Stats     BatchStats      `json:"stats"`
	StartedAt time.Time       `json:"started_at"`
}
