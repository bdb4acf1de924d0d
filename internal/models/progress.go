package models

import "time"

// ProgressEvent is one entry in the progress stream consumed incrementally
// by external reporters. At least one event is emitted per page transition.
type ProgressEvent struct {
	SiteURL        string    `json:"site_url"`
	PageURL        string    `json:"page_url,omitempty"`
	PageType       PageType  `json:"page_type,omitempty"`
	Status         string    `json:"status"`
	PagesCompleted int       `json:"pages_completed"`
	PagesTotal     int       `json:"pages_total"`
	SitesCompleted int       `json:"sites_completed"`
	SitesTotal     int       `json:"sites_total"`
	Timestamp      time.Time `json:"timestamp"`
}
