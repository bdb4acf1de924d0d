package common

import (
	"github.com/google/uuid"
)

// NewSessionID generates a unique batch session ID with the "session_" prefix
func NewSessionID() string {
	return "session_" + uuid.New().String()
}

// NewCrawlID generates a unique site-crawl ID with the "crawl_" prefix
func NewCrawlID() string {
	return "crawl_" + uuid.New().String()
}
