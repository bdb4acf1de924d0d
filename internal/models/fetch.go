package models

import (
	"errors"
	"fmt"
	"time"
)

// FetchErrorKind categorizes fetch failures for retry and reporting decisions.
type FetchErrorKind string

const (
	FetchErrTimeout FetchErrorKind = "timeout"
	FetchErrHTTP    FetchErrorKind = "http_error"
	FetchErrNetwork FetchErrorKind = "network_error"
	FetchErrBlocked FetchErrorKind = "blocked"
)

// FetchError is a classified fetch failure. Permanent kinds (404, DNS,
// robots.txt disallow) are never retried by the fetcher.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Detail     string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s (status %d): %s", e.URL, e.Kind, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("fetch %s: %s: %s", e.URL, e.Kind, e.Detail)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AsFetchError unwraps err into a *FetchError if it is one.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// FetchResult holds the raw content of a successful page fetch. URL is
// the final address after any redirects.
type FetchResult struct {
	URL        string            `json:"url"`
	StatusCode int               `json:"status_code"`
	Body       []byte            `json:"-"`
	Headers    map[string]string `json:"headers,omitempty"`
	Duration   time.Duration     `json:"duration"`
}
