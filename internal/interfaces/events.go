package interfaces

import (
	"context"

	"github.com/ternarybob/forager/internal/models"
)

// EventType represents different event types in the system
type EventType string

const (
	EventPageStarted   EventType = "page_started"
	EventPageCompleted EventType = "page_completed"
	EventSiteStarted   EventType = "site_started"
	EventSiteCompleted EventType = "site_completed"
	EventBatchDone     EventType = "batch_completed"
)

// Event is one crawl progress notification. Every event type carries the
// same typed progress record; fields not relevant to the type stay zero.
type Event struct {
	Type     EventType
	Progress models.ProgressEvent
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the pub/sub event bus. Publish never blocks the
// publisher; handler failures are logged, not propagated.
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes an event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
