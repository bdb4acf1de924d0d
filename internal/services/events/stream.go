package events

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/interfaces"
	"github.com/ternarybob/forager/internal/models"
)

// ProgressStream exposes page and site events as a bounded channel of
// ProgressEvents. When the consumer falls behind, the oldest event is
// dropped so publishers never block a crawl.
type ProgressStream struct {
	ch     chan models.ProgressEvent
	mu     sync.Mutex
	closed bool
	logger arbor.ILogger
}

// NewProgressStream subscribes a stream to the event bus. Buffer sizes
// below 1 are bumped to 1.
func NewProgressStream(bus interfaces.EventService, buffer int, logger arbor.ILogger) (*ProgressStream, error) {
	if buffer < 1 {
		buffer = 1
	}

	stream := &ProgressStream{
		ch:     make(chan models.ProgressEvent, buffer),
		logger: logger,
	}

	for _, eventType := range []interfaces.EventType{
		interfaces.EventPageStarted,
		interfaces.EventPageCompleted,
		interfaces.EventSiteStarted,
		interfaces.EventSiteCompleted,
	} {
		if err := bus.Subscribe(eventType, stream.handle); err != nil {
			return nil, err
		}
	}

	return stream, nil
}

// Events returns the consumer side of the stream.
func (s *ProgressStream) Events() <-chan models.ProgressEvent {
	return s.ch
}

func (s *ProgressStream) handle(_ context.Context, event interfaces.Event) error {
	progress := event.Progress

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	for {
		select {
		case s.ch <- progress:
			return nil
		default:
		}
		// Full buffer: evict the oldest and retry.
		select {
		case <-s.ch:
		default:
		}
	}
}

// Close stops the stream. Events published afterwards are discarded.
func (s *ProgressStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
