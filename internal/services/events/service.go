package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/common"
	"github.com/ternarybob/forager/internal/interfaces"
)

// Service implements EventService with an in-process pub/sub pattern.
// Handlers for one event type run in subscription order; a failing or
// panicking handler never stops the others.
type Service struct {
	handlers map[interfaces.EventType][]interfaces.EventHandler
	mu       sync.RWMutex
	closed   bool
	logger   arbor.ILogger
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) interfaces.EventService {
	return &Service{
		handlers: make(map[interfaces.EventType][]interfaces.EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("event service is closed")
	}
	s.handlers[eventType] = append(s.handlers[eventType], handler)

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("subscriber_count", len(s.handlers[eventType])).
		Msg("Event handler subscribed")

	return nil
}

// snapshot returns the handler list for a type without holding the lock
// during dispatch.
func (s *Service) snapshot(eventType interfaces.EventType) []interfaces.EventHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	return s.handlers[eventType]
}

// Publish dispatches the event to its subscribers on a background
// goroutine; the publisher never waits on a handler.
func (s *Service) Publish(ctx context.Context, event interfaces.Event) error {
	handlers := s.snapshot(event.Type)
	if len(handlers) == 0 {
		return nil
	}

	common.SafeGo(s.logger, "event-dispatch", func() {
		for _, handler := range handlers {
			if err := s.invoke(ctx, handler, event); err != nil {
				s.logger.Error().
					Err(err).
					Str("event_type", string(event.Type)).
					Msg("Event handler failed")
			}
		}
	})

	return nil
}

// PublishSync dispatches the event inline and reports how many handlers
// failed. Panicking handlers are contained and counted as non-failures,
// matching the async path.
func (s *Service) PublishSync(ctx context.Context, event interfaces.Event) error {
	handlers := s.snapshot(event.Type)

	failed := 0
	for _, handler := range handlers {
		if err := s.invoke(ctx, handler, event); err != nil {
			s.logger.Error().
				Err(err).
				Str("event_type", string(event.Type)).
				Msg("Event handler failed")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("event handlers failed: %d of %d", failed, len(handlers))
	}
	return nil
}

// invoke runs one handler with panic containment.
func (s *Service) invoke(ctx context.Context, handler interfaces.EventHandler, event interfaces.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("event_type", string(event.Type)).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Event handler panicked")
		}
	}()
	return handler(ctx, event)
}

// Close drops every subscription; later publishes are no-ops.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.handlers = make(map[interfaces.EventType][]interfaces.EventHandler)
	s.logger.Info().Msg("Event service closed")

	return nil
}
