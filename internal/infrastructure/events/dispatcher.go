// Package events provides the in-process domain event dispatcher.
package events

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/domain/shared"
)

// Dispatcher fans domain events out to handlers registered by event name.
// Every dispatched event is also logged.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	log      *zap.Logger
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string][]shared.EventHandler),
		log:      log.Named("events"),
	}
}

var _ shared.EventDispatcher = (*Dispatcher)(nil)

// Dispatch runs every handler for the event. A failing handler does not stop
// the others; the joined error is returned.
func (d *Dispatcher) Dispatch(event shared.DomainEvent) error {
	d.log.Info("Domain event",
		zap.String("event", event.EventName()),
		zap.Time("occurred_at", event.OccurredAt()),
	)

	d.mu.RLock()
	handlers := d.handlers[event.EventName()]
	d.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			d.log.Error("Failed to handle event",
				zap.String("event", event.EventName()),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Register registers an event handler
func (d *Dispatcher) Register(eventName string, handler shared.EventHandler) {
	d.mu.Lock()
	d.handlers[eventName] = append(d.handlers[eventName], handler)
	d.mu.Unlock()
	d.log.Debug("Registered event handler", zap.String("event", eventName))
}
