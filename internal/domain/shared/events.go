// Package shared holds building blocks used by several aggregates.
package shared

import "time"

// DomainEvent is something that happened to an aggregate.
type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// EventHandler reacts to a dispatched event.
type EventHandler func(event DomainEvent) error

// EventDispatcher fans events out to registered handlers.
type EventDispatcher interface {
	Dispatch(event DomainEvent) error
	Register(eventName string, handler EventHandler)
}

// AggregateRoot records events raised by an aggregate until they are drained.
type AggregateRoot struct {
	events []DomainEvent
}

func (a *AggregateRoot) AddEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

// Events returns pending events and clears them.
func (a *AggregateRoot) Events() []DomainEvent {
	events := a.events
	a.events = nil
	return events
}
