package domain

import (
	"sync"
	"time"
)

type Event interface {
	Type() string
	PublishedAt() time.Time
}

// EventSource is anything that buffers domain events until the unit of work
// publishes them.
type EventSource interface {
	PopEvents() []Event
}

type Aggregate struct {
	mu     sync.Mutex
	events []Event
}

func (a *Aggregate) PopEvents() []Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	events := a.events
	a.events = nil
	return events
}

func (a *Aggregate) PushEvent(e Event) {
	a.mu.Lock()
	a.events = append(a.events, e)
	a.mu.Unlock()
}
