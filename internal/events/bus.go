// Package events publishes planner domain events ("tag created", "event
// scheduled", ...) to presentation layers that want to react to them.
package events

import (
	"sync"

	"github.com/kutbudev/agenda-cli/internal/models"
)

// Type names a domain event.
type Type string

const (
	TagCreated      Type = "tag.created"
	TagUpdated      Type = "tag.updated"
	TagDeleted      Type = "tag.deleted"
	ActivityCreated Type = "activity.created"
	ActivityUpdated Type = "activity.updated"
	ActivityDeleted Type = "activity.deleted"
	EventScheduled  Type = "event.scheduled"
	EventUpdated    Type = "event.updated"
	EventDeleted    Type = "event.deleted"
	EventsRefreshed Type = "events.refreshed"
)

// Event carries the record the change applied to. Only the field matching
// the Type is set; ID is always set except for EventsRefreshed.
type Event struct {
	Type     Type
	ID       string
	Tag      *models.Tag
	Activity *models.Activity
	Calendar *models.ScheduledEvent
}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a cancel func that closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers ev to every subscriber with buffer room.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close closes every subscription. Later publishes are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
