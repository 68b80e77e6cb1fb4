package book

import "sync"

// Publisher receives book events synchronously, in the order they are
// produced, before the operation that produced them returns. Implementations
// own the events once Publish returns.
type Publisher interface {
	Publish(...Event)
}

// MemoryPublisher stores events in memory, useful for testing.
type MemoryPublisher struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryPublisher creates a new MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{
		events: make([]Event, 0),
	}
}

// Publish appends events to the in-memory slice.
func (m *MemoryPublisher) Publish(events ...Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

// Count returns the number of events stored.
func (m *MemoryPublisher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Get returns the event at the specified index.
func (m *MemoryPublisher) Get(index int) Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.events[index]
}

// Events returns a copy of all events stored.
func (m *MemoryPublisher) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := make([]Event, len(m.events))
	copy(events, m.events)
	return events
}

// Matches returns only the trade notifications.
func (m *MemoryPublisher) Matches() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matches := make([]Event, 0, len(m.events))
	for _, ev := range m.events {
		if ev.Type == EventMatch {
			matches = append(matches, ev)
		}
	}
	return matches
}

// DiscardPublisher drops all events, useful for benchmarking.
type DiscardPublisher struct{}

// NewDiscardPublisher creates a new DiscardPublisher.
func NewDiscardPublisher() *DiscardPublisher {
	return &DiscardPublisher{}
}

// Publish does nothing.
func (p *DiscardPublisher) Publish(events ...Event) {
}
