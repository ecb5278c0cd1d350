package state

import (
	"slices"
	"sync"
)

// EventKind identifies what changed in the client state.
type EventKind int

const (
	// EventSample is published after a sample was stored.
	EventSample EventKind = iota

	// EventStatus is published after a start or stop.
	EventStatus

	// EventConfig is published after frequency, channels or port changed.
	EventConfig

	// EventReset is published after the received data was cleared.
	EventReset
)

// String returns a human-readable name for the kind.
func (k EventKind) String() string {
	switch k {
	case EventSample:
		return "sample"
	case EventStatus:
		return "status"
	case EventConfig:
		return "config"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event describes one change of the client state.
type Event struct {
	Kind   EventKind
	Status Status // EventStatus only
	Values []int  // EventSample only
}

// Observer receives state change events.
type Observer func(Event)

type subscription struct {
	id int
	fn Observer
}

// eventQueue delivers events synchronously on the goroutine that publishes
// them, to observers in registration order. deliverMu is held across a
// mutation and its delivery, so events are delivered one at a time and in
// the order the state changed, and a publisher returns only after every
// observer has seen its event. A fast publisher (the client worker) is held
// back by slow observers instead of queueing work on another goroutine.
//
// Observers run with deliverMu held and must not call ClientState methods
// that publish. Readers and SetStats are allowed.
type eventQueue struct {
	deliverMu sync.Mutex

	mu        sync.Mutex // guards observers and nextID
	observers []subscription
	nextID    int
}

// Subscribe registers an observer and returns a function removing it.
func (s *ClientState) Subscribe(fn Observer) (unsubscribe func()) {
	return s.events.subscribe(fn)
}

func (q *eventQueue) subscribe(fn Observer) func() {
	q.mu.Lock()
	id := q.nextID
	q.nextID++
	q.observers = append(q.observers, subscription{id: id, fn: fn})
	q.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			q.observers = slices.DeleteFunc(q.observers, func(sub subscription) bool {
				return sub.id == id
			})
		})
	}
}

// lock starts a mutation that will be published. Pair with deliver and unlock.
func (q *eventQueue) lock() {
	q.deliverMu.Lock()
}

func (q *eventQueue) unlock() {
	q.deliverMu.Unlock()
}

// deliver calls every observer with ev. Must be called with deliverMu held.
func (q *eventQueue) deliver(ev Event) {
	q.mu.Lock()
	observers := slices.Clone(q.observers)
	q.mu.Unlock()

	for _, sub := range observers {
		sub.fn(ev)
	}
}
