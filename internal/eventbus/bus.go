package eventbus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kamrulhasan12345/brainstormers-server/pkg/logger"
)

// Kind labels what changed about a user's notifications.
type Kind string

const (
	KindCreated Kind = "created"
	KindRead    Kind = "read"
	KindReadAll Kind = "read_all"
	KindDeleted Kind = "deleted"
	// KindSync asks consumers to reload without naming a specific record.
	KindSync Kind = "sync"
)

// Event carries a typed hint about a notification change. Consumers reload
// from the store rather than trusting the payload; the bus offers no
// delivery guarantees and tolerates multiple producers.
type Event struct {
	Kind           Kind   `json:"kind"`
	UserID         string `json:"user_id,omitempty"`
	NotificationID string `json:"notification_id,omitempty"`
}

type listener struct {
	id int
	fn func(Event)
}

// Bus is an in-process publish/subscribe channel decoupling "something about
// notifications changed" from "who needs to know".
type Bus struct {
	mu        sync.Mutex
	nextID    int
	listeners []listener
	log       *zap.Logger
}

// New constructs an empty bus.
func New() *Bus {
	return &Bus{log: logger.WithModule("eventbus")}
}

// Subscribe registers a callback and returns its unsubscribe function.
// Callbacks run synchronously on Publish, in registration order.
func (b *Bus) Subscribe(fn func(Event)) func() {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.unsubscribe(id)
		})
	}
}

// Publish invokes every registered listener with the event. A panicking
// listener is logged and must not prevent the remaining listeners from
// running. The listener list is snapshotted first, so unsubscribing during
// delivery cannot corrupt the iteration.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	snapshot := make([]listener, len(b.listeners))
	copy(snapshot, b.listeners)
	b.mu.Unlock()

	for _, l := range snapshot {
		b.invoke(l, event)
	}
}

// Len reports the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func (b *Bus) invoke(l listener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("listener panicked",
				zap.Any("panic", r),
				zap.String("kind", string(event.Kind)),
			)
		}
	}()
	l.fn(event)
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}
