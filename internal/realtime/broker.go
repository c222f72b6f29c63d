package realtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kamrulhasan12345/brainstormers-server/internal/models"
	"github.com/kamrulhasan12345/brainstormers-server/pkg/logger"
	"github.com/kamrulhasan12345/brainstormers-server/pkg/metrics"
)

// ChangeKind identifies the kind of row mutation carried by a change event.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Change is one mutation of the notifications table. UserID names the
// recipient the row belongs to; Before/After may be nil depending on kind
// (bulk updates such as mark-all-read carry neither).
type Change struct {
	Kind   ChangeKind
	UserID string
	Before *models.Notification
	After  *models.Notification
}

const subscriptionBuffer = 64

// Subscription is one open change-feed registration. Events are delivered on
// a buffered channel until Close; slow consumers have events dropped rather
// than blocking the publisher.
type Subscription struct {
	id     uint64
	userID string
	ch     chan Change
	broker *Broker
	once   sync.Once
}

// Events returns the channel change events are delivered on. It is closed
// when the subscription is torn down.
func (s *Subscription) Events() <-chan Change {
	return s.ch
}

// UserID returns the recipient filter this subscription was opened with
// (empty means all users).
func (s *Subscription) UserID() string {
	return s.userID
}

// Close tears the subscription down and removes it from the broker registry.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.remove(s)
		close(s.ch)
	})
}

// Broker is the in-process change feed for the notifications table. The
// store publishes a Change after every committed mutation; listeners
// subscribe scoped to one user (or all users) and the broker keeps a
// registry of everything currently open so a session end can tear down
// completely.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	log    *zap.Logger
}

// NewBroker constructs an empty broker.
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[uint64]*Subscription),
		log:  logger.WithModule("realtime"),
	}
}

// Subscribe opens a change-feed subscription filtered to the given user ID.
// An empty userID receives every change regardless of recipient.
func (b *Broker) Subscribe(userID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		userID: userID,
		ch:     make(chan Change, subscriptionBuffer),
		broker: b,
	}
	b.subs[sub.id] = sub
	metrics.RealtimeSubscriptions.Inc()
	return sub
}

// Publish fans a change out to every matching open subscription. Delivery is
// non-blocking; a full subscriber buffer drops the event (consumers reload
// from the store, so a dropped event costs freshness, not correctness).
func (b *Broker) Publish(change Change) {
	if change.Kind == "" {
		return
	}
	metrics.RealtimeEvents.WithLabelValues(string(change.Kind)).Inc()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.userID != "" && sub.userID != change.UserID {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			b.log.Warn("dropping change for slow subscriber",
				zap.String("user_id", sub.userID),
				zap.String("kind", string(change.Kind)),
			)
		}
	}
}

// Open reports how many subscriptions are currently registered.
func (b *Broker) Open() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// CloseAll tears down every open subscription, e.g. on app backgrounding.
func (b *Broker) CloseAll() {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		metrics.RealtimeSubscriptions.Dec()
	}
}
