package client

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/kamrulhasan12345/brainstormers-server/internal/eventbus"
	"github.com/kamrulhasan12345/brainstormers-server/internal/realtime"
	"github.com/kamrulhasan12345/brainstormers-server/internal/services"
	"github.com/kamrulhasan12345/brainstormers-server/pkg/logger"
)

// Listener bridges one user's change-feed subscription into the session: every
// change is re-announced on the update bus so caches reload, and fresh inserts
// are forwarded to the popup presenter. The feed may be broader than one user,
// so rows are filtered by recipient before anything reacts.
type Listener struct {
	broker *realtime.Broker
	bus    *eventbus.Bus
	popup  *Popup
	userID string
	log    *zap.Logger

	mu   sync.Mutex
	sub  *realtime.Subscription
	done chan struct{}
}

// NewListener constructs a listener for one user. The popup may be nil when
// the session has no foreground surface to present on.
func NewListener(broker *realtime.Broker, bus *eventbus.Bus, popup *Popup, userID string) (*Listener, error) {
	if broker == nil {
		return nil, errors.New("change listener: broker is required")
	}
	if bus == nil {
		return nil, errors.New("change listener: bus is required")
	}
	if userID == "" {
		return nil, errors.New("change listener: user id is required")
	}

	return &Listener{
		broker: broker,
		bus:    bus,
		popup:  popup,
		userID: userID,
		log:    logger.WithModule("client.listener").With(zap.String("user_id", userID)),
	}, nil
}

// Start opens the subscription and begins forwarding. An existing
// subscription is torn down first, so there is never more than one per
// listener.
func (l *Listener) Start() {
	l.Stop()

	sub := l.broker.Subscribe(l.userID)

	done := make(chan struct{})
	l.mu.Lock()
	l.sub = sub
	l.done = done
	l.mu.Unlock()

	go l.run(sub, done)
	l.log.Debug("change listener started")
}

// Stop closes the subscription and waits for the forwarding loop to drain.
// Safe to call when not started.
func (l *Listener) Stop() {
	l.mu.Lock()
	sub := l.sub
	done := l.done
	l.sub, l.done = nil, nil
	l.mu.Unlock()

	if sub == nil {
		return
	}
	sub.Close()
	<-done
}

// Alive reports whether the forwarding loop is still running. It goes false
// once the subscription is closed from either side, e.g. when the broker
// tears everything down on app backgrounding.
func (l *Listener) Alive() bool {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (l *Listener) run(sub *realtime.Subscription, done chan struct{}) {
	defer close(done)

	for change := range sub.Events() {
		if change.UserID != "" && change.UserID != l.userID {
			continue
		}

		l.bus.Publish(eventFor(change, l.userID))

		if change.Kind == realtime.ChangeInsert && l.popup != nil && change.After != nil {
			dto := services.MapNotification(*change.After)
			l.popup.Present(&dto)
		}
	}
}

// eventFor maps a raw change into the update-bus vocabulary. Consumers only
// ever reload from the store, so a lossy mapping here cannot corrupt state.
func eventFor(change realtime.Change, userID string) eventbus.Event {
	event := eventbus.Event{UserID: userID}

	switch change.Kind {
	case realtime.ChangeInsert:
		event.Kind = eventbus.KindCreated
	case realtime.ChangeUpdate:
		if change.After == nil {
			event.Kind = eventbus.KindReadAll
		} else {
			event.Kind = eventbus.KindRead
		}
	case realtime.ChangeDelete:
		event.Kind = eventbus.KindDeleted
	default:
		event.Kind = eventbus.KindSync
	}

	if change.After != nil {
		event.NotificationID = change.After.ID
	} else if change.Before != nil {
		event.NotificationID = change.Before.ID
	}
	return event
}
