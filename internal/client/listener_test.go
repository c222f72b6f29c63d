package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kamrulhasan12345/brainstormers-server/internal/eventbus"
	"github.com/kamrulhasan12345/brainstormers-server/internal/models"
	"github.com/kamrulhasan12345/brainstormers-server/internal/realtime"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (r *eventRecorder) record(event eventbus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) snapshot() []eventbus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]eventbus.Event, len(r.events))
	copy(out, r.events)
	return out
}

func notificationRow(id, recipientID string) *models.Notification {
	return &models.Notification{
		BaseModel:   models.BaseModel{ID: id},
		RecipientID: recipientID,
		Body:        "body " + id,
	}
}

func TestListenerForwardsChangesToBusAndPopup(t *testing.T) {
	broker := realtime.NewBroker()
	bus := eventbus.New()
	popup := instantPopup(WithDismissAfter(time.Minute))
	recorder := &eventRecorder{}
	bus.Subscribe(recorder.record)

	listener, err := NewListener(broker, bus, popup, "student-a")
	require.NoError(t, err)
	listener.Start()
	defer listener.Stop()

	broker.Publish(realtime.Change{
		Kind:   realtime.ChangeInsert,
		UserID: "student-a",
		After:  notificationRow("n1", "student-a"),
	})

	require.Eventually(t, func() bool {
		return len(recorder.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	events := recorder.snapshot()
	require.Equal(t, eventbus.KindCreated, events[0].Kind)
	require.Equal(t, "n1", events[0].NotificationID)
	require.Equal(t, "student-a", events[0].UserID)

	require.Eventually(t, func() bool {
		current := popup.Current()
		return current != nil && current.ID == "n1"
	}, time.Second, 5*time.Millisecond)
}

func TestListenerMapsChangeKinds(t *testing.T) {
	broker := realtime.NewBroker()
	bus := eventbus.New()
	recorder := &eventRecorder{}
	bus.Subscribe(recorder.record)

	listener, err := NewListener(broker, bus, nil, "student-a")
	require.NoError(t, err)
	listener.Start()
	defer listener.Stop()

	broker.Publish(realtime.Change{
		Kind: realtime.ChangeUpdate, UserID: "student-a",
		After: notificationRow("n1", "student-a"),
	})
	broker.Publish(realtime.Change{Kind: realtime.ChangeUpdate, UserID: "student-a"})
	broker.Publish(realtime.Change{
		Kind: realtime.ChangeDelete, UserID: "student-a",
		Before: notificationRow("n2", "student-a"),
	})

	require.Eventually(t, func() bool {
		return len(recorder.snapshot()) == 3
	}, time.Second, 5*time.Millisecond)

	events := recorder.snapshot()
	require.Equal(t, eventbus.KindRead, events[0].Kind)
	require.Equal(t, "n1", events[0].NotificationID)
	require.Equal(t, eventbus.KindReadAll, events[1].Kind, "bulk update carries no row")
	require.Equal(t, eventbus.KindDeleted, events[2].Kind)
	require.Equal(t, "n2", events[2].NotificationID)
}

func TestListenerIgnoresOtherRecipients(t *testing.T) {
	broker := realtime.NewBroker()
	bus := eventbus.New()
	popup := instantPopup()
	recorder := &eventRecorder{}
	bus.Subscribe(recorder.record)

	listener, err := NewListener(broker, bus, popup, "student-a")
	require.NoError(t, err)
	listener.Start()
	defer listener.Stop()

	broker.Publish(realtime.Change{
		Kind:   realtime.ChangeInsert,
		UserID: "student-z",
		After:  notificationRow("n1", "student-z"),
	})

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, recorder.snapshot())
	require.Nil(t, popup.Current())
}

func TestListenerRestartReplacesSubscription(t *testing.T) {
	broker := realtime.NewBroker()
	bus := eventbus.New()

	listener, err := NewListener(broker, bus, nil, "student-a")
	require.NoError(t, err)

	listener.Start()
	require.Equal(t, 1, broker.Open())

	listener.Start()
	require.Equal(t, 1, broker.Open(), "restart never stacks subscriptions")

	listener.Stop()
	require.Equal(t, 0, broker.Open())

	// Stopping twice is safe.
	listener.Stop()
}
