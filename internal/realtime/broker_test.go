package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kamrulhasan12345/brainstormers-server/internal/models"
)

func insertFor(userID string) Change {
	return Change{
		Kind:   ChangeInsert,
		UserID: userID,
		After: &models.Notification{
			BaseModel:   models.BaseModel{ID: "n-" + userID},
			RecipientID: userID,
			Body:        "hello",
		},
	}
}

func TestSubscribeReceivesOwnUserChanges(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe("student-1")
	defer sub.Close()

	broker.Publish(insertFor("student-1"))

	select {
	case change := <-sub.Events():
		require.Equal(t, ChangeInsert, change.Kind)
		require.Equal(t, "student-1", change.UserID)
	case <-time.After(time.Second):
		t.Fatal("expected a change event")
	}
}

func TestSubscribeFiltersOtherUsers(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe("student-1")
	defer sub.Close()

	broker.Publish(insertFor("student-2"))

	select {
	case change := <-sub.Events():
		t.Fatalf("unexpected change for %s", change.UserID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWildcardSubscriptionSeesEveryUser(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe("")
	defer sub.Close()

	broker.Publish(insertFor("student-1"))
	broker.Publish(insertFor("student-2"))

	var users []string
	for range 2 {
		select {
		case change := <-sub.Events():
			users = append(users, change.UserID)
		case <-time.After(time.Second):
			t.Fatal("expected two change events")
		}
	}
	require.Equal(t, []string{"student-1", "student-2"}, users)
}

func TestCloseRemovesFromRegistry(t *testing.T) {
	broker := NewBroker()
	first := broker.Subscribe("student-1")
	second := broker.Subscribe("student-2")
	require.Equal(t, 2, broker.Open())

	first.Close()
	require.Equal(t, 1, broker.Open())

	// Closing twice must not panic or double-decrement.
	require.NotPanics(t, first.Close)
	require.Equal(t, 1, broker.Open())

	second.Close()
	require.Zero(t, broker.Open())
}

func TestCloseAllTearsDownEverything(t *testing.T) {
	broker := NewBroker()
	subs := []*Subscription{
		broker.Subscribe("student-1"),
		broker.Subscribe("student-2"),
		broker.Subscribe(""),
	}

	broker.CloseAll()
	require.Zero(t, broker.Open())

	for _, sub := range subs {
		_, open := <-sub.Events()
		require.False(t, open, "channel should be closed")
	}
}

func TestPublishDropsWhenSubscriberIsFull(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe("student-1")
	defer sub.Close()

	for range subscriptionBuffer + 10 {
		broker.Publish(insertFor("student-1"))
	}

	// The buffer holds at most subscriptionBuffer events; the rest were dropped
	// without blocking the publisher.
	require.Len(t, sub.ch, subscriptionBuffer)
}

func TestBridgeForwardsToHub(t *testing.T) {
	broker := NewBroker()
	hub := NewHub()
	bridge := NewBridge(broker, hub)

	bridge.Start()
	require.Equal(t, 1, broker.Open())

	// Start twice is a no-op.
	bridge.Start()
	require.Equal(t, 1, broker.Open())

	bridge.Stop()
	require.Zero(t, broker.Open())
}
