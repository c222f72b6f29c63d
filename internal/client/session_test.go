package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kamrulhasan12345/brainstormers-server/internal/realtime"
	"github.com/kamrulhasan12345/brainstormers-server/internal/services"
)

func TestSessionSwapsIdentity(t *testing.T) {
	source := &fakeSource{items: []services.NotificationDTO{unreadItem("n1")}}
	broker := realtime.NewBroker()
	session := NewSession(source, broker)

	require.NoError(t, session.SetUser(context.Background(), "student-a"))
	require.Equal(t, "student-a", session.UserID())
	require.Equal(t, 1, broker.Open())

	firstCache := session.Cache()
	require.NotNil(t, firstCache)
	waitReady(t, firstCache)

	// Switching identity tears the old set down and builds a fresh one.
	require.NoError(t, session.SetUser(context.Background(), "student-b"))
	require.Equal(t, 1, broker.Open(), "old subscription closed before the new one opens")
	require.NotSame(t, firstCache, session.Cache())

	firstSnap := firstCache.Snapshot()
	require.NotEqual(t, CacheReady, firstSnap.Status, "detached cache no longer serves data")
}

func TestSessionSameUserIsNoop(t *testing.T) {
	source := &fakeSource{}
	broker := realtime.NewBroker()
	session := NewSession(source, broker)

	require.NoError(t, session.SetUser(context.Background(), "student-a"))
	cache := session.Cache()

	require.NoError(t, session.SetUser(context.Background(), "student-a"))
	require.Same(t, cache, session.Cache())
}

func TestSessionReconfirmRestoresDroppedSubscription(t *testing.T) {
	source := &fakeSource{}
	broker := realtime.NewBroker()
	session := NewSession(source, broker, WithSessionPopupOptions(WithDismissAfter(time.Minute)))

	require.NoError(t, session.SetUser(context.Background(), "student-a"))
	cache := session.Cache()
	popup := session.Popup()
	waitReady(t, cache)

	// App backgrounding closes every subscription out from under the session.
	broker.CloseAll()
	require.Equal(t, 0, broker.Open())

	// Confirming the same identity must reopen the feed without rebuilding
	// the cache or popup. Retried because the dropped forwarding loop winds
	// down asynchronously.
	require.Eventually(t, func() bool {
		require.NoError(t, session.SetUser(context.Background(), "student-a"))
		return broker.Open() == 1
	}, time.Second, 10*time.Millisecond)
	require.Same(t, cache, session.Cache())
	require.Same(t, popup, session.Popup())

	broker.Publish(realtime.Change{
		Kind:   realtime.ChangeInsert,
		UserID: "student-a",
		After:  notificationRow("n-after-drop", "student-a"),
	})
	require.Eventually(t, func() bool {
		current := popup.Current()
		return current != nil && current.ID == "n-after-drop"
	}, time.Second, 5*time.Millisecond)
}

func TestSessionLogoutTearsDownEverything(t *testing.T) {
	source := &fakeSource{}
	broker := realtime.NewBroker()
	session := NewSession(source, broker, WithSessionPopupOptions(WithDismissAfter(time.Minute)))

	require.NoError(t, session.SetUser(context.Background(), "student-a"))
	popup := session.Popup()
	require.NotNil(t, popup)
	popup.Present(popupNotification("n1", ""))

	require.NoError(t, session.SetUser(context.Background(), ""))
	require.Equal(t, 0, broker.Open())
	require.Nil(t, session.Cache())
	require.Nil(t, session.Popup())
	require.Equal(t, PopupHidden, popup.State(), "popup hidden on teardown")

	session.Stop()
}
