package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kamrulhasan12345/brainstormers-server/internal/database/testutil"
	"github.com/kamrulhasan12345/brainstormers-server/internal/realtime"
	"github.com/kamrulhasan12345/brainstormers-server/internal/services"
)

// Exercises the full server-to-client path with the real store and broker:
// dispatch persists rows, the broker fans the change out, the listener wakes
// the cache and popup, and an optimistic mark-read survives the echo reload.
func TestDispatchReachesSessionCacheAndPopup(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	broker := realtime.NewBroker()
	defer broker.CloseAll()

	store, err := services.NewNotificationService(db, broker)
	require.NoError(t, err)
	dispatch, err := services.NewDispatchServiceFromDB(db, store)
	require.NoError(t, err)

	session := NewSession(store, broker)
	defer session.Stop()
	require.NoError(t, session.SetUser(context.Background(), "student-a"))
	waitReady(t, session.Cache())

	_, err = dispatch.Send(context.Background(), services.SendInput{
		Rule:   services.TargetSpecificStudent,
		Params: services.TargetParams{StudentID: "student-a"},
		Title:  "Exam moved",
		Body:   "The algebra exam now starts at 10:00.",
	})
	require.NoError(t, err)

	cache := session.Cache()
	require.Eventually(t, func() bool {
		snap := cache.Snapshot()
		return len(snap.Notifications) == 1 && snap.UnreadCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	popup := session.Popup()
	require.Eventually(t, func() bool {
		return popup.Current() != nil
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "Exam moved", popup.Current().Title)

	// A send to someone else must not disturb this session.
	_, err = dispatch.Send(context.Background(), services.SendInput{
		Rule:   services.TargetSpecificStudent,
		Params: services.TargetParams{StudentID: "student-b"},
		Body:   "Not for student-a.",
	})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	require.Len(t, cache.Snapshot().Notifications, 1)

	// Mark read through the cache; the store echoes a change event back and
	// the reload must agree with the optimistic update.
	id := cache.Snapshot().Notifications[0].ID
	require.NoError(t, cache.MarkRead(context.Background(), id))
	require.Eventually(t, func() bool {
		snap := cache.Snapshot()
		return snap.UnreadCount == 0 && len(snap.Notifications) == 1 && snap.Notifications[0].IsRead
	}, 2*time.Second, 10*time.Millisecond)
}

// Dispatching with a rule that resolves nobody must fail loudly rather than
// fan out to an empty set.
func TestDispatchWithoutRecipientsFailsLoudly(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	broker := realtime.NewBroker()
	defer broker.CloseAll()

	store, err := services.NewNotificationService(db, broker)
	require.NoError(t, err)
	dispatch, err := services.NewDispatchServiceFromDB(db, store)
	require.NoError(t, err)

	_, err = dispatch.Send(context.Background(), services.SendInput{
		Rule:   services.TargetCourseStudents,
		Params: services.TargetParams{CourseID: "course-with-nobody"},
		Body:   "nobody enrolled",
	})
	require.Error(t, err)
}
