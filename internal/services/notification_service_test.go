package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kamrulhasan12345/brainstormers-server/internal/database/testutil"
	"github.com/kamrulhasan12345/brainstormers-server/internal/models"
	"github.com/kamrulhasan12345/brainstormers-server/internal/realtime"
)

func newStudent(id, name string) *models.Student {
	return &models.Student{
		BaseModel: models.BaseModel{ID: id},
		FullName:  name,
		Email:     id + "@campus.test",
	}
}

func TestNotificationServiceCreateAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.NoError(t, db.Create(newStudent("student-1", "Alice Rahman")).Error)

	svc, err := NewNotificationService(db, realtime.NewBroker())
	require.NoError(t, err)

	ctx := context.Background()
	dto, err := svc.Create(ctx, CreateNotificationInput{
		RecipientID: "student-1",
		Title:       "Exam rescheduled",
		Body:        "Physics final moved to Friday",
		Type:        models.NotificationWarning,
		Metadata:    map[string]any{"exam_batch_id": "exam-1"},
	})
	require.NoError(t, err)
	require.Equal(t, models.NotificationWarning, dto.Type)
	require.False(t, dto.IsRead)

	items, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "student-1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, dto.ID, items[0].ID)
	require.Equal(t, "exam-1", items[0].Metadata["exam_batch_id"])
}

func TestNotificationServiceDefaultsTypeToInfo(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.NoError(t, db.Create(newStudent("student-1", "Alice Rahman")).Error)

	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)

	dto, err := svc.Create(context.Background(), CreateNotificationInput{
		RecipientID: "student-1",
		Body:        "Welcome to the platform",
	})
	require.NoError(t, err)
	require.Equal(t, models.NotificationInfo, dto.Type)
}

func TestNotificationServiceCreateRejectsMissingFields(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateNotificationInput{Body: "no recipient"})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateNotificationInput{RecipientID: "student-1"})
	require.Error(t, err)
}

func TestNotificationServiceCreateBulkFansOut(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	for _, id := range []string{"student-1", "student-2", "student-3"} {
		require.NoError(t, db.Create(newStudent(id, "Student "+id)).Error)
	}

	broker := realtime.NewBroker()
	sub := broker.Subscribe("")
	defer sub.Close()

	svc, err := NewNotificationService(db, broker)
	require.NoError(t, err)

	inputs := []CreateNotificationInput{
		{RecipientID: "student-1", Body: "Test", Title: "Notice"},
		{RecipientID: "student-2", Body: "Test", Title: "Notice"},
		{RecipientID: "student-3", Body: "Test", Title: "Notice"},
	}
	items, err := svc.CreateBulk(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, items, 3)

	seen := make(map[string]bool)
	for _, item := range items {
		require.Equal(t, "Test", item.Body)
		require.Equal(t, "Notice", item.Title)
		require.False(t, seen[item.RecipientID], "recipient ids must be distinct")
		seen[item.RecipientID] = true
	}

	// One insert change per row reaches the broker.
	for range 3 {
		select {
		case change := <-sub.Events():
			require.Equal(t, realtime.ChangeInsert, change.Kind)
		case <-time.After(time.Second):
			t.Fatal("expected three insert events")
		}
	}
}

func TestNotificationServiceCreateBulkIsAtomic(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.NoError(t, db.Create(newStudent("student-1", "Alice Rahman")).Error)

	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)

	// The invalid second entry fails validation before any row is written.
	_, err = svc.CreateBulk(context.Background(), []CreateNotificationInput{
		{RecipientID: "student-1", Body: "ok"},
		{RecipientID: "", Body: "missing recipient"},
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.Zero(t, count, "failed batch must not leave partial rows")
}

func TestNotificationServiceExpiryFiltering(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.NoError(t, db.Create(newStudent("student-1", "Alice Rahman")).Error)

	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	_, err = svc.Create(ctx, CreateNotificationInput{RecipientID: "student-1", Body: "expired", ExpiresAt: &past})
	require.NoError(t, err)
	fresh, err := svc.Create(ctx, CreateNotificationInput{RecipientID: "student-1", Body: "fresh", ExpiresAt: &future})
	require.NoError(t, err)

	items, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "student-1"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, fresh.ID, items[0].ID)

	// The expired row stays in the table; expiry is a query predicate.
	var total int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&total).Error)
	require.EqualValues(t, 2, total)

	count, err := svc.UnreadCount(ctx, "student-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestNotificationServiceMarkReadIsIdempotent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.NoError(t, db.Create(newStudent("student-1", "Alice Rahman")).Error)

	broker := realtime.NewBroker()
	sub := broker.Subscribe("student-1")
	defer sub.Close()

	svc, err := NewNotificationService(db, broker)
	require.NoError(t, err)

	ctx := context.Background()
	dto, err := svc.Create(ctx, CreateNotificationInput{RecipientID: "student-1", Body: "Read me"})
	require.NoError(t, err)
	<-sub.Events() // drain the insert

	read, err := svc.MarkRead(ctx, "student-1", dto.ID)
	require.NoError(t, err)
	require.NotNil(t, read)
	require.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	select {
	case change := <-sub.Events():
		require.Equal(t, realtime.ChangeUpdate, change.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected an update event")
	}

	// Second call is a no-op: no error, no DTO, no broker event.
	again, err := svc.MarkRead(ctx, "student-1", dto.ID)
	require.NoError(t, err)
	require.Nil(t, again)
	require.Empty(t, sub.Events())

	count, err := svc.UnreadCount(ctx, "student-1")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestNotificationServiceMarkReadIgnoresForeignRows(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.NoError(t, db.Create(newStudent("student-1", "Alice Rahman")).Error)
	require.NoError(t, db.Create(newStudent("student-2", "Badol Mia")).Error)

	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()
	dto, err := svc.Create(ctx, CreateNotificationInput{RecipientID: "student-1", Body: "Private"})
	require.NoError(t, err)

	// Another user marking the row is a silent no-op, not an error.
	res, err := svc.MarkRead(ctx, "student-2", dto.ID)
	require.NoError(t, err)
	require.Nil(t, res)

	count, err := svc.UnreadCount(ctx, "student-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestNotificationServiceMarkAllRead(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.NoError(t, db.Create(newStudent("student-1", "Alice Rahman")).Error)

	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()
	for _, body := range []string{"first", "second", "third"} {
		_, err := svc.Create(ctx, CreateNotificationInput{RecipientID: "student-1", Body: body})
		require.NoError(t, err)
	}

	require.NoError(t, svc.MarkAllRead(ctx, "student-1"))

	items, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "student-1"})
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, item := range items {
		require.True(t, item.IsRead)
	}

	count, err := svc.UnreadCount(ctx, "student-1")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestNotificationServiceUnreadCountInvariant(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.NoError(t, db.Create(newStudent("student-1", "Alice Rahman")).Error)

	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()
	assertInvariant := func() {
		t.Helper()
		items, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "student-1", Limit: 100})
		require.NoError(t, err)
		unreadInList := 0
		for _, item := range items {
			if !item.IsRead {
				unreadInList++
			}
		}
		count, err := svc.UnreadCount(ctx, "student-1")
		require.NoError(t, err)
		require.EqualValues(t, unreadInList, count)
	}

	var first *NotificationDTO
	for i, body := range []string{"a", "b", "c", "d"} {
		dto, err := svc.Create(ctx, CreateNotificationInput{RecipientID: "student-1", Body: body})
		require.NoError(t, err)
		if i == 0 {
			first = dto
		}
		assertInvariant()
	}

	_, err = svc.MarkRead(ctx, "student-1", first.ID)
	require.NoError(t, err)
	assertInvariant()

	require.NoError(t, svc.MarkAllRead(ctx, "student-1"))
	assertInvariant()
}

func TestNotificationServiceDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.NoError(t, db.Create(newStudent("student-1", "Alice Rahman")).Error)

	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()
	dto, err := svc.Create(ctx, CreateNotificationInput{RecipientID: "student-1", Body: "Remove me"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "student-1", dto.ID))
	require.Error(t, svc.Delete(ctx, "student-1", dto.ID), "second delete reports not found")
}

func TestNotificationServicePromoteScheduled(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.NoError(t, db.Create(newStudent("student-1", "Alice Rahman")).Error)

	broker := realtime.NewBroker()
	sub := broker.Subscribe("student-1")
	defer sub.Close()

	svc, err := NewNotificationService(db, broker)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Now().UTC()
	due := now.Add(-time.Minute)
	later := now.Add(time.Hour)

	_, err = svc.Create(ctx, CreateNotificationInput{RecipientID: "student-1", Body: "due reminder", ScheduledFor: &due})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateNotificationInput{RecipientID: "student-1", Body: "future reminder", ScheduledFor: &later})
	require.NoError(t, err)
	<-sub.Events()
	<-sub.Events() // drain the two creation inserts

	promoted, err := svc.PromoteScheduled(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, promoted)

	select {
	case change := <-sub.Events():
		require.Equal(t, realtime.ChangeInsert, change.Kind)
		require.NotNil(t, change.After.DeliveredAt)
	case <-time.After(time.Second):
		t.Fatal("expected the promoted row to broadcast")
	}

	// Already-promoted rows are not promoted twice.
	promoted, err = svc.PromoteScheduled(ctx, now)
	require.NoError(t, err)
	require.Zero(t, promoted)
}

func TestNotificationServiceCleanupExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.NoError(t, db.Create(newStudent("student-1", "Alice Rahman")).Error)

	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()
	longGone := time.Now().UTC().Add(-48 * time.Hour)
	_, err = svc.Create(ctx, CreateNotificationInput{RecipientID: "student-1", Body: "stale", ExpiresAt: &longGone})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateNotificationInput{RecipientID: "student-1", Body: "current"})
	require.NoError(t, err)

	removed, err := svc.CleanupExpired(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var total int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&total).Error)
	require.EqualValues(t, 1, total)
}
