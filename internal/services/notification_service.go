package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kamrulhasan12345/brainstormers-server/internal/models"
	"github.com/kamrulhasan12345/brainstormers-server/internal/realtime"
	apperrors "github.com/kamrulhasan12345/brainstormers-server/pkg/errors"
)

const defaultStoreTimeout = 10 * time.Second

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID           string               `json:"id"`
	RecipientID  string               `json:"recipient_id"`
	Title        string               `json:"title,omitempty"`
	Body         string               `json:"body"`
	Type         string               `json:"type"`
	Link         string               `json:"link,omitempty"`
	Metadata     map[string]any       `json:"metadata,omitempty"`
	ScheduledFor *time.Time           `json:"scheduled_for,omitempty"`
	DeliveredAt  *time.Time           `json:"delivered_at,omitempty"`
	ExpiresAt    *time.Time           `json:"expires_at,omitempty"`
	IsRead       bool                 `json:"is_read"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	ReadAt       *time.Time           `json:"read_at,omitempty"`
	Raw          *models.Notification `json:"-"`
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	RecipientID  string
	Title        string
	Body         string
	Type         string
	Link         string
	Metadata     map[string]any
	ScheduledFor *time.Time
	ExpiresAt    *time.Time
}

// ListNotificationsInput defines filters for querying a user's notifications.
type ListNotificationsInput struct {
	UserID string
	Limit  int
	Offset int
}

// NotificationService owns persisted notification rows: creation (single and
// bulk), read-state transitions, expiry-aware queries, and the change events
// published to the realtime broker after every committed mutation.
type NotificationService struct {
	db      *gorm.DB
	broker  *realtime.Broker
	timeout time.Duration
	now     func() time.Time
}

// NotificationOption customises a NotificationService.
type NotificationOption func(*NotificationService)

// WithStoreTimeout bounds the latency of every store call.
func WithStoreTimeout(d time.Duration) NotificationOption {
	return func(s *NotificationService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock overrides the clock, primarily for tests.
func WithClock(now func() time.Time) NotificationOption {
	return func(s *NotificationService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewNotificationService constructs a NotificationService. The broker may be
// nil, in which case no change events are published.
func NewNotificationService(db *gorm.DB, broker *realtime.Broker, opts ...NotificationOption) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}

	svc := &NotificationService{
		db:      db,
		broker:  broker,
		timeout: defaultStoreTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create persists a single notification and broadcasts the insert.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*NotificationDTO, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	row, err := buildNotification(input)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, s.storeError("create notification", err)
	}

	dto := mapNotification(*row)
	s.publish(realtime.Change{Kind: realtime.ChangeInsert, UserID: row.RecipientID, After: row})
	return &dto, nil
}

// CreateBulk persists one row per input inside a single transaction. The
// batch is atomic: any rejected row rolls back the whole insert and the
// caller sees a single error, never a mix of succeeded and failed rows.
func (s *NotificationService) CreateBulk(ctx context.Context, inputs []CreateNotificationInput) ([]NotificationDTO, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if len(inputs) == 0 {
		return nil, errors.New("notification service: empty batch")
	}

	rows := make([]*models.Notification, 0, len(inputs))
	for _, input := range inputs {
		row, err := buildNotification(input)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(rows).Error
	})
	if err != nil {
		return nil, s.storeError("bulk insert", err)
	}

	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(*row))
		s.publish(realtime.Change{Kind: realtime.ChangeInsert, UserID: row.RecipientID, After: row})
	}
	return items, nil
}

// ListForUser returns the user's notifications ordered newest-first,
// excluding rows whose expiry has passed. Expiry is a filter predicate, not
// a mutation: expired rows stay in the table.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) ([]NotificationDTO, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	var rows []models.Notification
	if err := s.db.WithContext(ctx).
		Where("recipient_id = ?", userID).
		Where("expires_at IS NULL OR expires_at > ?", s.now().UTC()).
		Order("created_at DESC").
		Limit(limit).
		Offset(max(0, input.Offset)).
		Find(&rows).Error; err != nil {
		return nil, s.storeError("list notifications", err)
	}

	return mapNotificationRows(rows), nil
}

// UnreadCount returns the number of unexpired unread notifications. It is a
// pure count query over the same predicate ListForUser applies, so the two
// stay numerically consistent barring concurrent writes.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Where("expires_at IS NULL OR expires_at > ?", s.now().UTC()).
		Count(&count).Error; err != nil {
		return 0, s.storeError("unread count", err)
	}
	return count, nil
}

// MarkRead flips a notification to read. The transition only ever goes
// false to true and is idempotent: re-marking an already-read row, or a row
// that does not belong to the user, is a successful no-op returning nil.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*NotificationDTO, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	now := s.now().UTC()
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND is_read = ?", notificationID, userID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		})
	if result.Error != nil {
		return nil, s.storeError("mark read", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}

	var row models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		First(&row).Error; err != nil {
		return nil, s.storeError("load notification", err)
	}

	dto := mapNotification(row)
	s.publish(realtime.Change{Kind: realtime.ChangeUpdate, UserID: userID, After: &row})
	return &dto, nil
}

// MarkAllRead applies the read transition to every unread row for the user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	now := s.now().UTC()
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		})
	if result.Error != nil {
		return s.storeError("mark all read", result.Error)
	}

	if result.RowsAffected > 0 {
		s.publish(realtime.Change{Kind: realtime.ChangeUpdate, UserID: userID})
	}
	return nil
}

// Delete permanently removes a notification owned by the user. Used for
// administrative cleanup; there is no undo.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var row models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return s.storeError("load notification", err)
	}

	if err := s.db.WithContext(ctx).Delete(&row).Error; err != nil {
		return s.storeError("delete notification", err)
	}

	s.publish(realtime.Change{Kind: realtime.ChangeDelete, UserID: userID, Before: &row})
	return nil
}

// PromoteScheduled stamps DeliveredAt on rows whose scheduled_for has passed
// and broadcasts them as fresh inserts, so a due reminder reaches popups and
// caches the same way an immediate send does.
func (s *NotificationService) PromoteScheduled(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var rows []models.Notification
	if err := s.db.WithContext(ctx).
		Where("scheduled_for IS NOT NULL AND scheduled_for <= ? AND delivered_at IS NULL", now.UTC()).
		Find(&rows).Error; err != nil {
		return 0, s.storeError("load due scheduled", err)
	}

	for i := range rows {
		stamp := now.UTC()
		if err := s.db.WithContext(ctx).
			Model(&rows[i]).
			Update("delivered_at", stamp).Error; err != nil {
			return i, s.storeError("promote scheduled", err)
		}
		rows[i].DeliveredAt = &stamp
		s.publish(realtime.Change{Kind: realtime.ChangeInsert, UserID: rows[i].RecipientID, After: &rows[i]})
	}
	return len(rows), nil
}

// CleanupExpired deletes rows that expired before the cutoff. Active views
// never see expired rows anyway; this only reclaims storage.
func (s *NotificationService) CleanupExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", cutoff.UTC()).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, s.storeError("cleanup expired", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *NotificationService) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = ensureContext(ctx)
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *NotificationService) publish(change realtime.Change) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(change)
}

func (s *NotificationService) storeError(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.ErrStoreTimeout.WithInternal(fmt.Errorf("notification service: %s: %w", op, err))
	case isUniqueConstraintError(err):
		return apperrors.NewBadRequest("notification already exists").WithInternal(err)
	default:
		return fmt.Errorf("notification service: %s: %w", op, err)
	}
}

func buildNotification(input CreateNotificationInput) (*models.Notification, error) {
	recipientID := strings.TrimSpace(input.RecipientID)
	if recipientID == "" {
		return nil, errors.New("notification service: recipient id is required")
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, errors.New("notification service: body is required")
	}

	row := &models.Notification{
		RecipientID:  recipientID,
		Title:        strings.TrimSpace(input.Title),
		Body:         body,
		Type:         defaultIfEmpty(strings.TrimSpace(input.Type), models.NotificationInfo),
		Link:         strings.TrimSpace(input.Link),
		ScheduledFor: input.ScheduledFor,
		ExpiresAt:    input.ExpiresAt,
	}

	if input.Metadata != nil {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("notification service: marshal metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(data)
	}

	return row, nil
}

// MapNotification converts a stored row into its API shape. Exposed for the
// realtime listener, which receives raw rows off the change feed.
func MapNotification(row models.Notification) NotificationDTO {
	return mapNotification(row)
}

func mapNotificationRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:           row.ID,
		RecipientID:  row.RecipientID,
		Title:        row.Title,
		Body:         row.Body,
		Type:         defaultIfEmpty(row.Type, models.NotificationInfo),
		Link:         row.Link,
		Metadata:     decodeJSON(row.Metadata),
		ScheduledFor: row.ScheduledFor,
		DeliveredAt:  row.DeliveredAt,
		ExpiresAt:    row.ExpiresAt,
		IsRead:       row.IsRead,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		ReadAt:       row.ReadAt,
		Raw:          &row,
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
