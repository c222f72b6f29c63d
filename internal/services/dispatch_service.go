package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/kamrulhasan12345/brainstormers-server/pkg/errors"
	"github.com/kamrulhasan12345/brainstormers-server/pkg/metrics"
	"github.com/kamrulhasan12345/brainstormers-server/pkg/validator"
)

// SendInput describes one composed notification send.
type SendInput struct {
	Rule   TargetRule   `json:"rule" validate:"required"`
	Params TargetParams `json:"params"`

	Title        string         `json:"title" validate:"max=255"`
	Body         string         `json:"body" validate:"required"`
	Type         string         `json:"type" validate:"omitempty,oneof=info warning success error"`
	Link         string         `json:"link"`
	Metadata     map[string]any `json:"metadata"`
	ScheduledFor *time.Time     `json:"scheduled_for"`
	ExpiresAt    *time.Time     `json:"expires_at"`
}

// DispatchResult reports what a send produced.
type DispatchResult struct {
	Rule          TargetRule        `json:"rule"`
	Recipients    int               `json:"recipients"`
	Notifications []NotificationDTO `json:"notifications"`
}

// DispatchService composes recipient resolution with bulk fan-out: resolve
// the target, reject empty sets, then insert one row per recipient.
type DispatchService struct {
	recipients    *RecipientService
	notifications *NotificationService
}

// NewDispatchService constructs a DispatchService from an existing store and resolver.
func NewDispatchService(recipients *RecipientService, notifications *NotificationService) (*DispatchService, error) {
	if recipients == nil {
		return nil, errors.New("dispatch service: recipient service is required")
	}
	if notifications == nil {
		return nil, errors.New("dispatch service: notification service is required")
	}
	return &DispatchService{recipients: recipients, notifications: notifications}, nil
}

// NewDispatchServiceFromDB is a convenience constructor for callers that do
// not need to share the underlying services.
func NewDispatchServiceFromDB(db *gorm.DB, notifications *NotificationService) (*DispatchService, error) {
	recipients, err := NewRecipientService(db)
	if err != nil {
		return nil, err
	}
	return NewDispatchService(recipients, notifications)
}

// PreviewRecipients resolves a targeting rule without sending anything. The
// returned membership is a point-in-time view and may differ by send time.
func (s *DispatchService) PreviewRecipients(ctx context.Context, rule TargetRule, params TargetParams) (*RecipientGroup, error) {
	return s.recipients.Preview(ensureContext(ctx), rule, params)
}

// Send resolves the targeting rule and fans the message out, one notification
// row per recipient with identical content and a distinct recipient id. A
// rule that resolves to nobody blocks the send with ErrNoRecipients; the
// underlying bulk insert is atomic.
func (s *DispatchService) Send(ctx context.Context, input SendInput) (*DispatchResult, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, err
	}

	recipientIDs, err := s.recipients.Resolve(ctx, input.Rule, input.Params)
	if err != nil {
		return nil, err
	}
	if len(recipientIDs) == 0 {
		return nil, apperrors.ErrNoRecipients
	}

	inputs := make([]CreateNotificationInput, 0, len(recipientIDs))
	for _, recipientID := range recipientIDs {
		inputs = append(inputs, CreateNotificationInput{
			RecipientID:  recipientID,
			Title:        input.Title,
			Body:         input.Body,
			Type:         input.Type,
			Link:         input.Link,
			Metadata:     input.Metadata,
			ScheduledFor: input.ScheduledFor,
			ExpiresAt:    input.ExpiresAt,
		})
	}

	items, err := s.notifications.CreateBulk(ctx, inputs)
	if err != nil {
		return nil, err
	}

	metrics.NotificationsSent.WithLabelValues(string(input.Rule)).Add(float64(len(items)))

	return &DispatchResult{
		Rule:          input.Rule,
		Recipients:    len(recipientIDs),
		Notifications: items,
	}, nil
}
