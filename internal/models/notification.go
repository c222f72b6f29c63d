package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification categories understood by the mobile client.
const (
	NotificationInfo    = "info"
	NotificationWarning = "warning"
	NotificationSuccess = "success"
	NotificationError   = "error"
)

// Notification represents an in-app message addressed to exactly one student.
// Bulk sends fan out to one row per recipient; there is no group addressing.
type Notification struct {
	BaseModel

	RecipientID string         `gorm:"type:uuid;index;not null" json:"recipient_id"`
	Title       string         `gorm:"type:varchar(255)" json:"title"`
	Body        string         `gorm:"type:text;not null" json:"body"`
	Type        string         `gorm:"type:varchar(32);default:'info'" json:"type"`
	Link        string         `gorm:"type:text" json:"link"`
	Metadata    datatypes.JSON `json:"metadata"`

	// ScheduledFor is stored at composition time; a maintenance job promotes
	// due rows by stamping DeliveredAt and broadcasting them.
	ScheduledFor *time.Time `gorm:"index" json:"scheduled_for"`
	DeliveredAt  *time.Time `json:"delivered_at"`

	// ExpiresAt past rows are filtered out of active views, never mutated.
	ExpiresAt *time.Time `gorm:"index" json:"expires_at"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}

// Expired reports whether the notification is past its expiry at the given instant.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}
