package model

import "time"

const (
	NotificationReadingRequest  = "reading_request"
	NotificationSessionAccepted = "session_accepted"
	NotificationSessionDeclined = "session_declined"
	NotificationSessionEnded    = "session_ended"
	NotificationNewReview       = "new_review"
	NotificationPayoutFailed    = "payout_failed"
)

// Notification is a durable, per-user inbox record — the durable
// mirror of a transient pub/sub publish, so late-joining subscribers
// can rehydrate by REST (spec.md §4.5). Never deleted by the core;
// mutated only to flip Read.
type Notification struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:varchar(64);index;not null" json:"user_id"`
	Type      string    `gorm:"type:varchar(32);not null" json:"type"`
	Title     string    `gorm:"type:varchar(256);not null" json:"title"`
	Body      string    `gorm:"type:varchar(1024)" json:"body"`
	Metadata  string    `gorm:"type:text" json:"metadata,omitempty"` // opaque JSON blob
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Notification) TableName() string { return "notification" }
