package model

import "time"

const (
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
)

// Payout is one attempt to drain a reader's pending balance to the
// external payment processor. A row with Status=processing and no
// ExternalTransferRef older than the retry horizon is swept to failed
// before the next scheduler run (spec.md §4.6).
type Payout struct {
	ID                  int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ReaderID            string     `gorm:"type:varchar(64);index;not null" json:"reader_id"`
	AmountCents         int64      `gorm:"not null" json:"amount_cents"`
	Status              string     `gorm:"type:varchar(16);index;not null" json:"status"`
	ExternalTransferRef string     `gorm:"type:varchar(128)" json:"external_transfer_ref,omitempty"`
	FailureReason       string     `gorm:"type:varchar(256)" json:"failure_reason,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Payout) TableName() string { return "payout" }
