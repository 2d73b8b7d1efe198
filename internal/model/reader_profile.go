package model

import "time"

const (
	PresenceOffline   = "offline"
	PresenceOnline    = "online"
	PresenceBusy      = "busy"
	PresenceInSession = "in_session"
)

const (
	ExternalAccountPending    = "pending"
	ExternalAccountActive     = "active"
	ExternalAccountRestricted = "restricted"
)

// ReaderProfile is the one-to-one earnings+presence row for a reader
// user. PendingBalanceCents and TotalEarnedCents/TotalPaidOutCents are
// mutated only by the Ledger; Status is mutated only by the Presence
// Registry (directly, on reader self-action) or the Session
// Orchestrator (on accept/end).
type ReaderProfile struct {
	ID                    int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"user_id"`
	ChatRateCentsPerMin   int64     `gorm:"not null;default:0" json:"chat_rate_cents_per_min"`
	VoiceRateCentsPerMin  int64     `gorm:"not null;default:0" json:"voice_rate_cents_per_min"`
	VideoRateCentsPerMin  int64     `gorm:"not null;default:0" json:"video_rate_cents_per_min"`
	Available             bool      `gorm:"not null;default:true" json:"available"`
	Status                string    `gorm:"type:varchar(16);not null;default:offline" json:"status"`
	PendingBalanceCents   int64     `gorm:"not null;default:0" json:"pending_balance_cents"`
	TotalEarnedCents      int64     `gorm:"not null;default:0" json:"total_earned_cents"`
	TotalPaidOutCents     int64     `gorm:"not null;default:0" json:"total_paid_out_cents"`
	Rating                float64   `gorm:"not null;default:0" json:"rating"`
	ReviewCount           int64     `gorm:"not null;default:0" json:"review_count"`
	TotalReadings         int64     `gorm:"not null;default:0" json:"total_readings"`
	ExternalAccountHandle string    `gorm:"type:varchar(128)" json:"external_account_handle"`
	ExternalAccountStatus string    `gorm:"type:varchar(16);not null;default:pending" json:"external_account_status"`
	Version               int       `gorm:"not null;default:0" json:"version"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ReaderProfile) TableName() string { return "reader_profile" }

// RateForType returns the frozen-at-request per-minute rate for a
// session type, in cents.
func (r *ReaderProfile) RateForType(sessionType string) (int64, bool) {
	switch sessionType {
	case SessionTypeChat:
		return r.ChatRateCentsPerMin, true
	case SessionTypeVoice:
		return r.VoiceRateCentsPerMin, true
	case SessionTypeVideo:
		return r.VideoRateCentsPerMin, true
	default:
		return 0, false
	}
}
