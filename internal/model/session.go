package model

import "time"

const (
	SessionTypeChat  = "chat"
	SessionTypeVoice = "voice"
	SessionTypeVideo = "video"
)

const (
	SessionStatusPending   = "pending"
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
	SessionStatusDisputed  = "disputed"
)

// ValidSessionTransitions encodes the FSM in spec.md §4.1. No transition
// outside this table is ever performed.
var ValidSessionTransitions = map[string][]string{
	SessionStatusPending: {SessionStatusActive, SessionStatusCancelled},
	SessionStatusActive:  {SessionStatusCompleted},
}

// CanTransitionSession reports whether from->to is an allowed Session
// status transition.
func CanTransitionSession(from, to string) bool {
	for _, allowed := range ValidSessionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminalSessionStatus reports whether status has no outgoing
// transitions (completed, cancelled, disputed).
func IsTerminalSessionStatus(status string) bool {
	switch status {
	case SessionStatusCompleted, SessionStatusCancelled, SessionStatusDisputed:
		return true
	default:
		return false
	}
}

// Session is one consultation between a client and a reader, priced per
// whole started minute. Identifier is a UUID string, matching spec.md
// §3's "Identifier (UUID)".
type Session struct {
	ID               string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	ClientID         string     `gorm:"type:varchar(64);index;not null" json:"client_id"`
	ReaderID         string     `gorm:"type:varchar(64);index;not null" json:"reader_id"`
	Type             string     `gorm:"type:varchar(16);not null" json:"type"`
	Status           string     `gorm:"type:varchar(16);index;not null" json:"status"`
	RatePerMinCents  int64      `gorm:"not null" json:"rate_per_min_cents"`
	StartTime        *time.Time `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	DurationSeconds  int64      `gorm:"not null;default:0" json:"duration_seconds"`
	TotalAmountCents int64      `gorm:"not null;default:0" json:"total_amount_cents"`
	PlatformFeeCents int64      `gorm:"not null;default:0" json:"platform_fee_cents"`
	ReaderEarnCents  int64      `gorm:"not null;default:0" json:"reader_earnings_cents"`
	RTCChannelName   string     `gorm:"type:varchar(128);not null" json:"rtc_channel_name"`
	PubSubChannel    string     `gorm:"type:varchar(128);not null" json:"pubsub_channel_name"`
	PartialSettled   bool       `gorm:"not null;default:false" json:"partial_settlement"`
	Notes            string     `gorm:"type:varchar(256)" json:"notes,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Session) TableName() string { return "session" }

// IsParty reports whether userID is the client or reader on the session.
func (s *Session) IsParty(userID string) bool {
	return s.ClientID == userID || s.ReaderID == userID
}
