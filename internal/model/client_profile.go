package model

import "time"

// ClientProfile is the one-to-one wallet row for a client user. Balance
// is in cents and is mutated only by the Ledger; every mutation also
// bumps Version for the same optimistic-lock pattern the reference
// payments backend uses on its account table.
type ClientProfile struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID              string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"user_id"`
	BalanceCents        int64     `gorm:"not null;default:0" json:"balance_cents"`
	TotalSpentCents     int64     `gorm:"not null;default:0" json:"total_spent_cents"`
	AutoReloadEnabled   bool      `gorm:"not null;default:false" json:"auto_reload_enabled"`
	AutoReloadThreshold int64     `gorm:"not null;default:0" json:"auto_reload_threshold_cents"`
	AutoReloadAmount    int64     `gorm:"not null;default:0" json:"auto_reload_amount_cents"`
	Version             int       `gorm:"not null;default:0" json:"version"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ClientProfile) TableName() string { return "client_profile" }
