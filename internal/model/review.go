package model

import "time"

// Review is authored by the client, at most one per completed session.
// The reader may edit only ReaderResponse.
type Review struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID      string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"session_id"`
	ClientID       string    `gorm:"type:varchar(64);index;not null" json:"client_id"`
	ReaderID       string    `gorm:"type:varchar(64);index;not null" json:"reader_id"`
	Rating         int       `gorm:"not null" json:"rating"`
	Comment        string    `gorm:"type:varchar(1024)" json:"comment,omitempty"`
	ReaderResponse string    `gorm:"type:varchar(1024)" json:"reader_response,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Review) TableName() string { return "review" }
