package model

import "time"

// Message is a single chat message within a session's text channel.
// Sessions exclusively own their Messages (spec.md §3 Ownership).
type Message struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(36);index;not null" json:"session_id"`
	SenderID  string    `gorm:"type:varchar(64);not null" json:"sender_id"`
	Body      string    `gorm:"type:varchar(4096);not null" json:"body"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Message) TableName() string { return "message" }
