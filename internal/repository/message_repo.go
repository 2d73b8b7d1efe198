package repository

import (
	"context"

	"github.com/EmilynnJ/ccodeseer/internal/model"

	"gorm.io/gorm"
)

// MessageRepository owns chat messages, exclusively owned by their
// Session (spec.md §3 Ownership).
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *MessageRepository) ListBySessionID(ctx context.Context, sessionID string, limit int) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}
