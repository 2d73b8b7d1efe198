package repository

import (
	"context"
	"errors"

	"github.com/EmilynnJ/ccodeseer/internal/model"

	"gorm.io/gorm"
)

var ErrAlreadyReviewed = errors.New("repository: session already reviewed")

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.Review, error) {
	var review model.Review
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

// Create enforces "at most one review per session" with the unique
// index on session_id; a duplicate insert surfaces as a driver error
// the service layer maps to apperr.Conflict.
func (r *ReviewRepository) Create(ctx context.Context, tx *gorm.DB, review *model.Review) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(review).Error
}

func (r *ReviewRepository) SetReaderResponse(ctx context.Context, sessionID, response string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Where("session_id = ?", sessionID).
		Update("reader_response", response)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ReviewRepository) ListByReaderID(ctx context.Context, readerID string, page, pageSize int) ([]*model.Review, int64, error) {
	var reviews []*model.Review
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Review{}).Where("reader_id = ?", readerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&reviews).Error
	return reviews, total, err
}
