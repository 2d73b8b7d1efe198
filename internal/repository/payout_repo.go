package repository

import (
	"context"
	"time"

	"github.com/EmilynnJ/ccodeseer/internal/model"

	"gorm.io/gorm"
)

type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) Create(ctx context.Context, tx *gorm.DB, p *model.Payout) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(p).Error
}

func (r *PayoutRepository) MarkCompleted(ctx context.Context, tx *gorm.DB, id int64, externalTransferRef string) error {
	if tx == nil {
		tx = r.db
	}
	now := time.Now()
	return tx.WithContext(ctx).
		Model(&model.Payout{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":                model.PayoutStatusCompleted,
			"external_transfer_ref": externalTransferRef,
			"completed_at":          &now,
		}).Error
}

func (r *PayoutRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	return r.db.WithContext(ctx).
		Model(&model.Payout{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         model.PayoutStatusFailed,
			"failure_reason": reason,
		}).Error
}

// GetStaleProcessing returns payout rows stuck in "processing" with no
// transfer ref, older than the retry horizon — swept to failed before
// each scheduler run so a crashed run can't wedge a reader forever
// (spec.md §4.6's idempotent-across-restarts rule).
func (r *PayoutRepository) GetStaleProcessing(ctx context.Context, olderThan time.Time) ([]*model.Payout, error) {
	var payouts []*model.Payout
	err := r.db.WithContext(ctx).
		Where("status = ? AND external_transfer_ref = '' AND created_at < ?", model.PayoutStatusProcessing, olderThan).
		Find(&payouts).Error
	return payouts, err
}

func (r *PayoutRepository) ListByReaderID(ctx context.Context, readerID string, page, pageSize int) ([]*model.Payout, int64, error) {
	var payouts []*model.Payout
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Payout{}).Where("reader_id = ?", readerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&payouts).Error
	return payouts, total, err
}
