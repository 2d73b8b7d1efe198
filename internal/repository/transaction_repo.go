package repository

import (
	"context"
	"errors"

	"github.com/EmilynnJ/ccodeseer/internal/model"

	"gorm.io/gorm"
)

// TransactionRepository owns the append-only journal. Rows are never
// updated except Status (e.g. completed -> refunded).
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, t *model.Transaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(t).Error
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// GetByExternalRef supports deposit idempotency: a repeated deposit
// call with the same external_ref is a no-op that returns the original
// row.
func (r *TransactionRepository) GetByExternalRef(ctx context.Context, externalRef string) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).Where("external_ref = ?", externalRef).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) GetBySessionIDAndType(ctx context.Context, sessionID, txType string) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND type = ?", sessionID, txType).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) ListBySessionID(ctx context.Context, sessionID string) ([]*model.Transaction, error) {
	var txns []*model.Transaction
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&txns).Error
	return txns, err
}

func (r *TransactionRepository) ListByUserID(ctx context.Context, userID string, page, pageSize int) ([]*model.Transaction, int64, error) {
	var txns []*model.Transaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txns).Error
	return txns, total, err
}

// MarkRefunded flips a transaction's status to refunded, the one
// mutation the journal's immutability invariant allows.
func (r *TransactionRepository) MarkRefunded(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, model.TransactionStatusCompleted).
		Update("status", model.TransactionStatusRefunded).Error
}
