package repository

import (
	"context"
	"errors"

	"github.com/EmilynnJ/ccodeseer/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrReaderNotFound = errors.New("repository: reader profile not found")

type ReaderRepository struct {
	db *gorm.DB
}

func NewReaderRepository(db *gorm.DB) *ReaderRepository {
	return &ReaderRepository{db: db}
}

func (r *ReaderRepository) GetByUserID(ctx context.Context, userID string) (*model.ReaderProfile, error) {
	var profile model.ReaderProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReaderNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *ReaderRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*model.ReaderProfile, error) {
	var profile model.ReaderProfile
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReaderNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// CompareAndSetStatus transitions status only if the row is currently
// in fromStatus — the fast-index compare-and-set spec.md §4.3 and §9
// describe as the coarse mutex that makes a second concurrent accept
// lose the race.
func (r *ReaderRepository) CompareAndSetStatus(ctx context.Context, readerID, fromStatus, toStatus string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ReaderProfile{}).
		Where("user_id = ? AND status = ?", readerID, fromStatus).
		Update("status", toStatus)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreditEarnings adds earnings to pending_balance/total_earned in the
// same transaction as the client-side debit, mirroring the teacher's
// account Increase but on the reader-earnings columns.
func (r *ReaderRepository) CreditEarnings(ctx context.Context, tx *gorm.DB, readerID string, earningsCents int64) error {
	result := tx.WithContext(ctx).
		Model(&model.ReaderProfile{}).
		Where("user_id = ?", readerID).
		Updates(map[string]interface{}{
			"pending_balance_cents": gorm.Expr("pending_balance_cents + ?", earningsCents),
			"total_earned_cents":    gorm.Expr("total_earned_cents + ?", earningsCents),
			"version":               gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrReaderNotFound
	}
	return nil
}

// IncrementCompletedSessions bumps total_readings after a session ends.
func (r *ReaderRepository) IncrementCompletedSessions(ctx context.Context, tx *gorm.DB, readerID string) error {
	return tx.WithContext(ctx).
		Model(&model.ReaderProfile{}).
		Where("user_id = ?", readerID).
		UpdateColumn("total_readings", gorm.Expr("total_readings + ?", 1)).Error
}

// DebitPendingBalance decrements pending_balance/increments
// total_paid_out for a completed payout.
func (r *ReaderRepository) DebitPendingBalance(ctx context.Context, tx *gorm.DB, readerID string, amountCents int64) error {
	result := tx.WithContext(ctx).
		Model(&model.ReaderProfile{}).
		Where("user_id = ? AND pending_balance_cents >= ?", readerID, amountCents).
		Updates(map[string]interface{}{
			"pending_balance_cents": gorm.Expr("pending_balance_cents - ?", amountCents),
			"total_paid_out_cents":  gorm.Expr("total_paid_out_cents + ?", amountCents),
			"version":               gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBalanceNotEnough
	}
	return nil
}

// RecordReview folds a new review into the running rating average using
// a single guarded UPDATE expression rather than re-aggregating every
// row, the same way the teacher mutates balance with gorm.Expr.
func (r *ReaderRepository) RecordReview(ctx context.Context, tx *gorm.DB, readerID string, rating int) error {
	return tx.WithContext(ctx).
		Model(&model.ReaderProfile{}).
		Where("user_id = ?", readerID).
		Updates(map[string]interface{}{
			"rating":       gorm.Expr("(rating * review_count + ?) / (review_count + 1)", float64(rating)),
			"review_count": gorm.Expr("review_count + 1"),
		}).Error
}

// EligibleForPayout lists readers whose pending balance is at or above
// minPayoutCents and whose external account is active — spec.md §4.6
// step 1.
func (r *ReaderRepository) EligibleForPayout(ctx context.Context, minPayoutCents int64) ([]*model.ReaderProfile, error) {
	var readers []*model.ReaderProfile
	err := r.db.WithContext(ctx).
		Where("pending_balance_cents >= ? AND external_account_status = ?", minPayoutCents, model.ExternalAccountActive).
		Find(&readers).Error
	return readers, err
}

func (r *ReaderRepository) ListOnline(ctx context.Context) ([]*model.ReaderProfile, error) {
	var readers []*model.ReaderProfile
	err := r.db.WithContext(ctx).Where("status = ?", model.PresenceOnline).Find(&readers).Error
	return readers, err
}
