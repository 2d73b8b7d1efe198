package repository

import (
	"context"
	"errors"

	"github.com/EmilynnJ/ccodeseer/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrClientNotFound   = errors.New("repository: client profile not found")
	ErrBalanceNotEnough = errors.New("repository: balance not enough")
	ErrOptimisticLock   = errors.New("repository: optimistic lock conflict, retry")
)

// ClientRepository owns ClientProfile rows — generalized from the
// reference backend's AccountRepository (same GetOrCreate /
// optimistic-locked Deduct/Increase shape), extended with the
// row-level SELECT ... FOR UPDATE the Ledger needs for settleSession.
type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) GetByUserID(ctx context.Context, userID string) (*model.ClientProfile, error) {
	var profile model.ClientProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// GetForUpdate locks the profile row within tx, ordered by the caller
// (Ledger orders by ascending user id string across the two profiles it
// locks, per spec.md §4.2/§5).
func (r *ClientRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*model.ClientProfile, error) {
	var profile model.ClientProfile
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *ClientRepository) GetOrCreate(ctx context.Context, userID string) (*model.ClientProfile, error) {
	profile, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrClientNotFound) {
		return nil, err
	}

	created := &model.ClientProfile{UserID: userID}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(created).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

// Deduct decrements balance by amount, guarded by both a balance check
// and the optimistic-lock version column, matching the teacher's
// AccountRepository.Deduct.
func (r *ClientRepository) Deduct(ctx context.Context, tx *gorm.DB, userID string, amountCents int64, version int) error {
	result := tx.WithContext(ctx).
		Model(&model.ClientProfile{}).
		Where("user_id = ? AND balance_cents >= ? AND version = ?", userID, amountCents, version).
		Updates(map[string]interface{}{
			"balance_cents":     gorm.Expr("balance_cents - ?", amountCents),
			"total_spent_cents": gorm.Expr("total_spent_cents + ?", amountCents),
			"version":           gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		profile, err := r.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if profile.BalanceCents < amountCents {
			return ErrBalanceNotEnough
		}
		return ErrOptimisticLock
	}
	return nil
}

// Increase credits balance by amount (deposits, refunds).
func (r *ClientRepository) Increase(ctx context.Context, tx *gorm.DB, userID string, amountCents int64) error {
	result := tx.WithContext(ctx).
		Model(&model.ClientProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"balance_cents": gorm.Expr("balance_cents + ?", amountCents),
			"version":       gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrClientNotFound
	}
	return nil
}
