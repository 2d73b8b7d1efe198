package repository

import (
	"context"
	"errors"

	"github.com/EmilynnJ/ccodeseer/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUserNotFound = errors.New("repository: user not found")

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertFromIdentity creates or updates the stable identity row for a
// first sync from the external identity collaborator. The identifier
// is immutable once created; only DisplayName is refreshed on repeat
// syncs.
func (r *UserRepository) UpsertFromIdentity(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "auth_subject"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name"}),
		}).
		Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SetRole changes a user's role; only an admin caller may invoke this.
// SetRole performs no role check of its own, and no service in this
// module calls it.
func (r *UserRepository) SetRole(ctx context.Context, id, role string) error {
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
