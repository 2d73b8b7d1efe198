package repository

import (
	"context"
	"errors"
	"time"

	"github.com/EmilynnJ/ccodeseer/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSessionNotFound       = errors.New("repository: session not found")
	ErrSessionStatusInvalid  = errors.New("repository: session status transition invalid")
)

// SessionRepository owns the Session FSM row. Every state change goes
// through UpdateStatus, a conditional UPDATE guarded on the current
// status, so of two racing transitions out of the same status (accept,
// end, decline, the pending sweep) only one takes effect. GetForUpdate
// offers a SELECT ... FOR UPDATE read, but the Session Orchestrator does
// not call it: its operations read the row without a lock first.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, tx *gorm.DB, session *model.Session) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(session).Error
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetForUpdate locks the session row within tx.
func (r *SessionRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Session, error) {
	var session model.Session
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// UpdateStatus performs a guarded state transition: the row must
// currently be in fromStatus, and the transition must be allowed by
// model.CanTransitionSession.
func (r *SessionRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id, fromStatus, toStatus string, extra map[string]interface{}) error {
	if !model.CanTransitionSession(fromStatus, toStatus) {
		return ErrSessionStatusInvalid
	}
	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{"status": toStatus}
	for k, v := range extra {
		updates[k] = v
	}

	result := tx.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSessionStatusInvalid
	}
	return nil
}

// GetExpiredPending returns pending sessions older than olderThan, for
// the 5-minute sweep (spec.md §4.1).
func (r *SessionRepository) GetExpiredPending(ctx context.Context, olderThan time.Time, limit int) ([]*model.Session, error) {
	var sessions []*model.Session
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.SessionStatusPending, olderThan).
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

func (r *SessionRepository) ListByUserID(ctx context.Context, userID string, page, pageSize int) ([]*model.Session, int64, error) {
	var sessions []*model.Session
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("client_id = ? OR reader_id = ?", userID, userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&sessions).Error
	return sessions, total, err
}
