package service

import (
	"context"

	"github.com/EmilynnJ/ccodeseer/internal/apperr"
	"github.com/EmilynnJ/ccodeseer/internal/infrastructure/eventbus"
	"github.com/EmilynnJ/ccodeseer/internal/model"
	"github.com/EmilynnJ/ccodeseer/internal/repository"

	"gorm.io/gorm"
)

// NotificationService is the Notification Store of spec.md §3/§4.5: a
// durable per-user inbox, written in the same transaction as the
// eventbus publish that produced it, so a late-joining subscriber can
// rehydrate by REST.
type NotificationService struct {
	db               *gorm.DB
	notificationRepo *repository.NotificationRepository
	bus              *eventbus.Bus
}

func NewNotificationService(db *gorm.DB, bus *eventbus.Bus) *NotificationService {
	return &NotificationService{
		db:               db,
		notificationRepo: repository.NewNotificationRepository(db),
		bus:              bus,
	}
}

// Notify persists a Notification row and publishes it on the
// recipient's per-user inbox channel, atomically. Callers that already
// hold an open transaction should use NotifyInTx instead.
func (s *NotificationService) Notify(ctx context.Context, userID, notificationType, title, body, metadataJSON string) error {
	var committed *gorm.DB
	err := s.db.Transaction(func(tx *gorm.DB) error {
		committed = tx
		return s.NotifyInTx(ctx, tx, userID, notificationType, title, body, metadataJSON)
	})
	if err != nil {
		return apperr.Wrap(apperr.Transient, "write notification", err)
	}
	s.bus.Flush(committed)
	return nil
}

// NotifyInTx is the composable form other services call from inside
// their own settle/accept/end transactions.
func (s *NotificationService) NotifyInTx(ctx context.Context, tx *gorm.DB, userID, notificationType, title, body, metadataJSON string) error {
	n := &model.Notification{
		UserID:   userID,
		Type:     notificationType,
		Title:    title,
		Body:     body,
		Metadata: metadataJSON,
	}
	if err := s.notificationRepo.Create(ctx, tx, n); err != nil {
		return err
	}
	return s.bus.Publish(ctx, tx, eventbus.UserChannel(userID), "notification", n)
}

// FlushEvents dispatches the live best-effort publishes NotifyInTx
// queued on tx. Callers that drive their own transaction around
// NotifyInTx must call this once, right after that transaction commits.
func (s *NotificationService) FlushEvents(tx *gorm.DB) {
	s.bus.Flush(tx)
}

func (s *NotificationService) ListByUserID(ctx context.Context, userID string, page, pageSize int) ([]*model.Notification, int64, error) {
	return s.notificationRepo.ListByUserID(ctx, userID, page, pageSize)
}

func (s *NotificationService) MarkRead(ctx context.Context, id int64, userID string) error {
	if err := s.notificationRepo.MarkRead(ctx, id, userID); err != nil {
		return apperr.Wrap(apperr.NotFound, "notification not found", err)
	}
	return nil
}
