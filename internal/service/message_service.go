package service

import (
	"context"

	"github.com/EmilynnJ/ccodeseer/internal/apperr"
	"github.com/EmilynnJ/ccodeseer/internal/infrastructure/eventbus"
	"github.com/EmilynnJ/ccodeseer/internal/model"
	"github.com/EmilynnJ/ccodeseer/internal/repository"

	"gorm.io/gorm"
)

// MessageService backs POST /sessions/:id/messages (spec.md §6), the
// supplemental chat-message feature named in SPEC_FULL.md: a Session
// exclusively owns its Messages (spec.md §3 Ownership), so a message
// can only be appended while the session is active.
type MessageService struct {
	db          *gorm.DB
	sessionRepo *repository.SessionRepository
	messageRepo *repository.MessageRepository
	bus         *eventbus.Bus
}

func NewMessageService(db *gorm.DB, bus *eventbus.Bus) *MessageService {
	return &MessageService{
		db:          db,
		sessionRepo: repository.NewSessionRepository(db),
		messageRepo: repository.NewMessageRepository(db),
		bus:         bus,
	}
}

func (s *MessageService) Send(ctx context.Context, senderID, sessionID, body string) (*model.Message, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "session not found", err)
	}
	if !session.IsParty(senderID) {
		return nil, apperr.New(apperr.NotAuthorized, "sender is not a party to this session")
	}
	if session.Status != model.SessionStatusActive {
		return nil, apperr.New(apperr.InvalidState, "session is not active")
	}

	msg := &model.Message{SessionID: sessionID, SenderID: senderID, Body: body}

	var committed *gorm.DB
	err = s.db.Transaction(func(tx *gorm.DB) error {
		committed = tx
		if err := tx.WithContext(ctx).Create(msg).Error; err != nil {
			return err
		}
		return s.bus.Publish(ctx, tx, eventbus.SessionChannel(sessionID), "message", msg)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "send message", err)
	}
	s.bus.Flush(committed)

	return msg, nil
}

func (s *MessageService) ListBySessionID(ctx context.Context, sessionID string, limit int) ([]*model.Message, error) {
	return s.messageRepo.ListBySessionID(ctx, sessionID, limit)
}
