package service

import (
	"context"
	"fmt"

	"github.com/EmilynnJ/ccodeseer/internal/apperr"
	"github.com/EmilynnJ/ccodeseer/internal/model"
	"github.com/EmilynnJ/ccodeseer/internal/repository"

	"gorm.io/gorm"
)

// ReviewService is the Review Aggregator of spec.md §4.7.
type ReviewService struct {
	db           *gorm.DB
	sessionRepo  *repository.SessionRepository
	reviewRepo   *repository.ReviewRepository
	readerRepo   *repository.ReaderRepository
	notification *NotificationService
}

func NewReviewService(db *gorm.DB, notification *NotificationService) *ReviewService {
	return &ReviewService{
		db:           db,
		sessionRepo:  repository.NewSessionRepository(db),
		reviewRepo:   repository.NewReviewRepository(db),
		readerRepo:   repository.NewReaderRepository(db),
		notification: notification,
	}
}

// SubmitReview verifies the client owns the completed session and no
// prior review exists, persists the review, folds it into the reader's
// running rating average, and notifies the reader.
func (s *ReviewService) SubmitReview(ctx context.Context, clientID, sessionID string, rating int, comment string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.New(apperr.Validation, "rating must be between 1 and 5")
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "session not found", err)
	}
	if session.ClientID != clientID {
		return nil, apperr.New(apperr.NotAuthorized, "only the session's client may review it")
	}
	if session.Status != model.SessionStatusCompleted {
		return nil, apperr.New(apperr.InvalidState, "only a completed session may be reviewed")
	}

	existing, err := s.reviewRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "check existing review", err)
	}
	if existing != nil {
		return nil, apperr.New(apperr.Conflict, "session already reviewed")
	}

	review := &model.Review{
		SessionID: sessionID,
		ClientID:  clientID,
		ReaderID:  session.ReaderID,
		Rating:    rating,
		Comment:   comment,
	}

	var committed *gorm.DB
	err = s.db.Transaction(func(tx *gorm.DB) error {
		committed = tx
		if err := s.reviewRepo.Create(ctx, tx, review); err != nil {
			return fmt.Errorf("write review: %w", err)
		}
		if err := s.readerRepo.RecordReview(ctx, tx, session.ReaderID, rating); err != nil {
			return fmt.Errorf("fold review into rating average: %w", err)
		}
		return s.notification.NotifyInTx(ctx, tx, session.ReaderID, model.NotificationNewReview,
			"New review", fmt.Sprintf("You received a %d-star review.", rating), "")
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "submit review", err)
	}
	s.notification.FlushEvents(committed)

	return review, nil
}

func (s *ReviewService) SetReaderResponse(ctx context.Context, readerID, sessionID, response string) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return apperr.Wrap(apperr.NotFound, "session not found", err)
	}
	if session.ReaderID != readerID {
		return apperr.New(apperr.NotAuthorized, "only the session's reader may respond")
	}
	if err := s.reviewRepo.SetReaderResponse(ctx, sessionID, response); err != nil {
		return apperr.Wrap(apperr.NotFound, "review not found", err)
	}
	return nil
}

func (s *ReviewService) ListByReaderID(ctx context.Context, readerID string, page, pageSize int) ([]*model.Review, int64, error) {
	return s.reviewRepo.ListByReaderID(ctx, readerID, page, pageSize)
}
