package service

import (
	"context"
	"fmt"
	"time"

	"github.com/EmilynnJ/ccodeseer/internal/apperr"
	"github.com/EmilynnJ/ccodeseer/internal/infrastructure/eventbus"
	"github.com/EmilynnJ/ccodeseer/internal/infrastructure/lock"
	"github.com/EmilynnJ/ccodeseer/internal/model"
	"github.com/EmilynnJ/ccodeseer/internal/repository"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// presenceSelfActionTransitions encodes the reader self-action edges of
// the status FSM of spec.md §4.3, applied by SetStatus. The
// orchestrator-driven edges (online->in_session, in_session->online) are
// not in this table; they are reachable only through TryReserveInSession
// and Release, called by the Session Orchestrator.
var presenceSelfActionTransitions = map[string][]string{
	model.PresenceOffline: {model.PresenceOnline},
	model.PresenceOnline:  {model.PresenceOffline, model.PresenceBusy},
	model.PresenceBusy:    {model.PresenceOnline},
}

// PresenceService is the Presence Registry of spec.md §4.3: the coarse
// mutex that prevents a reader from being double-booked, grounded on
// the teacher's Redis cache/lock infrastructure.
type PresenceService struct {
	db         *gorm.DB
	redis      *redis.Client
	readerRepo *repository.ReaderRepository
	bus        *eventbus.Bus
}

func NewPresenceService(db *gorm.DB, redisClient *redis.Client, bus *eventbus.Bus) *PresenceService {
	return &PresenceService{
		db:         db,
		redis:      redisClient,
		readerRepo: repository.NewReaderRepository(db),
		bus:        bus,
	}
}

// SetStatus is the reader self-action transition (PATCH /readers/me/status).
// It is guarded by the per-reader distributed lock, which serializes
// concurrent self-actions for the same reader. The orchestrator's
// accept/end transitions do not take that lock; if one of them changes
// the status between the read and the write here, the compare-and-set
// finds no matching row and SetStatus returns Conflict.
func (s *PresenceService) SetStatus(ctx context.Context, readerID, toStatus string) error {
	l := lock.ForReaderPresence(s.redis, readerID, "presence-self-"+readerID)
	if err := l.Lock(ctx, 50*time.Millisecond, 10); err != nil {
		return apperr.Wrap(apperr.Transient, "acquire presence lock", err)
	}
	defer l.Unlock(ctx)

	reader, err := s.readerRepo.GetByUserID(ctx, readerID)
	if err != nil {
		return apperr.Wrap(apperr.NotFound, "reader profile not found", err)
	}

	allowed := presenceSelfActionTransitions[reader.Status]
	permitted := false
	for _, candidate := range allowed {
		if candidate == toStatus {
			permitted = true
			break
		}
	}
	if !permitted {
		return apperr.New(apperr.InvalidState, fmt.Sprintf("cannot self-transition presence %s -> %s", reader.Status, toStatus))
	}

	ok, err := s.readerRepo.CompareAndSetStatus(ctx, readerID, reader.Status, toStatus)
	if err != nil {
		return apperr.Wrap(apperr.Transient, "persist presence transition", err)
	}
	if !ok {
		return apperr.New(apperr.Conflict, "presence changed concurrently, retry")
	}

	return s.publishStatus(ctx, readerID, toStatus)
}

// TryReserveInSession is the orchestrator's accept-time compare-and-set:
// it only succeeds if the reader's current status is `online`, making a
// second concurrent accept for the same reader lose the race (spec.md
// §4.1 "Concurrent requests for the same reader", §4.3, §5).
func (s *PresenceService) TryReserveInSession(ctx context.Context, readerID string) (bool, error) {
	ok, err := s.readerRepo.CompareAndSetStatus(ctx, readerID, model.PresenceOnline, model.PresenceInSession)
	if err != nil {
		return false, apperr.Wrap(apperr.Transient, "reserve reader presence", err)
	}
	if !ok {
		return false, nil
	}
	if err := s.publishStatus(ctx, readerID, model.PresenceInSession); err != nil {
		return true, err
	}
	return true, nil
}

// Release is the orchestrator's end-time transition back to `online`.
func (s *PresenceService) Release(ctx context.Context, readerID string) error {
	_, err := s.readerRepo.CompareAndSetStatus(ctx, readerID, model.PresenceInSession, model.PresenceOnline)
	if err != nil {
		return apperr.Wrap(apperr.Transient, "release reader presence", err)
	}
	return s.publishStatus(ctx, readerID, model.PresenceOnline)
}

func (s *PresenceService) publishStatus(ctx context.Context, readerID, status string) error {
	event := map[string]interface{}{
		"reader_id": readerID,
		"status":    status,
		"timestamp": time.Now(),
	}
	var committed *gorm.DB
	err := s.db.Transaction(func(tx *gorm.DB) error {
		committed = tx
		return s.bus.Publish(ctx, tx, eventbus.ChannelReaderStatus, "status-update", event)
	})
	if err != nil {
		return apperr.Wrap(apperr.Transient, "publish presence status update", err)
	}
	s.bus.Flush(committed)
	return nil
}

// ListOnline backs GET /readers/online (spec.md §6).
func (s *PresenceService) ListOnline(ctx context.Context) ([]*model.ReaderProfile, error) {
	return s.readerRepo.ListOnline(ctx)
}
