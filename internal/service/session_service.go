package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/EmilynnJ/ccodeseer/internal/apperr"
	"github.com/EmilynnJ/ccodeseer/internal/config"
	"github.com/EmilynnJ/ccodeseer/internal/infrastructure/eventbus"
	"github.com/EmilynnJ/ccodeseer/internal/infrastructure/lock"
	"github.com/EmilynnJ/ccodeseer/internal/model"
	"github.com/EmilynnJ/ccodeseer/internal/money"
	"github.com/EmilynnJ/ccodeseer/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionService is the Session Orchestrator of spec.md §4.1: a state
// machine, one instance per session, persisted in the relational store,
// mediated by status-guarded conditional UPDATEs on the session row and,
// for accept/decline/end, a per-session distributed lock (teacher's
// DistributedLock, generalized from the per-user pay lock). It does not
// take a SELECT ... FOR UPDATE lock on the session row.
type SessionService struct {
	db          *gorm.DB
	redis       *redis.Client
	sessionRepo *repository.SessionRepository
	clientRepo  *repository.ClientRepository
	readerRepo  *repository.ReaderRepository
	presence    *PresenceService
	broker      *TokenBroker
	ledger      *LedgerService
	notify      *NotificationService
	bus         *eventbus.Bus
	business    *config.BusinessConfig
}

func NewSessionService(
	db *gorm.DB,
	redisClient *redis.Client,
	presence *PresenceService,
	broker *TokenBroker,
	ledger *LedgerService,
	notify *NotificationService,
	bus *eventbus.Bus,
	business *config.BusinessConfig,
) *SessionService {
	return &SessionService{
		db:          db,
		redis:       redisClient,
		sessionRepo: repository.NewSessionRepository(db),
		clientRepo:  repository.NewClientRepository(db),
		readerRepo:  repository.NewReaderRepository(db),
		presence:    presence,
		broker:      broker,
		ledger:      ledger,
		notify:      notify,
		bus:         bus,
		business:    business,
	}
}

// Request is Orchestrator.request from spec.md §4.1.
func (s *SessionService) Request(ctx context.Context, clientID, readerID, sessionType string) (*model.Session, error) {
	switch sessionType {
	case model.SessionTypeChat, model.SessionTypeVoice, model.SessionTypeVideo:
	default:
		return nil, apperr.New(apperr.Validation, "unrecognized session type")
	}

	reader, err := s.readerRepo.GetByUserID(ctx, readerID)
	if err != nil {
		return nil, apperr.New(apperr.ReaderUnavailable, "reader not found")
	}
	if reader.Status != model.PresenceOnline {
		return nil, apperr.New(apperr.ReaderUnavailable, "reader is not online")
	}

	ratePerMin, ok := reader.RateForType(sessionType)
	if !ok {
		return nil, apperr.New(apperr.Validation, "reader has no rate for this session type")
	}

	client, err := s.clientRepo.GetOrCreate(ctx, clientID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "load client profile", err)
	}

	reserve := s.business.ReserveMultiplier * ratePerMin
	if client.BalanceCents < reserve {
		return nil, apperr.New(apperr.InsufficientBalance, "balance below required reserve")
	}

	sessionID := uuid.NewString()
	session := &model.Session{
		ID:              sessionID,
		ClientID:        clientID,
		ReaderID:        readerID,
		Type:            sessionType,
		Status:          model.SessionStatusPending,
		RatePerMinCents: ratePerMin,
		RTCChannelName:  fmt.Sprintf("rtc-%s", sessionID),
		PubSubChannel:   eventbus.SessionChannel(sessionID),
	}

	var committed *gorm.DB
	err = s.db.Transaction(func(tx *gorm.DB) error {
		committed = tx
		if err := s.sessionRepo.Create(ctx, tx, session); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		body := fmt.Sprintf("New %s request from a client.", sessionType)
		meta, _ := json.Marshal(map[string]string{"session_id": sessionID})
		return s.notify.NotifyInTx(ctx, tx, readerID, model.NotificationReadingRequest, "New reading request", body, string(meta))
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "persist session request", err)
	}
	s.bus.Flush(committed)

	return session, nil
}

// AcceptResult is what Accept hands back: the reader's own token
// bundle, per spec.md §4.1. Carries both the realtime-media grant and
// the pub/sub grant the reader needs to subscribe to
// "reading:<session_id>" and "notifications:<user_id>" (spec.md §1(c),
// §4.4).
type AcceptResult struct {
	Session     *model.Session
	RTCToken    *RTCToken
	PubSubToken *PubSubToken
}

// Accept is Orchestrator.accept from spec.md §4.1. Idempotent with
// respect to the same (session_id, reader_id): a second accept on an
// already-active session returns the same session row and a freshly
// minted token, without duplicating events.
func (s *SessionService) Accept(ctx context.Context, readerID, sessionID string) (*AcceptResult, error) {
	l := lock.ForSession(s.redis, sessionID, "accept-"+readerID)
	if err := l.Lock(ctx, 50*time.Millisecond, 20); err != nil {
		return nil, apperr.Wrap(apperr.Transient, "acquire session lock", err)
	}
	defer l.Unlock(ctx)

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "session not found", err)
	}
	if session.ReaderID != readerID {
		return nil, apperr.New(apperr.NotAuthorized, "reader is not the invited party")
	}

	if session.Status == model.SessionStatusActive {
		readerToken, err := s.broker.IssueRTCToken(readerID, session.RTCChannelName, RTCRolePublisher)
		if err != nil {
			return nil, apperr.Wrap(apperr.Transient, "mint reader token", err)
		}
		readerPubSub, err := s.broker.IssuePubSubToken(readerID)
		if err != nil {
			return nil, apperr.Wrap(apperr.Transient, "mint reader pubsub token", err)
		}
		return &AcceptResult{Session: session, RTCToken: readerToken, PubSubToken: readerPubSub}, nil
	}
	if session.Status != model.SessionStatusPending {
		return nil, apperr.New(apperr.InvalidState, "session is not pending")
	}

	reserved, err := s.presence.TryReserveInSession(ctx, readerID)
	if err != nil {
		return nil, err
	}
	if !reserved {
		_ = s.sessionRepo.UpdateStatus(ctx, nil, sessionID, model.SessionStatusPending, model.SessionStatusCancelled,
			map[string]interface{}{"notes": "reader_already_in_session"})
		return nil, apperr.New(apperr.ReaderUnavailable, "reader is already in another session")
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.sessionRepo.UpdateStatus(ctx, tx, sessionID, model.SessionStatusPending, model.SessionStatusActive,
			map[string]interface{}{"start_time": &now})
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "persist session accept", err)
	}
	session.Status = model.SessionStatusActive
	session.StartTime = &now

	clientToken, err := s.broker.IssueRTCToken(session.ClientID, session.RTCChannelName, RTCRolePublisher)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "mint client token", err)
	}
	readerToken, err := s.broker.IssueRTCToken(readerID, session.RTCChannelName, RTCRolePublisher)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "mint reader token", err)
	}
	clientPubSub, err := s.broker.IssuePubSubToken(session.ClientID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "mint client pubsub token", err)
	}
	readerPubSub, err := s.broker.IssuePubSubToken(readerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "mint reader pubsub token", err)
	}

	var acceptCommitted *gorm.DB
	err = s.db.Transaction(func(tx *gorm.DB) error {
		acceptCommitted = tx
		clientPayload, _ := json.Marshal(map[string]interface{}{
			"session_id":   sessionID,
			"token":        clientToken.Token,
			"uid":          clientToken.UID,
			"channel":      clientToken.Channel,
			"pubsub_token": clientPubSub.Token,
		})
		if err := s.notify.NotifyInTx(ctx, tx, session.ClientID, model.NotificationSessionAccepted,
			"Your reading has started", "The reader accepted your request.", string(clientPayload)); err != nil {
			return err
		}
		return s.bus.Publish(ctx, tx, session.PubSubChannel, "session-started", map[string]interface{}{
			"session_id": sessionID,
			"started_at": now,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "publish session accepted", err)
	}
	s.bus.Flush(acceptCommitted)

	return &AcceptResult{Session: session, RTCToken: readerToken, PubSubToken: readerPubSub}, nil
}

// Decline is Orchestrator.decline from spec.md §4.1.
func (s *SessionService) Decline(ctx context.Context, readerID, sessionID, reason string) error {
	l := lock.ForSession(s.redis, sessionID, "decline-"+readerID)
	if err := l.Lock(ctx, 50*time.Millisecond, 20); err != nil {
		return apperr.Wrap(apperr.Transient, "acquire session lock", err)
	}
	defer l.Unlock(ctx)

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return apperr.Wrap(apperr.NotFound, "session not found", err)
	}
	if session.ReaderID != readerID {
		return apperr.New(apperr.NotAuthorized, "reader is not the invited party")
	}
	if session.Status != model.SessionStatusPending {
		return apperr.New(apperr.InvalidState, "session is not pending")
	}

	if reason == "" {
		reason = "declined"
	}

	var committed *gorm.DB
	err = s.db.Transaction(func(tx *gorm.DB) error {
		committed = tx
		if err := s.sessionRepo.UpdateStatus(ctx, tx, sessionID, model.SessionStatusPending, model.SessionStatusCancelled,
			map[string]interface{}{"notes": reason}); err != nil {
			return err
		}
		return s.notify.NotifyInTx(ctx, tx, session.ClientID, model.NotificationSessionDeclined,
			"Reading declined", "The reader declined your request.", "")
	})
	if err != nil {
		return apperr.Wrap(apperr.Transient, "persist decline", err)
	}
	s.bus.Flush(committed)
	return nil
}

// End is Orchestrator.end from spec.md §4.1. Idempotent: a second end
// returns the already-computed result without further debits.
func (s *SessionService) End(ctx context.Context, actorID, sessionID string) (*model.Session, error) {
	l := lock.ForSession(s.redis, sessionID, "end-"+actorID)
	if err := l.Lock(ctx, 50*time.Millisecond, 20); err != nil {
		return nil, apperr.Wrap(apperr.Transient, "acquire session lock", err)
	}
	defer l.Unlock(ctx)

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "session not found", err)
	}
	if !session.IsParty(actorID) {
		return nil, apperr.New(apperr.NotAuthorized, "caller is not a party to this session")
	}

	if session.Status == model.SessionStatusCompleted {
		return session, nil
	}
	if session.Status != model.SessionStatusActive {
		return nil, apperr.New(apperr.InvalidState, "session is not active")
	}

	settleLock := lock.ForLedgerSettlement(s.redis, sessionID, "end-"+actorID)
	if err := settleLock.Lock(ctx, 50*time.Millisecond, 20); err != nil {
		return nil, apperr.Wrap(apperr.Transient, "acquire settlement lock", err)
	}
	defer settleLock.Unlock(ctx)

	now := time.Now()
	durationSeconds := int64(math.Ceil(now.Sub(*session.StartTime).Seconds()))
	if durationSeconds < 1 {
		durationSeconds = 1
	}
	minutesBilled := money.CeilMinutes(durationSeconds)
	nominalTotal := minutesBilled * session.RatePerMinCents

	session.EndTime = &now
	session.DurationSeconds = durationSeconds
	session.TotalAmountCents = nominalTotal

	var settleResult *SettleResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		result, err := s.ledger.SettleSession(ctx, tx, session)
		if err != nil {
			return err
		}
		settleResult = result

		extra := map[string]interface{}{
			"end_time":          &now,
			"duration_seconds":  durationSeconds,
			"total_amount_cents": nominalTotal,
			"platform_fee_cents": result.FeeCents,
			"reader_earnings_cents": result.EarningsCents,
			"partial_settlement": result.Partial,
		}
		if err := s.sessionRepo.UpdateStatus(ctx, tx, sessionID, model.SessionStatusActive, model.SessionStatusCompleted, extra); err != nil {
			return fmt.Errorf("persist session end: %w", err)
		}
		return s.readerRepo.IncrementCompletedSessions(ctx, tx, session.ReaderID)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "settle session", err)
	}

	session.Status = model.SessionStatusCompleted
	session.PlatformFeeCents = settleResult.FeeCents
	session.ReaderEarnCents = settleResult.EarningsCents
	session.PartialSettled = settleResult.Partial

	if err := s.presence.Release(ctx, session.ReaderID); err != nil {
		return nil, err
	}

	var endCommitted *gorm.DB
	err = s.db.Transaction(func(tx *gorm.DB) error {
		endCommitted = tx
		if err := s.bus.Publish(ctx, tx, session.PubSubChannel, "session-ended", map[string]interface{}{
			"session_id":         sessionID,
			"ended_at":           now,
			"total_amount_cents": nominalTotal,
		}); err != nil {
			return err
		}
		summary := fmt.Sprintf("Session ended after %d seconds.", durationSeconds)
		if err := s.notify.NotifyInTx(ctx, tx, session.ClientID, model.NotificationSessionEnded, "Reading ended", summary, ""); err != nil {
			return err
		}
		return s.notify.NotifyInTx(ctx, tx, session.ReaderID, model.NotificationSessionEnded, "Reading ended", summary, "")
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "publish session ended", err)
	}
	s.bus.Flush(endCommitted)

	return session, nil
}

// SweepExpiredPending implements the 5-minute end-of-life sweep named
// in spec.md §4.1: a pending session older than the sweep horizon
// becomes cancelled with reason "timeout".
func (s *SessionService) SweepExpiredPending(ctx context.Context) (int, error) {
	horizon := time.Now().Add(-time.Duration(s.business.PendingSweepMinutes) * time.Minute)
	expired, err := s.sessionRepo.GetExpiredPending(ctx, horizon, 200)
	if err != nil {
		return 0, fmt.Errorf("list expired pending sessions: %w", err)
	}

	swept := 0
	for _, session := range expired {
		var committed *gorm.DB
		err := s.db.Transaction(func(tx *gorm.DB) error {
			committed = tx
			if err := s.sessionRepo.UpdateStatus(ctx, tx, session.ID, model.SessionStatusPending, model.SessionStatusCancelled,
				map[string]interface{}{"notes": "timeout"}); err != nil {
				if err == repository.ErrSessionStatusInvalid {
					return nil
				}
				return err
			}
			return s.notify.NotifyInTx(ctx, tx, session.ClientID, model.NotificationSessionDeclined,
				"Reading request timed out", "No reader accepted your request in time.", "")
		})
		if err != nil {
			continue
		}
		s.bus.Flush(committed)
		swept++
	}
	return swept, nil
}

func (s *SessionService) GetByID(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "session not found", err)
	}
	return session, nil
}

// ReconnectResult pairs a session with a freshly minted token bundle,
// the same shape Accept returns, for a party re-fetching the session
// after a reload (spec.md §6: "returns RTC token if caller is a party
// and status=active").
type ReconnectResult struct {
	Session     *model.Session
	RTCToken    *RTCToken
	PubSubToken *PubSubToken
}

// GetWithReconnectToken fetches a session and, if it's active and
// actorID is one of its two parties, mints a fresh token bundle the
// caller can use to rejoin the RTC channel and pub/sub topics after a
// reconnect. Issuing a new token doesn't mutate session state, so it's
// safe to call as often as a client needs.
func (s *SessionService) GetWithReconnectToken(ctx context.Context, actorID, id string) (*ReconnectResult, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "session not found", err)
	}
	if !session.IsParty(actorID) {
		return nil, apperr.New(apperr.NotAuthorized, "caller is not a party to this session")
	}
	if session.Status != model.SessionStatusActive {
		return &ReconnectResult{Session: session}, nil
	}

	rtcToken, err := s.broker.IssueRTCToken(actorID, session.RTCChannelName, RTCRolePublisher)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "mint reconnect rtc token", err)
	}
	pubsubToken, err := s.broker.IssuePubSubToken(actorID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "mint reconnect pubsub token", err)
	}
	return &ReconnectResult{Session: session, RTCToken: rtcToken, PubSubToken: pubsubToken}, nil
}

func (s *SessionService) ListByUserID(ctx context.Context, userID string, page, pageSize int) ([]*model.Session, int64, error) {
	return s.sessionRepo.ListByUserID(ctx, userID, page, pageSize)
}
