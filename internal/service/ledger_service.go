// Package service holds the core session-lifecycle and ledger business
// logic: the Session Orchestrator, the Ledger, Presence Registry,
// Token Broker, Review Aggregator, and the thin payment-flow glue
// around deposits/payouts/refunds.
package service

import (
	"context"
	"fmt"

	"github.com/EmilynnJ/ccodeseer/internal/apperr"
	"github.com/EmilynnJ/ccodeseer/internal/infrastructure/eventbus"
	"github.com/EmilynnJ/ccodeseer/internal/model"
	"github.com/EmilynnJ/ccodeseer/internal/money"
	"github.com/EmilynnJ/ccodeseer/internal/repository"

	"gorm.io/gorm"
)

// LedgerService is the single source of truth for monetary movement
// (spec.md §4.2), generalized from the teacher's PayService/RefundService
// pair: one guarded gorm.Transaction per mutating call, row-level locks
// acquired in a deterministic order, and paired journal rows. The ledger
// publishes no events itself; callers such as the Session Orchestrator
// publish in their own transactions.
type LedgerService struct {
	db              *gorm.DB
	clientRepo      *repository.ClientRepository
	readerRepo      *repository.ReaderRepository
	transactionRepo *repository.TransactionRepository
	payoutRepo      *repository.PayoutRepository
	bus             *eventbus.Bus
	feePercent      int64
}

func NewLedgerService(db *gorm.DB, bus *eventbus.Bus, platformFeePercent int64) *LedgerService {
	return &LedgerService{
		db:              db,
		clientRepo:      repository.NewClientRepository(db),
		readerRepo:      repository.NewReaderRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		payoutRepo:      repository.NewPayoutRepository(db),
		bus:             bus,
		feePercent:      platformFeePercent,
	}
}

// Deposit credits a client's balance, idempotent by externalRef: a
// repeated call with the same reference is a no-op returning the
// original transaction row (spec.md §4.2).
func (s *LedgerService) Deposit(ctx context.Context, userID string, amountCents int64, externalRef string) (*model.Transaction, error) {
	if amountCents <= 0 {
		return nil, apperr.New(apperr.Validation, "deposit amount must be positive")
	}

	if existing, err := s.transactionRepo.GetByExternalRef(ctx, externalRef); err != nil {
		return nil, apperr.Wrap(apperr.Transient, "lookup existing deposit", err)
	} else if existing != nil {
		if existing.UserID != userID {
			return nil, apperr.New(apperr.Conflict, "external_ref already used by a different user")
		}
		return existing, nil
	}

	if _, err := s.clientRepo.GetOrCreate(ctx, userID); err != nil {
		return nil, apperr.Wrap(apperr.Transient, "load client profile", err)
	}

	var txn *model.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.clientRepo.Increase(ctx, tx, userID, amountCents); err != nil {
			return err
		}
		txn = &model.Transaction{
			ExternalRef:    externalRef,
			UserID:         userID,
			Type:           model.TransactionTypeDeposit,
			AmountCents:    amountCents,
			NetAmountCents: amountCents,
			Status:         model.TransactionStatusCompleted,
		}
		return s.transactionRepo.Create(ctx, tx, txn)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "deposit transaction", err)
	}
	return txn, nil
}

// SettleResult carries the amounts settleSession actually applied,
// which may differ from the session's nominal total_amount when a
// partial settlement occurred.
type SettleResult struct {
	ChargedCents  int64
	FeeCents      int64
	EarningsCents int64
	Partial       bool
}

// SettleSession is Ledger.settleSession from spec.md §4.2: within one
// transaction it locks both profile rows (smaller user id first, to
// avoid deadlocking against a concurrent settlement that touches the
// same two users in the opposite role), re-reads the client's current
// balance, caps the charge at that balance, splits the charge 70/30
// (scaled pro-rata on the capped amount if it is less than the
// session's nominal total), and appends the paired transactions.
func (s *LedgerService) SettleSession(ctx context.Context, tx *gorm.DB, session *model.Session) (*SettleResult, error) {
	clientID, readerID := session.ClientID, session.ReaderID

	firstID, secondID := clientID, readerID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	locked := map[string]bool{}
	lockInOrder := func(id string) error {
		if locked[id] {
			return nil
		}
		if _, err := s.clientRepo.GetForUpdate(ctx, tx, id); err != nil && !errIsClientNotFound(err) {
			return err
		}
		if _, err := s.readerRepo.GetForUpdate(ctx, tx, id); err != nil && !errIsReaderNotFound(err) {
			return err
		}
		locked[id] = true
		return nil
	}
	if err := lockInOrder(firstID); err != nil {
		return nil, fmt.Errorf("ledger: lock %s: %w", firstID, err)
	}
	if err := lockInOrder(secondID); err != nil {
		return nil, fmt.Errorf("ledger: lock %s: %w", secondID, err)
	}

	client, err := s.clientRepo.GetForUpdate(ctx, tx, clientID)
	if err != nil {
		return nil, fmt.Errorf("ledger: re-read client: %w", err)
	}

	charged := money.Min(client.BalanceCents, session.TotalAmountCents)
	partial := charged < session.TotalAmountCents
	fee, earnings := money.Split(charged, s.feePercent)

	if charged > 0 {
		if err := s.clientRepo.Deduct(ctx, tx, clientID, charged, client.Version); err != nil {
			return nil, fmt.Errorf("ledger: debit client: %w", err)
		}
		if err := s.readerRepo.CreditEarnings(ctx, tx, readerID, earnings); err != nil {
			return nil, fmt.Errorf("ledger: credit reader: %w", err)
		}

		paymentTxn := &model.Transaction{
			UserID:         clientID,
			SessionID:      session.ID,
			Type:           model.TransactionTypeReadingPayment,
			AmountCents:    -charged,
			NetAmountCents: -charged,
			Status:         model.TransactionStatusCompleted,
		}
		if err := s.transactionRepo.Create(ctx, tx, paymentTxn); err != nil {
			return nil, fmt.Errorf("ledger: write payment journal row: %w", err)
		}

		earningTxn := &model.Transaction{
			UserID:         readerID,
			SessionID:      session.ID,
			Type:           model.TransactionTypeReadingEarning,
			AmountCents:    earnings,
			FeeCents:       fee,
			NetAmountCents: earnings,
			Status:         model.TransactionStatusCompleted,
		}
		if err := s.transactionRepo.Create(ctx, tx, earningTxn); err != nil {
			return nil, fmt.Errorf("ledger: write earning journal row: %w", err)
		}
	}

	return &SettleResult{ChargedCents: charged, FeeCents: fee, EarningsCents: earnings, Partial: partial}, nil
}

func errIsClientNotFound(err error) bool {
	return err == repository.ErrClientNotFound
}

func errIsReaderNotFound(err error) bool {
	return err == repository.ErrReaderNotFound
}

// RecordPayout is Ledger.recordPayout from spec.md §4.2.
func (s *LedgerService) RecordPayout(ctx context.Context, tx *gorm.DB, readerID string, amountCents int64, externalTransferRef string) error {
	if err := s.readerRepo.DebitPendingBalance(ctx, tx, readerID, amountCents); err != nil {
		return err
	}
	txn := &model.Transaction{
		UserID:            readerID,
		Type:              model.TransactionTypePayout,
		AmountCents:       -amountCents,
		NetAmountCents:    -amountCents,
		Status:            model.TransactionStatusCompleted,
		ExternalProcessor: externalTransferRef,
	}
	return s.transactionRepo.Create(ctx, tx, txn)
}

// Refund is Ledger.refund from spec.md §4.2. Admin-only by contract:
// Refund performs no role check of its own, and no HTTP route calls it.
func (s *LedgerService) Refund(ctx context.Context, transactionID int64, reason string) (*model.Transaction, error) {
	original, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "load original transaction", err)
	}
	if original == nil {
		return nil, apperr.New(apperr.NotFound, "transaction not found")
	}
	if original.Status != model.TransactionStatusCompleted {
		return nil, apperr.New(apperr.InvalidState, "only a completed transaction can be refunded")
	}

	var refundTxn *model.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transactionRepo.MarkRefunded(ctx, tx, original.ID); err != nil {
			return err
		}

		refundTxn = &model.Transaction{
			UserID:         original.UserID,
			SessionID:      original.SessionID,
			Type:           model.TransactionTypeRefund,
			AmountCents:    -original.AmountCents,
			NetAmountCents: -original.NetAmountCents,
			Status:         model.TransactionStatusCompleted,
		}
		if err := s.transactionRepo.Create(ctx, tx, refundTxn); err != nil {
			return err
		}

		if original.Type == model.TransactionTypeDeposit || original.Type == model.TransactionTypeReadingPayment {
			creditCents := original.AmountCents
			if creditCents < 0 {
				creditCents = -creditCents
			}
			if err := s.clientRepo.Increase(ctx, tx, original.UserID, creditCents); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "refund transaction: "+reason, err)
	}
	return refundTxn, nil
}
