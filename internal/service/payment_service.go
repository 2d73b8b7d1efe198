package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/EmilynnJ/ccodeseer/internal/apperr"
	"github.com/EmilynnJ/ccodeseer/internal/model"
	"github.com/EmilynnJ/ccodeseer/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentProcessor is the narrow interface the core consumes from the
// external payment-intent processor (spec.md §1: "out of scope...the
// core consumes only narrow interfaces from each"). Nothing in this
// module depends on a concrete processor SDK; main wires
// payment.StubProcessor behind this interface.
type PaymentProcessor interface {
	// CreateIntent starts a top-up and returns a client secret the
	// caller's frontend uses to collect payment details.
	CreateIntent(ctx context.Context, userID string, amountCents int64) (intentID, clientSecret string, err error)
	// Transfer pays amountCents out to accountHandle and returns the
	// processor's transfer reference on success.
	Transfer(ctx context.Context, accountHandle string, amountCents int64) (transferRef string, err error)
}

// PaymentService is the thin glue around Ledger.deposit/recordPayout
// named by the HTTP surface in spec.md §6: initDeposit, manualPayout,
// and webhook ingestion.
type PaymentService struct {
	db         *gorm.DB
	processor  PaymentProcessor
	ledger     *LedgerService
	readerRepo *repository.ReaderRepository
	payoutRepo *repository.PayoutRepository
	minPayout  int64
	webhookKey []byte
}

func NewPaymentService(db *gorm.DB, processor PaymentProcessor, ledger *LedgerService, minPayoutCents int64, webhookSigningKey string) *PaymentService {
	return &PaymentService{
		db:         db,
		processor:  processor,
		ledger:     ledger,
		readerRepo: repository.NewReaderRepository(db),
		payoutRepo: repository.NewPayoutRepository(db),
		minPayout:  minPayoutCents,
		webhookKey: []byte(webhookSigningKey),
	}
}

// VerifyWebhookSignature checks the hex-encoded HMAC-SHA256 digest of
// body against the processor's webhook secret. signature may carry a
// "sha256=" prefix, matching the convention most webhook senders use.
// Returns an error describing the failure without echoing the expected
// digest, so a caller logging the error doesn't leak the secret.
func (s *PaymentService) VerifyWebhookSignature(body []byte, signature string) error {
	if len(s.webhookKey) == 0 {
		return errors.New("webhook signing key not configured")
	}
	if len(body) == 0 {
		return errors.New("empty webhook body")
	}
	if signature == "" {
		return errors.New("missing webhook signature")
	}

	hexSignature := strings.TrimPrefix(signature, "sha256=")
	signatureBytes, err := hex.DecodeString(hexSignature)
	if err != nil {
		return fmt.Errorf("invalid hex signature: %w", err)
	}

	mac := hmac.New(sha256.New, s.webhookKey)
	mac.Write(body)
	expected := mac.Sum(nil)

	if subtle.ConstantTimeCompare(expected, signatureBytes) != 1 {
		return errors.New("webhook signature mismatch")
	}
	return nil
}

// InitDeposit is Ledger.initDeposit from spec.md §6: opens a
// payment-intent with the external processor and returns the client
// secret the frontend needs to finish collecting payment details. The
// actual balance credit happens later, off the webhook.
func (s *PaymentService) InitDeposit(ctx context.Context, userID string, amountCents int64) (intentID, clientSecret string, err error) {
	if amountCents <= 0 {
		return "", "", apperr.New(apperr.Validation, "amount must be positive")
	}
	intentID, clientSecret, err = s.processor.CreateIntent(ctx, userID, amountCents)
	if err != nil {
		return "", "", apperr.Wrap(apperr.Transient, "create payment intent", err)
	}
	return intentID, clientSecret, nil
}

// IngestWebhook handles POST /webhooks/payments (spec.md §6): idempotent
// by payment-intent id, drives Ledger.Deposit on success.
func (s *PaymentService) IngestWebhook(ctx context.Context, userID, paymentIntentID string, amountCents int64, succeeded bool) error {
	if !succeeded {
		return nil
	}
	_, err := s.ledger.Deposit(ctx, userID, amountCents, paymentIntentID)
	return err
}

// ManualPayout is Ledger.manualPayout from spec.md §6: a reader-initiated
// drain of their own pending balance, subject to the same floor and
// account-status gate as the scheduled drain (spec.md §4.6).
func (s *PaymentService) ManualPayout(ctx context.Context, readerID string, amountCents int64) (*model.Payout, error) {
	reader, err := s.readerRepo.GetByUserID(ctx, readerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "reader profile not found", err)
	}
	if reader.ExternalAccountStatus != model.ExternalAccountActive {
		return nil, apperr.New(apperr.InvalidState, "ACCOUNT_NOT_ACTIVE").WithTag("ACCOUNT_NOT_ACTIVE")
	}
	if amountCents < s.minPayout {
		return nil, apperr.New(apperr.Validation, "BELOW_MIN_PAYOUT").WithTag("BELOW_MIN_PAYOUT")
	}
	if reader.PendingBalanceCents < amountCents {
		return nil, apperr.New(apperr.InsufficientBalance, "payout amount exceeds pending balance")
	}

	payout := &model.Payout{
		ReaderID:    readerID,
		AmountCents: amountCents,
		Status:      model.PayoutStatusProcessing,
	}
	if err := s.payoutRepo.Create(ctx, nil, payout); err != nil {
		return nil, apperr.Wrap(apperr.Transient, "create payout row", err)
	}

	transferRef, err := s.processor.Transfer(ctx, reader.ExternalAccountHandle, amountCents)
	if err != nil {
		_ = s.payoutRepo.MarkFailed(ctx, payout.ID, err.Error())
		return nil, apperr.Wrap(apperr.Transient, "external transfer failed", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.RecordPayout(ctx, tx, readerID, amountCents, transferRef); err != nil {
			return fmt.Errorf("record payout: %w", err)
		}
		return s.payoutRepo.MarkCompleted(ctx, tx, payout.ID, transferRef)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "settle manual payout", err)
	}

	payout.Status = model.PayoutStatusCompleted
	payout.ExternalTransferRef = transferRef
	return payout, nil
}

// NewIdempotencyKey is a small helper callers use to generate the
// request identifiers idempotency checks key off, when the caller
// doesn't already have a natural one.
func NewIdempotencyKey() string {
	return uuid.NewString()
}
