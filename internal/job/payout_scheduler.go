package job

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/EmilynnJ/ccodeseer/internal/config"
	"github.com/EmilynnJ/ccodeseer/internal/model"
	"github.com/EmilynnJ/ccodeseer/internal/repository"
	"github.com/EmilynnJ/ccodeseer/internal/service"

	"gorm.io/gorm"
)

// retryHorizon is how old a processing payout row with no transfer ref
// must be before the scheduler treats it as abandoned and sweeps it to
// failed, per spec.md §4.6's idempotent-across-restarts rule.
const retryHorizon = time.Hour

// PayoutScheduler is the Payout Scheduler of spec.md §4.6: a single
// scheduled task, run daily at 02:00 UTC, generalized from the
// reference backend's ticker-loop job shape plus its paying-order
// compensation sweep idiom.
type PayoutScheduler struct {
	db         *gorm.DB
	readerRepo *repository.ReaderRepository
	payoutRepo *repository.PayoutRepository
	ledger     *service.LedgerService
	notify     *service.NotificationService
	processor  service.PaymentProcessor
	minPayout  int64
	stopCh     chan struct{}
}

func NewPayoutScheduler(
	db *gorm.DB,
	ledger *service.LedgerService,
	notify *service.NotificationService,
	processor service.PaymentProcessor,
	business *config.BusinessConfig,
) *PayoutScheduler {
	return &PayoutScheduler{
		db:         db,
		readerRepo: repository.NewReaderRepository(db),
		payoutRepo: repository.NewPayoutRepository(db),
		ledger:     ledger,
		notify:     notify,
		processor:  processor,
		minPayout:  business.MinPayout,
		stopCh:     make(chan struct{}),
	}
}

func (j *PayoutScheduler) Start(ctx context.Context) {
	log.Println("[PayoutScheduler] started")

	for {
		wait := time.Until(nextRunAt(time.Now().UTC()))
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("[PayoutScheduler] stopping: context cancelled")
			return
		case <-j.stopCh:
			timer.Stop()
			log.Println("[PayoutScheduler] stopping: Stop called")
			return
		case <-timer.C:
			j.runOnce(ctx)
		}
	}
}

func (j *PayoutScheduler) Stop() {
	close(j.stopCh)
}

// nextRunAt returns the next 02:00 UTC strictly after now.
func nextRunAt(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), 2, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

func (j *PayoutScheduler) runOnce(ctx context.Context) {
	j.sweepStaleProcessing(ctx)

	readers, err := j.readerRepo.EligibleForPayout(ctx, j.minPayout)
	if err != nil {
		log.Printf("[PayoutScheduler] list eligible readers failed: err=%v", err)
		return
	}
	log.Printf("[PayoutScheduler] %d readers eligible for payout", len(readers))

	for _, reader := range readers {
		j.payoutReader(ctx, reader)
	}
}

func (j *PayoutScheduler) sweepStaleProcessing(ctx context.Context) {
	stale, err := j.payoutRepo.GetStaleProcessing(ctx, time.Now().Add(-retryHorizon))
	if err != nil {
		log.Printf("[PayoutScheduler] list stale processing payouts failed: err=%v", err)
		return
	}
	for _, payout := range stale {
		if err := j.payoutRepo.MarkFailed(ctx, payout.ID, "abandoned: processing with no transfer ref past retry horizon"); err != nil {
			log.Printf("[PayoutScheduler] sweep stale payout failed: id=%d err=%v", payout.ID, err)
		}
	}
}

func (j *PayoutScheduler) payoutReader(ctx context.Context, reader *model.ReaderProfile) {
	amount := reader.PendingBalanceCents

	payout := &model.Payout{
		ReaderID:    reader.UserID,
		AmountCents: amount,
		Status:      model.PayoutStatusProcessing,
	}
	if err := j.payoutRepo.Create(ctx, nil, payout); err != nil {
		log.Printf("[PayoutScheduler] create payout row failed: reader=%s err=%v", reader.UserID, err)
		return
	}

	transferRef, err := j.processor.Transfer(ctx, reader.ExternalAccountHandle, amount)
	if err != nil {
		j.failPayout(ctx, reader.UserID, payout.ID, err)
		return
	}

	err = j.db.Transaction(func(tx *gorm.DB) error {
		if err := j.ledger.RecordPayout(ctx, tx, reader.UserID, amount, transferRef); err != nil {
			return fmt.Errorf("record payout: %w", err)
		}
		return j.payoutRepo.MarkCompleted(ctx, tx, payout.ID, transferRef)
	})
	if err != nil {
		j.failPayout(ctx, reader.UserID, payout.ID, err)
		return
	}

	log.Printf("[PayoutScheduler] paid out reader=%s amount_cents=%d ref=%s", reader.UserID, amount, transferRef)
}

func (j *PayoutScheduler) failPayout(ctx context.Context, readerID string, payoutID int64, cause error) {
	log.Printf("[PayoutScheduler] payout failed: reader=%s payout_id=%d err=%v", readerID, payoutID, cause)
	if err := j.payoutRepo.MarkFailed(ctx, payoutID, cause.Error()); err != nil {
		log.Printf("[PayoutScheduler] mark payout failed failed: id=%d err=%v", payoutID, err)
	}
	if err := j.notify.Notify(ctx, readerID, model.NotificationPayoutFailed, "Payout failed",
		"Your scheduled payout could not be completed and will be retried.", ""); err != nil {
		log.Printf("[PayoutScheduler] notify payout failure failed: reader=%s err=%v", readerID, err)
	}
}
