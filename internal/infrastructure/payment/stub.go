// Package payment holds the process's one concrete implementation of
// service.PaymentProcessor. The external payment-intent processor
// itself is out of scope (spec.md §1: "the core consumes only narrow
// interfaces from each" external collaborator) — nothing here talks to
// a real gateway. StubProcessor exists so the server can start and the
// ledger's deposit/payout paths can be exercised end-to-end without a
// live credential; swap it for a real client behind the same interface
// when one is available.
package payment

import (
	"context"
	"fmt"
	"log"

	"github.com/EmilynnJ/ccodeseer/internal/config"

	"github.com/google/uuid"
)

// StubProcessor implements service.PaymentProcessor by logging the
// call and fabricating a deterministic reference, gated by the
// processor secret so it still fails closed if misconfigured.
type StubProcessor struct {
	secret string
}

func NewStubProcessor(cfg *config.PaymentConfig) *StubProcessor {
	return &StubProcessor{secret: cfg.Secret}
}

func (p *StubProcessor) CreateIntent(ctx context.Context, userID string, amountCents int64) (intentID, clientSecret string, err error) {
	if p.secret == "" {
		return "", "", fmt.Errorf("payment: processor secret not configured")
	}
	intentID = "pi_" + uuid.NewString()
	clientSecret = intentID + "_secret"
	log.Printf("[payment] created intent %s for user=%s amount_cents=%d", intentID, userID, amountCents)
	return intentID, clientSecret, nil
}

func (p *StubProcessor) Transfer(ctx context.Context, accountHandle string, amountCents int64) (transferRef string, err error) {
	if p.secret == "" {
		return "", fmt.Errorf("payment: processor secret not configured")
	}
	if accountHandle == "" {
		return "", fmt.Errorf("payment: reader has no external account handle")
	}
	transferRef = "tr_" + uuid.NewString()
	log.Printf("[payment] transferred amount_cents=%d to account=%s ref=%s", amountCents, accountHandle, transferRef)
	return transferRef, nil
}
