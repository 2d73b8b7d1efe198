package model

import "time"

const (
	TransactionTypeDeposit        = "deposit"
	TransactionTypeReadingPayment = "reading_payment"
	TransactionTypeReadingEarning = "reading_earning"
	TransactionTypePayout         = "payout"
	TransactionTypeRefund         = "refund"
	TransactionTypeGift           = "gift"
	TransactionTypeShopPurchase   = "shop_purchase"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusRefunded  = "refunded"
)

// Transaction is an append-only journal row. Content is immutable
// after creation; only Status is ever mutated (e.g. completed ->
// refunded), mirroring the reference backend's account-transaction
// table, which this generalizes from a single Type/Amount pair into
// the richer taxonomy of spec.md §3.
type Transaction struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalRef        string    `gorm:"type:varchar(128);index" json:"external_ref,omitempty"`
	UserID            string    `gorm:"type:varchar(64);index;not null" json:"user_id"`
	SessionID         string    `gorm:"type:varchar(36);index" json:"session_id,omitempty"`
	Type              string    `gorm:"type:varchar(24);index;not null" json:"type"`
	AmountCents       int64     `gorm:"not null" json:"amount_cents"`
	FeeCents          int64     `gorm:"not null;default:0" json:"fee_cents"`
	NetAmountCents    int64     `gorm:"not null" json:"net_amount_cents"`
	Status            string    `gorm:"type:varchar(16);index;not null" json:"status"`
	ExternalProcessor string    `gorm:"type:varchar(128)" json:"external_processor_ref,omitempty"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Transaction) TableName() string { return "account_transaction" }
