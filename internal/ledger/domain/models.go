// Package domain contains persistence models for ledger postings.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Posting is one debit recorded against a subscriber account. Negative
// amounts are debits; the idempotency key makes a replayed submission settle
// on the original row.
type Posting struct {
	ID                    snowflake.ID      `json:"id" gorm:"primaryKey"`
	AccountID             snowflake.ID      `json:"account_id" gorm:"not null;index"`
	Amount                decimal.Decimal   `json:"amount" gorm:"type:decimal(20,6);not null"`
	Currency              string            `json:"currency" gorm:"type:text;not null"`
	Memo                  string            `json:"memo" gorm:"type:text;not null"`
	CounterpartyAccountID snowflake.ID      `json:"counterparty_account_id" gorm:"not null"`
	BillingPeriod         string            `json:"billing_period" gorm:"type:text;not null;index"`
	IdempotencyKey        string            `json:"idempotency_key" gorm:"type:text;not null;uniqueIndex:ux_postings_idempotency_key"`
	Metadata              datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	CreatedAt             time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Posting) TableName() string { return "ledger_postings" }

// PostingConfirmation acknowledges a debit submission. Duplicate is set when
// the idempotency key matched an earlier posting and no new debit was made.
type PostingConfirmation struct {
	PostingID     snowflake.ID    `json:"posting_id"`
	AccountID     snowflake.ID    `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	BillingPeriod string          `json:"billing_period"`
	Duplicate     bool            `json:"duplicate"`
	PostedAt      time.Time       `json:"posted_at"`
}
