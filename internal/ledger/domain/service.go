package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// DebitRequest submits one debit against a subscriber account.
type DebitRequest struct {
	AccountID             snowflake.ID
	Amount                decimal.Decimal // negative = debit
	Currency              string
	Memo                  string
	CounterpartyAccountID snowflake.ID
	BillingPeriod         string
	IdempotencyKey        string
}

// Poster is the ledger collaborator boundary.
type Poster interface {
	PostDebit(ctx context.Context, req DebitRequest) (*PostingConfirmation, error)
}

// Lister exposes posted debits for operator review.
type Lister interface {
	ListByAccount(ctx context.Context, accountID snowflake.ID, pageToken string, pageSize int) ([]Posting, string, error)
}

var (
	ErrInvalidAccount        = errors.New("invalid_account")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidCurrency       = errors.New("invalid_currency")
	ErrInvalidIdempotencyKey = errors.New("invalid_idempotency_key")
)

func (r DebitRequest) Validate() error {
	if r.AccountID == 0 {
		return ErrInvalidAccount
	}
	if !r.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if r.Currency == "" {
		return ErrInvalidCurrency
	}
	if r.IdempotencyKey == "" {
		return ErrInvalidIdempotencyKey
	}
	return nil
}
