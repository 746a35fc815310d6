// Package domain defines the reconciliation engine's invoice and posting
// models.
package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	directorydomain "github.com/smallbiznis/vpnbill/internal/directory/domain"
	ledgerdomain "github.com/smallbiznis/vpnbill/internal/ledger/domain"
)

// LineItem is one priced line on a subscriber invoice. Quantity is display
// only; the invoice total is the sum of amounts.
type LineItem struct {
	Label    string          `json:"label"`
	Quantity int64           `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// Invoice is one subscriber's itemized bill for a period. Items keep their
// insertion order; that order is the display/print order.
type Invoice struct {
	Subscriber string                              `json:"subscriber"`
	Account    directorydomain.SubscriberAccount   `json:"account"`
	Items      []LineItem                          `json:"items"`
}

// Total sums all line item amounts.
func (i Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range i.Items {
		total = total.Add(item.Amount)
	}
	return total
}

// ResolutionOutcome tags an allowance lookup result.
type ResolutionOutcome string

const (
	OutcomeResolved        ResolutionOutcome = "resolved"
	OutcomeAccountNotFound ResolutionOutcome = "account_not_found"
	OutcomePlanNotFound    ResolutionOutcome = "plan_not_found"
)

// Resolution is the tagged result of resolving a subscriber to its account
// and plan. Account and Plan are set only when Outcome is OutcomeResolved.
type Resolution struct {
	Outcome ResolutionOutcome
	Account *directorydomain.SubscriberAccount
	Plan    *directorydomain.ServicePlan
}

// UnresolvedRecord surfaces a usage record that was excluded from pricing.
type UnresolvedRecord struct {
	Subscriber string `json:"subscriber"`
	Reason     string `json:"reason"`
	Detail     string `json:"detail,omitempty"`
}

// PeriodTotals are the period-wide sums and the independent top-down price
// estimate used as a sanity cross-check against the carrier's bill.
type PeriodTotals struct {
	InNetworkMinutes    int64 `json:"in_network_minutes"`
	OutOfNetworkMinutes int64 `json:"out_of_network_minutes"`
	// OutOfNetworkSMS counts billable (non-private-network) SMS before any
	// allowance is applied.
	OutOfNetworkSMS      int64           `json:"out_of_network_sms"`
	ExtraCharges         decimal.Decimal `json:"extra_charges"`
	EstimatedPeriodPrice decimal.Decimal `json:"estimated_period_price"`
}

// PreviewResult is the side-effect-free half of a reconciliation run.
// InvoiceSum and Totals.EstimatedPeriodPrice are expected to be close but
// are not required to be equal; both are exposed for operator comparison.
type PreviewResult struct {
	Period     string             `json:"period"`
	Invoices   []Invoice          `json:"invoices"`
	Unresolved []UnresolvedRecord `json:"unresolved"`
	Totals     PeriodTotals       `json:"totals"`
	InvoiceSum decimal.Decimal    `json:"invoice_sum"`
}

// PostingStatus tags the outcome of one subscriber's ledger posting.
type PostingStatus string

const (
	PostingStatusPosted  PostingStatus = "posted"
	PostingStatusSkipped PostingStatus = "skipped"
	PostingStatusFailed  PostingStatus = "failed"
)

// PostingResult reports one subscriber's confirmation outcome. Failures are
// isolated; the caller may re-run Confirm with just the failed subset.
type PostingResult struct {
	Subscriber   string                             `json:"subscriber"`
	AccountID    snowflake.ID                       `json:"account_id"`
	Status       PostingStatus                      `json:"status"`
	Amount       decimal.Decimal                    `json:"amount"`
	Confirmation *ledgerdomain.PostingConfirmation  `json:"confirmation,omitempty"`
	Error        string                             `json:"error,omitempty"`
}
