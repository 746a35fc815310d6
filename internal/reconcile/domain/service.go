package domain

import (
	"context"
	"errors"
	"regexp"

	usagedomain "github.com/smallbiznis/vpnbill/internal/usage/domain"
)

var (
	ErrInvalidPeriod = errors.New("billing period must be formatted as YYYY-MM")
	ErrNoInvoices    = errors.New("confirmation requires at least one invoice")
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidatePeriod checks the YYYY-MM billing period format.
func ValidatePeriod(period string) error {
	if !periodPattern.MatchString(period) {
		return ErrInvalidPeriod
	}
	return nil
}

// PreviewRequest carries one period's usage batch into a dry run.
type PreviewRequest struct {
	Period string                 `json:"period"`
	Usage  usagedomain.UsageBatch `json:"usage"`
}

func (r PreviewRequest) Validate() error {
	if err := ValidatePeriod(r.Period); err != nil {
		return err
	}
	return r.Usage.Validate()
}

// ConfirmRequest posts the invoices of a previously previewed run. BillURL,
// when set, is included in subscriber notifications.
type ConfirmRequest struct {
	Period   string    `json:"period"`
	BillURL  string    `json:"bill_url,omitempty"`
	Invoices []Invoice `json:"invoices"`
}

func (r ConfirmRequest) Validate() error {
	if err := ValidatePeriod(r.Period); err != nil {
		return err
	}
	if len(r.Invoices) == 0 {
		return ErrNoInvoices
	}
	return nil
}

// Service is the two-phase reconciliation API. Preview never writes;
// Confirm is the only operation with side effects.
type Service interface {
	Preview(ctx context.Context, req PreviewRequest) (*PreviewResult, error)
	Confirm(ctx context.Context, req ConfirmRequest) ([]PostingResult, error)
}
