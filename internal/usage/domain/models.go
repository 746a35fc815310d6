// Package domain holds the usage tuples handed over by the carrier bill
// parser, plus the shape validation guarding that boundary.
package domain

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	ErrMalformedRecord = errors.New("malformed_usage_record")
	ErrEmptyBatch      = errors.New("empty_usage_batch")
)

// UsageRecord is one subscriber's metered activity for a billing period.
// Records are immutable once received from the parser.
type UsageRecord struct {
	TimeInNetwork    string                     `json:"time_in_network"`
	TimeOutOfNetwork string                     `json:"time_out_of_network"`
	SMSCount         int                        `json:"sms_count"`
	ExtraCharges     map[string]decimal.Decimal `json:"extra_charges"`
	SMSInNetwork     int                        `json:"sms_in_network"`
}

// UsageBatch maps a subscriber phone number to its usage tuple.
type UsageBatch map[string]UsageRecord

// Validate enforces the parser boundary contract on a single record. The
// duration strings are checked for presence only; their format is validated
// when they are normalized.
func (r UsageRecord) Validate() error {
	if r.TimeInNetwork == "" {
		return fmt.Errorf("%w: time_in_network missing", ErrMalformedRecord)
	}
	if r.TimeOutOfNetwork == "" {
		return fmt.Errorf("%w: time_out_of_network missing", ErrMalformedRecord)
	}
	if r.SMSCount < 0 {
		return fmt.Errorf("%w: sms_count %d is negative", ErrMalformedRecord, r.SMSCount)
	}
	if r.SMSInNetwork < 0 {
		return fmt.Errorf("%w: sms_in_network %d is negative", ErrMalformedRecord, r.SMSInNetwork)
	}
	for category, amount := range r.ExtraCharges {
		if category == "" {
			return fmt.Errorf("%w: extra charge with empty category", ErrMalformedRecord)
		}
		if amount.IsNegative() {
			return fmt.Errorf("%w: extra charge %q is negative", ErrMalformedRecord, category)
		}
	}
	return nil
}

// Validate checks the batch itself; an absent or empty batch is a
// batch-level error, unlike per-record shape violations.
func (b UsageBatch) Validate() error {
	if len(b) == 0 {
		return ErrEmptyBatch
	}
	for phone := range b {
		if phone == "" {
			return fmt.Errorf("%w: empty subscriber number", ErrMalformedRecord)
		}
	}
	return nil
}

// Subscribers returns the batch's phone numbers in stable order.
func (b UsageBatch) Subscribers() []string {
	phones := make([]string, 0, len(b))
	for phone := range b {
		phones = append(phones, phone)
	}
	sort.Strings(phones)
	return phones
}
