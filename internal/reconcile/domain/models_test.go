package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidatePeriod(t *testing.T) {
	for _, period := range []string{"2025-01", "2025-08", "1999-12"} {
		assert.NoError(t, ValidatePeriod(period), period)
	}
	for _, period := range []string{"", "2025-13", "2025-00", "2025/08", "25-08", "2025-8", "2025-08-01"} {
		assert.ErrorIs(t, ValidatePeriod(period), ErrInvalidPeriod, period)
	}
}

func TestInvoiceTotal(t *testing.T) {
	inv := Invoice{
		Items: []LineItem{
			{Label: "free minutes", Amount: decimal.Zero},
			{Label: "extra minutes", Amount: decimal.RequireFromString("300")},
			{Label: "extra sms", Amount: decimal.RequireFromString("5")},
			{Label: "roaming", Amount: decimal.RequireFromString("10")},
		},
	}
	assert.True(t, inv.Total().Equal(decimal.NewFromInt(315)))

	assert.True(t, Invoice{}.Total().IsZero())
}

func TestConfirmRequestValidate(t *testing.T) {
	assert.ErrorIs(t, ConfirmRequest{Period: "bad", Invoices: []Invoice{{}}}.Validate(), ErrInvalidPeriod)
	assert.ErrorIs(t, ConfirmRequest{Period: "2025-08"}.Validate(), ErrNoInvoices)
	assert.NoError(t, ConfirmRequest{Period: "2025-08", Invoices: []Invoice{{}}}.Validate())
}
