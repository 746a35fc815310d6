package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/smallbiznis/vpnbill/internal/config"
	directorydomain "github.com/smallbiznis/vpnbill/internal/directory/domain"
	usagedomain "github.com/smallbiznis/vpnbill/internal/usage/domain"
)

func testBillingConfig() config.BillingConfig {
	return config.BillingConfig{
		FreeMinsCount: 5000,
		FreeSMSCount:  1000,
		MinutePrice:   decimal.RequireFromString("1.5"),
		SMSPrice:      decimal.NewFromInt(1),
		InternetPrice: decimal.NewFromInt(66),
		ProcessingFee: decimal.Zero,
		BasePeriodFee: decimal.NewFromInt(5526),
		Currency:      "CZK",
	}
}

func testAccount(phone string) directorydomain.SubscriberAccount {
	return directorydomain.SubscriberAccount{
		AccountID:      snowflake.ID(1001),
		BillingOwnerID: snowflake.ID(2001),
		Phone:          phone,
		Email:          "owner@example.com",
	}
}

func meteredPlan(freeMinutes, freeSMS int) directorydomain.ServicePlan {
	return directorydomain.ServicePlan{
		ID:          snowflake.ID(3001),
		OwnerID:     snowflake.ID(2001),
		FreeMinutes: freeMinutes,
		FreeSMS:     freeSMS,
	}
}

func TestBuildInvoiceOverages(t *testing.T) {
	rec := usagedomain.UsageRecord{
		TimeInNetwork:    "10:00:00",
		TimeOutOfNetwork: "20:00:00",
		SMSCount:         50,
		SMSInNetwork:     5,
		ExtraCharges:     map[string]decimal.Decimal{"roaming": decimal.NewFromInt(10)},
	}

	comp, err := BuildInvoice("+420777111222", rec, testAccount("+420777111222"), meteredPlan(1000, 40), testBillingConfig())
	assert.NoError(t, err)

	labels := make([]string, 0, len(comp.Invoice.Items))
	for _, item := range comp.Invoice.Items {
		labels = append(labels, item.Label)
	}
	assert.Equal(t, []string{
		"free minutes",
		"in-network minutes",
		"free sms",
		"in-network sms",
		"extra minutes",
		"extra sms",
		"roaming",
	}, labels)

	// 200 overage minutes at 1.5, 5 overage SMS at 1, roaming 10.
	assert.True(t, comp.Invoice.Total().Equal(decimal.NewFromInt(315)),
		"total = %s", comp.Invoice.Total())

	extraMinutes := comp.Invoice.Items[4]
	assert.Equal(t, int64(200), extraMinutes.Quantity)
	assert.True(t, extraMinutes.Amount.Equal(decimal.NewFromInt(300)))

	extraSMS := comp.Invoice.Items[5]
	assert.Equal(t, int64(5), extraSMS.Quantity)
	assert.True(t, extraSMS.Amount.Equal(decimal.NewFromInt(5)))

	assert.Equal(t, 10*time.Hour, comp.InNetwork)
	assert.Equal(t, 20*time.Hour, comp.OutOfNetwork)
	assert.Equal(t, int64(45), comp.OutOfNetworkSMS)
	assert.True(t, comp.ExtrasTotal.Equal(decimal.NewFromInt(10)))
}

func TestBuildInvoiceUnderAllowances(t *testing.T) {
	rec := usagedomain.UsageRecord{
		TimeInNetwork:    "1:00:00",
		TimeOutOfNetwork: "2:00:00",
		SMSCount:         10,
		SMSInNetwork:     10,
	}

	comp, err := BuildInvoice("+420777111222", rec, testAccount("+420777111222"), meteredPlan(1000, 40), testBillingConfig())
	assert.NoError(t, err)

	// Only the four informational lines, all zero.
	assert.Len(t, comp.Invoice.Items, 4)
	assert.True(t, comp.Invoice.Total().IsZero())
}

func TestBuildInvoiceSMSInNetworkExceedsCount(t *testing.T) {
	// More in-network SMS than total SMS clamps billable SMS at zero
	// instead of going negative.
	rec := usagedomain.UsageRecord{
		TimeInNetwork:    "0:10:00",
		TimeOutOfNetwork: "0:10:00",
		SMSCount:         3,
		SMSInNetwork:     10,
	}

	comp, err := BuildInvoice("+420777111222", rec, testAccount("+420777111222"), meteredPlan(1000, 40), testBillingConfig())
	assert.NoError(t, err)

	assert.Equal(t, int64(0), comp.OutOfNetworkSMS)
	assert.True(t, comp.Invoice.Total().IsZero())
	for _, item := range comp.Invoice.Items {
		assert.NotEqual(t, "extra sms", item.Label)
		assert.GreaterOrEqual(t, item.Quantity, int64(0))
		assert.False(t, item.Amount.IsNegative())
	}
}

func TestBuildInvoiceUnlimitedDataSubstitution(t *testing.T) {
	rec := usagedomain.UsageRecord{
		TimeInNetwork:    "0:10:00",
		TimeOutOfNetwork: "0:10:00",
		ExtraCharges: map[string]decimal.Decimal{
			"data":    decimal.NewFromInt(40),
			"roaming": decimal.NewFromInt(10),
		},
	}

	plan := meteredPlan(1000, 40)
	plan.UnlimitedData = true

	comp, err := BuildInvoice("+420777111222", rec, testAccount("+420777111222"), plan, testBillingConfig())
	assert.NoError(t, err)

	dataLines := 0
	var dataAmount decimal.Decimal
	for _, item := range comp.Invoice.Items {
		if item.Label == "data" {
			dataLines++
			dataAmount = item.Amount
		}
	}
	assert.Equal(t, 1, dataLines)
	assert.True(t, dataAmount.Equal(decimal.NewFromInt(66)))

	// Metered data is excluded from the extras total once the flat rate
	// replaces it.
	assert.True(t, comp.ExtrasTotal.Equal(decimal.NewFromInt(10)))

	// The source record stays untouched.
	assert.True(t, rec.ExtraCharges["data"].Equal(decimal.NewFromInt(40)))
}

func TestBuildInvoiceMeteredDataKept(t *testing.T) {
	rec := usagedomain.UsageRecord{
		TimeInNetwork:    "0:10:00",
		TimeOutOfNetwork: "0:10:00",
		ExtraCharges:     map[string]decimal.Decimal{"data": decimal.NewFromInt(40)},
	}

	comp, err := BuildInvoice("+420777111222", rec, testAccount("+420777111222"), meteredPlan(1000, 40), testBillingConfig())
	assert.NoError(t, err)

	assert.True(t, comp.Invoice.Total().Equal(decimal.NewFromInt(40)))
	assert.True(t, comp.ExtrasTotal.Equal(decimal.NewFromInt(40)))
}

func TestBuildInvoiceProcessingFee(t *testing.T) {
	cfg := testBillingConfig()
	cfg.ProcessingFee = decimal.NewFromInt(30)

	rec := usagedomain.UsageRecord{
		TimeInNetwork:    "0:10:00",
		TimeOutOfNetwork: "0:10:00",
		ExtraCharges:     map[string]decimal.Decimal{"roaming": decimal.NewFromInt(10)},
	}

	comp, err := BuildInvoice("+420777111222", rec, testAccount("+420777111222"), meteredPlan(1000, 40), cfg)
	assert.NoError(t, err)

	// Fee sits between the informational lines and the extras.
	assert.Equal(t, "processing fee", comp.Invoice.Items[4].Label)
	assert.Equal(t, "roaming", comp.Invoice.Items[5].Label)
	assert.True(t, comp.Invoice.Total().Equal(decimal.NewFromInt(40)))
}

func TestBuildInvoiceMalformedDuration(t *testing.T) {
	rec := usagedomain.UsageRecord{
		TimeInNetwork:    "10:00",
		TimeOutOfNetwork: "0:10:00",
	}

	_, err := BuildInvoice("+420777111222", rec, testAccount("+420777111222"), meteredPlan(1000, 40), testBillingConfig())
	assert.ErrorIs(t, err, usagedomain.ErrMalformedDuration)
}
