package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAggregateTotalsUnderThresholds(t *testing.T) {
	comps := []*Computation{
		{InNetwork: 100 * time.Minute, OutOfNetwork: 2000 * time.Minute, OutOfNetworkSMS: 300, ExtrasTotal: decimal.NewFromInt(50)},
		{InNetwork: 200 * time.Minute, OutOfNetwork: 1000 * time.Minute, OutOfNetworkSMS: 200, ExtrasTotal: decimal.NewFromInt(25)},
	}

	totals := AggregateTotals(comps, testBillingConfig())

	assert.Equal(t, int64(300), totals.InNetworkMinutes)
	assert.Equal(t, int64(3000), totals.OutOfNetworkMinutes)
	assert.Equal(t, int64(500), totals.OutOfNetworkSMS)
	assert.True(t, totals.ExtraCharges.Equal(decimal.NewFromInt(75)))

	// Pooled usage stays inside both thresholds, so the estimate is the
	// base fee plus extras.
	assert.True(t, totals.EstimatedPeriodPrice.Equal(decimal.NewFromInt(5601)),
		"estimate = %s", totals.EstimatedPeriodPrice)
}

func TestAggregateTotalsOverThresholds(t *testing.T) {
	comps := []*Computation{
		{OutOfNetwork: 3000 * time.Minute, OutOfNetworkSMS: 700, ExtrasTotal: decimal.NewFromInt(10)},
		{OutOfNetwork: 2100 * time.Minute, OutOfNetworkSMS: 350, ExtrasTotal: decimal.Zero},
	}

	totals := AggregateTotals(comps, testBillingConfig())

	// 100 minutes over 5000 at 1.5 and 50 SMS over 1000 at 1.
	// 5526 + 10 + 150 + 50 = 5736.
	assert.True(t, totals.EstimatedPeriodPrice.Equal(decimal.NewFromInt(5736)),
		"estimate = %s", totals.EstimatedPeriodPrice)
}

func TestAggregateTotalsPoolsSecondsBeforeTruncation(t *testing.T) {
	// Each subscriber alone is under a minute, but the pooled 120 seconds
	// are two whole minutes at the period level.
	comps := []*Computation{
		{OutOfNetwork: 40 * time.Second, ExtrasTotal: decimal.Zero},
		{OutOfNetwork: 40 * time.Second, ExtrasTotal: decimal.Zero},
		{OutOfNetwork: 40 * time.Second, ExtrasTotal: decimal.Zero},
	}

	totals := AggregateTotals(comps, testBillingConfig())

	assert.Equal(t, int64(2), totals.OutOfNetworkMinutes)

	// The same pooling applies in-network and to the threshold surplus.
	comps = []*Computation{
		{InNetwork: 90 * time.Second, OutOfNetwork: 5000*time.Minute + 30*time.Second, ExtrasTotal: decimal.Zero},
		{InNetwork: 90 * time.Second, OutOfNetwork: 30 * time.Second, ExtrasTotal: decimal.Zero},
	}
	totals = AggregateTotals(comps, testBillingConfig())

	assert.Equal(t, int64(3), totals.InNetworkMinutes)
	assert.Equal(t, int64(5001), totals.OutOfNetworkMinutes)
	// One pooled minute over the 5000 threshold at 1.5.
	assert.True(t, totals.EstimatedPeriodPrice.Equal(decimal.RequireFromString("5527.5")),
		"estimate = %s", totals.EstimatedPeriodPrice)
}

func TestAggregateTotalsEmpty(t *testing.T) {
	totals := AggregateTotals(nil, testBillingConfig())

	assert.Equal(t, int64(0), totals.InNetworkMinutes)
	assert.Equal(t, int64(0), totals.OutOfNetworkMinutes)
	assert.Equal(t, int64(0), totals.OutOfNetworkSMS)
	assert.True(t, totals.ExtraCharges.IsZero())
	assert.True(t, totals.EstimatedPeriodPrice.Equal(decimal.NewFromInt(5526)))
}
