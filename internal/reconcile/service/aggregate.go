package service

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vpnbill/internal/config"
	"github.com/smallbiznis/vpnbill/internal/reconcile/domain"
	usagedomain "github.com/smallbiznis/vpnbill/internal/usage/domain"
)

// AggregateTotals folds resolved computations into period-wide sums and an
// independent top-down price estimate. Durations are pooled raw and
// truncated to minutes once per total, so seconds that only cross a minute
// boundary in aggregate still count. The estimate starts from the base
// period fee, adds every subscriber's adjusted extra charges, and adds
// overage only for the part of the pooled usage above the period-wide
// allowance thresholds.
func AggregateTotals(comps []*Computation, cfg config.BillingConfig) domain.PeriodTotals {
	var inNetwork, outOfNetwork time.Duration
	totals := domain.PeriodTotals{ExtraCharges: decimal.Zero}
	for _, comp := range comps {
		inNetwork += comp.InNetwork
		outOfNetwork += comp.OutOfNetwork
		totals.OutOfNetworkSMS += comp.OutOfNetworkSMS
		totals.ExtraCharges = totals.ExtraCharges.Add(comp.ExtrasTotal)
	}
	totals.InNetworkMinutes = usagedomain.Minutes(inNetwork)
	totals.OutOfNetworkMinutes = usagedomain.Minutes(outOfNetwork)

	estimate := cfg.BasePeriodFee.Add(totals.ExtraCharges)
	if surplus := totals.OutOfNetworkMinutes - int64(cfg.FreeMinsCount); surplus > 0 {
		estimate = estimate.Add(decimal.NewFromInt(surplus).Mul(cfg.MinutePrice))
	}
	if surplus := totals.OutOfNetworkSMS - int64(cfg.FreeSMSCount); surplus > 0 {
		estimate = estimate.Add(decimal.NewFromInt(surplus).Mul(cfg.SMSPrice))
	}
	totals.EstimatedPeriodPrice = estimate
	return totals
}
