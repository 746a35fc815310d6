package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vpnbill/internal/config"
	directorydomain "github.com/smallbiznis/vpnbill/internal/directory/domain"
	"github.com/smallbiznis/vpnbill/internal/reconcile/domain"
	usagedomain "github.com/smallbiznis/vpnbill/internal/usage/domain"
)

// flatDataCategory is the extra-charge category replaced by a flat rate on
// unlimited-data plans.
const flatDataCategory = "data"

// Computation is one priced subscriber plus the intermediate sums the
// period aggregator folds over. Durations are carried raw so the aggregator
// can pool seconds across subscribers before truncating to minutes; the
// invoice lines truncate per subscriber.
type Computation struct {
	Invoice      domain.Invoice
	InNetwork    time.Duration
	OutOfNetwork time.Duration
	// OutOfNetworkSMS is the billable SMS count before the plan allowance.
	OutOfNetworkSMS int64
	// ExtrasTotal sums the record's extra charges after the flat-data
	// adjustment for unlimited plans, before the substitute line is added.
	ExtrasTotal decimal.Decimal
}

// BuildInvoice prices a single subscriber's usage against its plan. The
// input record is never mutated; extra charges are copied before any
// adjustment. Malformed durations fail the build and leave the subscriber
// to be reported as unresolved.
func BuildInvoice(
	phone string,
	rec usagedomain.UsageRecord,
	account directorydomain.SubscriberAccount,
	plan directorydomain.ServicePlan,
	cfg config.BillingConfig,
) (*Computation, error) {
	inDur, err := usagedomain.ParseDuration(rec.TimeInNetwork)
	if err != nil {
		return nil, fmt.Errorf("in-network duration: %w", err)
	}
	outDur, err := usagedomain.ParseDuration(rec.TimeOutOfNetwork)
	if err != nil {
		return nil, fmt.Errorf("out-of-network duration: %w", err)
	}

	inMinutes := usagedomain.Minutes(inDur)
	outMinutes := usagedomain.Minutes(outDur)

	overMinutes := outMinutes - int64(plan.FreeMinutes)
	if overMinutes < 0 {
		overMinutes = 0
	}

	billableSMS := int64(rec.SMSCount - rec.SMSInNetwork)
	if billableSMS < 0 {
		billableSMS = 0
	}
	overSMS := billableSMS - int64(plan.FreeSMS)
	if overSMS < 0 {
		overSMS = 0
	}

	extras := make(map[string]decimal.Decimal, len(rec.ExtraCharges))
	for category, amount := range rec.ExtraCharges {
		extras[category] = amount
	}
	if plan.UnlimitedData {
		delete(extras, flatDataCategory)
	}
	extrasTotal := decimal.Zero
	for _, amount := range extras {
		extrasTotal = extrasTotal.Add(amount)
	}
	if plan.UnlimitedData {
		extras[flatDataCategory] = cfg.InternetPrice
	}

	items := []domain.LineItem{
		{Label: "free minutes", Quantity: int64(plan.FreeMinutes), Amount: decimal.Zero},
		{Label: "in-network minutes", Quantity: inMinutes, Amount: decimal.Zero},
		{Label: "free sms", Quantity: int64(plan.FreeSMS), Amount: decimal.Zero},
		{Label: "in-network sms", Quantity: int64(rec.SMSInNetwork), Amount: decimal.Zero},
	}
	if overMinutes > 0 {
		items = append(items, domain.LineItem{
			Label:    "extra minutes",
			Quantity: overMinutes,
			Amount:   decimal.NewFromInt(overMinutes).Mul(cfg.MinutePrice),
		})
	}
	if overSMS > 0 {
		items = append(items, domain.LineItem{
			Label:    "extra sms",
			Quantity: overSMS,
			Amount:   decimal.NewFromInt(overSMS).Mul(cfg.SMSPrice),
		})
	}
	if !cfg.ProcessingFee.IsZero() {
		items = append(items, domain.LineItem{
			Label:  "processing fee",
			Amount: cfg.ProcessingFee,
		})
	}

	categories := make([]string, 0, len(extras))
	for category := range extras {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		items = append(items, domain.LineItem{
			Label:  category,
			Amount: extras[category],
		})
	}

	return &Computation{
		Invoice: domain.Invoice{
			Subscriber: phone,
			Account:    account,
			Items:      items,
		},
		InNetwork:       inDur,
		OutOfNetwork:    outDur,
		OutOfNetworkSMS: billableSMS,
		ExtrasTotal:     extrasTotal,
	}, nil
}
