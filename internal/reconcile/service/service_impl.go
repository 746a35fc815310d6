package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/vpnbill/internal/config"
	directorydomain "github.com/smallbiznis/vpnbill/internal/directory/domain"
	ledgerdomain "github.com/smallbiznis/vpnbill/internal/ledger/domain"
	"github.com/smallbiznis/vpnbill/internal/observability/logger"
	"github.com/smallbiznis/vpnbill/internal/observability/metrics"
	"github.com/smallbiznis/vpnbill/internal/providers/email"
	"github.com/smallbiznis/vpnbill/internal/reconcile/domain"
	usagedomain "github.com/smallbiznis/vpnbill/internal/usage/domain"
)

// previewConcurrency bounds the number of subscribers priced in parallel.
const previewConcurrency = 8

const (
	reasonMalformedDuration = "malformed_duration"
	reasonMalformedRecord   = "malformed_usage_record"
)

type ServiceParam struct {
	fx.In

	Log       *zap.Logger
	Cfg       config.Config
	Billing   *config.BillingConfigHolder
	Directory directorydomain.Directory
	Poster    ledgerdomain.Poster
	Email     email.Provider
	Metrics   *metrics.Metrics
}

type Service struct {
	log      *zap.Logger
	cfg      config.Config
	billing  *config.BillingConfigHolder
	resolver *Resolver
	poster   ledgerdomain.Poster
	notifier *Notifier
	metrics  *metrics.Metrics
}

func New(p ServiceParam) domain.Service {
	return &Service{
		log:      p.Log.Named("reconcile.service"),
		cfg:      p.Cfg,
		billing:  p.Billing,
		resolver: NewResolver(p.Directory),
		poster:   p.Poster,
		notifier: NewNotifier(p.Email),
		metrics:  p.Metrics,
	}
}

type previewOutcome struct {
	comp       *Computation
	unresolved *domain.UnresolvedRecord
	err        error
}

// Preview prices the whole batch without writing anything. Lookup misses
// and malformed durations exclude only the affected subscriber; a
// directory failure aborts the run.
func (s *Service) Preview(ctx context.Context, req domain.PreviewRequest) (*domain.PreviewResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg := s.billing.Get()
	phones := req.Usage.Subscribers()
	outcomes := make([]previewOutcome, len(phones))

	sem := make(chan struct{}, previewConcurrency)
	var wg sync.WaitGroup
	for i, phone := range phones {
		wg.Add(1)
		go func(i int, phone string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = s.previewOne(ctx, phone, req.Usage[phone], cfg)
		}(i, phone)
	}
	wg.Wait()

	result := &domain.PreviewResult{
		Period:     req.Period,
		Invoices:   make([]domain.Invoice, 0, len(phones)),
		Unresolved: []domain.UnresolvedRecord{},
		InvoiceSum: decimal.Zero,
	}
	comps := make([]*Computation, 0, len(phones))
	for _, outcome := range outcomes {
		switch {
		case outcome.err != nil:
			return nil, outcome.err
		case outcome.unresolved != nil:
			s.metrics.UnresolvedRecords.WithLabelValues(outcome.unresolved.Reason).Inc()
			result.Unresolved = append(result.Unresolved, *outcome.unresolved)
		default:
			comps = append(comps, outcome.comp)
			result.Invoices = append(result.Invoices, outcome.comp.Invoice)
			result.InvoiceSum = result.InvoiceSum.Add(outcome.comp.Invoice.Total())
		}
	}
	result.Totals = AggregateTotals(comps, cfg)

	s.metrics.PreviewRuns.Inc()
	s.metrics.InvoicesPriced.Add(float64(len(result.Invoices)))
	logger.FromContext(ctx).Info("preview completed",
		zap.String("period", req.Period),
		zap.Int("invoices", len(result.Invoices)),
		zap.Int("unresolved", len(result.Unresolved)),
		zap.String("invoice_sum", result.InvoiceSum.String()),
		zap.String("estimated_period_price", result.Totals.EstimatedPeriodPrice.String()),
	)
	return result, nil
}

func (s *Service) previewOne(ctx context.Context, phone string, rec usagedomain.UsageRecord, cfg config.BillingConfig) previewOutcome {
	if err := rec.Validate(); err != nil {
		return previewOutcome{unresolved: &domain.UnresolvedRecord{
			Subscriber: phone,
			Reason:     reasonMalformedRecord,
			Detail:     err.Error(),
		}}
	}

	resolution, err := s.resolver.Resolve(ctx, phone)
	if err != nil {
		return previewOutcome{err: fmt.Errorf("resolve %s: %w", phone, err)}
	}
	if resolution.Outcome != domain.OutcomeResolved {
		return previewOutcome{unresolved: &domain.UnresolvedRecord{
			Subscriber: phone,
			Reason:     string(resolution.Outcome),
		}}
	}

	comp, err := BuildInvoice(phone, rec, *resolution.Account, *resolution.Plan, cfg)
	if err != nil {
		return previewOutcome{unresolved: &domain.UnresolvedRecord{
			Subscriber: phone,
			Reason:     reasonMalformedDuration,
			Detail:     err.Error(),
		}}
	}
	return previewOutcome{comp: comp}
}

// Confirm posts the previewed invoices as ledger debits. Postings for
// different accounts run concurrently; postings against the same account
// are serialized. One subscriber's failure never blocks the others.
func (s *Service) Confirm(ctx context.Context, req domain.ConfirmRequest) ([]domain.PostingResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg := s.billing.Get()
	results := make([]domain.PostingResult, len(req.Invoices))

	groups := make(map[snowflake.ID][]int)
	order := make([]snowflake.ID, 0, len(req.Invoices))
	for i, inv := range req.Invoices {
		id := inv.Account.AccountID
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], i)
	}

	var wg sync.WaitGroup
	for _, accountID := range order {
		wg.Add(1)
		go func(indexes []int) {
			defer wg.Done()
			for _, idx := range indexes {
				results[idx] = s.confirmOne(ctx, req, req.Invoices[idx], cfg)
			}
		}(groups[accountID])
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Subscriber < results[j].Subscriber
	})

	for _, res := range results {
		s.metrics.Postings.WithLabelValues(string(res.Status)).Inc()
	}
	logger.FromContext(ctx).Info("confirmation completed",
		zap.String("period", req.Period),
		zap.Int("invoices", len(req.Invoices)),
	)
	return results, nil
}

func (s *Service) confirmOne(ctx context.Context, req domain.ConfirmRequest, inv domain.Invoice, cfg config.BillingConfig) domain.PostingResult {
	amount := inv.Total()
	result := domain.PostingResult{
		Subscriber: inv.Subscriber,
		AccountID:  inv.Account.AccountID,
		Amount:     amount,
	}

	if inv.Account.Internal || int64(inv.Account.BillingOwnerID) == s.cfg.OperatorAccountID {
		result.Status = domain.PostingStatusSkipped
		return result
	}
	if amount.IsZero() {
		result.Status = domain.PostingStatusSkipped
		return result
	}

	confirmation, err := s.poster.PostDebit(ctx, ledgerdomain.DebitRequest{
		AccountID:             inv.Account.AccountID,
		Amount:                amount.Neg(),
		Currency:              cfg.Currency,
		Memo:                  buildMemo(req.Period, inv),
		CounterpartyAccountID: snowflake.ID(s.cfg.OperatorAccountID),
		BillingPeriod:         req.Period,
		IdempotencyKey:        idempotencyKey(inv.Account.AccountID, req.Period),
	})
	if err != nil {
		s.log.Error("posting failed",
			zap.String("subscriber", inv.Subscriber),
			zap.Int64("account_id", int64(inv.Account.AccountID)),
			zap.Error(err),
		)
		result.Status = domain.PostingStatusFailed
		result.Error = err.Error()
		return result
	}

	result.Status = domain.PostingStatusPosted
	result.Confirmation = confirmation
	s.notifyAsync(ctx, req, inv, amount, cfg.Currency)
	return result
}

// notifyAsync sends the charge statement without blocking or failing the
// posting. Delivery problems are logged and counted only.
func (s *Service) notifyAsync(ctx context.Context, req domain.ConfirmRequest, inv domain.Invoice, amount decimal.Decimal, currency string) {
	notifyCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.notifier.NotifyPosted(notifyCtx, req.Period, inv, amount, currency, req.BillURL); err != nil {
			s.metrics.NotifyFailures.Inc()
			s.log.Warn("notification failed",
				zap.String("subscriber", inv.Subscriber),
				zap.Error(err),
			)
		}
	}()
}

func buildMemo(period string, inv domain.Invoice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "usage charges %s for %s", period, inv.Subscriber)
	for _, item := range inv.Items {
		fmt.Fprintf(&b, "\n%s: %s", item.Label, item.Amount.String())
	}
	return b.String()
}

func idempotencyKey(accountID snowflake.ID, period string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s", accountID, period)))
	return hex.EncodeToString(sum[:])
}
