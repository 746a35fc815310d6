package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/smallbiznis/vpnbill/internal/config"
	directorydomain "github.com/smallbiznis/vpnbill/internal/directory/domain"
	ledgerdomain "github.com/smallbiznis/vpnbill/internal/ledger/domain"
	"github.com/smallbiznis/vpnbill/internal/observability/metrics"
	"github.com/smallbiznis/vpnbill/internal/providers/email"
	"github.com/smallbiznis/vpnbill/internal/reconcile/domain"
	usagedomain "github.com/smallbiznis/vpnbill/internal/usage/domain"
)

// -- Mocks --

type directoryMock struct {
	mock.Mock
}

func (m *directoryMock) LookupAccountByPhone(ctx context.Context, phone string) (*directorydomain.SubscriberAccount, error) {
	args := m.Called(ctx, phone)
	if acc := args.Get(0); acc != nil {
		return acc.(*directorydomain.SubscriberAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *directoryMock) LookupPlanByOwner(ctx context.Context, ownerID int64) (*directorydomain.ServicePlan, error) {
	args := m.Called(ctx, ownerID)
	if plan := args.Get(0); plan != nil {
		return plan.(*directorydomain.ServicePlan), args.Error(1)
	}
	return nil, args.Error(1)
}

type posterMock struct {
	mock.Mock
}

func (m *posterMock) PostDebit(ctx context.Context, req ledgerdomain.DebitRequest) (*ledgerdomain.PostingConfirmation, error) {
	args := m.Called(ctx, req)
	if conf := args.Get(0); conf != nil {
		return conf.(*ledgerdomain.PostingConfirmation), args.Error(1)
	}
	return nil, args.Error(1)
}

type capturingProvider struct {
	sent chan email.Message
}

func (p *capturingProvider) Send(ctx context.Context, msg email.Message) error {
	p.sent <- msg
	return nil
}

// -- Helpers --

func newTestService(t *testing.T, dir directorydomain.Directory, poster ledgerdomain.Poster, provider email.Provider) domain.Service {
	t.Helper()

	m, err := metrics.New()
	assert.NoError(t, err)
	if provider == nil {
		provider = &email.NoOpProvider{}
	}

	return New(ServiceParam{
		Log:       zap.NewNop(),
		Cfg:       config.Config{OperatorAccountID: 9999},
		Billing:   config.NewStaticBillingConfigHolder(testBillingConfig()),
		Directory: dir,
		Poster:    poster,
		Email:     provider,
		Metrics:   m,
	})
}

func account(id, owner int64, phone string) *directorydomain.SubscriberAccount {
	return &directorydomain.SubscriberAccount{
		AccountID:      snowflake.ID(id),
		BillingOwnerID: snowflake.ID(owner),
		Phone:          phone,
		Email:          "owner@example.com",
	}
}

func plan(owner int64) *directorydomain.ServicePlan {
	return &directorydomain.ServicePlan{
		ID:          snowflake.ID(owner + 10000),
		OwnerID:     snowflake.ID(owner),
		FreeMinutes: 100,
		FreeSMS:     10,
	}
}

// -- Preview --

func TestPreviewMixedOutcomes(t *testing.T) {
	dir := &directoryMock{}
	dir.On("LookupAccountByPhone", mock.Anything, "+420111").Return(account(1, 10, "+420111"), nil)
	dir.On("LookupPlanByOwner", mock.Anything, int64(10)).Return(plan(10), nil)
	dir.On("LookupAccountByPhone", mock.Anything, "+420222").Return(nil, nil)
	dir.On("LookupAccountByPhone", mock.Anything, "+420333").Return(account(3, 30, "+420333"), nil)
	dir.On("LookupPlanByOwner", mock.Anything, int64(30)).Return(nil, nil)

	poster := &posterMock{}
	svc := newTestService(t, dir, poster, nil)

	result, err := svc.Preview(context.Background(), domain.PreviewRequest{
		Period: "2025-08",
		Usage: usagedomain.UsageBatch{
			"+420111": {TimeInNetwork: "1:00:00", TimeOutOfNetwork: "3:00:00", SMSCount: 15},
			"+420222": {TimeInNetwork: "0:10:00", TimeOutOfNetwork: "0:10:00"},
			"+420333": {TimeInNetwork: "0:10:00", TimeOutOfNetwork: "0:10:00"},
		},
	})
	assert.NoError(t, err)

	assert.Len(t, result.Invoices, 1)
	assert.Equal(t, "+420111", result.Invoices[0].Subscriber)
	// 80 overage minutes at 1.5 plus 5 overage SMS at 1.
	assert.True(t, result.Invoices[0].Total().Equal(decimal.NewFromInt(125)),
		"total = %s", result.Invoices[0].Total())
	assert.True(t, result.InvoiceSum.Equal(decimal.NewFromInt(125)))

	assert.Len(t, result.Unresolved, 2)
	reasons := map[string]string{}
	for _, u := range result.Unresolved {
		reasons[u.Subscriber] = u.Reason
	}
	assert.Equal(t, "account_not_found", reasons["+420222"])
	assert.Equal(t, "plan_not_found", reasons["+420333"])

	// Only the resolved subscriber contributes to the totals.
	assert.Equal(t, int64(180), result.Totals.OutOfNetworkMinutes)
	assert.Equal(t, int64(15), result.Totals.OutOfNetworkSMS)

	poster.AssertNotCalled(t, "PostDebit")
}

func TestPreviewMalformedDurationIsolated(t *testing.T) {
	dir := &directoryMock{}
	dir.On("LookupAccountByPhone", mock.Anything, mock.Anything).Return(account(1, 10, "+420111"), nil)
	dir.On("LookupPlanByOwner", mock.Anything, mock.Anything).Return(plan(10), nil)

	svc := newTestService(t, dir, &posterMock{}, nil)

	result, err := svc.Preview(context.Background(), domain.PreviewRequest{
		Period: "2025-08",
		Usage: usagedomain.UsageBatch{
			"+420111": {TimeInNetwork: "not-a-duration", TimeOutOfNetwork: "0:10:00"},
			"+420444": {TimeInNetwork: "0:10:00", TimeOutOfNetwork: "0:10:00"},
		},
	})
	assert.NoError(t, err)

	assert.Len(t, result.Invoices, 1)
	assert.Equal(t, "+420444", result.Invoices[0].Subscriber)
	assert.Len(t, result.Unresolved, 1)
	assert.Equal(t, "+420111", result.Unresolved[0].Subscriber)
	assert.Equal(t, "malformed_duration", result.Unresolved[0].Reason)
}

func TestPreviewValidation(t *testing.T) {
	svc := newTestService(t, &directoryMock{}, &posterMock{}, nil)

	_, err := svc.Preview(context.Background(), domain.PreviewRequest{Period: "2025/08"})
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)

	_, err = svc.Preview(context.Background(), domain.PreviewRequest{Period: "2025-08"})
	assert.ErrorIs(t, err, usagedomain.ErrEmptyBatch)
}

func TestPreviewDirectoryFailureAborts(t *testing.T) {
	dir := &directoryMock{}
	dir.On("LookupAccountByPhone", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	svc := newTestService(t, dir, &posterMock{}, nil)

	_, err := svc.Preview(context.Background(), domain.PreviewRequest{
		Period: "2025-08",
		Usage: usagedomain.UsageBatch{
			"+420111": {TimeInNetwork: "0:10:00", TimeOutOfNetwork: "0:10:00"},
		},
	})
	assert.Error(t, err)
}

// -- Confirm --

func confirmInvoice(acc *directorydomain.SubscriberAccount, amount int64) domain.Invoice {
	return domain.Invoice{
		Subscriber: acc.Phone,
		Account:    *acc,
		Items: []domain.LineItem{
			{Label: "extra minutes", Quantity: amount, Amount: decimal.NewFromInt(amount)},
		},
	}
}

func TestConfirmPostsDebits(t *testing.T) {
	acc := account(1001, 10, "+420111")
	poster := &posterMock{}
	poster.On("PostDebit", mock.Anything, mock.MatchedBy(func(req ledgerdomain.DebitRequest) bool {
		return req.AccountID == acc.AccountID &&
			req.Amount.Equal(decimal.NewFromInt(-150)) &&
			req.Currency == "CZK" &&
			req.BillingPeriod == "2025-08" &&
			req.CounterpartyAccountID == snowflake.ID(9999) &&
			req.IdempotencyKey == idempotencyKey(acc.AccountID, "2025-08")
	})).Return(&ledgerdomain.PostingConfirmation{
		PostingID: snowflake.ID(5),
	}, nil)

	svc := newTestService(t, &directoryMock{}, poster, nil)

	results, err := svc.Confirm(context.Background(), domain.ConfirmRequest{
		Period:   "2025-08",
		Invoices: []domain.Invoice{confirmInvoice(acc, 150)},
	})
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, domain.PostingStatusPosted, results[0].Status)
	assert.NotNil(t, results[0].Confirmation)
	poster.AssertExpectations(t)
}

func TestConfirmSkipsExemptAccounts(t *testing.T) {
	internal := account(1, 10, "+420111")
	internal.Internal = true
	operatorOwned := account(2, 9999, "+420222")

	poster := &posterMock{}
	svc := newTestService(t, &directoryMock{}, poster, nil)

	results, err := svc.Confirm(context.Background(), domain.ConfirmRequest{
		Period: "2025-08",
		Invoices: []domain.Invoice{
			confirmInvoice(internal, 100),
			confirmInvoice(operatorOwned, 100),
		},
	})
	assert.NoError(t, err)
	assert.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, domain.PostingStatusSkipped, res.Status)
	}
	poster.AssertNotCalled(t, "PostDebit")
}

func TestConfirmIsolatesFailures(t *testing.T) {
	good := account(1, 10, "+420111")
	bad := account(2, 20, "+420222")

	poster := &posterMock{}
	poster.On("PostDebit", mock.Anything, mock.MatchedBy(func(req ledgerdomain.DebitRequest) bool {
		return req.AccountID == good.AccountID
	})).Return(&ledgerdomain.PostingConfirmation{}, nil)
	poster.On("PostDebit", mock.Anything, mock.MatchedBy(func(req ledgerdomain.DebitRequest) bool {
		return req.AccountID == bad.AccountID
	})).Return(nil, errors.New("ledger unavailable"))

	svc := newTestService(t, &directoryMock{}, poster, nil)

	results, err := svc.Confirm(context.Background(), domain.ConfirmRequest{
		Period: "2025-08",
		Invoices: []domain.Invoice{
			confirmInvoice(good, 100),
			confirmInvoice(bad, 100),
		},
	})
	assert.NoError(t, err)
	assert.Len(t, results, 2)

	byPhone := map[string]domain.PostingResult{}
	for _, res := range results {
		byPhone[res.Subscriber] = res
	}
	assert.Equal(t, domain.PostingStatusPosted, byPhone["+420111"].Status)
	assert.Equal(t, domain.PostingStatusFailed, byPhone["+420222"].Status)
	assert.Contains(t, byPhone["+420222"].Error, "ledger unavailable")
}

func TestConfirmSendsNotification(t *testing.T) {
	acc := account(1, 10, "+420111")
	poster := &posterMock{}
	poster.On("PostDebit", mock.Anything, mock.Anything).Return(&ledgerdomain.PostingConfirmation{}, nil)

	provider := &capturingProvider{sent: make(chan email.Message, 1)}
	svc := newTestService(t, &directoryMock{}, poster, provider)

	_, err := svc.Confirm(context.Background(), domain.ConfirmRequest{
		Period:   "2025-08",
		BillURL:  "https://bills.example.com/2025-08.pdf",
		Invoices: []domain.Invoice{confirmInvoice(acc, 100)},
	})
	assert.NoError(t, err)

	select {
	case msg := <-provider.sent:
		assert.Equal(t, []string{"owner@example.com"}, msg.To)
		assert.Contains(t, msg.Subject, "2025-08")
		assert.Contains(t, msg.HTML, "extra minutes")
		assert.Contains(t, msg.HTML, "https://bills.example.com/2025-08.pdf")
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification to be sent")
	}
}

func TestConfirmValidation(t *testing.T) {
	svc := newTestService(t, &directoryMock{}, &posterMock{}, nil)

	_, err := svc.Confirm(context.Background(), domain.ConfirmRequest{Period: "2025-08"})
	assert.ErrorIs(t, err, domain.ErrNoInvoices)
}

func TestIdempotencyKeyDeterministic(t *testing.T) {
	a := idempotencyKey(snowflake.ID(1001), "2025-08")
	b := idempotencyKey(snowflake.ID(1001), "2025-08")
	c := idempotencyKey(snowflake.ID(1001), "2025-09")
	d := idempotencyKey(snowflake.ID(1002), "2025-08")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Len(t, a, 64)
}
