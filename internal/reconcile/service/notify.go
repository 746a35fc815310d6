package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vpnbill/internal/providers/email"
	"github.com/smallbiznis/vpnbill/internal/reconcile/domain"
)

const postingEmailTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #1f2933;">
  <h2>Billing statement for {{.Period}}</h2>
  <p>Subscriber {{.Subscriber}} has been charged <strong>{{.Amount}} {{.Currency}}</strong> for the period {{.Period}}.</p>
  <table cellpadding="6" cellspacing="0" border="0" style="border-collapse: collapse;">
    <thead>
      <tr style="border-bottom: 1px solid #cbd2d9; text-align: left;">
        <th>Item</th><th>Quantity</th><th>Amount</th>
      </tr>
    </thead>
    <tbody>
    {{range .Items}}
      <tr>
        <td>{{.Label}}</td>
        <td>{{if .Quantity}}{{.Quantity}}{{end}}</td>
        <td>{{.Amount}}</td>
      </tr>
    {{end}}
    </tbody>
  </table>
  {{if .BillURL}}<p>The full carrier statement is available <a href="{{.BillURL}}">here</a>.</p>{{end}}
</body>
</html>`

type postingEmailData struct {
	Period     string
	Subscriber string
	Amount     decimal.Decimal
	Currency   string
	Items      []domain.LineItem
	BillURL    string
}

// Notifier renders and sends the per-subscriber charge statement after a
// successful posting.
type Notifier struct {
	provider email.Provider
	tmpl     *template.Template
}

func NewNotifier(provider email.Provider) *Notifier {
	return &Notifier{
		provider: provider,
		tmpl:     template.Must(template.New("posting_email").Parse(postingEmailTemplate)),
	}
}

// NotifyPosted sends the charge statement to the subscriber's owner. The
// caller treats failures as advisory; the posting itself has already
// succeeded.
func (n *Notifier) NotifyPosted(
	ctx context.Context,
	period string,
	invoice domain.Invoice,
	amount decimal.Decimal,
	currency string,
	billURL string,
) error {
	if invoice.Account.Email == "" {
		return fmt.Errorf("subscriber %s has no notification address", invoice.Subscriber)
	}

	var body bytes.Buffer
	if err := n.tmpl.Execute(&body, postingEmailData{
		Period:     period,
		Subscriber: invoice.Subscriber,
		Amount:     amount,
		Currency:   currency,
		Items:      invoice.Items,
		BillURL:    billURL,
	}); err != nil {
		return fmt.Errorf("render notification: %w", err)
	}

	return n.provider.Send(ctx, email.Message{
		To:      []string{invoice.Account.Email},
		Subject: fmt.Sprintf("Billing statement %s for %s", period, invoice.Subscriber),
		HTML:    body.String(),
	})
}
