package email

import "context"

// Message is a rendered outbound mail.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// NoOpProvider is used when delivery is disabled.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	return nil
}
