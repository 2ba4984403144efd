package alert

import "context"

// Provider posts plain-text messages to the internal operations channel.
type Provider interface {
	Notify(ctx context.Context, text string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Notify(ctx context.Context, text string) error {
	return nil
}
