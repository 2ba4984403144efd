package pdf

import (
	"context"

	"go.uber.org/fx"
)

// Provider renders printable documents.
type Provider interface {
	RenderMenu(ctx context.Context, doc MenuDocument) ([]byte, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) RenderMenu(ctx context.Context, doc MenuDocument) ([]byte, error) {
	return nil, nil
}

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)
