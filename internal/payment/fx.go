package payment

import (
	"net/http"
	"time"

	"github.com/smallbiznis/menusready/internal/clock"
	"github.com/smallbiznis/menusready/internal/config"
	"github.com/smallbiznis/menusready/internal/observability/tracing"
	"github.com/smallbiznis/menusready/internal/payment/adapters"
	"github.com/smallbiznis/menusready/internal/payment/adapters/stripe"
	"github.com/smallbiznis/menusready/internal/payment/domain"
	"github.com/smallbiznis/menusready/internal/payment/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const gatewayTimeout = 12 * time.Second

var Module = fx.Module("payment.gateway",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(stripe.NewFactory())
	}),
	fx.Provide(NewGateway),
)

// NewGateway builds the configured provider adapter. A missing webhook
// secret is fatal since notifications could never be verified.
func NewGateway(cfg config.Config, registry *adapters.Registry, c clock.Clock, log *zap.Logger) (domain.Gateway, error) {
	gw, err := registry.NewAdapter(cfg.Payment.Provider, domain.AdapterConfig{
		APIKey:          cfg.Payment.APIKey,
		APIBaseURL:      cfg.Payment.APIBaseURL,
		WebhookSecret:   cfg.Payment.WebhookSecret,
		SignatureMaxAge: cfg.Payment.SignatureMaxAge,
		HTTPClient:      tracing.WrapHTTPClient(&http.Client{Timeout: gatewayTimeout}),
		Clock:           c,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Payment.APIKey == "" {
		log.Warn("payment api key not configured; checkout sessions will fail", zap.String("provider", gw.Provider()))
	}
	return gw, nil
}
