package domain

import (
	"context"
	"net/http"
	"time"

	"github.com/smallbiznis/menusready/internal/clock"
)

type AdapterConfig struct {
	APIKey          string
	APIBaseURL      string
	WebhookSecret   string
	SignatureMaxAge time.Duration
	HTTPClient      *http.Client
	Clock           clock.Clock
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (Gateway, error)
}

// Gateway is the payment provider boundary.
type Gateway interface {
	Provider() string
	SignatureHeader() string
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
	// VerifyAndParse checks the signature before reading the body.
	VerifyAndParse(payload []byte, signatureHeader string) (*Notification, error)
}
