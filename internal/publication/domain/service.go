package domain

import (
	"context"

	"github.com/smallbiznis/menusready/internal/delivery"
	deliverydomain "github.com/smallbiznis/menusready/internal/delivery/domain"
	menudomain "github.com/smallbiznis/menusready/internal/menu/domain"
)

// Service is the publication lifecycle controller.
type Service interface {
	CreateCheckoutIntent(ctx context.Context, slug, buyerContact string) (*CheckoutIntent, error)
	HandlePaymentNotification(ctx context.Context, rawBody []byte, signatureHeader string) (PaymentAccepted, error)
	RecordPreviewView(ctx context.Context, slug string) (*Preview, error)
	ViewPreview(ctx context.Context, slug, clientID string) (*PreviewView, error)
	PreviewStatus(ctx context.Context, slug, clientID string) (*PreviewView, error)
	PublishFree(ctx context.Context, req PublishFreeRequest) (*PublishFreeResult, error)
	VerifySession(ctx context.Context, sessionID string) (*SessionVerification, error)
	GetDeliverable(ctx context.Context, slug, kind string) (*Download, error)
	SubmitHelpRequest(ctx context.Context, req HelpRequest) error

	CreateMenu(ctx context.Context, req CreateMenuRequest) (*menudomain.Menu, error)
	UpdateContent(ctx context.Context, slug string, content menudomain.Content) (*menudomain.Menu, error)
	Regenerate(ctx context.Context, slug, actor string) (deliverydomain.Outcome, error)
	ListDeliveries(ctx context.Context, req ListDeliveriesRequest) (*ListDeliveriesResponse, error)
	RetryDeliveries(ctx context.Context) (delivery.SweepResult, error)
}
