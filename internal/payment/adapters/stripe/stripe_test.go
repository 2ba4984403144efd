package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/smallbiznis/menusready/internal/clock"
	paymentdomain "github.com/smallbiznis/menusready/internal/payment/domain"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, cfg paymentdomain.AdapterConfig) *Adapter {
	t.Helper()
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = "whsec_test"
	}
	gw, err := NewFactory().NewAdapter(cfg)
	require.NoError(t, err)
	return gw.(*Adapter)
}

func TestNewAdapterRequiresWebhookSecret(t *testing.T) {
	_, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{})
	if !errors.Is(err, paymentdomain.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestVerifySignature(t *testing.T) {
	payload := checkoutPayload(t, "evt_sig", "blue-fork-cafe", "paid")
	now := time.Now()
	adapter := newTestAdapter(t, paymentdomain.AdapterConfig{})

	if _, err := adapter.VerifyAndParse(payload, buildStripeSignatureHeader("whsec_test", payload, now.Unix())); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	_, err := adapter.VerifyAndParse(payload, buildStripeSignatureHeader("wrong", payload, now.Unix()))
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}

	_, err = adapter.VerifyAndParse(payload, "")
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature for missing header, got %v", err)
	}
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	payload := checkoutPayload(t, "evt_tamper", "blue-fork-cafe", "paid")
	adapter := newTestAdapter(t, paymentdomain.AdapterConfig{})
	header := buildStripeSignatureHeader("whsec_test", payload, time.Now().Unix())

	tampered := checkoutPayload(t, "evt_tamper", "someone-else", "paid")
	_, err := adapter.VerifyAndParse(tampered, header)
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}

func TestVerifySignatureMaxAge(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	adapter := newTestAdapter(t, paymentdomain.AdapterConfig{SignatureMaxAge: 5 * time.Minute, Clock: fake})
	payload := checkoutPayload(t, "evt_age", "blue-fork-cafe", "paid")

	header := buildStripeSignatureHeader("whsec_test", payload, fake.Now().Add(-10*time.Minute).Unix())
	_, err := adapter.VerifyAndParse(payload, header)
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected stale signature to be rejected, got %v", err)
	}

	header = buildStripeSignatureHeader("whsec_test", payload, fake.Now().Add(-time.Minute).Unix())
	if _, err := adapter.VerifyAndParse(payload, header); err != nil {
		t.Fatalf("expected fresh signature, got %v", err)
	}
}

func TestParseCheckoutCompleted(t *testing.T) {
	adapter := newTestAdapter(t, paymentdomain.AdapterConfig{})
	payload := checkoutPayload(t, "evt_1", "blue-fork-cafe", "paid")

	notification, err := adapter.VerifyAndParse(payload, buildStripeSignatureHeader("whsec_test", payload, time.Now().Unix()))
	require.NoError(t, err)
	require.Equal(t, "evt_1", notification.EventID)
	require.Equal(t, "cs_test_1", notification.SessionID)
	require.Equal(t, "blue-fork-cafe", notification.Metadata.Slug)
	require.Equal(t, "owner@bluefork.test", notification.CustomerEmail)
	require.Equal(t, int64(9900), notification.AmountTotal)
	require.Equal(t, "USD", notification.Currency)
	require.True(t, notification.Paid())
}

func TestParseIgnoresOtherEvents(t *testing.T) {
	adapter := newTestAdapter(t, paymentdomain.AdapterConfig{})
	payload := []byte(`{"id":"evt_x","type":"charge.succeeded","data":{"object":{}}}`)

	_, err := adapter.VerifyAndParse(payload, buildStripeSignatureHeader("whsec_test", payload, time.Now().Unix()))
	if !errors.Is(err, paymentdomain.ErrEventIgnored) {
		t.Fatalf("expected ignored event, got %v", err)
	}
}

func TestCreateSession(t *testing.T) {
	var gotForm url.Values
	var gotIdempotency, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		gotIdempotency = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.stripe.test/cs_test_1","payment_status":"unpaid","metadata":{"slug":"blue-fork-cafe"}}`))
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, paymentdomain.AdapterConfig{APIKey: "sk_test", APIBaseURL: srv.URL})
	session, err := adapter.CreateSession(context.Background(), paymentdomain.SessionRequest{
		Metadata:       paymentdomain.SessionMetadata{Slug: "blue-fork-cafe"},
		LineItem:       paymentdomain.LineItem{PriceID: "price_1", Quantity: 1},
		SuccessURL:     "https://menusready.test/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      "https://menusready.test/preview/blue-fork-cafe",
		IdempotencyKey: "checkout:blue-fork-cafe",
	})
	require.NoError(t, err)
	require.Equal(t, "https://checkout.stripe.test/cs_test_1", session.URL)
	require.Equal(t, "blue-fork-cafe", gotForm.Get("metadata[slug]"))
	require.Equal(t, "price_1", gotForm.Get("line_items[0][price]"))
	require.Equal(t, "payment", gotForm.Get("mode"))
	require.Equal(t, "checkout:blue-fork-cafe", gotIdempotency)
	require.Equal(t, "Bearer sk_test", gotAuth)
}

func TestCreateSessionRequiresSlug(t *testing.T) {
	adapter := newTestAdapter(t, paymentdomain.AdapterConfig{APIKey: "sk_test"})
	_, err := adapter.CreateSession(context.Background(), paymentdomain.SessionRequest{
		LineItem: paymentdomain.LineItem{PriceID: "price_1"},
	})
	if !errors.Is(err, paymentdomain.ErrInvalidMetadata) {
		t.Fatalf("expected invalid metadata, got %v", err)
	}
}

func TestGatewayErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "server error", status: http.StatusBadGateway, want: paymentdomain.ErrGatewayUnavailable},
		{name: "rejected", status: http.StatusBadRequest, want: paymentdomain.ErrGatewayRejected},
		{name: "not found", status: http.StatusNotFound, want: paymentdomain.ErrSessionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"code":"resource_missing"}}`))
			}))
			defer srv.Close()

			adapter := newTestAdapter(t, paymentdomain.AdapterConfig{APIKey: "sk_test", APIBaseURL: srv.URL})
			_, err := adapter.RetrieveSession(context.Background(), "cs_missing")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMissingAPIKeyIsUnavailable(t *testing.T) {
	adapter := newTestAdapter(t, paymentdomain.AdapterConfig{})
	_, err := adapter.RetrieveSession(context.Background(), "cs_1")
	if !errors.Is(err, paymentdomain.ErrGatewayUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func checkoutPayload(t *testing.T, eventID, slug, status string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":      eventID,
		"type":    paymentdomain.EventTypeCheckoutCompleted,
		"created": time.Now().Unix(),
		"data": map[string]any{
			"object": map[string]any{
				"id":             "cs_test_1",
				"amount_total":   9900,
				"currency":       "usd",
				"payment_status": status,
				"customer_details": map[string]any{
					"email": "owner@bluefork.test",
				},
				"metadata": map[string]any{"slug": slug},
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func buildStripeSignatureHeader(secret string, payload []byte, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.", timestamp)))
	_, _ = mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}
