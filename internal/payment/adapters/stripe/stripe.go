package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/menusready/internal/clock"
	paymentdomain "github.com/smallbiznis/menusready/internal/payment/domain"
)

const (
	defaultBaseURL = "https://api.stripe.com"
	requestTimeout = 12 * time.Second

	signatureHeader = "Stripe-Signature"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return paymentdomain.ProviderStripe
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.Gateway, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}

	return &Adapter{
		apiKey:        strings.TrimSpace(cfg.APIKey),
		baseURL:       baseURL,
		webhookSecret: secret,
		maxAge:        cfg.SignatureMaxAge,
		client:        client,
		clock:         c,
	}, nil
}

type Adapter struct {
	apiKey        string
	baseURL       string
	webhookSecret string
	maxAge        time.Duration
	client        *http.Client
	clock         clock.Clock
}

func (a *Adapter) Provider() string { return paymentdomain.ProviderStripe }

func (a *Adapter) SignatureHeader() string { return signatureHeader }

func (a *Adapter) VerifyAndParse(payload []byte, sigHeader string) (*paymentdomain.Notification, error) {
	if err := a.verify(payload, sigHeader); err != nil {
		return nil, err
	}
	return a.parse(payload)
}

func (a *Adapter) verify(payload []byte, sigHeader string) error {
	sigHeader = strings.TrimSpace(sigHeader)
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	if a.maxAge > 0 {
		unix, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return paymentdomain.ErrInvalidSignature
		}
		if a.clock.Now().Sub(time.Unix(unix, 0)) > a.maxAge {
			return paymentdomain.ErrInvalidSignature
		}
	}

	expected := sign(a.webhookSecret, timestamp, payload)
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return paymentdomain.ErrInvalidSignature
}

func (a *Adapter) parse(payload []byte) (*paymentdomain.Notification, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}
	if strings.TrimSpace(event.Type) != paymentdomain.EventTypeCheckoutCompleted {
		return nil, fmt.Errorf("%w: %s", paymentdomain.ErrEventIgnored, event.Type)
	}

	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	email := strings.TrimSpace(session.CustomerEmail)
	if email == "" && session.CustomerDetails != nil {
		email = strings.TrimSpace(session.CustomerDetails.Email)
	}

	return &paymentdomain.Notification{
		Provider:      paymentdomain.ProviderStripe,
		EventID:       event.ID,
		EventType:     event.Type,
		SessionID:     session.ID,
		Metadata:      paymentdomain.MetadataFromMap(session.Metadata),
		CustomerEmail: email,
		PaymentStatus: strings.TrimSpace(session.PaymentStatus),
		AmountTotal:   session.AmountTotal,
		Currency:      strings.ToUpper(strings.TrimSpace(session.Currency)),
		OccurredAt:    timestamp(session.Created, event.Created),
		RawPayload:    payload,
	}, nil
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	Created         int64             `json:"created"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerDetails *customerDetails  `json:"customer_details"`
	PaymentStatus   string            `json:"payment_status"`
	Metadata        map[string]string `json:"metadata"`
}

type customerDetails struct {
	Email string `json:"email"`
}

func sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}
