package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	paymentdomain "github.com/smallbiznis/menusready/internal/payment/domain"
)

const maxResponseBytes = 1 << 20

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Adapter) CreateSession(ctx context.Context, req paymentdomain.SessionRequest) (*paymentdomain.Session, error) {
	if err := req.Metadata.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.LineItem.PriceID) == "" {
		return nil, fmt.Errorf("%w: missing price id", paymentdomain.ErrGatewayUnavailable)
	}
	quantity := req.LineItem.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price]", req.LineItem.PriceID)
	form.Set("line_items[0][quantity]", strconv.Itoa(quantity))
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		form.Set("customer_email", email)
	}
	for key, value := range req.Metadata.Map() {
		form.Set("metadata["+key+"]", value)
	}

	var session stripeCheckoutSession
	if err := a.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, req.IdempotencyKey, &session); err != nil {
		return nil, err
	}
	return toSession(session), nil
}

func (a *Adapter) RetrieveSession(ctx context.Context, id string) (*paymentdomain.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, paymentdomain.ErrSessionNotFound
	}
	var session stripeCheckoutSession
	if err := a.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(id), nil, "", &session); err != nil {
		return nil, err
	}
	return toSession(session), nil
}

func (a *Adapter) do(ctx context.Context, method, path string, form url.Values, idempotencyKey string, out any) error {
	if a.apiKey == "" {
		return fmt.Errorf("%w: api key not configured", paymentdomain.ErrGatewayUnavailable)
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", paymentdomain.ErrGatewayUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", paymentdomain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", paymentdomain.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", paymentdomain.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound && method == http.MethodGet:
		return paymentdomain.ErrSessionNotFound
	case resp.StatusCode >= 400:
		var apiErr apiError
		_ = json.Unmarshal(raw, &apiErr)
		return fmt.Errorf("%w: status %d %s", paymentdomain.ErrGatewayRejected, resp.StatusCode, apiErr.Error.Code)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", paymentdomain.ErrGatewayUnavailable, err)
	}
	return nil
}

func toSession(s stripeCheckoutSession) *paymentdomain.Session {
	email := s.CustomerEmail
	if email == "" && s.CustomerDetails != nil {
		email = s.CustomerDetails.Email
	}
	return &paymentdomain.Session{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: s.PaymentStatus,
		CustomerEmail: email,
		Metadata:      paymentdomain.MetadataFromMap(s.Metadata),
	}
}
