package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/menusready/internal/audit/domain"
	"github.com/smallbiznis/menusready/internal/authorization"
	"github.com/smallbiznis/menusready/internal/config"
	deliverydomain "github.com/smallbiznis/menusready/internal/delivery/domain"
	"github.com/smallbiznis/menusready/internal/expiry"
	menudomain "github.com/smallbiznis/menusready/internal/menu/domain"
	"github.com/smallbiznis/menusready/internal/observability"
	operatordomain "github.com/smallbiznis/menusready/internal/operator/domain"
	paymentdomain "github.com/smallbiznis/menusready/internal/payment/domain"
	publicationdomain "github.com/smallbiznis/menusready/internal/publication/domain"
	"github.com/smallbiznis/menusready/internal/ratelimit"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePublications struct {
	publicationdomain.Service

	checkout     func(slug, contact string) (*publicationdomain.CheckoutIntent, error)
	notification func(body []byte, sig string) (publicationdomain.PaymentAccepted, error)
	preview      func(slug, clientID string) (*publicationdomain.PreviewView, error)
	deliverable  func(slug, kind string) (*publicationdomain.Download, error)
	publishFree  func(req publicationdomain.PublishFreeRequest) (*publicationdomain.PublishFreeResult, error)
	verify       func(sessionID string) (*publicationdomain.SessionVerification, error)
	regenerate   func(slug, actor string) (deliverydomain.Outcome, error)
	helpCalls    int
}

func (f *fakePublications) CreateCheckoutIntent(_ context.Context, slug, contact string) (*publicationdomain.CheckoutIntent, error) {
	return f.checkout(slug, contact)
}

func (f *fakePublications) HandlePaymentNotification(_ context.Context, body []byte, sig string) (publicationdomain.PaymentAccepted, error) {
	return f.notification(body, sig)
}

func (f *fakePublications) ViewPreview(_ context.Context, slug, clientID string) (*publicationdomain.PreviewView, error) {
	return f.preview(slug, clientID)
}

func (f *fakePublications) GetDeliverable(_ context.Context, slug, kind string) (*publicationdomain.Download, error) {
	return f.deliverable(slug, kind)
}

func (f *fakePublications) PublishFree(_ context.Context, req publicationdomain.PublishFreeRequest) (*publicationdomain.PublishFreeResult, error) {
	return f.publishFree(req)
}

func (f *fakePublications) VerifySession(_ context.Context, sessionID string) (*publicationdomain.SessionVerification, error) {
	return f.verify(sessionID)
}

func (f *fakePublications) SubmitHelpRequest(context.Context, publicationdomain.HelpRequest) error {
	f.helpCalls++
	return nil
}

func (f *fakePublications) Regenerate(_ context.Context, slug, actor string) (deliverydomain.Outcome, error) {
	return f.regenerate(slug, actor)
}

type fakeOperators struct {
	operatordomain.Service

	actors map[string]authorization.Actor
	grants map[string][]string
}

func (f *fakeOperators) Login(_ context.Context, req operatordomain.LoginRequest) (*operatordomain.Token, error) {
	if req.Password != "correct horse battery" {
		return nil, operatordomain.ErrInvalidCredentials
	}
	return &operatordomain.Token{AccessToken: "op-token", TokenType: "Bearer", ExpiresIn: 3600}, nil
}

func (f *fakeOperators) Authenticate(_ context.Context, raw string) (authorization.Actor, error) {
	actor, ok := f.actors[raw]
	if !ok {
		return authorization.Actor{}, operatordomain.ErrInvalidToken
	}
	return actor, nil
}

func (f *fakeOperators) Authorize(_ context.Context, actor authorization.Actor, permission string) error {
	for _, p := range f.grants[actor.Role] {
		if p == permission {
			return nil
		}
	}
	return authorization.ErrForbidden
}

type fakeGateway struct {
	paymentdomain.Gateway
}

func (fakeGateway) Provider() string        { return "stripe" }
func (fakeGateway) SignatureHeader() string { return "Stripe-Signature" }

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (*ratelimit.Result, error) {
	return &ratelimit.Result{Allowed: false, Limit: 5, RetryAfter: 1500 * time.Millisecond}, nil
}

func newTestServer(t *testing.T, pubs *fakePublications, limiter ratelimit.Limiter) *gin.Engine {
	t.Helper()
	return newAuditedTestServer(t, pubs, limiter, nil)
}

func newAuditedTestServer(t *testing.T, pubs *fakePublications, limiter ratelimit.Limiter, audit auditdomain.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{AppURL: "https://menusready.test"}
	engine := NewEngine(observability.Config{}, cfg, nil)
	NewServer(ServerParams{
		Gin:          engine,
		Cfg:          cfg,
		Log:          zap.NewNop(),
		Publications: pubs,
		Operators: &fakeOperators{
			actors: map[string]authorization.Actor{
				"op-token":      {OperatorID: "11", Role: authorization.RoleOperator},
				"support-token": {OperatorID: "12", Role: authorization.RoleSupport},
			},
			grants: map[string][]string{
				authorization.RoleOperator: {authorization.PermMenusRegenerate, authorization.PermDeliveriesRead, authorization.PermAuditRead},
				authorization.RoleSupport:  {authorization.PermDeliveriesRead},
			},
		},
		Gateway: fakeGateway{},
		Limiter: limiter,
		Audit:   audit,
	})
	return engine
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditdomain.Entry
}

func (f *fakeAudit) Record(_ context.Context, entry auditdomain.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) List(context.Context, auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	logs := make([]auditdomain.AuditLog, 0, len(f.entries))
	for _, e := range f.entries {
		logs = append(logs, auditdomain.AuditLog{Action: e.Action, TargetType: e.TargetType})
	}
	return auditdomain.ListResponse{AuditLogs: logs}, nil
}

func do(engine *gin.Engine, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	engine := newTestServer(t, &fakePublications{}, nil)
	rec := do(engine, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCheckoutResponses(t *testing.T) {
	pubs := &fakePublications{checkout: func(slug, contact string) (*publicationdomain.CheckoutIntent, error) {
		switch slug {
		case "harbor-diner":
			require.Equal(t, "owner@harbor.test", contact)
			return &publicationdomain.CheckoutIntent{RedirectURL: "https://pay.test/cs_1", SessionID: "cs_1"}, nil
		case "down":
			return nil, paymentdomain.ErrGatewayUnavailable
		default:
			return nil, menudomain.ErrNotFound
		}
	}}
	engine := newTestServer(t, pubs, nil)

	rec := do(engine, http.MethodPost, "/api/checkout", []byte(`{"slug":"harbor-diner","buyerContact":"owner@harbor.test"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"url":"https://pay.test/cs_1","sessionId":"cs_1"}`, rec.Body.String())

	rec = do(engine, http.MethodPost, "/api/checkout", []byte(`{}`), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "slug", decodeError(t, rec).Errors[0].Field)

	rec = do(engine, http.MethodPost, "/api/checkout", []byte(`{"slug":"ghost"}`), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(engine, http.MethodPost, "/api/checkout", []byte(`{"slug":"down"}`), nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "gateway_unavailable", decodeError(t, rec).Type)
}

func TestWebhookResponses(t *testing.T) {
	pubs := &fakePublications{notification: func(body []byte, sig string) (publicationdomain.PaymentAccepted, error) {
		if sig == "t=1,v1=good-but-db-down" {
			return publicationdomain.PaymentAccepted{}, errors.New("insert event: database is locked")
		}
		if sig != "t=1,v1=good" {
			return publicationdomain.PaymentAccepted{}, paymentdomain.ErrInvalidSignature
		}
		require.JSONEq(t, `{"id":"evt_1"}`, string(body))
		return publicationdomain.PaymentAccepted{Status: publicationdomain.AcceptAccepted, Slug: "harbor-diner"}, nil
	}}
	engine := newTestServer(t, pubs, nil)
	body := []byte(`{"id":"evt_1"}`)

	rec := do(engine, http.MethodPost, "/api/webhooks/stripe", body, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_signature", decodeError(t, rec).Type)

	rec = do(engine, http.MethodPost, "/api/webhooks/stripe", body, map[string]string{"Stripe-Signature": "t=1,v1=bad"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(engine, http.MethodPost, "/api/webhooks/stripe", body, map[string]string{"Stripe-Signature": "t=1,v1=good"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"received":true,"status":"accepted"}`, rec.Body.String())

	// A verified event that could not be stored is not acknowledged, so Stripe redelivers it.
	rec = do(engine, http.MethodPost, "/api/webhooks/stripe", body, map[string]string{"Stripe-Signature": "t=1,v1=good-but-db-down"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(engine, http.MethodPost, "/api/webhooks/paypal", body, map[string]string{"Stripe-Signature": "t=1,v1=good"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreviewIssuesAndReusesClientCookie(t *testing.T) {
	var seen []string
	pubs := &fakePublications{preview: func(slug, clientID string) (*publicationdomain.PreviewView, error) {
		seen = append(seen, clientID)
		return &publicationdomain.PreviewView{
			Preview: publicationdomain.Preview{Menu: &menudomain.Menu{Slug: slug, Restaurant: "Harbor Diner"}},
			Expiry:  &expiry.Status{Expired: false, PollIntervalSeconds: 30},
		}, nil
	}}
	engine := newTestServer(t, pubs, nil)

	rec := do(engine, http.MethodGet, "/api/menus/harbor-diner/preview", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, previewClientCookie, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, cookies[0].Value, seen[0])

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "menu")
	require.Contains(t, body, "preview")

	req := httptest.NewRequest(http.MethodGet, "/api/menus/harbor-diner/preview", nil)
	req.AddCookie(&http.Cookie{Name: previewClientCookie, Value: seen[0]})
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Result().Cookies())
	require.Equal(t, seen[0], seen[1])
}

func TestDeliverableDownload(t *testing.T) {
	pubs := &fakePublications{deliverable: func(slug, kind string) (*publicationdomain.Download, error) {
		if slug != "harbor-diner" {
			return nil, menudomain.ErrDeliverablesNotFound
		}
		return &publicationdomain.Download{Filename: "harbor-diner-qr-code.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}, nil
	}}
	engine := newTestServer(t, pubs, nil)

	rec := do(engine, http.MethodGet, "/api/menus/harbor-diner/deliverables/qr", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="harbor-diner-qr-code.png"`, rec.Header().Get("Content-Disposition"))

	rec = do(engine, http.MethodGet, "/api/menus/draft-cafe/deliverables/qr", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifySessionResponses(t *testing.T) {
	pubs := &fakePublications{verify: func(sessionID string) (*publicationdomain.SessionVerification, error) {
		if sessionID == "cs_paid" {
			return &publicationdomain.SessionVerification{Valid: true, Restaurant: "harbor-diner"}, nil
		}
		return nil, publicationdomain.ErrPaymentIncomplete
	}}
	engine := newTestServer(t, pubs, nil)

	rec := do(engine, http.MethodGet, "/api/verify-session", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(engine, http.MethodGet, "/api/verify-session?session_id=cs_open", nil, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(engine, http.MethodGet, "/api/verify-session?session_id=cs_paid", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"valid":true,"restaurant":"harbor-diner"}`, rec.Body.String())
}

func TestPublishFreeValidation(t *testing.T) {
	pubs := &fakePublications{publishFree: func(req publicationdomain.PublishFreeRequest) (*publicationdomain.PublishFreeResult, error) {
		if req.Email == "nope" {
			return nil, publicationdomain.ErrInvalidEmail
		}
		return &publicationdomain.PublishFreeResult{LiveURL: "https://menusready.test/menu/" + req.Slug}, nil
	}}
	engine := newTestServer(t, pubs, nil)

	rec := do(engine, http.MethodPost, "/api/publish-free", []byte(`{"slug":"harbor-diner","email":"nope","confirmOwnership":true}`), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Equal(t, "email", payload.Errors[0].Field)
	require.Equal(t, "invalid_email", payload.Errors[0].Code)

	rec = do(engine, http.MethodPost, "/api/publish-free", []byte(`{"slug":"harbor-diner","email":"o@h.test","confirmOwnership":true}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"liveUrl":"https://menusready.test/menu/harbor-diner"}`, rec.Body.String())
}

func TestHelpRequestAlwaysAcknowledged(t *testing.T) {
	pubs := &fakePublications{}
	engine := newTestServer(t, pubs, nil)

	rec := do(engine, http.MethodPost, "/api/help-requests", []byte(`not json`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, pubs.helpCalls)

	rec = do(engine, http.MethodPost, "/api/help-requests", []byte(`{"data":{"fields":[{"label":"Name","value":"Ana"}]}}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, pubs.helpCalls)
}

func TestAdminRoutesRequireOperator(t *testing.T) {
	var gotActor string
	pubs := &fakePublications{regenerate: func(slug, actor string) (deliverydomain.Outcome, error) {
		gotActor = actor
		if slug == "draft-cafe" {
			return deliverydomain.Outcome{}, menudomain.ErrNotPaid
		}
		return deliverydomain.Outcome{JobID: 7, Slug: slug, Status: deliverydomain.StatusSucceeded, Stage: deliverydomain.StageComplete}, nil
	}}
	engine := newTestServer(t, pubs, nil)

	rec := do(engine, http.MethodPost, "/admin/menus/harbor-diner/regenerate", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(engine, http.MethodPost, "/admin/menus/harbor-diner/regenerate", nil, map[string]string{"Authorization": "Bearer forged"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(engine, http.MethodPost, "/admin/menus/harbor-diner/regenerate", nil, map[string]string{"Authorization": "Bearer support-token"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(engine, http.MethodPost, "/admin/menus/harbor-diner/regenerate", nil, map[string]string{"Authorization": "Bearer op-token"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "operator:11", gotActor)
	var outcome deliverydomain.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	require.Equal(t, deliverydomain.StatusSucceeded, outcome.Status)

	rec = do(engine, http.MethodPost, "/admin/menus/draft-cafe/regenerate", nil, map[string]string{"Authorization": "Bearer op-token"})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminLogin(t *testing.T) {
	engine := newTestServer(t, &fakePublications{}, nil)

	rec := do(engine, http.MethodPost, "/admin/login", []byte(`{"email":"ops@example.com","password":"wrong"}`), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(engine, http.MethodPost, "/admin/login", []byte(`{"email":"ops@example.com","password":"correct horse battery"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var token operatordomain.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	require.Equal(t, "op-token", token.AccessToken)
}

func TestRateLimitedCheckout(t *testing.T) {
	pubs := &fakePublications{checkout: func(string, string) (*publicationdomain.CheckoutIntent, error) {
		return nil, errors.New("limiter should have blocked")
	}}
	engine := newTestServer(t, pubs, denyLimiter{})

	rec := do(engine, http.MethodPost, "/api/checkout", []byte(`{"slug":"harbor-diner"}`), nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "2", rec.Header().Get("Retry-After"))
	require.Equal(t, "rate_limited", decodeError(t, rec).Type)
}

func TestAdminRegenerateIsAudited(t *testing.T) {
	pubs := &fakePublications{regenerate: func(slug, actor string) (deliverydomain.Outcome, error) {
		return deliverydomain.Outcome{Slug: slug, Status: deliverydomain.StatusSucceeded}, nil
	}}
	audit := &fakeAudit{}
	engine := newAuditedTestServer(t, pubs, nil, audit)
	auth := map[string]string{"Authorization": "Bearer op-token", "User-Agent": "ops-console"}

	rec := do(engine, http.MethodPost, "/admin/menus/harbor-diner/regenerate", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	require.Equal(t, auditdomain.ActionMenuRegenerate, entry.Action)
	require.Equal(t, "harbor-diner", entry.TargetID)
	require.Equal(t, "ops-console", entry.UserAgent)
	require.Equal(t, "succeeded", entry.Metadata["status"])

	rec = do(engine, http.MethodGet, "/admin/audit-logs", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), auditdomain.ActionMenuRegenerate)

	rec = do(engine, http.MethodGet, "/admin/audit-logs", nil, map[string]string{"Authorization": "Bearer support-token"})
	require.Equal(t, http.StatusForbidden, rec.Code)
}
