package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("slug", "harbor-diner"),
		attribute.String("customer_email", "owner@example.com"),
		attribute.String("status", "accepted"),
	)
	if len(attrs) != 1 {
		t.Fatalf("expected 1 attribute, got %d", len(attrs))
	}
	if attrs[0].Key != "status" {
		t.Fatalf("expected status to be retained, got %s", attrs[0].Key)
	}
}

func TestHTTPMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m, err := NewHTTPMetricsWithRegisterer(registry, Config{ServiceName: "menusready"})
	if err != nil {
		t.Fatalf("new http metrics: %v", err)
	}

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/api/menus/:slug/preview", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/menus/m-%d/preview", i), nil))
	}

	var metric dto.Metric
	if err := m.requests.WithLabelValues(http.MethodGet, "/api/menus/:slug/preview", "404").Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, ErrorTypeDeadlineExceeded},
		{fmt.Errorf("claim: %w", &pgconn.PgError{Code: "55P03"}), ErrorTypeLockTimeout},
		{&pgconn.PgError{Code: "23505"}, ErrorTypeUniqueViolation},
		{&pgconn.PgError{Code: "42P01"}, ErrorTypeDB},
		{errors.New("smtp down"), ErrorTypeUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyError(tc.err); got != tc.want {
			t.Fatalf("ClassifyError(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestDeliveryMetricsToleratesDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	if _, err := NewDeliveryMetrics(registry, Config{}); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewDeliveryMetrics(registry, Config{}); err != nil {
		t.Fatalf("second registration: %v", err)
	}
}
