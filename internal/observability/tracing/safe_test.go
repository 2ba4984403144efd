package tracing

import (
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSafeErrorRedactsEmailsAndSecrets(t *testing.T) {
	err := SafeError(errors.New("send to owner@harbor.example failed with key sk_test_123abc"))
	if strings.Contains(err.Error(), "owner@harbor.example") {
		t.Fatalf("expected email to be redacted, got %q", err.Error())
	}
	if strings.Contains(err.Error(), "sk_test_123abc") {
		t.Fatalf("expected secret to be redacted, got %q", err.Error())
	}
	if SafeError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestSafeAttributesDropsBlockedKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("customer_email", "owner@harbor.example"),
		attribute.String("menu.slug", "harbor-diner"),
	)
	if len(attrs) != 1 || attrs[0].Key != "menu.slug" {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
}
