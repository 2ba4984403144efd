package observability

import (
	"testing"

	"github.com/smallbiznis/menusready/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEPLOYMENT_ENV", "")

	cfg := LoadConfig(config.Config{Environment: "development"})
	if cfg.ServiceName != "menusready" {
		t.Fatalf("expected default service name, got %q", cfg.ServiceName)
	}
	if cfg.OtelEnabled {
		t.Fatalf("expected otel disabled without an endpoint")
	}
	if !cfg.Debug() {
		t.Fatalf("expected development to imply debug")
	}
}

func TestLoadConfigEnablesOtelWithEndpoint(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEPLOYMENT_ENV", "")
	cfg := LoadConfig(config.Config{AppName: "menus", OTLPEndpoint: "collector:4317", Environment: "production"})
	if !cfg.OtelEnabled {
		t.Fatalf("expected otel enabled")
	}
	if cfg.Debug() {
		t.Fatalf("production at info level must not be debug")
	}
}

func TestLoadConfigNormalisesInvalidValues(t *testing.T) {
	t.Setenv("LOG_FORMAT", "XML")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "carrier-pigeon")
	t.Setenv("OTEL_SAMPLING_RATIO", "4")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg := LoadConfig(config.Config{Environment: "production"})
	if cfg.LogFormat != "json" {
		t.Fatalf("expected json fallback, got %q", cfg.LogFormat)
	}
	if cfg.OtelExporterProtocol != "grpc" {
		t.Fatalf("expected grpc fallback, got %q", cfg.OtelExporterProtocol)
	}
	if cfg.OtelSamplingRatio != 1 {
		t.Fatalf("expected ratio clamped to 1, got %v", cfg.OtelSamplingRatio)
	}
	if cfg.OtelEnabled {
		t.Fatalf("explicit OTEL_ENABLED=false must win over an endpoint")
	}
}
