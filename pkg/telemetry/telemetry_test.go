package telemetry

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"empty service", func(c *Config) { c.ServiceName = "" }, true},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"bad exporter", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "jaeger"
		}, true},
		{"otlp without endpoint", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "otlp"
		}, true},
		{"bad sampling", func(c *Config) { c.Tracing.SamplingRate = 2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordEvaluation("facts", true, time.Second)
	m.RecordCollaboratorCall("dns", time.Millisecond)
	m.RecordCollaboratorError("dns")
	m.SetSiteStatus("site", "not_started", []string{"not_started"})
	m.RecordPolicyViolation("p", "error")
	m.RecordError("permanent", "X")

	disabled, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	disabled.RecordEvaluation("facts", false, time.Second)
	if disabled.Registry() != nil {
		t.Error("Expected disabled metrics to have no registry")
	}
}

func TestMetrics_Recording(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	m.RecordEvaluation("info", true, 10*time.Millisecond)
	m.RecordEvaluation("info", false, 10*time.Millisecond)
	m.RecordCollaboratorError("registrar")
	m.SetSiteStatus("example-com", "hosted_zone_ok", []string{"not_started", "hosted_zone_ok"})

	if got := testutil.ToFloat64(m.evaluations.WithLabelValues("info", "success")); got != 1 {
		t.Errorf("Expected 1 successful evaluation, got %v", got)
	}
	if got := testutil.ToFloat64(m.collaboratorErrors.WithLabelValues("registrar")); got != 1 {
		t.Errorf("Expected 1 registrar error, got %v", got)
	}
	if got := testutil.ToFloat64(m.siteStatus.WithLabelValues("example-com", "hosted_zone_ok")); got != 1 {
		t.Errorf("Expected selected status gauge to be 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.siteStatus.WithLabelValues("example-com", "not_started")); got != 0 {
		t.Errorf("Expected other status gauge to be 0, got %v", got)
	}

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "sitefroyo_fact_evaluations_total") {
		t.Errorf("Expected evaluation counter in output, got:\n%s", body)
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "debug", Format: "json"}, &buf)

	l := logger.ForSite("example-com", "example.com", "info")
	l.Info().Msg("hello")

	out := buf.String()
	for _, want := range []string{`"site_id":"example-com"`, `"domain":"example.com"`, `"command":"info"`, `"message":"hello"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %s in %s", want, out)
		}
	}

	buf.Reset()
	c := logger.Component("engine")
	c.Debug().Msg("tagged")
	if !strings.Contains(buf.String(), `"component":"engine"`) {
		t.Errorf("Expected component field, got %s", buf.String())
	}
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)

	z := logger.Zerolog()
	z.Info().Msg("quiet")
	z.Warn().Msg("loud")

	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Errorf("Expected only the warning, got %s", buf.String())
	}

	// A nil logger discards.
	var nilLogger *Logger
	nl := nilLogger.Zerolog()
	nl.Error().Msg("dropped")
}

func TestTracer_Disabled(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Enabled: false}, "sitefroyo", "test", "test")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	_, span := tracer.StartEvaluationSpan(context.Background(), "site", "facts")
	RecordSuccess(span)
	span.End()

	var nilTracer *Tracer
	_, span = nilTracer.StartCollaboratorSpan(context.Background(), "dns")
	span.End()

	if err := nilTracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected no error from nil tracer shutdown, got: %v", err)
	}
}

func TestTelemetry_Lifecycle(t *testing.T) {
	tel, err := NewTelemetry(DefaultConfig(), io.Discard)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if tel.Metrics.Registry() == nil {
		t.Error("Expected metrics to be enabled by default")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected no error from shutdown, got: %v", err)
	}

	nop := Nop()
	nop.Metrics.RecordEvaluation("facts", true, time.Millisecond)
	if err := nop.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected no error from nop shutdown, got: %v", err)
	}

	bad := DefaultConfig()
	bad.Logging.Level = "loud"
	if _, err := NewTelemetry(bad, io.Discard); err == nil {
		t.Error("Expected invalid config to be rejected")
	}
}
