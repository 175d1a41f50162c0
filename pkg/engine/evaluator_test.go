package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/openfroyo/sitefroyo/pkg/telemetry"
)

func TestEvaluator_Evaluate(t *testing.T) {
	metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: true, Namespace: "test"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	var buf bytes.Buffer
	ev := NewEvaluator(
		WithEvaluatorLogger(zerolog.New(&buf)),
		WithEvaluatorTelemetry(metrics, nil),
		WithStrictOrdering(true),
	)

	sc := verifiedContext()
	sc.Connection = &ConnectionStatus{StatusCode: 200}

	eval, err := ev.Evaluate(context.Background(), sc)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, err := uuid.Parse(eval.ID); err != nil {
		t.Errorf("Expected UUID evaluation id, got %q", eval.ID)
	}
	if eval.Result.Status != StatusSiteFunctional {
		t.Errorf("Expected site functional, got %s", eval.Result.Status)
	}
	if len(eval.Facts) != len(Catalog()) {
		t.Errorf("Expected %d facts, got %d", len(Catalog()), len(eval.Facts))
	}
	if len(eval.FactOrder) != len(eval.Facts) {
		t.Errorf("Expected fact order to cover all facts, got %d", len(eval.FactOrder))
	}
	if eval.TrueFacts() == 0 {
		t.Error("Expected some true facts")
	}

	if n, err := testutil.GatherAndCount(metrics.Registry(), "test_fact_evaluations_total"); err != nil || n != 1 {
		t.Errorf("Expected one evaluation series, got %d (%v)", n, err)
	}
	if n, err := testutil.GatherAndCount(metrics.Registry(), "test_site_status"); err != nil || n != len(AllStatuses()) {
		t.Errorf("Expected a status series per status, got %d (%v)", n, err)
	}

	if !strings.Contains(buf.String(), `"evaluation_id":"`+eval.ID+`"`) {
		t.Errorf("Expected log lines to carry the evaluation id, got %s", buf.String())
	}
}

func TestEvaluator_JSON(t *testing.T) {
	eval, err := NewEvaluator().Evaluate(context.Background(), newContext())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	data, err := json.Marshal(eval)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	result, ok := decoded["result"].(map[string]interface{})
	if !ok || result["status"] != string(StatusNotStarted) {
		t.Errorf("Expected result.status %s, got %v", StatusNotStarted, decoded["result"])
	}
	if _, ok := decoded["FactOrder"]; ok {
		t.Error("Expected fact order to be omitted from JSON")
	}
}

func TestEvaluator_InvalidCustomFact(t *testing.T) {
	sc := newContext()
	sc.Site.CustomFacts = []CustomFact{{Name: FactHasWafConfig, Expr: "True"}}

	_, err := NewEvaluator().Evaluate(context.Background(), sc)
	if !IsPermanent(err) {
		t.Fatalf("Expected permanent error, got: %v", err)
	}
	if CodeOf(err) != ErrCodeCustomFact {
		t.Errorf("Expected code %s, got %s", ErrCodeCustomFact, CodeOf(err))
	}
}

func TestEvaluator_CancelledContextStillCompletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eval, err := NewEvaluator(WithStrictOrdering(true)).Evaluate(ctx, verifiedContext())
	if err != nil {
		t.Fatalf("Expected evaluation to complete, got: %v", err)
	}
	if len(eval.Facts) != len(Catalog()) {
		t.Errorf("Expected %d facts, got %d", len(Catalog()), len(eval.Facts))
	}
	if eval.Result.Status != StatusHostedZoneOk {
		t.Errorf("Expected hosted zone ok, got %s", eval.Result.Status)
	}
}

func TestEvaluator_FactOrderIncludesCustomFacts(t *testing.T) {
	sc := newContext()
	sc.Site.CustomFacts = []CustomFact{
		{Name: "zoneMissing", Expr: `not facts["hasHostedZoneIdParam"]`},
	}

	eval, err := NewEvaluator(WithStrictOrdering(true)).Evaluate(context.Background(), sc)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(eval.FactOrder) != len(eval.Facts) {
		t.Fatalf("Expected fact order to cover all facts, got %d of %d", len(eval.FactOrder), len(eval.Facts))
	}
	if last := eval.FactOrder[len(eval.FactOrder)-1]; last != "zoneMissing" {
		t.Errorf("Expected custom fact last, got %s", last)
	}
	if !eval.Facts["zoneMissing"] {
		t.Error("Expected zoneMissing to be true")
	}
}

func TestEvaluator_PredicateFailure(t *testing.T) {
	sc := newContext()
	sc.Site.CustomFacts = []CustomFact{{Name: "broken", Expr: "1 // 0 == 0"}}

	_, err := NewEvaluator().Evaluate(context.Background(), sc)
	if CodeOf(err) != ErrCodePredicateFailed || !IsPermanent(err) {
		t.Errorf("Expected permanent predicate failure, got: %v", err)
	}
}
