package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/openfroyo/sitefroyo/pkg/engine"
	"github.com/openfroyo/sitefroyo/pkg/rules"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: MemoryPath,
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "state.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.HealthCheck(ctx); err == nil {
		t.Error("expected health check to fail before init")
	}

	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	// A second run has nothing to apply.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("repeated migrate failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestMigrate_NotInitialized(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: MemoryPath})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.Migrate(context.Background()); err == nil {
		t.Error("expected error migrating before init")
	}
}

func TestParameters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.PutParameter(ctx, "example-com", engine.ParamHostedZoneID, "Z1"); err != nil {
		t.Fatalf("failed to put parameter: %v", err)
	}
	if err := store.PutParameter(ctx, "example-com", engine.ParamProtected, "true"); err != nil {
		t.Fatalf("failed to put parameter: %v", err)
	}
	if err := store.PutParameter(ctx, "other-com", engine.ParamHostedZoneID, "Z2"); err != nil {
		t.Fatalf("failed to put parameter: %v", err)
	}

	// Overwrite keeps one row.
	if err := store.PutParameter(ctx, "example-com", engine.ParamHostedZoneID, "Z3"); err != nil {
		t.Fatalf("failed to overwrite parameter: %v", err)
	}

	params, err := store.GetParameters(ctx, "example-com")
	if err != nil {
		t.Fatalf("failed to get parameters: %v", err)
	}
	if len(params) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(params))
	}
	if params[0].Param != "/sitefroyo/example-com/hosted-zone-id" || params[0].Value != "Z3" {
		t.Errorf("unexpected first parameter: %+v", params[0])
	}
	if params[1].Param != "/sitefroyo/example-com/protected" {
		t.Errorf("unexpected second parameter: %+v", params[1])
	}

	snapshot := engine.ParametersFromList(params)
	if snapshot.Get(engine.ParamHostedZoneID) != "Z3" || snapshot.Get(engine.ParamProtected) != "true" {
		t.Errorf("unexpected snapshot: %v", snapshot)
	}

	stored, err := store.ListParameters(ctx, "example-com")
	if err != nil {
		t.Fatalf("failed to list parameters: %v", err)
	}
	if stored[0].UpdatedAt.IsZero() {
		t.Error("expected updated_at to be set")
	}

	if err := store.DeleteParameter(ctx, "example-com", engine.ParamProtected); err != nil {
		t.Fatalf("failed to delete parameter: %v", err)
	}
	err = store.DeleteParameter(ctx, "example-com", engine.ParamProtected)
	if !errors.Is(err, ErrParameterNotFound) {
		t.Errorf("expected ErrParameterNotFound, got %v", err)
	}

	params, err = store.GetParameters(ctx, "example-com")
	if err != nil {
		t.Fatalf("failed to get parameters: %v", err)
	}
	if len(params) != 1 {
		t.Errorf("expected 1 parameter after delete, got %d", len(params))
	}
}

func TestGetParameters_UnknownSite(t *testing.T) {
	store := setupTestStore(t)

	params, err := store.GetParameters(context.Background(), "missing-com")
	if err != nil {
		t.Fatalf("failed to get parameters: %v", err)
	}
	if params == nil || len(params) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", params)
	}
}

func TestGetParameters_CustomPrefix(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: MemoryPath, ParameterPrefix: "/acme/sites"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	if err := store.PutParameter(ctx, "example-com", "webmaster-email", "ops@example.com"); err != nil {
		t.Fatalf("failed to put parameter: %v", err)
	}
	params, err := store.GetParameters(ctx, "example-com")
	if err != nil {
		t.Fatalf("failed to get parameters: %v", err)
	}
	if len(params) != 1 || params[0].Param != "/acme/sites/example-com/webmaster-email" {
		t.Errorf("unexpected parameters: %+v", params)
	}
}

func TestPutParameter_Invalid(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		siteID string
		param  string
	}{
		{"empty site", "", "protected"},
		{"empty name", "example-com", ""},
		{"path name", "example-com", "a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.PutParameter(ctx, tt.siteID, tt.param, "x"); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func testEvaluation(id string, status engine.Status, at time.Time) *engine.Evaluation {
	return &engine.Evaluation{
		ID:      id,
		SiteID:  "example-com",
		Domain:  "example.com",
		Command: engine.CommandStatus,
		Facts: rules.Facts{
			engine.FactHasHostedZoneIDParam: true,
			status.Fact():                   true,
			engine.FactIsProtectedParam:     false,
		},
		Result:      engine.StatusResult{Status: status, Message: "message for " + string(status)},
		EvaluatedAt: at,
		Duration:    1500 * time.Millisecond,
	}
}

func TestStatusHistory(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	statuses := []engine.Status{
		engine.StatusHostedZoneAwaitingNameserverConfig,
		engine.StatusHostedZoneOk,
		engine.StatusSiteFunctional,
	}
	for i, st := range statuses {
		rec, err := store.RecordStatus(ctx, testEvaluation("", st, base.Add(time.Duration(i)*time.Minute)))
		if err != nil {
			t.Fatalf("failed to record status: %v", err)
		}
		if rec.ID == "" {
			t.Error("expected generated id")
		}
		if rec.TrueFacts != 2 {
			t.Errorf("expected 2 true facts, got %d", rec.TrueFacts)
		}
	}

	records, err := store.ListStatusHistory(ctx, "example-com", 2)
	if err != nil {
		t.Fatalf("failed to list history: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	newest := records[0]
	if newest.Status != engine.StatusSiteFunctional {
		t.Errorf("expected newest status site_functional, got %s", newest.Status)
	}
	if newest.Command != engine.CommandStatus || newest.Domain != "example.com" {
		t.Errorf("unexpected record: %+v", newest)
	}
	if !newest.EvaluatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("unexpected evaluated_at: %v", newest.EvaluatedAt)
	}
	if newest.Duration != 1500*time.Millisecond {
		t.Errorf("expected duration 1.5s, got %v", newest.Duration)
	}
	if !newest.Facts[engine.FactIsStatusSiteFunctional] || len(newest.Facts) != 3 {
		t.Errorf("unexpected facts: %v", newest.Facts)
	}
	if !newest.StatusChanged(records[1]) {
		t.Error("expected status change between records")
	}

	all, err := store.ListStatusHistory(ctx, "example-com", 0)
	if err != nil {
		t.Fatalf("failed to list history: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records, got %d", len(all))
	}

	latest, err := store.LatestStatus(ctx, "example-com")
	if err != nil {
		t.Fatalf("failed to get latest: %v", err)
	}
	if latest == nil || latest.ID != newest.ID {
		t.Errorf("expected latest to match newest, got %+v", latest)
	}

	removed, err := store.PruneStatusHistory(ctx, "example-com", base.Add(90*time.Second))
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 pruned records, got %d", removed)
	}
}

func TestStatusHistory_Empty(t *testing.T) {
	store := setupTestStore(t)

	latest, err := store.LatestStatus(context.Background(), "example-com")
	if err != nil {
		t.Fatalf("failed to get latest: %v", err)
	}
	if latest != nil {
		t.Errorf("expected no history, got %+v", latest)
	}

	if _, err := store.RecordStatus(context.Background(), nil); err == nil {
		t.Error("expected error for nil evaluation")
	}
}

func TestRecordStatus_DuplicateID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	eval := testEvaluation("7d0f3a52-3f0e-4d8e-9a57-2d1b0c4f9e11", engine.StatusNotStarted, time.Now())
	if _, err := store.RecordStatus(ctx, eval); err != nil {
		t.Fatalf("failed to record status: %v", err)
	}
	if _, err := store.RecordStatus(ctx, eval); err == nil {
		t.Error("expected error recording the same evaluation twice")
	}
}
