package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfroyo/sitefroyo/pkg/engine"
)

const apexOnlyRego = `# Only apex domains may be hosted.
# severity: error
# operations: deploy, destroy
package custom.apex

import rego.v1

deny contains msg if {
	contains(input.site.domain, "www.")
	msg := "subdomain sites are not supported"
}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
}

func TestLoadFile_Rego(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apex-only.rego")
	writeFile(t, path, apexOnlyRego)

	p, err := NewLoader(zerolog.Nop()).LoadFile(path)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}

	if p.Name != "apex-only" {
		t.Errorf("Expected name 'apex-only', got '%s'", p.Name)
	}
	if p.Description != "Only apex domains may be hosted." {
		t.Errorf("Unexpected description: %q", p.Description)
	}
	if p.Severity != SeverityError {
		t.Errorf("Expected severity error, got %s", p.Severity)
	}
	if len(p.Operations) != 2 || p.Operations[0] != "deploy" || p.Operations[1] != "destroy" {
		t.Errorf("Unexpected operations: %v", p.Operations)
	}
	if !p.Enabled || p.Source != path {
		t.Errorf("Expected enabled policy from %s, got %+v", path, p)
	}
}

func TestLoadFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "json-policy.json")
	writeFile(t, path, `{
  "description": "from json",
  "enabled": true,
  "rego": "package custom.j\n\nimport rego.v1\n\ndeny contains \"x\" if { false }"
}`)

	p, err := NewLoader(zerolog.Nop()).LoadFile(path)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}
	if p.Name != "json-policy" {
		t.Errorf("Expected name from file, got %s", p.Name)
	}
	if p.Severity != SeverityWarning {
		t.Errorf("Expected default severity warning, got %s", p.Severity)
	}

	writeFile(t, path, `{not json`)
	if _, err := NewLoader(zerolog.Nop()).LoadFile(path); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestLoadFromPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.rego"), apexOnlyRego)
	writeFile(t, filepath.Join(dir, "nested", "b.rego"), "package custom.b\n")
	writeFile(t, filepath.Join(dir, "README.md"), "ignored")

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("Expected 2 policies, got %d", len(policies))
	}

	if _, err := loader.LoadFromPaths(context.Background(), []string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("Expected error for missing path")
	}
	if _, err := loader.LoadFromPaths(context.Background(), []string{filepath.Join(dir, "README.md")}); err == nil {
		t.Error("Expected error for explicitly named non-policy file")
	}
}

func TestEngine_LoadPolicies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "apex-only.rego"), apexOnlyRego)

	eng := newTestEngine(t)
	if err := eng.LoadPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadPolicies failed: %v", err)
	}

	in := siteInput("deploy", nil)
	in.Site.Domain = "www.example.com"
	result, err := eng.Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Allowed {
		t.Error("Expected loaded policy to deny")
	}

	in.Operation = string(engine.CommandInfo)
	result, _ = eng.Evaluate(context.Background(), in)
	if !result.Allowed {
		t.Error("Expected loaded policy to be limited to deploy and destroy")
	}
}

func TestWatch_Reloads(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.rego"), apexOnlyRego)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan []Policy, 1)
	done := make(chan error, 1)
	go func() {
		done <- NewLoader(zerolog.Nop()).Watch(ctx, []string{dir}, func(p []Policy) error {
			select {
			case reloaded <- p:
			default:
			}
			return nil
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "b.rego"), "package custom.b\n")

	select {
	case p := <-reloaded:
		if len(p) != 2 {
			t.Errorf("Expected 2 policies after reload, got %d", len(p))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}
