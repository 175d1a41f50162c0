package output

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"", FormatTable, false},
		{"xml", FormatTable, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolveColors(t *testing.T) {
	if ResolveColors(true) {
		t.Error("expected colors off when disabled")
	}

	t.Setenv("NO_COLOR", "")
	if ResolveColors(false) {
		t.Error("expected NO_COLOR to disable colors")
	}

	os.Unsetenv("NO_COLOR")
	t.Setenv("TERM", "dumb")
	if ResolveColors(false) {
		t.Error("expected TERM=dumb to disable colors")
	}

	t.Setenv("TERM", "xterm-256color")
	if !ResolveColors(false) {
		t.Error("expected colors on by default")
	}
}

func TestPrinter_Plain(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut, "", false)

	p.Success("deployed %s", "example.com")
	p.Warning("drift")
	p.Error("denied")

	if got := out.String(); got != "[OK] deployed example.com\n" {
		t.Errorf("unexpected output: %q", got)
	}
	if got := errOut.String(); got != "[WARN] drift\n[ERROR] denied\n" {
		t.Errorf("unexpected diagnostics: %q", got)
	}
	if p.Bool(true) != "true" || p.Bool(false) != "false" {
		t.Error("expected plain booleans")
	}
	if p.Status("hosted_zone_ok", 2, 3) != "hosted_zone_ok" {
		t.Error("expected plain status")
	}
	if p.Structured() {
		t.Error("expected table format by default")
	}
}

func TestPrinter_Encode(t *testing.T) {
	v := map[string]interface{}{"status": "site_functional", "facts": 42}

	var jsonOut bytes.Buffer
	if err := NewPrinter(&jsonOut, nil, FormatJSON, false).Encode(v); err != nil {
		t.Fatalf("JSON encode failed: %v", err)
	}
	if !strings.Contains(jsonOut.String(), `"status": "site_functional"`) {
		t.Errorf("unexpected JSON: %s", jsonOut.String())
	}

	var yamlOut bytes.Buffer
	if err := NewPrinter(&yamlOut, nil, FormatYAML, false).Encode(v); err != nil {
		t.Fatalf("YAML encode failed: %v", err)
	}
	if !strings.Contains(yamlOut.String(), "status: site_functional") {
		t.Errorf("unexpected YAML: %s", yamlOut.String())
	}
}

func TestTable_Render(t *testing.T) {
	var out bytes.Buffer
	table := NewTable(&out, "Fact", "Value")
	table.AddRow("hasHostedZoneIdParam", "true")
	table.AddRow("isStatusSiteFunctional", "false")

	if table.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", table.Len())
	}
	if err := table.Render(); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{"FACT", "VALUE", "hasHostedZoneIdParam", "isStatusSiteFunctional"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected table to contain %q, got:\n%s", want, got)
		}
	}
}
