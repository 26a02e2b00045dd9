package form

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseConfigJSONAndYAML(t *testing.T) {
	linear := false
	want := Config{
		ValidateOn:          ValidateOnBlur,
		HistoryLimit:        20,
		MaxSettleIterations: 5,
		ScriptStepBudget:    DefaultStepBudget,
		ScriptTimeout:       Duration(500 * time.Millisecond),
		Timezone:            "UTC",
		Wizard:              WizardConfig{Enabled: true, Linear: &linear, BreadcrumbJump: true, PageType: "panel"},
	}

	fromJSON, err := ParseConfig([]byte(`{
		"validateOn": "blur",
		"historyLimit": 20,
		"maxSettleIterations": 5,
		"scriptTimeout": "500ms",
		"timezone": "UTC",
		"wizard": {"enabled": true, "linear": false, "breadcrumbJump": true}
	}`), "inline.json")
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if diff := cmp.Diff(want, fromJSON); diff != "" {
		t.Fatalf("json config mismatch (-want +got):\n%s", diff)
	}

	fromYAML, err := ParseConfig([]byte(`
validateOn: blur
historyLimit: 20
maxSettleIterations: 5
scriptTimeout: 500ms
timezone: UTC
wizard:
  enabled: true
  linear: false
  breadcrumbJump: true
`), "inline.yaml")
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if diff := cmp.Diff(want, fromYAML); diff != "" {
		t.Fatalf("yaml config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":        "  ",
		"policy":       `{"validateOn": "sometimes"}`,
		"timezone":     `{"timezone": "Mars/Olympus"}`,
		"duration":     `{"scriptTimeout": "soon"}`,
		"garbage":      "validateOn: [unterminated",
		"negative cap": `{"maxSettleIterations": -1}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(input), name); err == nil || !strings.HasPrefix(err.Error(), "form:") {
				t.Fatalf("expected form error, got %v", err)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.yaml")
	if err := os.WriteFile(path, []byte("timezone: UTC\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := DefaultConfig()
	want.Timezone = "UTC"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Wizard.IsLinear() {
		t.Fatalf("expected wizard to default to linear")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
