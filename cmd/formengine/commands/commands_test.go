package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand("test", "none", "today", &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

var signup = filepath.Join("testdata", "signup.json")

func TestValidateDocument(t *testing.T) {
	out, err := execute(t, "validate", signup)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if out != signup+": ok\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestValidateDataReportsEffectiveErrors(t *testing.T) {
	out, err := execute(t, "validate", signup, "--data", filepath.Join("testdata", "business.yaml"), "--json")
	if err == nil {
		t.Fatalf("expected invalid data error")
	}
	var payload struct {
		Fields map[string][]struct {
			Type string `json:"type"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	got := map[string]string{}
	for key, errs := range payload.Fields {
		got[key] = errs[0].Type
	}
	want := map[string]string{"name": "minLength", "company": "required"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestExportViewsSettlesAndSanitizes(t *testing.T) {
	out, err := execute(t, "export", signup, "--views", "--data", filepath.Join("testdata", "business.yaml"))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var payload struct {
		Data  map[string]any `json:"data"`
		Views []struct {
			Key     string `json:"key"`
			Content string `json:"content"`
			Visible bool   `json:"visible"`
		} `json:"views"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data["price"] != float64(36) {
		t.Fatalf("expected calculated price 36, got %v", payload.Data["price"])
	}
	for _, view := range payload.Views {
		switch view.Key {
		case "company":
			if !view.Visible {
				t.Fatalf("expected company visible for business")
			}
		case "note":
			if strings.Contains(view.Content, "onclick") {
				t.Fatalf("expected sanitized content, got %q", view.Content)
			}
		}
	}
}

func TestExportDocument(t *testing.T) {
	out, err := execute(t, "export", signup)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, `"title": "Signup"`) || !strings.Contains(out, `"calculateValue": "value = data.seats * 12"`) {
		t.Fatalf("unexpected export %s", out)
	}
}

func TestImportOpenAPI(t *testing.T) {
	spec := filepath.Join("..", "..", "..", "pkg", "openapi", "testdata", "signup.yaml")

	out, err := execute(t, "import-openapi", spec, "--list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, `"id": "createAccount"`) {
		t.Fatalf("expected createAccount in %s", out)
	}

	out, err = execute(t, "import-openapi", spec, "-O", "createAccount")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, `"key": "email"`) || !strings.Contains(out, `"title": "Create account"`) {
		t.Fatalf("unexpected import %s", out)
	}

	if _, err := execute(t, "import-openapi", spec); err == nil {
		t.Fatalf("expected ambiguous operation error")
	}
}

func TestImportOpenAPIAppliesPreset(t *testing.T) {
	spec := filepath.Join("..", "..", "..", "pkg", "openapi", "testdata", "signup.yaml")

	out, err := execute(t, "import-openapi", spec, "-O", "createAccount", "--preset", filepath.Join("testdata", "account.preset.yaml"))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, `"title": "Join us"`) || !strings.Contains(out, `"label": "Work email"`) {
		t.Fatalf("expected preset patches in %s", out)
	}

	if _, err := execute(t, "import-openapi", spec, "-O", "createAccount", "--preset", "missing.yaml"); err == nil {
		t.Fatalf("expected missing preset error")
	}
}

func TestImportJSONSchema(t *testing.T) {
	schemaPath := filepath.Join("..", "..", "..", "pkg", "jsonschema", "testdata", "profile.json")

	out, err := execute(t, "import-jsonschema", schemaPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, `"title": "Profile"`) || !strings.Contains(out, `"key": "city"`) {
		t.Fatalf("unexpected import %s", out)
	}
}

func TestRejectsBadLogLevel(t *testing.T) {
	if _, err := execute(t, "validate", signup, "--log-level", "loud"); err == nil {
		t.Fatalf("expected log level error")
	}
}
