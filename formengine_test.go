package formengine_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	formengine "github.com/goliatone/go-formengine"
	"github.com/goliatone/go-formengine/pkg/form"
	"github.com/goliatone/go-formengine/pkg/openapi"
	"github.com/goliatone/go-formengine/pkg/schema"
)

var accounts = openapi.SourceFromFile(filepath.Join("pkg", "openapi", "testdata", "signup.yaml"))

func TestOpenWizardDocument(t *testing.T) {
	f := formengine.Open(formengine.Document{
		Display: schema.DisplayWizard,
		Components: []*schema.Node{
			{Type: "panel", Key: "one", Components: []*schema.Node{{Type: "textfield", Key: "a"}}},
		},
	}, form.WithID("wizard"))

	if f.ID() != "wizard" {
		t.Fatalf("expected id wizard, got %q", f.ID())
	}
	if got := len(f.Pages()); got != 1 {
		t.Fatalf("expected 1 page, got %d", got)
	}
}

func TestOpenFile(t *testing.T) {
	f, err := formengine.OpenFile(filepath.Join("cmd", "formengine", "commands", "testdata", "signup.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := f.View("name"); !ok {
		t.Fatalf("expected name view")
	}
	if _, err := formengine.OpenFile("missing.json"); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestFromOpenAPISubmits(t *testing.T) {
	f, err := formengine.FromOpenAPI(context.Background(), accounts, "createAccount")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if _, errs := f.Submit(); errs.Empty() {
		t.Fatalf("expected submit to fail without email")
	}
	f.SetValue("email", "ada@example.com")
	f.SetValue("city", "Oslo")
	f.SetValue("tags", map[string]any{"news": true, "offers": false})
	submission, errs := f.Submit()
	if !errs.Empty() {
		t.Fatalf("unexpected errors %v", errs.Messages())
	}
	if submission.Data["email"] != "ada@example.com" {
		t.Fatalf("unexpected submission %v", submission.Data)
	}
}

func TestGenerateViews(t *testing.T) {
	out, err := formengine.Generate(context.Background(), accounts, "createAccount", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(string(out), `"key": "email"`) {
		t.Fatalf("expected email view in %s", out)
	}
}
