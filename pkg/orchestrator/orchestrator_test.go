package orchestrator_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formengine/pkg/form"
	"github.com/goliatone/go-formengine/pkg/openapi"
	"github.com/goliatone/go-formengine/pkg/orchestrator"
	"github.com/goliatone/go-formengine/pkg/render"
	"github.com/goliatone/go-formengine/pkg/schema"
	"github.com/goliatone/go-formengine/pkg/testsupport"
)

var signupPath = filepath.Join("..", "openapi", "testdata", "signup.yaml")

type snapshot struct {
	Data  map[string]any `json:"data"`
	Views []struct {
		Key     string `json:"key"`
		Label   string `json:"label"`
		Hidden  bool   `json:"hidden"`
		Visible bool   `json:"visible"`
	} `json:"views"`
}

func TestGenerateRendersViewsFromSource(t *testing.T) {
	orch := orchestrator.New()

	out, err := orch.Generate(testsupport.Context(), orchestrator.Request{
		Source:      openapi.SourceFromFile(signupPath),
		OperationID: "createAccount",
		Data:        map[string]any{"fullName": "Ada"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var got snapshot
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.Data["fullName"] != "Ada" || got.Data["plan"] != "free" {
		t.Fatalf("unexpected data %v", got.Data)
	}

	var keys []string
	for _, view := range got.Views {
		keys = append(keys, view.Key)
	}
	want := []string{"fullName", "email", "address", "city", "post_code", "age", "newsletter", "plan", "tags", "website", "submit"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("view keys mismatch (-want +got):\n%s", diff)
	}
}

func TestPresetTransformerPatchesDocument(t *testing.T) {
	fsys := fstest.MapFS{
		"preset.yaml": {Data: []byte(`
title: Join
fields:
  email:
    label: Work email
  plan:
    hidden: true
  website:
    required: true
    rename: homepage
`)},
	}
	preset, err := orchestrator.NewPresetTransformerFromFS(fsys, "preset.yaml")
	if err != nil {
		t.Fatalf("preset: %v", err)
	}

	doc, err := orchestrator.New(orchestrator.WithTransformers(preset)).Document(testsupport.Context(), orchestrator.Request{
		Document:    ptr(testsupport.LoadOpenAPI(t, signupPath)),
		OperationID: "createAccount",
	})
	if err != nil {
		t.Fatalf("document: %v", err)
	}

	if doc.Title != "Join" {
		t.Fatalf("expected title Join, got %q", doc.Title)
	}
	if node := schema.FindByKey(doc.Components, "email"); node == nil || node.Label != "Work email" {
		t.Fatalf("expected relabelled email, got %+v", node)
	}
	if node := schema.FindByKey(doc.Components, "plan"); node == nil || !node.Hidden {
		t.Fatalf("expected hidden plan, got %+v", node)
	}
	node := schema.FindByKey(doc.Components, "homepage")
	if node == nil || node.Validate == nil || !node.Validate.Required {
		t.Fatalf("expected required homepage, got %+v", node)
	}
	if schema.FindByKey(doc.Components, "website") != nil {
		t.Fatalf("expected website to be renamed")
	}
}

func TestPresetTransformerRejectsUnknownField(t *testing.T) {
	preset, err := orchestrator.NewPresetTransformer([]byte(`{"fields": {"nope": {"label": "x"}}}`))
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	_, err = orchestrator.New(orchestrator.WithTransformers(preset)).Document(testsupport.Context(), orchestrator.Request{
		Source:      openapi.SourceFromFile(signupPath),
		OperationID: "createAccount",
	})
	if err == nil || !strings.Contains(err.Error(), `field "nope" not found`) {
		t.Fatalf("expected unknown field error, got %v", err)
	}

	if _, err := orchestrator.NewPresetTransformer([]byte("  ")); err == nil {
		t.Fatalf("expected empty preset error")
	}
}

func TestBuildEnablesWizardForWizardDocuments(t *testing.T) {
	wizard := orchestrator.TransformerFunc(func(_ context.Context, doc *schema.Document) error {
		doc.Display = schema.DisplayWizard
		doc.Components = []*schema.Node{
			{Type: "panel", Key: "one", Label: "One", Components: []*schema.Node{{Type: "textfield", Key: "a"}}},
			{Type: "panel", Key: "two", Label: "Two", Components: []*schema.Node{{Type: "textfield", Key: "b"}}},
		}
		return nil
	})

	f, err := orchestrator.New(orchestrator.WithTransformers(wizard)).Build(testsupport.Context(), orchestrator.Request{
		Source:      openapi.SourceFromFile(signupPath),
		OperationID: "createAccount",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := len(f.Pages()); got != 2 {
		t.Fatalf("expected 2 wizard pages, got %d", got)
	}
}

func TestGenerateResolvesRenderers(t *testing.T) {
	var rendered *form.Form
	stub := render.Func{ID: "stub", Type: "text/plain", Fn: func(_ context.Context, f *form.Form) ([]byte, error) {
		rendered = f
		return []byte(f.ID()), nil
	}}
	orch := orchestrator.New(
		orchestrator.WithRegistry(render.NewRegistry(stub)),
		orchestrator.WithDefaultRenderer("missing"),
		orchestrator.WithFormOptions(form.WithID("fixed")),
	)
	if diff := cmp.Diff([]string{"stub"}, orch.Renderers()); diff != "" {
		t.Fatalf("renderers mismatch (-want +got):\n%s", diff)
	}

	req := orchestrator.Request{Source: openapi.SourceFromFile(signupPath), OperationID: "createAccount"}
	out, err := orch.Generate(testsupport.Context(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(out) != "fixed" || rendered == nil {
		t.Fatalf("expected stub output, got %q", out)
	}

	req.Renderer = "html"
	if _, err := orch.Generate(testsupport.Context(), req); err == nil || !strings.Contains(err.Error(), `renderer "html" not found`) {
		t.Fatalf("expected missing renderer error, got %v", err)
	}
}

func TestGenerateRequiresSource(t *testing.T) {
	_, err := orchestrator.New().Generate(testsupport.Context(), orchestrator.Request{OperationID: "createAccount"})
	if err == nil || !strings.Contains(err.Error(), "source or document is required") {
		t.Fatalf("expected source error, got %v", err)
	}

	ops, err := orchestrator.New().Operations(testsupport.Context(), orchestrator.Request{Source: openapi.SourceFromFile(signupPath)})
	if err != nil {
		t.Fatalf("operations: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(ops))
	}
}

func ptr[T any](v T) *T { return &v }
