package views_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formengine/pkg/form"
	"github.com/goliatone/go-formengine/pkg/renderers/views"
	"github.com/goliatone/go-formengine/pkg/schema"
)

func quote() []*schema.Node {
	return []*schema.Node{
		{Type: "textfield", Key: "name", Label: "Name", Validate: &schema.ValidationRule{Required: true}},
		{Type: "textfield", Key: "company", Label: "Company",
			Conditional: &schema.Conditional{Show: schema.Bool(true), When: "kind", Eq: "business"}},
		{Type: "textfield", Key: "kind", Label: "Kind", DefaultValue: "person"},
	}
}

func TestSnapshotFiltersHiddenViews(t *testing.T) {
	f := form.New(quote(), form.WithID("quote"))

	all := views.New().Snapshot(f)
	if got := len(all.Views); got != 3 {
		t.Fatalf("expected 3 views, got %d", got)
	}

	visible := views.New(views.WithHidden(false)).Snapshot(f)
	var keys []string
	for _, view := range visible.Views {
		keys = append(keys, view.Key)
	}
	if diff := cmp.Diff([]string{"name", "kind"}, keys); diff != "" {
		t.Fatalf("visible keys mismatch (-want +got):\n%s", diff)
	}
	if visible.ID != "quote" || visible.Wizard != nil {
		t.Fatalf("unexpected snapshot header %+v", visible)
	}
}

func TestRenderEncodesErrorsAndData(t *testing.T) {
	f := form.New(quote())
	f.SetValue("kind", "business")
	f.Validate()

	out, err := views.New(views.WithIndent("")).Render(context.Background(), f)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var payload struct {
		Data   map[string]any `json:"data"`
		Errors struct {
			Count int `json:"count"`
		} `json:"errors"`
		Views []struct {
			Key     string `json:"key"`
			Visible bool   `json:"visible"`
		} `json:"views"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if payload.Data["kind"] != "business" {
		t.Fatalf("unexpected data %v", payload.Data)
	}
	if payload.Errors.Count != 1 {
		t.Fatalf("expected one error, got %d", payload.Errors.Count)
	}
	if !payload.Views[1].Visible {
		t.Fatalf("expected company visible for business")
	}

	if _, err := views.New().Render(context.Background(), nil); err == nil {
		t.Fatalf("expected nil form error")
	}
}
