package form

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formengine/pkg/schema"
)

func TestBuilderEditsRefreshForm(t *testing.T) {
	tree := []*schema.Node{
		{Type: "panel", Key: "one", Components: []*schema.Node{
			{Type: "textfield", Key: "name"},
		}},
		{Type: "panel", Key: "two", Components: []*schema.Node{
			{Type: "textfield", Key: "city"},
		}},
	}
	f := New(tree, WithConfig(Config{Wizard: WizardConfig{Enabled: true}}))
	f.SetValue("name", "Ada")
	b := f.Builder()

	if _, ok := b.AddNode("textfield", b.List("one", 0), -1); !ok {
		t.Fatalf("expected add inside panel to succeed")
	}
	if _, ok := f.Value("textfield"); !ok {
		t.Fatalf("expected form to know the added field")
	}
	if _, ok := b.AddNode("panel", nil, -1); !ok {
		t.Fatalf("expected add at root to succeed")
	}
	if got := len(f.Pages()); got != 3 {
		t.Fatalf("expected 3 pages after adding a panel, got %d", got)
	}

	if !b.Undo() || !b.Undo() {
		t.Fatalf("expected both edits to undo")
	}
	if got := len(f.Pages()); got != 2 {
		t.Fatalf("expected 2 pages after undo, got %d", got)
	}
	if _, ok := f.Value("textfield"); ok {
		t.Fatalf("expected undone field to be gone from the form")
	}
	if diff := cmp.Diff(tree, f.Export(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("schema after undo mismatch (-want +got):\n%s", diff)
	}
	if got, _ := f.Value("name"); got != "Ada" {
		t.Fatalf("expected surviving value to be kept, got %v", got)
	}
}

func TestBuilderUsesConfiguredHistoryLimit(t *testing.T) {
	f := New([]*schema.Node{{Type: "textfield", Key: "name"}}, WithConfig(Config{HistoryLimit: 1}))
	b := f.Builder()

	for i := 0; i < 2; i++ {
		if _, ok := b.AddNode("textfield", nil, -1); !ok {
			t.Fatalf("add %d rejected", i)
		}
	}
	if !b.Undo() {
		t.Fatalf("expected one undo step")
	}
	if b.Undo() {
		t.Fatalf("expected history capped at one entry")
	}
	if diff := cmp.Diff([]string{"name", "textfield"}, schema.Keys(f.Export())); diff != "" {
		t.Fatalf("form keys mismatch (-want +got):\n%s", diff)
	}
}
