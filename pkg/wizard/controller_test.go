package wizard

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formengine/pkg/schema"
	"github.com/goliatone/go-formengine/pkg/validation"
)

func wizardTree() []*schema.Node {
	return []*schema.Node{
		{Type: "panel", Key: "account", Label: "Account", Components: []*schema.Node{
			{Type: "textfield", Key: "name", Validate: &schema.ValidationRule{Required: true}},
			{Type: "columns", Key: "cols", Columns: []*schema.Column{
				{Components: []*schema.Node{{Type: "email", Key: "email"}}},
				{Components: []*schema.Node{{Type: "button", Key: "help", Input: schema.Bool(false)}}},
			}},
		}},
		{Type: "textfield", Key: "stray"},
		{Type: "panel", Key: "address", Components: []*schema.Node{
			{Type: "textfield", Key: "city"},
		}},
		{Type: "panel", Key: "confirm", Label: "Confirm", Components: []*schema.Node{
			{Type: "checkbox", Key: "terms"},
		}},
	}
}

func TestDerivePages(t *testing.T) {
	pages := DerivePages(wizardTree(), nil, "")

	type summary struct {
		Index  int
		Title  string
		Key    string
		Inputs []string
	}
	got := make([]summary, 0, len(pages))
	for _, page := range pages {
		got = append(got, summary{page.Index, page.Title, page.Key, page.InputKeys()})
	}
	want := []summary{
		{0, "Account", "account", []string{"name", "email"}},
		{1, pages[1].Node.Title(), "address", []string{"city"}},
		{2, "Confirm", "confirm", []string{"terms"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("pages mismatch (-want +got):\n%s", diff)
	}

	if tabs := DerivePages(wizardTree(), nil, "tabs"); len(tabs) != 0 {
		t.Fatalf("expected no pages for absent type, got %d", len(tabs))
	}
}

func TestLinearGating(t *testing.T) {
	data := map[string]any{}
	validator := validation.New()
	gate := func(page Page) bool {
		for _, input := range page.Inputs {
			if len(validator.ValidateField(input, data[input.Key], data)) > 0 {
				return false
			}
		}
		return true
	}

	c := New(DerivePages(wizardTree(), nil, ""), WithPageValidator(gate))
	if c.Next() {
		t.Fatalf("expected Next to refuse with required field empty")
	}
	if c.Current() != 0 {
		t.Fatalf("expected to stay on page 0, got %d", c.Current())
	}

	data["name"] = "Ada"
	if !c.Next() || c.Current() != 1 {
		t.Fatalf("expected to advance to page 1, got %d", c.Current())
	}
	if !c.Prev() || c.Current() != 0 {
		t.Fatalf("expected Prev to return to 0")
	}

	data["name"] = ""
	if c.GoTo(1) {
		t.Fatalf("expected forward jump to be gated by validation")
	}
	if !c.Visited(1) || c.Visited(2) {
		t.Fatalf("unexpected visited set")
	}
}

func TestNonLinearSkipsGate(t *testing.T) {
	c := New(DerivePages(wizardTree(), nil, ""),
		WithLinear(false),
		WithPageValidator(func(Page) bool { return false }),
	)
	if !c.Next() || !c.Next() {
		t.Fatalf("expected non-linear navigation to ignore validation")
	}
	if c.Next() {
		t.Fatalf("expected Next on last page to fail")
	}
	if c.Progress() != 100 {
		t.Fatalf("expected progress 100 on last page, got %v", c.Progress())
	}
}

func TestGoToRequiresVisitOrBreadcrumb(t *testing.T) {
	pages := DerivePages(wizardTree(), nil, "")

	strict := New(pages, WithLinear(false))
	if strict.GoTo(2) {
		t.Fatalf("expected jump to unvisited page to be refused")
	}
	if strict.GoTo(5) || strict.GoTo(-1) {
		t.Fatalf("expected out of range jumps to fail")
	}

	jumpy := New(pages, WithLinear(false), WithBreadcrumbJump(true))
	if !jumpy.GoTo(2) || jumpy.Current() != 2 {
		t.Fatalf("expected breadcrumb jump to land on page 2")
	}
	if !jumpy.GoTo(0) {
		t.Fatalf("expected jump back to visited page")
	}
}

func TestProgress(t *testing.T) {
	pages := DerivePages(wizardTree(), nil, "")
	c := New(pages, WithLinear(false))
	cases := []float64{0, 50, 100}
	for idx, want := range cases {
		if got := c.Progress(); got != want {
			t.Fatalf("page %d: progress = %v, want %v", idx, got, want)
		}
		c.Next()
	}

	single := New(pages[:1])
	if single.Progress() != 100 {
		t.Fatalf("expected single page progress 100, got %v", single.Progress())
	}
	if New(nil).Progress() != 0 {
		t.Fatalf("expected empty wizard progress 0")
	}
}

func TestHiddenPagesAreSkipped(t *testing.T) {
	pages := DerivePages(wizardTree(), nil, "")
	hidden := map[string]bool{"address": true}
	c := New(pages, WithLinear(false), WithVisibility(func(node *schema.Node) bool {
		return !hidden[node.Key]
	}))

	if !c.Next() || c.Current() != 2 {
		t.Fatalf("expected Next to skip hidden page, got %d", c.Current())
	}
	if got := c.Progress(); got != 100 {
		t.Fatalf("expected progress over visible pages, got %v", got)
	}
	if !c.Prev() || c.Current() != 0 {
		t.Fatalf("expected Prev to skip hidden page, got %d", c.Current())
	}
	if c.GoTo(1) {
		t.Fatalf("expected hidden page to be unreachable")
	}
}

func TestResetCarriesStateByKey(t *testing.T) {
	tree := wizardTree()
	c := New(DerivePages(tree, nil, ""), WithLinear(false))
	c.Next()
	c.Next()

	// Drop the first page; confirm moves from index 2 to 1.
	c.Reset(DerivePages(tree[1:], nil, ""))
	if c.Current() != 1 {
		t.Fatalf("expected current page to follow its key, got %d", c.Current())
	}
	if !c.Visited(0) || !c.Visited(1) {
		t.Fatalf("expected visited pages to be remapped")
	}

	c.Reset(nil)
	if c.Current() != 0 || c.Next() {
		t.Fatalf("expected empty wizard to stay put")
	}
}
