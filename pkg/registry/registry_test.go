package registry

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formengine/pkg/schema"
)

func TestDefaultReturnsIndependentCopies(t *testing.T) {
	reg := New()

	first := reg.Default(TypeColumns)
	second := reg.Default(TypeColumns)
	if first.Key != "columns" || first.Type != "columns" {
		t.Fatalf("unexpected default header: %+v", first)
	}
	first.Columns[0].Components = append(first.Columns[0].Components, &schema.Node{Key: "x"})
	if len(second.Columns[0].Components) != 0 {
		t.Fatalf("expected defaults to be independent copies")
	}
}

func TestDefaultLabelsInputs(t *testing.T) {
	reg := New()
	if got := reg.Default(TypePhoneNumber).Label; got != "Phone Number" {
		t.Fatalf("expected humanized label, got %q", got)
	}
	if got := reg.Default(TypeButton).Label; got != "Submit" {
		t.Fatalf("expected template label, got %q", got)
	}
	if got := reg.Default("signature"); got.Label != "Signature" || got.Key != "signature" {
		t.Fatalf("unexpected default for unknown type: %+v", got)
	}
}

func TestSelectBoxesDefaultsToEmptyRecord(t *testing.T) {
	reg := New()
	first := reg.Default(TypeSelectBoxes)
	if diff := cmp.Diff(map[string]any{}, first.DefaultValue); diff != "" {
		t.Fatalf("default value mismatch (-want +got):\n%s", diff)
	}
	first.DefaultValue.(map[string]any)["news"] = true
	if got := reg.Default(TypeSelectBoxes).DefaultValue.(map[string]any); len(got) != 0 {
		t.Fatalf("expected template record to stay empty, got %v", got)
	}
}

func TestIsInput(t *testing.T) {
	reg := New()
	cases := []struct {
		name string
		node *schema.Node
		want bool
	}{
		{"textfield", &schema.Node{Type: TypeTextField}, true},
		{"button", &schema.Node{Type: TypeButton}, false},
		{"panel", &schema.Node{Type: TypePanel}, false},
		{"explicit flag wins", &schema.Node{Type: TypeTextField, Input: schema.Bool(false)}, false},
		{"unknown leaf", &schema.Node{Type: "signature"}, true},
		{"unknown container", &schema.Node{Type: "accordion", Components: []*schema.Node{{}}}, false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := reg.IsInput(tc.node); got != tc.want {
				t.Fatalf("IsInput = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRegisterOverridesAndLists(t *testing.T) {
	reg := Empty()
	reg.Register(Definition{Type: " rating ", Input: true})
	reg.Register(Definition{Type: ""})
	if diff := cmp.Diff([]string{"rating"}, reg.Types()); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
	if !reg.IsInputType("rating") {
		t.Fatalf("expected rating to be an input type")
	}
	if !New().IsDataGroup(&schema.Node{Type: TypeContainer}) {
		t.Fatalf("expected container to be a data group")
	}
}
