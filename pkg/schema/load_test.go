package schema

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestParseJSONDocument(t *testing.T) {
	raw := []byte(`{
  "title": "Signup",
  "display": "Wizard",
  "components": [
    {
      "type": "textfield",
      "key": "name",
      "validate": {"required": true, "minLength": 2},
      "conditional": {"show": "false", "when": "role", "eq": "admin"}
    }
  ]
}`)
	doc, err := Parse(raw, "signup.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Display != DisplayWizard || doc.Title != "Signup" {
		t.Fatalf("unexpected document header: %+v", doc)
	}
	node := doc.Components[0]
	if node.Validate == nil || !node.Validate.Required || *node.Validate.MinLength != 2 {
		t.Fatalf("unexpected rule: %+v", node.Validate)
	}
	if node.Conditional.Show == nil || *node.Conditional.Show {
		t.Fatalf("expected string show flag to decode to false")
	}
}

func TestParseBareArrayAndYAML(t *testing.T) {
	doc, err := Parse([]byte(`[{"type":"number","key":"age"}]`), "inline")
	if err != nil {
		t.Fatalf("parse array: %v", err)
	}
	if diff := cmp.Diff([]string{"age"}, Keys(doc.Components)); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	yamlDoc := []byte(`
title: Profile
components:
  - type: panel
    key: page1
    components:
      - type: textfield
        key: city
        defaultValue: Oslo
        logic:
          - trigger:
              type: json
              json:
                "==":
                  - var: data.country
                  - "NO"
            actions:
              - type: property
                property: label
                value: By
`)
	fsys := fstest.MapFS{"forms/profile.yaml": {Data: yamlDoc}}
	doc, err = LoadFS(fsys, "forms/profile.yaml")
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	city := FindByKey(doc.Components, "city")
	if city == nil || city.DefaultValue != "Oslo" {
		t.Fatalf("unexpected city node: %+v", city)
	}
	if _, ok := city.Logic[0].Trigger.JSON.(map[string]any); !ok {
		t.Fatalf("expected predicate tree to decode as record, got %T", city.Logic[0].Trigger.JSON)
	}
}

func TestParseRejectsEmptyAndGarbage(t *testing.T) {
	if _, err := Parse([]byte("   "), "empty"); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := Parse([]byte("{not json: ["), "bad"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDefaultsAndPaths(t *testing.T) {
	info := staticInfo{groups: map[string]bool{"container": true}}
	tree := []*Node{
		{Type: "textfield", Key: "name", DefaultValue: "Ada"},
		{Type: "select", Key: "tags", Multiple: true},
		{Type: "container", Key: "address", Components: []*Node{
			{Type: "textfield", Key: "city", DefaultValue: "Oslo"},
		}},
		{Type: "button", Key: "submit"},
	}

	got := Defaults(tree, info)
	want := map[string]any{
		"name":    "Ada",
		"tags":    []any{},
		"address": map[string]any{"city": "Oslo"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}

	paths := Paths(tree, info)
	if diff := cmp.Diff([]string{"address", "city"}, paths["city"]); diff != "" {
		t.Fatalf("path mismatch (-want +got):\n%s", diff)
	}
	if v, ok := Lookup(got, paths["city"]); !ok || v != "Oslo" {
		t.Fatalf("expected nested lookup, got %v %v", v, ok)
	}
}

func TestEqualNormalisesNumbers(t *testing.T) {
	cases := []struct {
		a, b any
		want bool
	}{
		{int64(6), float64(6), true},
		{6, "6", false},
		{nil, nil, true},
		{nil, 0, false},
		{[]any{1.0, "x"}, []any{int64(1), "x"}, true},
		{map[string]any{"a": true}, map[string]any{"a": true}, true},
		{map[string]any{"a": true}, map[string]any{"a": false}, false},
	}
	for _, tc := range cases {
		if got := Equal(tc.a, tc.b); got != tc.want {
			t.Errorf("Equal(%#v, %#v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

type staticInfo struct {
	groups map[string]bool
}

func (s staticInfo) IsInput(node *Node) bool {
	if flag, ok := node.IsInputFlagged(); ok {
		return flag
	}
	switch node.Type {
	case "button", "panel", "content":
		return false
	}
	return !s.groups[node.Type]
}

func (s staticInfo) IsDataGroup(node *Node) bool {
	return s.groups[node.Type]
}
