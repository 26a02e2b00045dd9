package i18n

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formengine/pkg/schema"
)

func loadCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := LoadCatalog(filepath.Join("testdata", "messages.yaml"), "en")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return catalog
}

func TestCatalogFallbackChain(t *testing.T) {
	catalog := loadCatalog(t)
	if diff := cmp.Diff([]string{"en", "nb"}, catalog.Locales()); diff != "" {
		t.Fatalf("locales mismatch (-want +got):\n%s", diff)
	}

	cases := map[string]string{
		"nb":    "Navn",
		"nb_NO": "Navn",
		"de":    "Name",
		"":      "Name",
	}
	for locale, want := range cases {
		got, err := catalog.Translate(locale, "fields.name")
		if err != nil || got != want {
			t.Fatalf("locale %q: expected %q, got %q (%v)", locale, want, got, err)
		}
	}

	msg, err := catalog.Translate("nb", "validation.required", map[string]any{"field": "Navn"})
	if err != nil || msg != "Navn må fylles ut" {
		t.Fatalf("unexpected interpolation %q (%v)", msg, err)
	}
	if _, err := catalog.Translate("nb", "missing"); !errors.Is(err, ErrMissingTranslation) {
		t.Fatalf("expected missing translation, got %v", err)
	}
}

func TestParseCatalogRejectsGarbage(t *testing.T) {
	if _, err := ParseCatalog([]byte("en: [oops"), "en", "inline"); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := ParseCatalog(nil, "en", "inline"); err == nil {
		t.Fatalf("expected empty catalog error")
	}
}

func TestLocalizeUsesKeysAndFallbacks(t *testing.T) {
	catalog := loadCatalog(t)
	original := &schema.Node{
		Type: "select", Key: "kind", Label: "Kind", Placeholder: "Pick one",
		Values: []schema.Option{{Label: "Person", Value: "person"}, {Label: "Business", Value: "business"}},
		Properties: map[string]any{
			LabelKey:        "fields.name",
			PlaceholderKey:  "fields.kind.placeholder",
			OptionKeyPrefix: "fields.kind",
		},
	}
	view := original.ShallowCopy()
	Localize(view, "nb", catalog, nil)

	if view.Label != "Navn" || view.Placeholder != "Pick one" {
		t.Fatalf("unexpected texts %q / %q", view.Label, view.Placeholder)
	}
	want := []schema.Option{{Label: "Privatperson", Value: "person"}, {Label: "Business", Value: "business"}}
	if diff := cmp.Diff(want, view.Values); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if original.Values[0].Label != "Person" || original.Label != "Kind" {
		t.Fatalf("expected original node untouched")
	}

	missing := []string{}
	Localize(original.ShallowCopy(), "nb", nil, func(_, key, fallback string, _ error) string {
		missing = append(missing, key)
		return fallback
	})
	if diff := cmp.Diff([]string{"fields.name", "fields.kind.placeholder", "fields.kind.person", "fields.kind.business"}, missing); diff != "" {
		t.Fatalf("missing keys mismatch (-want +got):\n%s", diff)
	}
}
