package form

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-formengine/pkg/i18n"
	"github.com/goliatone/go-formengine/pkg/schema"
	"github.com/goliatone/go-formengine/pkg/validation"
)

func kinds(errs []validation.Error) []validation.Kind {
	out := []validation.Kind{}
	for _, err := range errs {
		out = append(out, err.Type)
	}
	return out
}

func orderTree() []*schema.Node {
	return []*schema.Node{
		{Type: "select", Key: "kind", DefaultValue: "person", Values: []schema.Option{
			{Label: "Person", Value: "person"},
			{Label: "Business", Value: "business"},
		}},
		{Type: "textfield", Key: "company", Label: "Company",
			Conditional: &schema.Conditional{Show: schema.Bool(true), When: "kind", Eq: "business"},
			Validate:    &schema.ValidationRule{Required: true},
			ClearOnHide: true,
		},
		{Type: "textfield", Key: "vat", Label: "VAT",
			Logic: []schema.LogicRule{{
				Name:    "vat required for businesses",
				Trigger: schema.Trigger{Type: schema.TriggerSimple, Simple: &schema.Conditional{Show: schema.Bool(true), When: "kind", Eq: "business"}},
				Actions: []schema.Action{{Type: schema.ActionProperty, Property: "validate.required", Value: "true"}},
			}},
		},
		{Type: "number", Key: "a"},
		{Type: "number", Key: "b", CalculateValue: "value = data.a * 2"},
		{Type: "button", Key: "submit"},
	}
}

func TestSetValueSettlesCalculatedFields(t *testing.T) {
	f := New(orderTree())
	if !f.SetValue("a", float64(3)) {
		t.Fatalf("expected SetValue to accept known key")
	}
	got, _ := f.Value("b")
	if !schema.Equal(float64(6), got) {
		t.Fatalf("expected b = 6, got %#v", got)
	}
	if f.SetValue("missing", 1) {
		t.Fatalf("expected unknown key to be ignored")
	}
}

func TestVisibilityAndOverridesFollowData(t *testing.T) {
	f := New(orderTree())
	if f.Visible("company") {
		t.Fatalf("expected company hidden for person")
	}

	f.SetValue("kind", "business")
	if !f.Visible("company") {
		t.Fatalf("expected company visible for business")
	}
	view, ok := f.View("vat")
	if !ok || view.Validate == nil || !view.Validate.Required {
		t.Fatalf("expected vat view to be required, got %+v", view.Validate)
	}
	stored := schema.FindByKey(f.Export(), "vat")
	if stored.Validate != nil {
		t.Fatalf("expected stored schema untouched, got %+v", stored.Validate)
	}
	if diff := cmp.Diff(map[string]any{"validate.required": true}, map[string]any(f.Overrides()["vat"])); diff != "" {
		t.Fatalf("overrides mismatch (-want +got):\n%s", diff)
	}

	f.SetValue("kind", "person")
	if _, ok := f.Overrides()["vat"]; ok {
		t.Fatalf("expected stale override to be dropped")
	}
}

func TestClearOnHide(t *testing.T) {
	f := New(orderTree())
	f.SetValue("kind", "business")
	f.SetValue("company", "Acme")
	f.SetValue("kind", "person")

	if got, _ := f.Value("company"); got != nil {
		t.Fatalf("expected hidden company to be cleared, got %#v", got)
	}
}

func TestSubmitUsesEffectiveRulesAndVisibility(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	f := New(orderTree(), WithConfig(Config{Timezone: "Europe/Oslo"}), WithClock(clock))

	submission, errs := f.Submit()
	if !errs.Empty() {
		t.Fatalf("expected hidden required company to be skipped, got %v", errs.All())
	}
	if submission.State != StateSubmitted || submission.Metadata.Timezone != "Europe/Oslo" {
		t.Fatalf("unexpected submission: %+v", submission)
	}
	if _, err := uuid.Parse(submission.Metadata.SubmissionID); err != nil {
		t.Fatalf("expected uuid submission id: %v", err)
	}
	if !submission.Metadata.SubmittedAt.Equal(clock()) {
		t.Fatalf("unexpected timestamp %v", submission.Metadata.SubmittedAt)
	}

	f.SetValue("kind", "business")
	submission, errs = f.Submit()
	if submission.State != "" {
		t.Fatalf("expected no submission while invalid")
	}
	if diff := cmp.Diff([]string{"company", "vat"}, errs.Keys()); diff != "" {
		t.Fatalf("error keys mismatch (-want +got):\n%s", diff)
	}

	f.Batch(func(b *Batch) {
		b.Set("company", "Acme")
		b.Set("vat", "NO123")
	})
	submission, errs = f.Submit()
	if !errs.Empty() {
		t.Fatalf("expected valid submission, got %v", errs.All())
	}
	if submission.Data["company"] != "Acme" {
		t.Fatalf("unexpected data %v", submission.Data)
	}
}

func TestValidateOnPolicies(t *testing.T) {
	tree := func() []*schema.Node {
		return []*schema.Node{{Type: "textfield", Key: "name", Label: "Name",
			Validate: &schema.ValidationRule{MinLength: schema.Int(3)}}}
	}

	onSubmit := New(tree())
	onSubmit.SetValue("name", "ab")
	onSubmit.Blur("name")
	if !onSubmit.Errors().Empty() {
		t.Fatalf("expected submit policy to defer validation")
	}

	onChange := New(tree(), WithConfig(Config{ValidateOn: ValidateOnChange}))
	onChange.SetValue("name", "ab")
	if diff := cmp.Diff([]validation.Kind{validation.KindMinLength}, kinds(onChange.Errors().All())); diff != "" {
		t.Fatalf("change policy kinds mismatch (-want +got):\n%s", diff)
	}
	onChange.SetValue("name", "abc")
	if !onChange.Errors().Empty() {
		t.Fatalf("expected error to clear once fixed")
	}

	onBlur := New(tree(), WithConfig(Config{ValidateOn: ValidateOnBlur}))
	onBlur.SetValue("name", "ab")
	if !onBlur.Errors().Empty() {
		t.Fatalf("expected blur policy to wait for blur")
	}
	onBlur.Blur("name")
	if !onBlur.Errors().Has("name") || !onBlur.Touched("name") {
		t.Fatalf("expected blur to validate and mark touched")
	}
}

func TestBatchSettlesOnce(t *testing.T) {
	metrics, err := NewMetrics("test", prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	f := New(orderTree(), WithMetrics(metrics))
	before := testutil.ToFloat64(metrics.settlePasses)

	n := f.Batch(func(b *Batch) {
		b.Set("a", float64(1))
		b.Set("a", float64(2))
		b.Set("kind", "business")
		b.Set("nope", true)
	})
	if n != 3 {
		t.Fatalf("expected 3 staged edits, got %d", n)
	}
	if got := testutil.ToFloat64(metrics.settlePasses) - before; got != 1 {
		t.Fatalf("expected one settle pass, got %v", got)
	}
	if got, _ := f.Value("b"); !schema.Equal(4, got) {
		t.Fatalf("expected b = 4, got %#v", got)
	}
}

func TestSettleCapStopsOscillation(t *testing.T) {
	metrics, err := NewMetrics("test", nil)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	tree := []*schema.Node{
		{Type: "number", Key: "tick", CalculateValue: "value = (value or 0) + 1"},
	}
	f := New(tree, WithMetrics(metrics), WithConfig(Config{MaxSettleIterations: 4}))

	got, _ := f.Value("tick")
	if !schema.Equal(4, got) {
		t.Fatalf("expected the cap to stop after 4 iterations, got %#v", got)
	}
	if testutil.ToFloat64(metrics.settleCapped) != 1 {
		t.Fatalf("expected capped settle to be counted")
	}
}

func TestExpressionFailuresAreCounted(t *testing.T) {
	metrics, err := NewMetrics("test", nil)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	tree := []*schema.Node{
		{Type: "number", Key: "broken", CalculateValue: "value = data.nothing + 1"},
	}
	New(tree, WithMetrics(metrics))
	if testutil.ToFloat64(metrics.expressionFailure.WithLabelValues("calculate")) < 1 {
		t.Fatalf("expected calculate failure to be counted")
	}
}

func TestLoadAndSetSchema(t *testing.T) {
	f := New(orderTree())
	f.Load(map[string]any{"a": float64(5), "company": "ignored while hidden"})
	data := f.Data()
	if data["kind"] != "person" {
		t.Fatalf("expected default for missing key, got %v", data["kind"])
	}
	if !schema.Equal(10, data["b"]) {
		t.Fatalf("expected load to settle calculated values, got %v", data["b"])
	}

	f.SetSchema([]*schema.Node{
		{Type: "number", Key: "a"},
		{Type: "container", Key: "extra", Components: []*schema.Node{
			{Type: "textfield", Key: "note", DefaultValue: "n/a"},
		}},
	})
	want := map[string]any{"a": float64(5), "extra": map[string]any{"note": "n/a"}}
	if diff := cmp.Diff(want, f.Data()); diff != "" {
		t.Fatalf("data after schema swap mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyServerErrors(t *testing.T) {
	f := New(orderTree())
	form := f.ApplyServerErrors(map[string][]string{
		"/data/a":          {"A is taken"},
		"non_field_errors": {"Try again later"},
	})
	if diff := cmp.Diff([]string{"Try again later"}, form); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]validation.Kind{validation.KindServer}, kinds(f.Errors().ForKey("a"))); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestWizardGatingThroughForm(t *testing.T) {
	tree := []*schema.Node{
		{Type: "panel", Key: "one", Components: []*schema.Node{
			{Type: "textfield", Key: "name", Validate: &schema.ValidationRule{Required: true}},
		}},
		{Type: "panel", Key: "two", Components: []*schema.Node{
			{Type: "textfield", Key: "city"},
		}},
	}
	f := New(tree, WithConfig(Config{Wizard: WizardConfig{Enabled: true}}))

	if f.Next() {
		t.Fatalf("expected Next to refuse with required field empty")
	}
	if f.Wizard().Current != 0 || !f.Errors().Has("name") {
		t.Fatalf("expected to stay on page 0 with errors")
	}

	f.SetValue("name", "Ada")
	if !f.Next() {
		t.Fatalf("expected Next to advance")
	}
	want := WizardState{Current: 1, Total: 2, Progress: 100, Visited: []int{0, 1}}
	if diff := cmp.Diff(want, f.Wizard()); diff != "" {
		t.Fatalf("wizard state mismatch (-want +got):\n%s", diff)
	}
	if !f.Errors().Empty() {
		t.Fatalf("expected page errors cleared after passing gate")
	}

	disabled := New(tree)
	if disabled.Next() || disabled.Pages() != nil {
		t.Fatalf("expected wizard calls to be no-ops when disabled")
	}
}

func TestTranslatorLocalisesViewsAndMessages(t *testing.T) {
	catalog := i18n.NewCatalog("en")
	catalog.Add("nb", map[string]string{
		"fields.name":         "Navn",
		"validation.required": "{field} må fylles ut",
	})
	tree := []*schema.Node{{Type: "textfield", Key: "name", Label: "Name",
		Properties: map[string]any{i18n.LabelKey: "fields.name"},
		Validate:   &schema.ValidationRule{Required: true}}}

	f := New(tree, WithTranslator(catalog, ""), WithConfig(Config{Locale: "nb"}))
	view, _ := f.View("name")
	if view.Label != "Navn" {
		t.Fatalf("expected localised label, got %q", view.Label)
	}
	if stored := schema.FindByKey(f.Export(), "name"); stored.Label != "Name" {
		t.Fatalf("expected stored label untouched, got %q", stored.Label)
	}
	_, errs := f.Submit()
	if diff := cmp.Diff([]string{"Navn må fylles ut"}, errs.Messages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}
