package script

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRunAssignsOutVariable(t *testing.T) {
	sb := New()
	cases := []struct {
		name     string
		src      string
		seed     any
		bindings Bindings
		want     any
	}{
		{
			name:     "arithmetic on data",
			src:      "value = data.a * 2",
			bindings: Bindings{"data": map[string]any{"a": float64(3)}},
			want:     int64(6),
		},
		{
			name: "reads seed before reassigning",
			src:  "value = value + 1",
			seed: float64(41),
			want: int64(42),
		},
		{
			name:     "bare expression",
			src:      "data.first + ' ' + data.last",
			bindings: Bindings{"data": map[string]any{"first": "Ada", "last": "Lovelace"}},
			want:     "Ada Lovelace",
		},
		{
			name:     "javascript operators",
			src:      `value = data.role === "admin" && !data.locked`,
			bindings: Bindings{"data": map[string]any{"role": "admin", "locked": false}},
			want:     true,
		},
		{
			name:     "missing attribute reads as none",
			src:      "value = data.missing == null",
			bindings: Bindings{"data": map[string]any{}},
			want:     true,
		},
		{
			name: "conditionals",
			src:  "if row.qty > 2:\n  value = 'bulk'\nelse:\n  value = 'single'",
			bindings: Bindings{
				"row": map[string]any{"qty": float64(5)},
			},
			want: "bulk",
		},
		{
			name:     "fractional result",
			src:      "value = sum(data.prices) / 2",
			bindings: Bindings{"data": map[string]any{"prices": []any{1.5, 2.0}}},
			want:     1.75,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sb.Run(tc.src, "value", tc.seed, tc.bindings)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunReturnsRecords(t *testing.T) {
	got, err := New().Run(`result = {"label": "Company", "hidden": false}`, "result", nil, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := map[string]any{"label": "Company", "hidden": false}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestRunClassifiesErrors(t *testing.T) {
	cases := []struct {
		name string
		sb   *Sandbox
		src  string
		kind string
	}{
		{"syntax", New(), "value = (", KindCompile},
		{"undefined name", New(), "value = nope + 1", KindCompile},
		{"runtime", New(), "value = 1 / 0", KindRuntime},
		{"budget", New(WithStepBudget(50)), "for i in range(100000):\n  value = i", KindBudget},
		{"empty", New(), "   ", KindEmpty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.sb.Run(tc.src, "value", nil, nil)
			var scriptErr *Error
			if !errors.As(err, &scriptErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if scriptErr.Kind != tc.kind {
				t.Fatalf("kind = %q, want %q (%v)", scriptErr.Kind, tc.kind, err)
			}
		})
	}
}

func TestRunTimesOut(t *testing.T) {
	sb := New(WithTimeout(10*time.Millisecond), WithStepBudget(1<<40))
	_, err := sb.Run("for i in range(1 << 30):\n  value = i", "value", nil, nil)
	var scriptErr *Error
	if !errors.As(err, &scriptErr) || scriptErr.Kind != KindTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestEvalBareExpression(t *testing.T) {
	got, err := New().Eval("len(data.tags) >= 2", Bindings{"data": map[string]any{"tags": []any{"a", "b"}}})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got != true {
		t.Fatalf("expected true, got %#v", got)
	}
}

func TestAssigns(t *testing.T) {
	cases := []struct {
		src  string
		want bool
	}{
		{"value = 1", true},
		{"x = 1; value += 2", true},
		{"value == 1", false},
		{"other_value = 1", false},
		{"if a:\n  value = 3", true},
	}
	for _, tc := range cases {
		if got := Assigns(tc.src, "value"); got != tc.want {
			t.Errorf("Assigns(%q) = %v, want %v", tc.src, got, tc.want)
		}
	}
}
