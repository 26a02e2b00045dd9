package logic

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func v(path string) map[string]any { return map[string]any{"var": path} }

func op(name string, args ...any) map[string]any { return map[string]any{name: args} }

func TestEvalPredicateOperators(t *testing.T) {
	data := map[string]any{
		"age":    float64(30),
		"name":   "Ada",
		"qty":    "4",
		"tags":   []any{"go", "forms"},
		"scores": []any{float64(70), float64(90)},
		"lines":  []any{map[string]any{"price": float64(5)}, map[string]any{"price": float64(15)}},
		"owner":  map[string]any{"email": "ada@example.com"},
	}
	row := map[string]any{"qty": float64(2)}

	cases := []struct {
		name string
		tree any
		want any
	}{
		{"literal", "hello", "hello"},
		{"var data prefix", v("data.age"), float64(30)},
		{"var bare path", v("owner.email"), "ada@example.com"},
		{"var row", v("row.qty"), float64(2)},
		{"var default", map[string]any{"var": []any{"missing", "fallback"}}, "fallback"},
		{"loose equal", op("==", v("qty"), float64(4)), true},
		{"strict equal", op("===", v("qty"), float64(4)), false},
		{"not equal", op("!=", v("name"), "Bob"), true},
		{"greater", op(">", v("age"), float64(18)), true},
		{"between", op("<", float64(1), v("row.qty"), float64(3)), true},
		{"and returns last", op("and", true, v("name")), "Ada"},
		{"or returns first truthy", op("or", v("missing"), float64(0), "x"), "x"},
		{"not", map[string]any{"!": []any{v("missing")}}, true},
		{"double not", map[string]any{"!!": []any{v("tags")}}, true},
		{"if chain", op("if", op(">", v("age"), float64(65)), "senior", op(">", v("age"), float64(18)), "adult", "minor"), "adult"},
		{"add", op("+", v("age"), float64(1), "2"), float64(33)},
		{"subtract", op("-", v("age"), float64(5)), float64(25)},
		{"negate", op("-", float64(3)), float64(-3)},
		{"multiply", op("*", v("row.qty"), float64(3)), float64(6)},
		{"divide by zero", op("/", v("age"), float64(0)), nil},
		{"modulo", op("%", v("age"), float64(7)), float64(2)},
		{"max", op("max", float64(1), v("age"), float64(3)), float64(30)},
		{"cat", op("cat", "Hi ", v("name")), "Hi Ada"},
		{"in list", op("in", "go", v("tags")), true},
		{"in string", op("in", "d", v("name")), true},
		{"some", op("some", v("scores"), op(">", v(""), float64(80))), true},
		{"all", op("all", v("scores"), op(">", v(""), float64(80))), false},
		{"none", op("none", v("lines"), op(">", v("price"), float64(20))), true},
		{"all on empty", op("all", []any{}, true), true},
		{"missing", op("missing", "name", "nope", "owner.email", "zip"), []any{"nope", "zip"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EvalPredicate(tc.tree, data, row)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvalPredicateUnknownOperator(t *testing.T) {
	_, err := EvalPredicate(op("and", true, op("frobnicate", 1)), nil, nil)
	var predErr *PredicateError
	if !errors.As(err, &predErr) || predErr.Op != "frobnicate" {
		t.Fatalf("expected unknown operator error, got %v", err)
	}
}

func TestEvalPredicateDepthLimit(t *testing.T) {
	var tree any = true
	for i := 0; i < maxPredicateDepth+10; i++ {
		tree = map[string]any{"!!": []any{tree}}
	}
	if _, err := EvalPredicate(tree, nil, nil); !errors.Is(err, ErrPredicateDepth) {
		t.Fatalf("expected depth error, got %v", err)
	}
}

func TestTruthy(t *testing.T) {
	for value, want := range map[any]bool{
		nil:   false,
		"":    false,
		"0":   true,
		0.0:   false,
		1:     true,
		true:  true,
		false: false,
	} {
		if got := Truthy(value); got != want {
			t.Errorf("Truthy(%#v) = %v, want %v", value, got, want)
		}
	}
	if Truthy([]any{}) || !Truthy(map[string]any{"a": 1}) {
		t.Fatalf("unexpected collection truthiness")
	}
}
