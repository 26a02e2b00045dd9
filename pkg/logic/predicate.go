package logic

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/goliatone/go-formengine/pkg/schema"
)

const maxPredicateDepth = 128

// ErrPredicateDepth is returned when a predicate tree nests too deeply.
var ErrPredicateDepth = errors.New("logic: predicate tree too deep")

// PredicateError reports an unknown operator or malformed arguments.
type PredicateError struct {
	Op  string
	Msg string
}

func (e *PredicateError) Error() string {
	return fmt.Sprintf("logic: predicate %q: %s", e.Op, e.Msg)
}

// EvalPredicate evaluates a JSON-logic style predicate tree against
// {data, row}. The tree is data, not code: a single-key record is an
// operator application, anything else is a literal. Variables are read with
// {"var": "data.total"}, {"var": "row.qty"} or a bare path, which resolves
// against data.
func EvalPredicate(tree any, data, row map[string]any) (any, error) {
	if row == nil {
		row = data
	}
	p := &predicate{data: data, row: row}
	value := p.resolve(tree, 0)
	return value, p.err
}

// Truthy reports whether value counts as true in predicate terms: nil,
// false, 0, "" and empty collections are falsy.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	if n, ok := toFloat(value); ok {
		return n != 0 && !math.IsNaN(n)
	}
	return true
}

type predicate struct {
	data    map[string]any
	row     map[string]any
	element any
	inScope bool
	err     error
}

func (p *predicate) fail(err error) any {
	if p.err == nil {
		p.err = err
	}
	return nil
}

func (p *predicate) resolve(node any, depth int) any {
	if p.err != nil {
		return nil
	}
	if depth > maxPredicateDepth {
		return p.fail(ErrPredicateDepth)
	}
	switch v := node.(type) {
	case map[string]any:
		if len(v) == 1 {
			for op, args := range v {
				return p.apply(op, args, depth+1)
			}
		}
		return v
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = p.resolve(elem, depth+1)
		}
		return out
	default:
		return v
	}
}

func (p *predicate) args(args any, expected int, depth int) []any {
	out := make([]any, expected)
	arr, ok := args.([]any)
	if !ok {
		if expected > 0 {
			out[0] = p.resolve(args, depth)
		}
		return out
	}
	for i := 0; i < expected && i < len(arr); i++ {
		out[i] = p.resolve(arr[i], depth)
	}
	return out
}

func (p *predicate) list(args any, depth int) []any {
	arr, ok := args.([]any)
	if !ok {
		return []any{p.resolve(args, depth)}
	}
	out := make([]any, len(arr))
	for i, item := range arr {
		out[i] = p.resolve(item, depth)
	}
	return out
}

func (p *predicate) apply(op string, args any, depth int) any {
	switch op {
	case "var":
		return p.opVar(args, depth)
	case "missing":
		return p.opMissing(args, depth)

	case "==":
		a := p.args(args, 2, depth)
		return looseEqual(a[0], a[1])
	case "!=":
		a := p.args(args, 2, depth)
		return !looseEqual(a[0], a[1])
	case "===":
		a := p.args(args, 2, depth)
		return schema.Equal(a[0], a[1])
	case "!==":
		a := p.args(args, 2, depth)
		return !schema.Equal(a[0], a[1])
	case ">":
		a := p.args(args, 2, depth)
		return compareNumeric(a[0], a[1], func(x, y float64) bool { return x > y })
	case ">=":
		a := p.args(args, 2, depth)
		return compareNumeric(a[0], a[1], func(x, y float64) bool { return x >= y })
	case "<", "<=":
		return p.opLess(op, args, depth)

	case "and":
		return p.opAnd(args, depth)
	case "or":
		return p.opOr(args, depth)
	case "!", "not":
		a := p.args(args, 1, depth)
		return !Truthy(a[0])
	case "!!":
		a := p.args(args, 1, depth)
		return Truthy(a[0])
	case "if", "?:":
		return p.opIf(args, depth)

	case "+":
		return fold(p.list(args, depth), 0, func(x, y float64) float64 { return x + y })
	case "*":
		return fold(p.list(args, depth), 1, func(x, y float64) float64 { return x * y })
	case "-":
		return p.opSubtract(args, depth)
	case "/":
		a := p.args(args, 2, depth)
		return arithmetic(a[0], a[1], func(x, y float64) (float64, bool) { return x / y, y != 0 })
	case "%":
		a := p.args(args, 2, depth)
		return arithmetic(a[0], a[1], func(x, y float64) (float64, bool) { return math.Mod(x, y), y != 0 })
	case "min", "max":
		return extreme(op, p.list(args, depth))

	case "cat":
		var b strings.Builder
		for _, item := range p.list(args, depth) {
			b.WriteString(schema.Stringify(item))
		}
		return b.String()
	case "in":
		a := p.args(args, 2, depth)
		return contains(a[1], a[0])
	case "some", "all", "none":
		return p.opQuantifier(op, args, depth)

	default:
		return p.fail(&PredicateError{Op: op, Msg: "unknown operator"})
	}
}

// opVar reads a variable: "data.a", "row.b", a bare path (data), or "" for
// the current element inside some/all/none. An optional second argument is
// the default for missing values.
func (p *predicate) opVar(args any, depth int) any {
	var (
		path     any
		fallback any
	)
	if arr, ok := args.([]any); ok {
		if len(arr) > 0 {
			path = p.resolve(arr[0], depth)
		}
		if len(arr) > 1 {
			fallback = p.resolve(arr[1], depth)
		}
	} else {
		path = p.resolve(args, depth)
	}

	value, ok := p.lookup(schema.Stringify(path))
	if !ok || value == nil {
		return fallback
	}
	return value
}

func (p *predicate) lookup(path string) (any, bool) {
	path = strings.TrimSpace(path)
	if p.inScope {
		if path == "" {
			return p.element, true
		}
		if record, ok := p.element.(map[string]any); ok {
			if value, found := walkPath(record, path); found {
				return value, true
			}
		}
	}
	switch {
	case path == "":
		return p.data, true
	case path == "data":
		return p.data, true
	case path == "row":
		return p.row, true
	case strings.HasPrefix(path, "data."):
		return walkPath(p.data, path[len("data."):])
	case strings.HasPrefix(path, "row."):
		return walkPath(p.row, path[len("row."):])
	}
	return walkPath(p.data, path)
}

func walkPath(values map[string]any, path string) (any, bool) {
	if values == nil {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}
	var current any = values
	for _, part := range strings.Split(path, ".") {
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, ok := toFloat(part)
			if !ok || idx < 0 || int(idx) >= len(typed) {
				return nil, false
			}
			current = typed[int(idx)]
		default:
			return nil, false
		}
	}
	return current, true
}

func (p *predicate) opMissing(args any, depth int) any {
	keys := p.list(args, depth)
	if len(keys) == 1 {
		if nested, ok := keys[0].([]any); ok {
			keys = nested
		}
	}
	missing := []any{}
	for _, key := range keys {
		value, ok := p.lookup(schema.Stringify(key))
		if !ok || value == nil || value == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// opLess supports the between form {"<": [a, b, c]} meaning a < b < c.
func (p *predicate) opLess(op string, args any, depth int) any {
	less := func(x, y float64) bool { return x < y }
	if op == "<=" {
		less = func(x, y float64) bool { return x <= y }
	}
	if arr, ok := args.([]any); ok && len(arr) == 3 {
		a := p.args(args, 3, depth)
		return compareNumeric(a[0], a[1], less) && compareNumeric(a[1], a[2], less)
	}
	a := p.args(args, 2, depth)
	return compareNumeric(a[0], a[1], less)
}

// opAnd returns the first falsy argument or the last one, short-circuiting.
func (p *predicate) opAnd(args any, depth int) any {
	arr, ok := args.([]any)
	if !ok {
		return p.resolve(args, depth)
	}
	var last any = true
	for _, arg := range arr {
		last = p.resolve(arg, depth)
		if !Truthy(last) {
			return last
		}
	}
	return last
}

// opOr returns the first truthy argument or the last one, short-circuiting.
func (p *predicate) opOr(args any, depth int) any {
	arr, ok := args.([]any)
	if !ok {
		return p.resolve(args, depth)
	}
	var last any = false
	for _, arg := range arr {
		last = p.resolve(arg, depth)
		if Truthy(last) {
			return last
		}
	}
	return last
}

// opIf implements {"if": [cond, then, cond2, then2, ..., else]}.
func (p *predicate) opIf(args any, depth int) any {
	arr, ok := args.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	if len(arr) == 1 {
		return p.resolve(arr[0], depth)
	}
	for i := 0; i+1 < len(arr); i += 2 {
		if Truthy(p.resolve(arr[i], depth)) {
			return p.resolve(arr[i+1], depth)
		}
	}
	if len(arr)%2 == 1 {
		return p.resolve(arr[len(arr)-1], depth)
	}
	return nil
}

func (p *predicate) opSubtract(args any, depth int) any {
	values := p.list(args, depth)
	if len(values) == 1 {
		n, ok := toFloat(values[0])
		if !ok {
			return nil
		}
		return -n
	}
	if len(values) < 2 {
		return nil
	}
	return arithmetic(values[0], values[1], func(x, y float64) (float64, bool) { return x - y, true })
}

// opQuantifier evaluates some/all/none. The condition sees each element
// through {"var": ""} and its fields through {"var": "field"}.
func (p *predicate) opQuantifier(op string, args any, depth int) any {
	arr, ok := args.([]any)
	if !ok || len(arr) < 2 {
		return false
	}
	items, _ := p.resolve(arr[0], depth).([]any)
	if len(items) == 0 {
		return op != "some"
	}

	prevElement, prevScope := p.element, p.inScope
	defer func() { p.element, p.inScope = prevElement, prevScope }()

	for _, item := range items {
		p.element, p.inScope = item, true
		matched := Truthy(p.resolve(arr[1], depth))
		switch {
		case op == "some" && matched:
			return true
		case op == "all" && !matched:
			return false
		case op == "none" && matched:
			return false
		}
	}
	return op != "some"
}

// looseEqual compares values the way form authors expect: numbers compare
// numerically even when one side is a numeric string, booleans compare with
// "true"/"false", and everything else compares by string form.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, ok := toFloat(a); ok {
		if bn, ok := toFloat(b); ok {
			return an == bn
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := schema.AsBool(b); ok {
			return ab == bb
		}
	}
	if bb, ok := b.(bool); ok {
		if ab, ok := schema.AsBool(a); ok {
			return ab == bb
		}
	}
	return schema.Stringify(a) == schema.Stringify(b)
}

func compareNumeric(a, b any, cmp func(float64, float64) bool) bool {
	if a == nil || b == nil {
		return false
	}
	an, aok := toFloat(a)
	bn, bok := toFloat(b)
	if !aok || !bok {
		return false
	}
	return cmp(an, bn)
}

func arithmetic(a, b any, op func(float64, float64) (float64, bool)) any {
	an, aok := toFloat(a)
	bn, bok := toFloat(b)
	if !aok || !bok {
		return nil
	}
	out, ok := op(an, bn)
	if !ok {
		return nil
	}
	return out
}

func fold(values []any, seed float64, op func(float64, float64) float64) any {
	if len(values) == 0 {
		return nil
	}
	acc := seed
	for _, value := range values {
		n, ok := toFloat(value)
		if !ok {
			return nil
		}
		acc = op(acc, n)
	}
	return acc
}

func extreme(op string, values []any) any {
	var (
		out   float64
		found bool
	)
	for _, value := range values {
		n, ok := toFloat(value)
		if !ok {
			return nil
		}
		if !found || (op == "min" && n < out) || (op == "max" && n > out) {
			out, found = n, true
		}
	}
	if !found {
		return nil
	}
	return out
}

func contains(haystack, needle any) bool {
	if needle == nil || haystack == nil {
		return false
	}
	switch h := haystack.(type) {
	case []any:
		for _, item := range h {
			if looseEqual(needle, item) {
				return true
			}
		}
	case string:
		return strings.Contains(h, schema.Stringify(needle))
	case map[string]any:
		_, ok := h[schema.Stringify(needle)]
		return ok
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch value.(type) {
	case bool, nil:
		return 0, false
	case string:
		if strings.TrimSpace(value.(string)) == "" {
			return 0, false
		}
	}
	return schema.AsNumber(value)
}
