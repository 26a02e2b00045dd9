package script

import (
	"fmt"
	"math"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// builtins are the helpers available to every script on top of the starlark
// universe (len, str, int, float, min, max, abs, sorted, ...).
func builtins() starlark.StringDict {
	return starlark.StringDict{
		"sum":      starlark.NewBuiltin("sum", builtinSum),
		"round":    starlark.NewBuiltin("round", builtinRound),
		"is_empty": starlark.NewBuiltin("is_empty", builtinIsEmpty),
		"contains": starlark.NewBuiltin("contains", builtinContains),
	}
}

func builtinSum(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var items starlark.Iterable
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &items); err != nil {
		return nil, err
	}
	iter := items.Iterate()
	defer iter.Done()

	var (
		total   starlark.Value = starlark.MakeInt(0)
		element starlark.Value
	)
	for iter.Next(&element) {
		if element == starlark.None {
			continue
		}
		next, err := starlark.Binary(syntax.PLUS, total, element)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn.Name(), err)
		}
		total = next
	}
	return total, nil
}

func builtinRound(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		number starlark.Value
		digits = 0
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "number", &number, "digits?", &digits); err != nil {
		return nil, err
	}
	f, ok := starlark.AsFloat(number)
	if !ok {
		return nil, fmt.Errorf("%s: expected number, got %s", fn.Name(), number.Type())
	}
	scale := math.Pow(10, float64(digits))
	rounded := math.Round(f*scale) / scale
	if digits <= 0 {
		return starlark.MakeInt64(int64(rounded)), nil
	}
	return starlark.Float(rounded), nil
}

func builtinIsEmpty(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value starlark.Value
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &value); err != nil {
		return nil, err
	}
	switch v := value.(type) {
	case starlark.NoneType:
		return starlark.True, nil
	case starlark.String:
		return starlark.Bool(strings.TrimSpace(string(v)) == ""), nil
	case starlark.Sequence:
		return starlark.Bool(v.Len() == 0), nil
	case *starlark.Dict:
		return starlark.Bool(v.Len() == 0), nil
	}
	return starlark.False, nil
}

func builtinContains(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var container, needle starlark.Value
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &container, &needle); err != nil {
		return nil, err
	}
	if container == starlark.None {
		return starlark.False, nil
	}
	if s, ok := container.(starlark.String); ok {
		sub, ok := needle.(starlark.String)
		if !ok {
			return starlark.False, nil
		}
		return starlark.Bool(strings.Contains(string(s), string(sub))), nil
	}
	found, err := starlark.Binary(syntax.IN, needle, container)
	if err != nil {
		return starlark.False, nil
	}
	return found, nil
}
