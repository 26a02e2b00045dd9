package script

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.starlark.net/starlark"
)

// ToValue converts a JSON-like Go value to a starlark value. Records become
// read-only record values with attribute access; integral floats become ints
// so arithmetic on JSON numbers reads naturally.
func ToValue(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return val, nil
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int8:
		return starlark.MakeInt(int(val)), nil
	case int16:
		return starlark.MakeInt(int(val)), nil
	case int32:
		return starlark.MakeInt(int(val)), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case uint:
		return starlark.MakeUint(val), nil
	case uint32:
		return starlark.MakeUint(uint(val)), nil
	case uint64:
		return starlark.MakeUint64(val), nil
	case float32:
		return floatValue(float64(val)), nil
	case float64:
		return floatValue(val), nil
	case string:
		return starlark.String(val), nil
	case []string:
		items := make([]starlark.Value, len(val))
		for i, item := range val {
			items[i] = starlark.String(item)
		}
		return starlark.NewList(items), nil
	case []any:
		items := make([]starlark.Value, len(val))
		for i, item := range val {
			converted, err := ToValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = converted
		}
		return starlark.NewList(items), nil
	case map[string]any:
		return newRecord(val), nil
	case map[string]string:
		record := make(map[string]any, len(val))
		for k, item := range val {
			record[k] = item
		}
		return newRecord(record), nil
	case map[string]bool:
		record := make(map[string]any, len(val))
		for k, item := range val {
			record[k] = item
		}
		return newRecord(record), nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func floatValue(f float64) starlark.Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return starlark.MakeInt64(int64(f))
	}
	return starlark.Float(f)
}

// FromValue converts a starlark value back to a JSON-like Go value.
func FromValue(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case nil, starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		if i, ok := val.Int64(); ok {
			return i, nil
		}
		f := float64(val.Float())
		return f, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := FromValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case starlark.Tuple:
		out := make([]any, len(val))
		for i, item := range val {
			converted, err := FromValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			converted, err := FromValue(item[1])
			if err != nil {
				return nil, err
			}
			out[string(key)] = converted
		}
		return out, nil
	case *record:
		out := make(map[string]any, len(val.values))
		for k, item := range val.values {
			out[k] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}

// record exposes a Go map to scripts. Missing attributes read as None so
// partially filled forms do not raise.
type record struct {
	values map[string]any
}

var (
	_ starlark.HasAttrs        = (*record)(nil)
	_ starlark.IterableMapping = (*record)(nil)
	_ starlark.Sequence        = (*record)(nil)
)

func newRecord(values map[string]any) *record {
	return &record{values: values}
}

func (r *record) String() string {
	keys := r.keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, r.values[k]))
	}
	return "record(" + strings.Join(parts, ", ") + ")"
}

func (r *record) Type() string         { return "record" }
func (r *record) Freeze()              {}
func (r *record) Truth() starlark.Bool { return len(r.values) > 0 }
func (r *record) Len() int             { return len(r.values) }

func (r *record) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: record")
}

func (r *record) Attr(name string) (starlark.Value, error) {
	value, ok := r.values[name]
	if !ok {
		return starlark.None, nil
	}
	return ToValue(value)
}

func (r *record) AttrNames() []string {
	return r.keys()
}

func (r *record) Get(key starlark.Value) (starlark.Value, bool, error) {
	name, ok := key.(starlark.String)
	if !ok {
		return nil, false, nil
	}
	value, exists := r.values[string(name)]
	if !exists {
		return starlark.None, false, nil
	}
	converted, err := ToValue(value)
	if err != nil {
		return nil, false, err
	}
	return converted, true, nil
}

func (r *record) Items() []starlark.Tuple {
	keys := r.keys()
	out := make([]starlark.Tuple, 0, len(keys))
	for _, k := range keys {
		converted, err := ToValue(r.values[k])
		if err != nil {
			continue
		}
		out = append(out, starlark.Tuple{starlark.String(k), converted})
	}
	return out
}

func (r *record) Iterate() starlark.Iterator {
	keys := r.keys()
	items := make([]starlark.Value, len(keys))
	for i, k := range keys {
		items[i] = starlark.String(k)
	}
	return starlark.NewList(items).Iterate()
}

func (r *record) keys() []string {
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
