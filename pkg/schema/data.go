package schema

import (
	"math"
	"reflect"
)

// Data is the flat key→value record backing a form instance. Data-group
// containers hold a nested record under their own key.
type Data = map[string]any

// TypeInfo answers the type questions traversal helpers need without pulling
// in the registry package.
type TypeInfo interface {
	IsInput(node *Node) bool
	IsDataGroup(node *Node) bool
}

// DataPath returns the bag path for node given its container ancestors: the
// keys of enclosing data groups followed by the node key.
func DataPath(node *Node, ancestors []*Node, info TypeInfo) []string {
	if node == nil {
		return nil
	}
	var path []string
	if info != nil {
		for _, ancestor := range ancestors {
			if ancestor != nil && ancestor.Key != "" && info.IsDataGroup(ancestor) {
				path = append(path, ancestor.Key)
			}
		}
	}
	return append(path, node.Key)
}

// Paths indexes every input key to its bag path.
func Paths(nodes []*Node, info TypeInfo) map[string][]string {
	out := make(map[string][]string)
	WalkPath(nodes, func(node *Node, ancestors []*Node) bool {
		if node.Key == "" {
			return true
		}
		if _, exists := out[node.Key]; exists {
			return true
		}
		if info == nil || info.IsInput(node) || info.IsDataGroup(node) {
			out[node.Key] = DataPath(node, ancestors, info)
		}
		return true
	})
	return out
}

// Lookup reads the value at path.
func Lookup(data map[string]any, path []string) (any, bool) {
	if len(path) == 0 || data == nil {
		return nil, false
	}
	var current any = data
	for _, part := range path {
		record, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := record[part]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// SetPath writes value at path, creating intermediate records.
func SetPath(data map[string]any, path []string, value any) {
	if data == nil || len(path) == 0 {
		return
	}
	current := data
	for _, part := range path[:len(path)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}

// DeletePath removes the value at path.
func DeletePath(data map[string]any, path []string) {
	if data == nil || len(path) == 0 {
		return
	}
	current := data
	for _, part := range path[:len(path)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	delete(current, path[len(path)-1])
}

// Defaults builds the initial data bag from node default values. Inputs
// without a default get nil (or an empty list when Multiple); data groups get
// an empty record.
func Defaults(nodes []*Node, info TypeInfo) map[string]any {
	out := make(map[string]any)
	WalkPath(nodes, func(node *Node, ancestors []*Node) bool {
		if node.Key == "" || info == nil {
			return true
		}
		path := DataPath(node, ancestors, info)
		switch {
		case info.IsDataGroup(node):
			if _, ok := Lookup(out, path); !ok {
				SetPath(out, path, make(map[string]any))
			}
		case info.IsInput(node):
			value := CloneValue(node.DefaultValue)
			if value == nil && node.Multiple {
				value = []any{}
			}
			SetPath(out, path, value)
		}
		return true
	})
	return out
}

// Equal reports value equality with numeric normalisation, so int64(6) and
// float64(6) compare equal. Records and lists compare element-wise.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, ok := numeric(a); ok {
		bf, ok := numeric(b)
		return ok && (af == bf || (math.IsNaN(af) && math.IsNaN(bf)))
	}
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, exists := bv[k]
			if !exists || !Equal(v, other) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for idx := range av {
			if !Equal(av[idx], bv[idx]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func numeric(value any) (float64, bool) {
	switch value.(type) {
	case string:
		return 0, false
	}
	return AsNumber(value)
}
