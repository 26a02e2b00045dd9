package validation

import (
	"github.com/goliatone/go-formengine/pkg/schema"
)

// ValidateAll validates every visible input in nodes against data. Invisible
// nodes are pruned with their subtree; non-input nodes are skipped but their
// children are still visited. A nil visible func treats every node as
// visible.
func (v *Validator) ValidateAll(nodes []*schema.Node, data map[string]any, visible VisibilityFunc) Errors {
	return v.ValidateTree(nodes, data, Scope{Visible: visible})
}

// ValidateKeys is ValidateAll restricted to the given keys, used to gate a
// wizard page on its own inputs.
func (v *Validator) ValidateKeys(nodes []*schema.Node, data map[string]any, keys []string, visible VisibilityFunc) Errors {
	return v.ValidateTree(nodes, data, Scope{Visible: visible, Keys: keys})
}

// EffectiveFunc returns the node as it should be validated, typically the
// stored node merged with its logic overrides.
type EffectiveFunc func(node *schema.Node) *schema.Node

// Scope narrows a tree validation.
type Scope struct {
	// Visible prunes invisible subtrees. Nil treats every node as visible.
	Visible VisibilityFunc
	// Effective substitutes the node rules are read from.
	Effective EffectiveFunc
	// Keys restricts validation to these keys when non-nil.
	Keys []string
}

// ValidateTree validates the inputs of nodes selected by scope.
func (v *Validator) ValidateTree(nodes []*schema.Node, data map[string]any, scope Scope) Errors {
	var only map[string]struct{}
	if scope.Keys != nil {
		only = make(map[string]struct{}, len(scope.Keys))
		for _, key := range scope.Keys {
			only[key] = struct{}{}
		}
	}
	visible := scope.Visible
	var out Errors
	if data == nil {
		data = map[string]any{}
	}
	schema.WalkPath(nodes, func(node *schema.Node, ancestors []*schema.Node) bool {
		if visible != nil && !visible(node) {
			return false
		}
		if node.Key == "" || !v.isInput(node) {
			return true
		}
		if only != nil {
			if _, ok := only[node.Key]; !ok {
				return true
			}
		}
		path := schema.DataPath(node, ancestors, v.info)
		value, _ := schema.Lookup(data, path)
		row := data
		if len(path) > 1 {
			if parent, ok := schema.Lookup(data, path[:len(path)-1]); ok {
				if record, ok := parent.(map[string]any); ok {
					row = record
				}
			}
		}
		target := node
		if scope.Effective != nil {
			if effective := scope.Effective(node); effective != nil {
				target = effective
			}
		}
		out.Add(v.ValidateFieldIn(target, value, data, row)...)
		return true
	})
	return out
}

func (v *Validator) isInput(node *schema.Node) bool {
	if v.info != nil {
		return v.info.IsInput(node)
	}
	if flag, ok := node.IsInputFlagged(); ok {
		return flag
	}
	return !node.HasChildren()
}
