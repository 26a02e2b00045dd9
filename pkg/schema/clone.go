package schema

import (
	"reflect"

	"github.com/rs/zerolog"
)

// CloneOption configures Clone.
type CloneOption func(*cloner)

// WithCloneLogger routes cycle warnings to logger.
func WithCloneLogger(logger zerolog.Logger) CloneOption {
	return func(c *cloner) {
		c.logger = logger
	}
}

// Clone returns a deep copy of nodes. A node that appears as its own
// descendant (through aliasing) is dropped from the copy and a warning is
// logged; the walk never recurses forever. Shared but acyclic aliases are
// copied once per occurrence, so the result is always a proper tree.
func Clone(nodes []*Node, opts ...CloneOption) []*Node {
	c := newCloner(opts)
	return c.list(nodes)
}

// CloneNode deep-copies a single node with the same cycle protection as Clone.
func CloneNode(node *Node, opts ...CloneOption) *Node {
	c := newCloner(opts)
	return c.node(node)
}

// CloneValue deep-copies JSON-like values (maps, slices, scalars).
func CloneValue(value any) any {
	c := newCloner(nil)
	return c.value(value)
}

// CloneData deep-copies a data bag.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out, _ := CloneValue(data).(map[string]any)
	return out
}

type cloner struct {
	logger  zerolog.Logger
	active  map[*Node]struct{}
	entries map[*TreeNode]struct{}
	values  map[uintptr]struct{}
}

func newCloner(opts []CloneOption) *cloner {
	c := &cloner{
		logger:  zerolog.Nop(),
		active:  make(map[*Node]struct{}),
		entries: make(map[*TreeNode]struct{}),
		values:  make(map[uintptr]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *cloner) list(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, 0, len(nodes))
	for _, node := range nodes {
		if node == nil {
			continue
		}
		if copied := c.node(node); copied != nil {
			out = append(out, copied)
		}
	}
	return out
}

func (c *cloner) node(node *Node) *Node {
	if node == nil {
		return nil
	}
	if _, cyclic := c.active[node]; cyclic {
		c.logger.Warn().
			Str("key", node.Key).
			Str("type", node.Type).
			Msg("schema clone: circular reference dropped")
		return nil
	}
	c.active[node] = struct{}{}
	defer delete(c.active, node)

	out := *node
	if node.Input != nil {
		flag := *node.Input
		out.Input = &flag
	}
	out.DefaultValue = c.value(node.DefaultValue)
	out.Properties = c.record(node.Properties)
	if node.Values != nil {
		out.Values = make([]Option, len(node.Values))
		for idx, option := range node.Values {
			out.Values[idx] = Option{Label: option.Label, Value: c.value(option.Value)}
		}
	}
	out.Validate = cloneRule(node.Validate)
	out.Conditional = c.conditional(node.Conditional)
	if node.Logic != nil {
		out.Logic = make([]LogicRule, len(node.Logic))
		for idx, rule := range node.Logic {
			out.Logic[idx] = c.logicRule(rule)
		}
	}

	out.Components = c.list(node.Components)
	if node.Columns != nil {
		out.Columns = make([]*Column, 0, len(node.Columns))
		for _, column := range node.Columns {
			if column == nil {
				continue
			}
			out.Columns = append(out.Columns, &Column{Width: column.Width, Components: c.list(column.Components)})
		}
	}
	if node.Panels != nil {
		out.Panels = make([]*Panel, 0, len(node.Panels))
		for _, panel := range node.Panels {
			if panel == nil {
				continue
			}
			out.Panels = append(out.Panels, &Panel{Key: panel.Key, Label: panel.Label, Components: c.list(panel.Components)})
		}
	}
	if node.Rows != nil {
		out.Rows = make([][]*Cell, len(node.Rows))
		for r, row := range node.Rows {
			cells := make([]*Cell, len(row))
			for idx, cell := range row {
				if cell == nil {
					continue
				}
				cells[idx] = &Cell{Components: c.list(cell.Components)}
			}
			out.Rows[r] = cells
		}
	}
	out.Tree = c.tree(node.Tree)
	return &out
}

func (c *cloner) tree(entries []*TreeNode) []*TreeNode {
	if entries == nil {
		return nil
	}
	out := make([]*TreeNode, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if _, cyclic := c.entries[entry]; cyclic {
			c.logger.Warn().Msg("schema clone: circular tree entry dropped")
			continue
		}
		c.entries[entry] = struct{}{}
		out = append(out, &TreeNode{
			Data:       c.record(entry.Data),
			Components: c.list(entry.Components),
			Children:   c.tree(entry.Children),
		})
		delete(c.entries, entry)
	}
	return out
}

func (c *cloner) conditional(cond *Conditional) *Conditional {
	if cond == nil {
		return nil
	}
	out := *cond
	if cond.Show != nil {
		show := *cond.Show
		out.Show = &show
	}
	out.Eq = c.value(cond.Eq)
	out.JSON = c.value(cond.JSON)
	return &out
}

func (c *cloner) logicRule(rule LogicRule) LogicRule {
	out := rule
	out.Trigger.Simple = c.conditional(rule.Trigger.Simple)
	out.Trigger.JSON = c.value(rule.Trigger.JSON)
	if rule.Actions != nil {
		out.Actions = make([]Action, len(rule.Actions))
		for idx, action := range rule.Actions {
			action.Value = c.value(action.Value)
			out.Actions[idx] = action
		}
	}
	return out
}

func (c *cloner) record(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out, _ := c.value(in).(map[string]any)
	return out
}

func (c *cloner) value(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case map[string]any:
		if typed == nil {
			return typed
		}
		id := reflect.ValueOf(typed).Pointer()
		if _, cyclic := c.values[id]; cyclic {
			c.logger.Warn().Msg("schema clone: circular map value dropped")
			return nil
		}
		c.values[id] = struct{}{}
		defer delete(c.values, id)
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = c.value(v)
		}
		return out
	case []any:
		if typed == nil {
			return typed
		}
		var id uintptr
		if len(typed) > 0 {
			id = reflect.ValueOf(typed).Pointer()
			if _, cyclic := c.values[id]; cyclic {
				c.logger.Warn().Msg("schema clone: circular list value dropped")
				return nil
			}
			c.values[id] = struct{}{}
			defer delete(c.values, id)
		}
		out := make([]any, len(typed))
		for idx, v := range typed {
			out[idx] = c.value(v)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	case []float64:
		return append([]float64(nil), typed...)
	case []int:
		return append([]int(nil), typed...)
	case map[string]string:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = v
		}
		return out
	case map[string]bool:
		out := make(map[string]bool, len(typed))
		for k, v := range typed {
			out[k] = v
		}
		return out
	default:
		return value
	}
}

func cloneRule(rule *ValidationRule) *ValidationRule {
	if rule == nil {
		return nil
	}
	out := *rule
	out.MinLength = cloneInt(rule.MinLength)
	out.MaxLength = cloneInt(rule.MaxLength)
	out.MinWords = cloneInt(rule.MinWords)
	out.MaxWords = cloneInt(rule.MaxWords)
	out.MinSelectedCount = cloneInt(rule.MinSelectedCount)
	out.MaxSelectedCount = cloneInt(rule.MaxSelectedCount)
	out.Min = cloneFloat(rule.Min)
	out.Max = cloneFloat(rule.Max)
	return &out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
