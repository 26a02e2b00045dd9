package schema

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Node is a single entry in the form schema tree. It describes either an input
// field or a layout container. Containers carry their children in one (or
// more) of the nesting shapes: Components, Columns, Panels, Rows or Tree.
// Unknown authoring properties land in Properties so overrides and builder
// patches can address them by name.
type Node struct {
	Type           string          `json:"type" yaml:"type"`
	Key            string          `json:"key" yaml:"key"`
	Label          string          `json:"label,omitempty" yaml:"label,omitempty"`
	Placeholder    string          `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Description    string          `json:"description,omitempty" yaml:"description,omitempty"`
	Tooltip        string          `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Input          *bool           `json:"input,omitempty" yaml:"input,omitempty"`
	Hidden         bool            `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Disabled       bool            `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Multiple       bool            `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	ClearOnHide    bool            `json:"clearOnHide,omitempty" yaml:"clearOnHide,omitempty"`
	DefaultValue   any             `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Values         []Option        `json:"values,omitempty" yaml:"values,omitempty"`
	Content        string          `json:"content,omitempty" yaml:"content,omitempty"`
	Validate       *ValidationRule `json:"validate,omitempty" yaml:"validate,omitempty"`
	Conditional    *Conditional    `json:"conditional,omitempty" yaml:"conditional,omitempty"`
	Logic          []LogicRule     `json:"logic,omitempty" yaml:"logic,omitempty"`
	CalculateValue string          `json:"calculateValue,omitempty" yaml:"calculateValue,omitempty"`
	Properties     map[string]any  `json:"properties,omitempty" yaml:"properties,omitempty"`

	Components []*Node     `json:"components,omitempty" yaml:"components,omitempty"`
	Columns    []*Column   `json:"columns,omitempty" yaml:"columns,omitempty"`
	Panels     []*Panel    `json:"panels,omitempty" yaml:"panels,omitempty"`
	Rows       [][]*Cell   `json:"rows,omitempty" yaml:"rows,omitempty"`
	Tree       []*TreeNode `json:"tree,omitempty" yaml:"tree,omitempty"`
}

// Option is a selectable choice for select, radio and selectboxes nodes.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value any    `json:"value" yaml:"value"`
}

// Column groups children of a column set.
type Column struct {
	Width      int     `json:"width,omitempty" yaml:"width,omitempty"`
	Components []*Node `json:"components,omitempty" yaml:"components,omitempty"`
}

// Panel is a named page or tab inside a tabbed container.
type Panel struct {
	Key        string  `json:"key,omitempty" yaml:"key,omitempty"`
	Label      string  `json:"label,omitempty" yaml:"label,omitempty"`
	Components []*Node `json:"components,omitempty" yaml:"components,omitempty"`
}

// Cell is one slot of a table grid.
type Cell struct {
	Components []*Node `json:"components,omitempty" yaml:"components,omitempty"`
}

// TreeNode is a recursive entry of a tree container. Data is the per-node
// record, Components the fields rendered for it and Children the nested
// entries.
type TreeNode struct {
	Data       map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	Components []*Node        `json:"components,omitempty" yaml:"components,omitempty"`
	Children   []*TreeNode    `json:"children,omitempty" yaml:"children,omitempty"`
}

// ValidationRule lists the constraints evaluated against a field value. Nil
// pointers mean "not configured".
type ValidationRule struct {
	Required           bool     `json:"required,omitempty" yaml:"required,omitempty"`
	MinLength          *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength          *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Min                *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max                *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern            string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Integer            bool     `json:"integer,omitempty" yaml:"integer,omitempty"`
	MinWords           *int     `json:"minWords,omitempty" yaml:"minWords,omitempty"`
	MaxWords           *int     `json:"maxWords,omitempty" yaml:"maxWords,omitempty"`
	MinSelectedCount   *int     `json:"minSelectedCount,omitempty" yaml:"minSelectedCount,omitempty"`
	MaxSelectedCount   *int     `json:"maxSelectedCount,omitempty" yaml:"maxSelectedCount,omitempty"`
	Custom             string   `json:"custom,omitempty" yaml:"custom,omitempty"`
	CustomMessage      string   `json:"customMessage,omitempty" yaml:"customMessage,omitempty"`
	OnlyAvailableItems bool     `json:"onlyAvailableItems,omitempty" yaml:"onlyAvailableItems,omitempty"`
}

// Conditional is the simple show/when/eq visibility rule. JSON holds an
// optional predicate tree and Expression an optional rule in the restricted
// expression grammar; either one takes precedence over When/Eq.
type Conditional struct {
	Show       *bool  `json:"show,omitempty" yaml:"show,omitempty"`
	When       string `json:"when,omitempty" yaml:"when,omitempty"`
	Eq         any    `json:"eq,omitempty" yaml:"eq,omitempty"`
	JSON       any    `json:"json,omitempty" yaml:"json,omitempty"`
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// UnmarshalJSON accepts "true"/"false" strings for show, which authoring tools
// frequently emit.
func (c *Conditional) UnmarshalJSON(data []byte) error {
	type alias Conditional
	var raw struct {
		alias
		Show json.RawMessage `json:"show,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Conditional(raw.alias)
	c.Show = nil
	if len(raw.Show) == 0 {
		return nil
	}
	var flag bool
	if err := json.Unmarshal(raw.Show, &flag); err == nil {
		c.Show = &flag
		return nil
	}
	var text string
	if err := json.Unmarshal(raw.Show, &text); err == nil {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(text)); err == nil {
			c.Show = &parsed
		}
	}
	return nil
}

// TriggerType enumerates logic trigger kinds.
type TriggerType string

const (
	TriggerSimple     TriggerType = "simple"
	TriggerJSON       TriggerType = "json"
	TriggerJavascript TriggerType = "javascript"
	TriggerExpression TriggerType = "expression"
)

// ActionProperty is the only action type the evaluator applies.
const ActionProperty = "property"

// LogicRule couples a trigger with the actions applied while it fires.
type LogicRule struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Trigger Trigger  `json:"trigger" yaml:"trigger"`
	Actions []Action `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// Trigger is the condition half of a logic rule. Only the member matching
// Type is consulted.
type Trigger struct {
	Type       TriggerType  `json:"type" yaml:"type"`
	Simple     *Conditional `json:"simple,omitempty" yaml:"simple,omitempty"`
	JSON       any          `json:"json,omitempty" yaml:"json,omitempty"`
	Javascript string       `json:"javascript,omitempty" yaml:"javascript,omitempty"`
	Expression string       `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Action is the effect half of a logic rule. For property actions Property
// names the node property (dotted names such as "validate.required" address
// nested rule fields) and Value the value applied.
type Action struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Type     string `json:"type" yaml:"type"`
	Property string `json:"property,omitempty" yaml:"property,omitempty"`
	Value    any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// IsInputFlagged reports whether the node carries an explicit input flag and
// its value.
func (n *Node) IsInputFlagged() (bool, bool) {
	if n == nil || n.Input == nil {
		return false, false
	}
	return *n.Input, true
}

// Title returns the best human label for the node.
func (n *Node) Title() string {
	if n == nil {
		return ""
	}
	if label := strings.TrimSpace(n.Label); label != "" {
		return label
	}
	if title, ok := n.Properties["title"].(string); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	return n.Key
}

// ShallowCopy returns a copy of the node that can be patched without touching
// the stored schema. Children are shared with the original; Properties and
// Validate are copied because patches write into them.
func (n *Node) ShallowCopy() *Node {
	if n == nil {
		return nil
	}
	out := *n
	if n.Properties != nil {
		out.Properties = make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			out.Properties[k] = v
		}
	}
	if n.Validate != nil {
		rule := *n.Validate
		out.Validate = &rule
	}
	return &out
}

// Bool returns a pointer to v, handy when building nodes in code.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
