package openapi

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formengine/pkg/registry"
	"github.com/goliatone/go-formengine/pkg/schema"
)

// extensionKey carries per-property hints: type, placeholder, tooltip and
// order.
const extensionKey = "x-formengine"

// textareaThreshold promotes long strings to a textarea.
const textareaThreshold = 255

type converter struct {
	registry *registry.Registry
	logger   zerolog.Logger
	maxDepth int
}

type property struct {
	name   string
	schema *openapi3.Schema
	order  float64
	ranked bool
}

// properties converts the object schema s into one node per property.
func (c converter) properties(s *openapi3.Schema, depth int) []*schema.Node {
	s = flatten(s)
	if s == nil || len(s.Properties) == 0 {
		return nil
	}
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}

	props := make([]property, 0, len(s.Properties))
	for name, ref := range s.Properties {
		if ref == nil || ref.Value == nil {
			continue
		}
		order, ranked := hints(ref.Value)["order"].(float64)
		props = append(props, property{name: name, schema: ref.Value, order: order, ranked: ranked})
	}
	// Ranked properties come first by order, the rest by name.
	sort.SliceStable(props, func(a, b int) bool {
		if props[a].ranked != props[b].ranked {
			return props[a].ranked
		}
		if props[a].order != props[b].order {
			return props[a].order < props[b].order
		}
		return props[a].name < props[b].name
	})

	nodes := make([]*schema.Node, 0, len(props))
	for _, prop := range props {
		if node := c.node(prop.name, prop.schema, required[prop.name], depth); node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func (c converter) node(name string, s *openapi3.Schema, required bool, depth int) *schema.Node {
	if s.ReadOnly {
		return nil
	}
	s = flatten(s)

	var node *schema.Node
	switch {
	case isType(s, openapi3.TypeObject) || len(s.Properties) > 0:
		if depth+1 >= c.maxDepth {
			c.logger.Debug().Str("property", name).Int("depth", depth).Msg("nesting limit reached, property skipped")
			return nil
		}
		node = c.registry.Default(registry.TypeContainer)
		node.Components = c.properties(s, depth+1)
	case isType(s, openapi3.TypeArray):
		node = c.array(name, s)
		if node == nil {
			return nil
		}
	default:
		node = c.scalar(s)
	}

	node.Key = name
	node.Label = label(name, s.Title)
	node.Description = s.Description
	if s.Default != nil && node.Type != registry.TypeContainer {
		node.DefaultValue = s.Default
	}
	applyHints(node, hints(s))
	if required {
		rule(node).Required = true
	}
	return node
}

func (c converter) array(name string, s *openapi3.Schema) *schema.Node {
	if s.Items == nil || s.Items.Value == nil {
		c.logger.Debug().Str("property", name).Msg("array without items skipped")
		return nil
	}
	items := flatten(s.Items.Value)
	if len(items.Enum) > 0 {
		node := c.registry.Default(registry.TypeSelectBoxes)
		node.Values = options(items.Enum)
		if s.MinItems > 0 {
			rule(node).MinSelectedCount = schema.Int(int(s.MinItems))
		}
		if s.MaxItems != nil {
			rule(node).MaxSelectedCount = schema.Int(int(*s.MaxItems))
		}
		return node
	}
	if isType(items, openapi3.TypeObject) || isType(items, openapi3.TypeArray) {
		c.logger.Debug().Str("property", name).Msg("array of structured items skipped")
		return nil
	}
	node := c.scalar(items)
	node.Multiple = true
	return node
}

func (c converter) scalar(s *openapi3.Schema) *schema.Node {
	var node *schema.Node
	switch {
	case len(s.Enum) > 0:
		node = c.registry.Default(registry.TypeSelect)
		node.Values = options(s.Enum)
	case isType(s, openapi3.TypeBoolean):
		node = c.registry.Default(registry.TypeCheckbox)
	case isType(s, openapi3.TypeInteger):
		node = c.registry.Default(registry.TypeNumber)
		rule(node).Integer = true
	case isType(s, openapi3.TypeNumber):
		node = c.registry.Default(registry.TypeNumber)
	default:
		node = c.registry.Default(stringType(s))
	}

	if s.Min != nil {
		rule(node).Min = schema.Float(*s.Min)
	}
	if s.Max != nil {
		rule(node).Max = schema.Float(*s.Max)
	}
	if s.MinLength > 0 {
		rule(node).MinLength = schema.Int(int(s.MinLength))
	}
	if s.MaxLength != nil {
		rule(node).MaxLength = schema.Int(int(*s.MaxLength))
	}
	if s.Pattern != "" {
		rule(node).Pattern = s.Pattern
	}
	return node
}

func (c converter) submit() *schema.Node {
	node := c.registry.Default(registry.TypeButton)
	node.Key = "submit"
	return node
}

func stringType(s *openapi3.Schema) string {
	switch strings.ToLower(s.Format) {
	case "email":
		return registry.TypeEmail
	case "uri", "url":
		return registry.TypeURL
	case "date", "date-time":
		return registry.TypeDateTime
	case "password":
		return registry.TypePassword
	}
	if s.MaxLength != nil && *s.MaxLength > textareaThreshold {
		return registry.TypeTextArea
	}
	return registry.TypeTextField
}

// flatten merges allOf members into a single schema. Own keywords win.
func flatten(s *openapi3.Schema) *openapi3.Schema {
	if s == nil || len(s.AllOf) == 0 {
		return s
	}
	merged := *s
	merged.AllOf = nil
	merged.Properties = openapi3.Schemas{}
	merged.Required = nil
	for _, ref := range s.AllOf {
		if ref == nil || ref.Value == nil {
			continue
		}
		part := flatten(ref.Value)
		for name, prop := range part.Properties {
			merged.Properties[name] = prop
		}
		merged.Required = append(merged.Required, part.Required...)
		if merged.Type == nil {
			merged.Type = part.Type
		}
	}
	for name, prop := range s.Properties {
		merged.Properties[name] = prop
	}
	merged.Required = append(merged.Required, s.Required...)
	return &merged
}

func isType(s *openapi3.Schema, name string) bool {
	return s != nil && s.Type != nil && s.Type.Includes(name)
}

func rule(node *schema.Node) *schema.ValidationRule {
	if node.Validate == nil {
		node.Validate = &schema.ValidationRule{}
	}
	return node.Validate
}

func options(values []any) []schema.Option {
	out := make([]schema.Option, 0, len(values))
	for _, value := range values {
		if value == nil {
			continue
		}
		out = append(out, schema.Option{Label: label(fmt.Sprint(value), ""), Value: value})
	}
	return out
}

func hints(s *openapi3.Schema) map[string]any {
	if s == nil {
		return nil
	}
	raw, _ := s.Extensions[extensionKey].(map[string]any)
	return raw
}

func applyHints(node *schema.Node, raw map[string]any) {
	if text, ok := raw["type"].(string); ok && text != "" {
		node.Type = text
	}
	if text, ok := raw["placeholder"].(string); ok {
		node.Placeholder = text
	}
	if text, ok := raw["tooltip"].(string); ok {
		node.Tooltip = text
	}
}

// label prefers title, otherwise turns snake, kebab or camel case names into
// words.
func label(name, title string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	var b strings.Builder
	prev := ' '
	for idx, r := range name {
		switch {
		case r == '_' || r == '-' || r == '.':
			r = ' '
		case idx > 0 && unicode.IsUpper(r) && unicode.IsLower(prev):
			b.WriteRune(' ')
		}
		if b.Len() == 0 || prev == ' ' {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
		prev = r
	}
	return strings.TrimSpace(b.String())
}
