package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Apply merges patch into the node in place. Well-known property names map
// onto the typed fields, "validate.<rule>" names (or a "validate" record)
// patch the validation rule, and every other name is stored in Properties.
// Values that cannot be coerced to the target field type are ignored.
func (n *Node) Apply(patch map[string]any) {
	if n == nil {
		return
	}
	for name, value := range patch {
		n.Set(name, value)
	}
}

// Set applies a single property.
func (n *Node) Set(name string, value any) {
	if n == nil {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if rest, ok := strings.CutPrefix(name, "validate."); ok {
		if n.Validate == nil {
			n.Validate = &ValidationRule{}
		}
		n.Validate.set(rest, value)
		return
	}

	switch name {
	case "type":
		if s, ok := asString(value); ok {
			n.Type = s
		}
	case "key":
		if s, ok := asString(value); ok {
			n.Key = s
		}
	case "label":
		if s, ok := asString(value); ok {
			n.Label = s
		}
	case "placeholder":
		if s, ok := asString(value); ok {
			n.Placeholder = s
		}
	case "description":
		if s, ok := asString(value); ok {
			n.Description = s
		}
	case "tooltip":
		if s, ok := asString(value); ok {
			n.Tooltip = s
		}
	case "content", "html":
		if s, ok := asString(value); ok {
			n.Content = s
		}
	case "calculateValue":
		if s, ok := asString(value); ok {
			n.CalculateValue = s
		}
	case "input":
		if b, ok := AsBool(value); ok {
			n.Input = &b
		}
	case "hidden":
		if b, ok := AsBool(value); ok {
			n.Hidden = b
		}
	case "disabled":
		if b, ok := AsBool(value); ok {
			n.Disabled = b
		}
	case "multiple":
		if b, ok := AsBool(value); ok {
			n.Multiple = b
		}
	case "clearOnHide":
		if b, ok := AsBool(value); ok {
			n.ClearOnHide = b
		}
	case "defaultValue":
		n.DefaultValue = CloneValue(value)
	case "validate":
		record, ok := value.(map[string]any)
		if !ok {
			return
		}
		if n.Validate == nil {
			n.Validate = &ValidationRule{}
		}
		for rule, v := range record {
			n.Validate.set(rule, v)
		}
	default:
		if n.Properties == nil {
			n.Properties = make(map[string]any)
		}
		n.Properties[name] = CloneValue(value)
	}
}

// Get returns the effective value of a property, mirroring Set.
func (n *Node) Get(name string) (any, bool) {
	if n == nil {
		return nil, false
	}
	switch name {
	case "type":
		return n.Type, true
	case "key":
		return n.Key, true
	case "label":
		return n.Label, true
	case "placeholder":
		return n.Placeholder, true
	case "description":
		return n.Description, true
	case "hidden":
		return n.Hidden, true
	case "disabled":
		return n.Disabled, true
	case "content", "html":
		return n.Content, true
	case "defaultValue":
		return n.DefaultValue, n.DefaultValue != nil
	case "validate.required":
		return n.Validate != nil && n.Validate.Required, true
	}
	v, ok := n.Properties[name]
	return v, ok
}

func (r *ValidationRule) set(name string, value any) {
	switch strings.TrimSpace(name) {
	case "required":
		if b, ok := AsBool(value); ok {
			r.Required = b
		}
	case "integer":
		if b, ok := AsBool(value); ok {
			r.Integer = b
		}
	case "onlyAvailableItems":
		if b, ok := AsBool(value); ok {
			r.OnlyAvailableItems = b
		}
	case "pattern":
		if s, ok := asString(value); ok {
			r.Pattern = s
		}
	case "custom":
		if s, ok := asString(value); ok {
			r.Custom = s
		}
	case "customMessage":
		if s, ok := asString(value); ok {
			r.CustomMessage = s
		}
	case "minLength":
		r.MinLength = intPointer(value, r.MinLength)
	case "maxLength":
		r.MaxLength = intPointer(value, r.MaxLength)
	case "minWords":
		r.MinWords = intPointer(value, r.MinWords)
	case "maxWords":
		r.MaxWords = intPointer(value, r.MaxWords)
	case "minSelectedCount":
		r.MinSelectedCount = intPointer(value, r.MinSelectedCount)
	case "maxSelectedCount":
		r.MaxSelectedCount = intPointer(value, r.MaxSelectedCount)
	case "min":
		r.Min = floatPointer(value, r.Min)
	case "max":
		r.Max = floatPointer(value, r.Max)
	}
}

func intPointer(value any, current *int) *int {
	if value == nil {
		return nil
	}
	f, ok := AsNumber(value)
	if !ok {
		return current
	}
	v := int(f)
	return &v
}

func floatPointer(value any, current *float64) *float64 {
	if value == nil {
		return nil
	}
	f, ok := AsNumber(value)
	if !ok {
		return current
	}
	return &f
}

// AsBool coerces booleans and "true"/"false" strings.
func AsBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		return false, false
	}
}

// AsNumber coerces Go numeric types and numeric strings to float64.
func AsNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Stringify renders a value the way pattern and length checks see it.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}

func asString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case nil:
		return "", true
	case fmt.Stringer:
		return v.String(), true
	case bool, int, int64, float64:
		return Stringify(v), true
	default:
		return "", false
	}
}
