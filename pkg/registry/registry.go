package registry

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/goliatone/go-formengine/pkg/schema"
)

// Built-in node types registered by New.
const (
	TypeTextField   = "textfield"
	TypeTextArea    = "textarea"
	TypeNumber      = "number"
	TypePassword    = "password"
	TypeEmail       = "email"
	TypeURL         = "url"
	TypePhoneNumber = "phoneNumber"
	TypeCurrency    = "currency"
	TypeDateTime    = "datetime"
	TypeCheckbox    = "checkbox"
	TypeSelectBoxes = "selectboxes"
	TypeSelect      = "select"
	TypeRadio       = "radio"
	TypeHidden      = "hidden"
	TypeButton      = "button"
	TypeContent     = "content"
	TypeHTMLElement = "htmlelement"
	TypePanel       = "panel"
	TypeFieldSet    = "fieldset"
	TypeWell        = "well"
	TypeColumns     = "columns"
	TypeTabs        = "tabs"
	TypeTable       = "table"
	TypeTree        = "tree"
	TypeContainer   = "container"
)

// Definition describes how the engine treats a node type.
type Definition struct {
	Type string
	// Input marks types that hold a value in the data bag.
	Input bool
	// Container marks layout types that own child lists.
	Container bool
	// DataGroup marks containers whose children's values nest under the
	// container key.
	DataGroup bool
	// Template is the default schema used by the builder. Key and Type are
	// filled in when absent.
	Template *schema.Node
}

// Registry maps node types to definitions. It is constructed explicitly and
// shared by reference between the builder, validator, wizard and form
// instances. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Definition
}

// New constructs a registry with the built-in types registered.
func New() *Registry {
	reg := Empty()
	reg.registerBuiltins()
	return reg
}

// Empty constructs a registry without built-ins.
func Empty() *Registry {
	return &Registry{types: make(map[string]Definition)}
}

// Register adds or replaces the definition for def.Type.
func (r *Registry) Register(def Definition) {
	if r == nil {
		return
	}
	name := strings.TrimSpace(def.Type)
	if name == "" {
		return
	}
	def.Type = name
	if def.Template != nil {
		def.Template = schema.CloneNode(def.Template)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = def
}

// Lookup returns the definition for nodeType.
func (r *Registry) Lookup(nodeType string) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.types[nodeType]
	return def, ok
}

// Types returns registered type names in sorted order.
func (r *Registry) Types() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Default builds a fresh default node for nodeType. Unknown types yield a
// bare node labelled after the type.
func (r *Registry) Default(nodeType string) *schema.Node {
	def, ok := r.Lookup(nodeType)
	var node *schema.Node
	if ok && def.Template != nil {
		node = schema.CloneNode(def.Template)
	} else {
		node = &schema.Node{}
	}
	node.Type = nodeType
	if node.Key == "" {
		node.Key = nodeType
	}
	if node.Label == "" && (!ok || def.Input) {
		node.Label = humanize(nodeType)
	}
	return node
}

// IsInput reports whether node holds a value. An explicit input flag on the
// node wins over the registered definition; unknown leaf types count as
// inputs.
func (r *Registry) IsInput(node *schema.Node) bool {
	if node == nil {
		return false
	}
	if flag, ok := node.IsInputFlagged(); ok {
		return flag
	}
	if def, ok := r.Lookup(node.Type); ok {
		return def.Input
	}
	return !node.HasChildren()
}

// IsInputType reports whether nodeType is registered as an input type.
func (r *Registry) IsInputType(nodeType string) bool {
	def, ok := r.Lookup(nodeType)
	return ok && def.Input
}

// IsContainer reports whether node is a layout container.
func (r *Registry) IsContainer(node *schema.Node) bool {
	if node == nil {
		return false
	}
	if def, ok := r.Lookup(node.Type); ok {
		return def.Container
	}
	return node.HasChildren()
}

// IsDataGroup reports whether node nests its children's values.
func (r *Registry) IsDataGroup(node *schema.Node) bool {
	if node == nil {
		return false
	}
	def, ok := r.Lookup(node.Type)
	return ok && def.DataGroup
}

var _ schema.TypeInfo = (*Registry)(nil)

func humanize(name string) string {
	var b strings.Builder
	for idx, r := range name {
		switch {
		case idx == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteRune(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (r *Registry) registerBuiltins() {
	for _, name := range []string{
		TypeTextField, TypeTextArea, TypeNumber, TypePassword, TypeEmail, TypeURL,
		TypePhoneNumber, TypeCurrency, TypeDateTime, TypeCheckbox, TypeRadio, TypeHidden,
	} {
		r.Register(Definition{Type: name, Input: true})
	}

	r.Register(Definition{Type: TypeSelect, Input: true, Template: &schema.Node{
		Values: []schema.Option{},
	}})
	r.Register(Definition{Type: TypeSelectBoxes, Input: true, Template: &schema.Node{
		Values:       []schema.Option{},
		DefaultValue: map[string]any{},
	}})

	r.Register(Definition{Type: TypeButton, Template: &schema.Node{
		Label:      "Submit",
		Properties: map[string]any{"action": "submit"},
	}})
	r.Register(Definition{Type: TypeContent})
	r.Register(Definition{Type: TypeHTMLElement, Template: &schema.Node{
		Properties: map[string]any{"tag": "p"},
	}})

	r.Register(Definition{Type: TypePanel, Container: true, Template: &schema.Node{
		Label:      "Panel",
		Components: []*schema.Node{},
	}})
	r.Register(Definition{Type: TypeFieldSet, Container: true, Template: &schema.Node{
		Label:      "Field Set",
		Components: []*schema.Node{},
	}})
	r.Register(Definition{Type: TypeWell, Container: true, Template: &schema.Node{
		Components: []*schema.Node{},
	}})
	r.Register(Definition{Type: TypeColumns, Container: true, Template: &schema.Node{
		Columns: []*schema.Column{
			{Width: 6, Components: []*schema.Node{}},
			{Width: 6, Components: []*schema.Node{}},
		},
	}})
	r.Register(Definition{Type: TypeTabs, Container: true, Template: &schema.Node{
		Panels: []*schema.Panel{
			{Key: "tab1", Label: "Tab 1", Components: []*schema.Node{}},
		},
	}})
	r.Register(Definition{Type: TypeTable, Container: true, Template: &schema.Node{
		Rows: [][]*schema.Cell{
			{{Components: []*schema.Node{}}, {Components: []*schema.Node{}}},
			{{Components: []*schema.Node{}}, {Components: []*schema.Node{}}},
		},
	}})
	r.Register(Definition{Type: TypeTree, Container: true, Template: &schema.Node{
		Tree: []*schema.TreeNode{},
	}})
	r.Register(Definition{Type: TypeContainer, Container: true, DataGroup: true, Template: &schema.Node{
		Label:      "Container",
		Components: []*schema.Node{},
	}})
}
