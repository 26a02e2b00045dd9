package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Display modes recognised on form documents.
const (
	DisplayForm   = "form"
	DisplayWizard = "wizard"
)

// Document is a form definition as authored on disk: a title, a display mode
// and the top-level component list.
type Document struct {
	Title      string  `json:"title,omitempty" yaml:"title,omitempty"`
	Display    string  `json:"display,omitempty" yaml:"display,omitempty"`
	Components []*Node `json:"components" yaml:"components"`
}

// ErrEmptyDocument is returned when the payload has no content.
var ErrEmptyDocument = errors.New("schema: document is empty")

// Parse decodes a form document. Both a {"components": [...]} document and a
// bare component array are accepted, in JSON or YAML.
func Parse(data []byte, source string) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Document{}, fmt.Errorf("%w: %s", ErrEmptyDocument, source)
	}

	if trimmed[0] == '[' {
		var nodes []*Node
		if err := json.Unmarshal(trimmed, &nodes); err == nil {
			return Document{Display: DisplayForm, Components: nodes}, nil
		}
	}

	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err == nil {
		return normaliseDocument(doc), nil
	}

	var nodes []*Node
	if err := yaml.Unmarshal(trimmed, &nodes); err == nil && len(nodes) > 0 {
		return Document{Display: DisplayForm, Components: normaliseYAML(nodes)}, nil
	}
	doc = Document{}
	if err := yaml.Unmarshal(trimmed, &doc); err == nil {
		doc.Components = normaliseYAML(doc.Components)
		return normaliseDocument(doc), nil
	}

	return Document{}, fmt.Errorf("schema: parse %s: invalid JSON or YAML", source)
}

// LoadFile reads and parses a document from disk.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadFS reads and parses a document from fsys.
func LoadFS(fsys fs.FS, path string) (Document, error) {
	if fsys == nil {
		return Document{}, errors.New("schema: filesystem is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Document{}, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Marshal encodes nodes as an indented JSON document.
func Marshal(doc Document) ([]byte, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("schema: marshal: %w", err)
	}
	return out, nil
}

func normaliseDocument(doc Document) Document {
	doc.Display = strings.ToLower(strings.TrimSpace(doc.Display))
	if doc.Display == "" {
		doc.Display = DisplayForm
	}
	doc.Title = strings.TrimSpace(doc.Title)
	return doc
}

// normaliseYAML converts map[any]any payloads (older YAML encodings) in
// free-form values to map[string]any so evaluators see JSON-like data.
func normaliseYAML(nodes []*Node) []*Node {
	Each(nodes, func(node *Node) {
		node.DefaultValue = jsonify(node.DefaultValue)
		for key, value := range node.Properties {
			node.Properties[key] = jsonify(value)
		}
		if node.Conditional != nil {
			node.Conditional.JSON = jsonify(node.Conditional.JSON)
			node.Conditional.Eq = jsonify(node.Conditional.Eq)
		}
		for idx := range node.Logic {
			node.Logic[idx].Trigger.JSON = jsonify(node.Logic[idx].Trigger.JSON)
			for a := range node.Logic[idx].Actions {
				node.Logic[idx].Actions[a].Value = jsonify(node.Logic[idx].Actions[a].Value)
			}
		}
	})
	return nodes
}

func jsonify(value any) any {
	switch v := value.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = jsonify(item)
		}
		return out
	case map[string]any:
		for k, item := range v {
			v[k] = jsonify(item)
		}
		return v
	case []any:
		for idx, item := range v {
			v[idx] = jsonify(item)
		}
		return v
	case int:
		return float64(v)
	default:
		return value
	}
}

// Record renders the node without its children as a JSON-like record, the
// shape scripts see as `component`.
func (n *Node) Record() map[string]any {
	if n == nil {
		return nil
	}
	flat := n.ShallowCopy()
	flat.Components, flat.Columns, flat.Panels, flat.Rows, flat.Tree = nil, nil, nil, nil, nil
	fallback := map[string]any{"key": n.Key, "type": n.Type}
	raw, err := json.Marshal(flat)
	if err != nil {
		return fallback
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return fallback
	}
	return out
}
