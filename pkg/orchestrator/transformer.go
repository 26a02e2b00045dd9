package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formengine/pkg/schema"
)

// Transformer mutates an imported document before the live form is built.
// Implementations can relabel fields, tighten rules or hide nodes.
type Transformer interface {
	Transform(ctx context.Context, doc *schema.Document) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, doc *schema.Document) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, doc *schema.Document) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, doc)
}

// PresetTransformer applies declarative patches loaded from a JSON or YAML
// document:
//
//	{
//	  "title": "Create account",
//	  "display": "wizard",
//	  "fields": {
//	    "email": {"label": "Work email", "required": true},
//	    "plan": {"hidden": true, "properties": {"tab": "billing"}}
//	  }
//	}
type PresetTransformer struct {
	preset preset
}

type preset struct {
	Title   string                `json:"title" yaml:"title"`
	Display string                `json:"display" yaml:"display"`
	Fields  map[string]fieldPatch `json:"fields" yaml:"fields"`
}

type fieldPatch struct {
	Label       string         `json:"label" yaml:"label"`
	Description string         `json:"description" yaml:"description"`
	Placeholder string         `json:"placeholder" yaml:"placeholder"`
	Tooltip     string         `json:"tooltip" yaml:"tooltip"`
	Rename      string         `json:"rename" yaml:"rename"`
	Hidden      *bool          `json:"hidden" yaml:"hidden"`
	Disabled    *bool          `json:"disabled" yaml:"disabled"`
	Required    *bool          `json:"required" yaml:"required"`
	Default     any            `json:"defaultValue" yaml:"defaultValue"`
	Properties  map[string]any `json:"properties" yaml:"properties"`
}

// NewPresetTransformer parses a preset document, trying JSON first and YAML
// second.
func NewPresetTransformer(data []byte) (*PresetTransformer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("preset transformer: document is empty")
	}
	var doc preset
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		if yerr := yaml.Unmarshal(trimmed, &doc); yerr != nil {
			return nil, fmt.Errorf("preset transformer: parse document: %w", errors.Join(err, yerr))
		}
	}
	return &PresetTransformer{preset: doc}, nil
}

// NewPresetTransformerFromFS loads a preset document from fsys.
func NewPresetTransformerFromFS(fsys fs.FS, path string) (*PresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("preset transformer: read %s: %w", path, err)
	}
	return NewPresetTransformer(data)
}

// Transform applies the patches onto doc. Unknown keys fail the transform.
func (t *PresetTransformer) Transform(ctx context.Context, doc *schema.Document) error {
	if doc == nil {
		return errors.New("preset transformer: document is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.preset.Title != "" {
		doc.Title = t.preset.Title
	}
	if t.preset.Display != "" {
		doc.Display = t.preset.Display
	}
	for key, patch := range t.preset.Fields {
		node := schema.FindByKey(doc.Components, key)
		if node == nil {
			return fmt.Errorf("preset transformer: field %q not found", key)
		}
		patch.apply(node)
	}
	return nil
}

func (p fieldPatch) apply(node *schema.Node) {
	if p.Label != "" {
		node.Label = p.Label
	}
	if p.Description != "" {
		node.Description = p.Description
	}
	if p.Placeholder != "" {
		node.Placeholder = p.Placeholder
	}
	if p.Tooltip != "" {
		node.Tooltip = p.Tooltip
	}
	if p.Hidden != nil {
		node.Hidden = *p.Hidden
	}
	if p.Disabled != nil {
		node.Disabled = *p.Disabled
	}
	if p.Required != nil {
		if node.Validate == nil {
			node.Validate = &schema.ValidationRule{}
		}
		node.Validate.Required = *p.Required
	}
	if p.Default != nil {
		node.DefaultValue = p.Default
	}
	if len(p.Properties) > 0 {
		if node.Properties == nil {
			node.Properties = make(map[string]any, len(p.Properties))
		}
		for key, value := range p.Properties {
			node.Properties[key] = value
		}
	}
	if rename := strings.TrimSpace(p.Rename); rename != "" {
		node.Key = rename
	}
}
