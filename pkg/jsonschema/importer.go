package jsonschema

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formengine/pkg/openapi"
	"github.com/goliatone/go-formengine/pkg/schema"
)

// rootName is the components entry holding the top-level schema.
const rootName = "Root"

// DefaultTitle names documents whose root schema has no title.
const DefaultTitle = "Form"

// ErrNotObject is returned when the root schema does not describe an object.
var ErrNotObject = errors.New("jsonschema: root schema must be an object with properties")

// Option configures an Importer.
type Option func(*Importer)

// WithImporter sets the OpenAPI importer that performs node conversion.
func WithImporter(importer *openapi.Importer) Option {
	return func(i *Importer) {
		if importer != nil {
			i.importer = importer
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(i *Importer) {
		i.logger = logger
	}
}

// Importer converts JSON Schema documents into form documents.
type Importer struct {
	importer *openapi.Importer
	logger   zerolog.Logger
}

// NewImporter constructs an Importer.
func NewImporter(opts ...Option) *Importer {
	i := &Importer{logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	if i.importer == nil {
		i.importer = openapi.NewImporter(openapi.WithLogger(i.logger))
	}
	i.logger = i.logger.With().Str("component", "jsonschema").Logger()
	return i
}

// ImportFile reads a JSON or YAML schema from path and imports it.
func (i *Importer) ImportFile(ctx context.Context, path string) (schema.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return schema.Document{}, fmt.Errorf("jsonschema: read %s: %w", path, err)
	}
	return i.Import(ctx, raw)
}

// Import converts raw, a JSON or YAML schema, into a form document.
func (i *Importer) Import(ctx context.Context, raw []byte) (schema.Document, error) {
	if ctx == nil {
		return schema.Document{}, errors.New("jsonschema: context is required")
	}
	if err := ctx.Err(); err != nil {
		return schema.Document{}, err
	}

	root, err := decode(raw)
	if err != nil {
		return schema.Document{}, err
	}
	if t, _ := root["type"].(string); t != "" && t != "object" {
		return schema.Document{}, fmt.Errorf("%w (type %q)", ErrNotObject, t)
	}

	title, _ := root["title"].(string)
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}

	components := map[string]any{}
	for _, key := range []string{"$defs", "definitions"} {
		defs, _ := root[key].(map[string]any)
		for name, def := range defs {
			components[name] = rebase(def)
		}
		delete(root, key)
	}
	for _, key := range []string{"$schema", "$id", "$comment"} {
		delete(root, key)
	}
	components[rootName] = rebase(root)

	payload, err := json.Marshal(map[string]any{
		"openapi":    "3.0.3",
		"info":       map[string]any{"title": title, "version": "0"},
		"paths":      map[string]any{},
		"components": map[string]any{"schemas": components},
	})
	if err != nil {
		return schema.Document{}, fmt.Errorf("jsonschema: encode: %w", err)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	spec, err := loader.LoadFromData(payload)
	if err != nil {
		return schema.Document{}, fmt.Errorf("jsonschema: resolve: %w", err)
	}
	ref := spec.Components.Schemas[rootName]
	if ref == nil || ref.Value == nil {
		return schema.Document{}, ErrNotObject
	}

	doc, err := i.importer.ImportSchema(title, ref.Value)
	if errors.Is(err, openapi.ErrNoProperties) {
		return schema.Document{}, ErrNotObject
	}
	if err != nil {
		return schema.Document{}, fmt.Errorf("jsonschema: %w", err)
	}
	i.logger.Debug().Str("title", title).Int("nodes", schema.Count(doc.Components)).Int("defs", len(components)-1).Msg("schema imported")
	return doc, nil
}

// decode parses JSON first and falls back to YAML.
func decode(raw []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("jsonschema: document is empty")
	}
	var out map[string]any
	jsonErr := json.Unmarshal(trimmed, &out)
	if jsonErr == nil {
		return out, nil
	}
	if err := yaml.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("jsonschema: invalid JSON or YAML: %w", errors.Join(jsonErr, err))
	}
	if out == nil {
		return nil, errors.New("jsonschema: document is not an object")
	}
	return out, nil
}

// rebase rewrites local references onto the components section and lowers
// numeric exclusive bounds into the minimum/maximum plus flag form.
func rebase(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[key] = rebase(child)
		}
		if ref, ok := out["$ref"].(string); ok {
			out["$ref"] = rebaseRef(ref)
		}
		lowerBound(out, "exclusiveMinimum", "minimum")
		lowerBound(out, "exclusiveMaximum", "maximum")
		return out
	case []any:
		out := make([]any, len(v))
		for idx, child := range v {
			out[idx] = rebase(child)
		}
		return out
	}
	return value
}

func rebaseRef(ref string) string {
	switch {
	case ref == "#":
		return "#/components/schemas/" + rootName
	case strings.HasPrefix(ref, "#/$defs/"):
		return "#/components/schemas/" + strings.TrimPrefix(ref, "#/$defs/")
	case strings.HasPrefix(ref, "#/definitions/"):
		return "#/components/schemas/" + strings.TrimPrefix(ref, "#/definitions/")
	}
	return ref
}

func lowerBound(node map[string]any, exclusive, inclusive string) {
	switch bound := node[exclusive].(type) {
	case float64:
		node[inclusive] = bound
		node[exclusive] = true
	case int:
		node[inclusive] = float64(bound)
		node[exclusive] = true
	}
}
