package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formengine/pkg/registry"
	"github.com/goliatone/go-formengine/pkg/schema"
)

// DefaultMaxDepth bounds object nesting during conversion.
const DefaultMaxDepth = 8

var (
	// ErrOperationNotFound is returned when the requested operation does not
	// exist or has no request body.
	ErrOperationNotFound = errors.New("openapi: operation not found")

	// ErrNoProperties is returned when an object schema yields no fields.
	ErrNoProperties = errors.New("openapi: schema has no properties")
)

// Importer converts request body schemas into form component trees.
type Importer struct {
	registry     *registry.Registry
	logger       zerolog.Logger
	externalRefs bool
	validate     bool
	maxDepth     int
}

// Option configures an Importer.
type Option func(*Importer)

// WithRegistry sets the registry used for node templates.
func WithRegistry(reg *registry.Registry) Option {
	return func(i *Importer) {
		if reg != nil {
			i.registry = reg
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(i *Importer) {
		i.logger = logger
	}
}

// WithExternalRefs allows $ref values pointing outside the document.
func WithExternalRefs(enabled bool) Option {
	return func(i *Importer) {
		i.externalRefs = enabled
	}
}

// WithValidation validates the document before converting it.
func WithValidation(enabled bool) Option {
	return func(i *Importer) {
		i.validate = enabled
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(i *Importer) {
		if depth > 0 {
			i.maxDepth = depth
		}
	}
}

// NewImporter constructs an Importer.
func NewImporter(opts ...Option) *Importer {
	i := &Importer{
		registry: registry.New(),
		logger:   zerolog.Nop(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	i.logger = i.logger.With().Str("component", "openapi").Logger()
	return i
}

// Import converts the request body of operationID in raw into nodes using a
// default Importer.
func Import(ctx context.Context, raw []byte, operationID string) ([]*schema.Node, error) {
	doc, err := NewDocument(SourceFromFile("inline"), raw)
	if err != nil {
		return nil, err
	}
	out, err := NewImporter().Import(ctx, doc, operationID)
	if err != nil {
		return nil, err
	}
	return out.Components, nil
}

// Operations lists the operations that carry a request body, ordered by path
// and method.
func (i *Importer) Operations(ctx context.Context, doc Document) ([]Operation, error) {
	spec, err := i.load(ctx, doc)
	if err != nil {
		return nil, err
	}
	entries := collect(spec)
	out := make([]Operation, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Operation)
	}
	return out, nil
}

// Import converts the request body of operationID into a form document. An
// empty operationID selects the only operation with a request body.
func (i *Importer) Import(ctx context.Context, doc Document, operationID string) (schema.Document, error) {
	spec, err := i.load(ctx, doc)
	if err != nil {
		return schema.Document{}, err
	}
	entry, err := pick(collect(spec), operationID)
	if err != nil {
		return schema.Document{}, err
	}

	body := requestSchema(entry.body)
	if body == nil {
		return schema.Document{}, fmt.Errorf("%w: %s has no request schema", ErrOperationNotFound, entry.ID)
	}
	out, err := i.ImportSchema(entry.Title(), body)
	if err != nil {
		return schema.Document{}, fmt.Errorf("%w (operation %s)", err, entry.ID)
	}
	i.logger.Debug().Str("operation", entry.ID).Int("nodes", len(out.Components)).Msg("operation imported")
	return out, nil
}

// ImportSchema converts an object schema into a form document titled title,
// closed by a submit button.
func (i *Importer) ImportSchema(title string, s *openapi3.Schema) (schema.Document, error) {
	if s == nil {
		return schema.Document{}, errors.New("openapi: schema is nil")
	}
	conv := converter{registry: i.registry, logger: i.logger, maxDepth: i.maxDepth}
	nodes := conv.properties(s, 0)
	if len(nodes) == 0 {
		return schema.Document{}, ErrNoProperties
	}
	nodes = append(nodes, conv.submit())

	return schema.Document{
		Title:      title,
		Display:    schema.DisplayForm,
		Components: nodes,
	}, nil
}

func (i *Importer) load(ctx context.Context, doc Document) (*openapi3.T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := doc.Raw()
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = i.externalRefs

	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if i.validate {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi: validate: %w", err)
		}
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, errors.New("openapi: document does not contain any paths")
	}
	return spec, nil
}

type entry struct {
	Operation
	body *openapi3.RequestBodyRef
}

func collect(spec *openapi3.T) []entry {
	var out []entry
	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil || op.RequestBody == nil {
				continue
			}
			method = strings.ToUpper(method)
			id := op.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			out = append(out, entry{
				Operation: Operation{
					ID:          id,
					Method:      method,
					Path:        path,
					Summary:     op.Summary,
					Description: op.Description,
				},
				body: op.RequestBody,
			})
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Path != out[b].Path {
			return out[a].Path < out[b].Path
		}
		return out[a].Method < out[b].Method
	})
	return out
}

func pick(entries []entry, operationID string) (entry, error) {
	if operationID == "" {
		if len(entries) == 1 {
			return entries[0], nil
		}
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID)
		}
		return entry{}, fmt.Errorf("openapi: operation id required, choose one of [%s]", strings.Join(ids, ", "))
	}
	for _, e := range entries {
		if e.ID == operationID {
			return e, nil
		}
	}
	return entry{}, fmt.Errorf("%w: %s", ErrOperationNotFound, operationID)
}

// requestSchema prefers JSON, then form encodings, then any media type in
// name order.
func requestSchema(ref *openapi3.RequestBodyRef) *openapi3.Schema {
	if ref == nil || ref.Value == nil {
		return nil
	}
	content := ref.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	names := make([]string, 0, len(content))
	for name := range content {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if mt := content[name]; mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}
