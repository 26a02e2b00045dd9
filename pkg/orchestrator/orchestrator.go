package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formengine/pkg/form"
	"github.com/goliatone/go-formengine/pkg/openapi"
	"github.com/goliatone/go-formengine/pkg/render"
	"github.com/goliatone/go-formengine/pkg/renderers/views"
	"github.com/goliatone/go-formengine/pkg/schema"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithLoader injects a custom OpenAPI loader.
func WithLoader(loader *openapi.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = loader
	}
}

// WithImporter injects a custom OpenAPI importer.
func WithImporter(importer *openapi.Importer) Option {
	return func(o *Orchestrator) {
		o.importer = importer
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithTransformers registers transformers that run, in order, against the
// imported document before the form is built.
func WithTransformers(transformers ...Transformer) Option {
	return func(o *Orchestrator) {
		for _, t := range transformers {
			if t != nil {
				o.transformers = append(o.transformers, t)
			}
		}
	}
}

// WithFormConfig sets the configuration of built forms.
func WithFormConfig(cfg form.Config) Option {
	return func(o *Orchestrator) {
		o.config = cfg
	}
}

// WithFormOptions appends options passed to every form the orchestrator
// builds.
func WithFormOptions(opts ...form.Option) Option {
	return func(o *Orchestrator) {
		o.formOptions = append(o.formOptions, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// Orchestrator coordinates the pipeline from OpenAPI document to rendered
// output. Missing dependencies fall back to the built-in implementations and
// the views renderer.
type Orchestrator struct {
	loader          *openapi.Loader
	importer        *openapi.Importer
	registry        *render.Registry
	defaultRenderer string
	transformers    []Transformer
	config          form.Config
	formOptions     []form.Option
	logger          zerolog.Logger
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: views.Name,
		config:          form.DefaultConfig(),
		logger:          zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.logger = o.logger.With().Str("component", "orchestrator").Logger()
	if o.loader == nil {
		o.loader = openapi.NewLoader(openapi.WithLoaderLogger(o.logger))
	}
	if o.importer == nil {
		o.importer = openapi.NewImporter(openapi.WithLogger(o.logger))
	}
	if o.registry == nil {
		o.registry = render.NewRegistry(views.New())
	}
	return o
}

// Request describes the inputs required to render a form from an OpenAPI
// operation.
type Request struct {
	// Source identifies where the OpenAPI document lives. Optional when
	// Document is supplied.
	Source openapi.Source

	// Document lets callers bypass the loader.
	Document *openapi.Document

	// OperationID selects the operation. It may be empty when the document
	// has a single operation with a request body.
	OperationID string

	// Renderer names the renderer to use, falling back to the default.
	Renderer string

	// Data prefills the form before rendering.
	Data map[string]any
}

// Document loads, imports and transforms the requested operation.
func (o *Orchestrator) Document(ctx context.Context, req Request) (schema.Document, error) {
	if ctx == nil {
		return schema.Document{}, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return schema.Document{}, err
	}

	source, err := o.resolveDocument(ctx, req)
	if err != nil {
		return schema.Document{}, err
	}
	doc, err := o.importer.Import(ctx, source, req.OperationID)
	if err != nil {
		return schema.Document{}, fmt.Errorf("orchestrator: import: %w", err)
	}
	for _, t := range o.transformers {
		if err := t.Transform(ctx, &doc); err != nil {
			return schema.Document{}, fmt.Errorf("orchestrator: transform document: %w", err)
		}
	}
	return doc, nil
}

// Build runs Document and wraps the result in a live form, prefilled with
// req.Data. Wizard documents enable the wizard unless a form option replaces
// the configuration.
func (o *Orchestrator) Build(ctx context.Context, req Request) (*form.Form, error) {
	doc, err := o.Document(ctx, req)
	if err != nil {
		return nil, err
	}
	cfg := o.config
	if doc.Display == schema.DisplayWizard {
		cfg.Wizard.Enabled = true
	}
	opts := append([]form.Option{form.WithLogger(o.logger), form.WithConfig(cfg)}, o.formOptions...)
	f := form.New(doc.Components, opts...)
	if len(req.Data) > 0 {
		f.Load(req.Data)
	}
	o.logger.Debug().Str("form", f.ID()).Str("operation", req.OperationID).Msg("form built")
	return f, nil
}

// Generate executes the loader, importer, transformer and renderer sequence
// and returns the rendered bytes.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	renderer, err := o.registry.Resolve(req.Renderer, o.defaultRenderer)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	f, err := o.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	output, err := renderer.Render(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

// Operations lists the importable operations of the request's document.
func (o *Orchestrator) Operations(ctx context.Context, req Request) ([]openapi.Operation, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	doc, err := o.resolveDocument(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.importer.Operations(ctx, doc)
}

// Renderers lists the registered renderer names.
func (o *Orchestrator) Renderers() []string {
	return o.registry.List()
}

func (o *Orchestrator) resolveDocument(ctx context.Context, req Request) (openapi.Document, error) {
	if req.Document != nil {
		return *req.Document, nil
	}
	if req.Source == nil {
		return openapi.Document{}, errors.New("orchestrator: source or document is required")
	}
	doc, err := o.loader.Load(ctx, req.Source)
	if err != nil {
		return openapi.Document{}, fmt.Errorf("orchestrator: load document: %w", err)
	}
	return doc, nil
}
