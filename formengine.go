// Package formengine is the top-level entry point: it opens form documents
// into live forms and drives the OpenAPI import pipeline.
package formengine

import (
	"context"

	"github.com/goliatone/go-formengine/pkg/form"
	"github.com/goliatone/go-formengine/pkg/openapi"
	"github.com/goliatone/go-formengine/pkg/orchestrator"
	"github.com/goliatone/go-formengine/pkg/schema"
)

// Form aliases the live form instance.
type Form = form.Form

// Document aliases the authored form document.
type Document = schema.Document

// Request aliases orchestrator.Request for callers using Generate.
type Request = orchestrator.Request

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// Open builds a live form from doc. Wizard documents enable the wizard.
func Open(doc Document, opts ...form.Option) *Form {
	if doc.Display == schema.DisplayWizard {
		cfg := form.DefaultConfig()
		cfg.Wizard.Enabled = true
		opts = append([]form.Option{form.WithConfig(cfg)}, opts...)
	}
	return form.New(doc.Components, opts...)
}

// OpenFile loads a JSON or YAML form document from path and opens it.
func OpenFile(path string, opts ...form.Option) (*Form, error) {
	doc, err := schema.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Open(doc, opts...), nil
}

// Generate imports operationID from source and renders it with the named
// renderer (the views renderer when empty).
func Generate(ctx context.Context, source openapi.Source, operationID, rendererName string, options ...orchestrator.Option) ([]byte, error) {
	return orchestrator.New(options...).Generate(ctx, orchestrator.Request{
		Source:      source,
		OperationID: operationID,
		Renderer:    rendererName,
	})
}

// FromOpenAPI imports operationID from source into a live form.
func FromOpenAPI(ctx context.Context, source openapi.Source, operationID string, options ...orchestrator.Option) (*Form, error) {
	return orchestrator.New(options...).Build(ctx, orchestrator.Request{
		Source:      source,
		OperationID: operationID,
	})
}
