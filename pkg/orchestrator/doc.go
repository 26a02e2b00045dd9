// Package orchestrator wires the OpenAPI loader, the importer, optional
// schema transformers, the live form and a renderer into a single pipeline
// for callers that prefer one entry point.
package orchestrator
