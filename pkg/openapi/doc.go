// Package openapi imports form component trees from OpenAPI 3 documents. An
// operation's request body schema becomes a list of schema nodes: properties
// map to inputs, nested objects to data containers and keyword constraints to
// validation rules.
package openapi
