// Package jsonschema imports standalone JSON Schema documents (draft-07 and
// 2020-12 keyword subsets) into form documents. Local $defs and definitions
// references are rebased onto an OpenAPI components section so the OpenAPI
// converter can resolve and map them.
package jsonschema
