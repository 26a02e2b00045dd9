// Package calc re-evaluates calculateValue expressions against the data bag.
package calc

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formengine/pkg/schema"
	"github.com/goliatone/go-formengine/pkg/script"
)

// outVar is the variable a calculate expression assigns.
const outVar = "value"

// SetFunc writes a computed value through the form's field-update path.
type SetFunc func(key string, value any)

// FailureFunc observes expression failures.
type FailureFunc func(key string, err error)

// Engine evaluates calculated fields. Safe for concurrent use.
type Engine struct {
	sandbox   *script.Sandbox
	info      schema.TypeInfo
	logger    zerolog.Logger
	onFailure FailureFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithSandbox sets the sandbox expressions run in.
func WithSandbox(sandbox *script.Sandbox) Option {
	return func(e *Engine) {
		if sandbox != nil {
			e.sandbox = sandbox
		}
	}
}

// WithTypeInfo resolves values and row scopes of fields nested in data
// groups.
func WithTypeInfo(info schema.TypeInfo) Option {
	return func(e *Engine) {
		e.info = info
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithFailureHook registers a callback for expression failures.
func WithFailureHook(fn FailureFunc) Option {
	return func(e *Engine) {
		e.onFailure = fn
	}
}

// New constructs an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		sandbox: script.New(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.logger = e.logger.With().Str("component", "calc").Logger()
	return e
}

// Recompute evaluates every calculateValue expression in nodes against data
// and calls set for each result that differs from the stored value. The
// expression sees value (the field's current value), data, row and
// component. Failures leave the value unchanged. Returns the number of
// writes.
//
// set is expected to update data before returning so later fields in the
// same pass observe earlier results.
func (e *Engine) Recompute(nodes []*schema.Node, data map[string]any, set SetFunc) int {
	if data == nil || set == nil {
		return 0
	}
	writes := 0
	schema.WalkPath(nodes, func(node *schema.Node, ancestors []*schema.Node) bool {
		if node.Key == "" || strings.TrimSpace(node.CalculateValue) == "" {
			return true
		}
		path := schema.DataPath(node, ancestors, e.info)
		current, _ := schema.Lookup(data, path)
		row := data
		if len(path) > 1 {
			if parent, ok := schema.Lookup(data, path[:len(path)-1]); ok {
				if record, ok := parent.(map[string]any); ok {
					row = record
				}
			}
		}

		next, err := e.Evaluate(node, current, data, row)
		if err != nil {
			return true
		}
		if schema.Equal(current, next) {
			return true
		}
		set(node.Key, next)
		writes++
		return true
	})
	return writes
}

// Evaluate runs node's expression once and returns the computed value.
func (e *Engine) Evaluate(node *schema.Node, current any, data, row map[string]any) (any, error) {
	next, err := e.sandbox.Run(node.CalculateValue, outVar, current, script.Bindings{
		"data":      data,
		"row":       row,
		"component": node.Record(),
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("key", node.Key).Msg("calculated value failed")
		if e.onFailure != nil {
			e.onFailure(node.Key, err)
		}
		return nil, err
	}
	return next, nil
}
