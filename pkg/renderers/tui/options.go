package tui

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formengine/pkg/registry"
)

// DefaultMaxAttempts bounds how often a failing field is asked again.
const DefaultMaxAttempts = 3

// OutputFormat controls how submitted data is serialized.
type OutputFormat string

const (
	// OutputFormatJSON emits application/json payloads.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFormURLEncoded emits application/x-www-form-urlencoded payloads.
	OutputFormatFormURLEncoded OutputFormat = "form"
	// OutputFormatPrettyText emits one key=value line per field.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// Theme captures message prefixes applied by the renderer.
type Theme struct {
	StepPrefix    string
	ErrorPrefix   string
	RequiredMark  string
	ComputedLabel string
}

// DefaultTheme is applied when no theme is configured.
var DefaultTheme = Theme{
	StepPrefix:    "==",
	ErrorPrefix:   "!",
	RequiredMark:  "*",
	ComputedLabel: "computed",
}

// SubmitTransformer mutates submitted data before serialization.
type SubmitTransformer func(map[string]any) (map[string]any, error)

// Option configures the TUI renderer.
type Option func(*Renderer)

// WithPromptDriver overrides the prompt driver used by the renderer.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutput sets where the default survey driver prints messages.
func WithOutput(w io.Writer) Option {
	return func(r *Renderer) {
		if w != nil {
			r.out = w
		}
	}
}

// WithOutputFormat selects the output serialization format.
func WithOutputFormat(format OutputFormat) Option {
	return func(r *Renderer) {
		if format != "" {
			r.outputFormat = format
		}
	}
}

// WithSubmitTransformer allows callers to mutate submitted data prior to
// serialization.
func WithSubmitTransformer(fn SubmitTransformer) Option {
	return func(r *Renderer) {
		r.submitTransformer = fn
	}
}

// WithTheme overrides DefaultTheme.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}

// WithRegistry sets the registry used to tell inputs from layout nodes.
func WithRegistry(reg *registry.Registry) Option {
	return func(r *Renderer) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}
