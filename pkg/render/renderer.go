package render

import (
	"context"

	"github.com/goliatone/go-formengine/pkg/form"
)

// Renderer turns a live form into a byte representation (JSON views, a
// terminal session transcript, etc.). Renderers consume effective views and
// never mutate the schema.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, f *form.Form) ([]byte, error)
}

// Func adapts a plain function into a Renderer.
type Func struct {
	ID   string
	Type string
	Fn   func(ctx context.Context, f *form.Form) ([]byte, error)
}

// Name reports the renderer identifier.
func (r Func) Name() string { return r.ID }

// ContentType reports the output media type.
func (r Func) ContentType() string { return r.Type }

// Render invokes the wrapped function.
func (r Func) Render(ctx context.Context, f *form.Form) ([]byte, error) {
	if r.Fn == nil {
		return nil, nil
	}
	return r.Fn(ctx, f)
}
