// Package views renders a live form as a JSON snapshot of its effective
// views: the data record, every node with overrides applied and visibility
// computed, the current error view and, for wizards, the navigation state.
package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-formengine/pkg/form"
	"github.com/goliatone/go-formengine/pkg/logic"
	"github.com/goliatone/go-formengine/pkg/validation"
)

// Name is the registry key of the views renderer.
const Name = "views"

// Snapshot is the document emitted by Render.
type Snapshot struct {
	ID     string            `json:"id"`
	Data   map[string]any    `json:"data"`
	Views  []logic.View      `json:"views"`
	Errors validation.Errors `json:"errors"`
	Wizard *form.WizardState `json:"wizard,omitempty"`
}

// Option customises the renderer.
type Option func(*Renderer)

// WithIndent sets the JSON indentation. An empty indent yields compact output.
func WithIndent(indent string) Option {
	return func(r *Renderer) {
		r.indent = indent
	}
}

// WithHidden controls whether hidden views are included. Defaults to true.
func WithHidden(include bool) Option {
	return func(r *Renderer) {
		r.hidden = include
	}
}

// Renderer serialises effective views.
type Renderer struct {
	indent string
	hidden bool
}

// New constructs a views renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{indent: "  ", hidden: true}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string { return Name }

// ContentType reports the output media type.
func (r *Renderer) ContentType() string { return "application/json" }

// Snapshot captures the form state Render serialises.
func (r *Renderer) Snapshot(f *form.Form) Snapshot {
	out := Snapshot{
		ID:     f.ID(),
		Data:   f.Data(),
		Errors: f.Errors(),
	}
	for _, view := range f.Views() {
		if view.Visible || r.hidden {
			out.Views = append(out.Views, view)
		}
	}
	if f.Pages() != nil {
		state := f.Wizard()
		out.Wizard = &state
	}
	return out
}

// Render serialises the snapshot of f.
func (r *Renderer) Render(ctx context.Context, f *form.Form) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("views: context is required")
	}
	if f == nil {
		return nil, errors.New("views: form is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot := r.Snapshot(f)
	var (
		raw []byte
		err error
	)
	if r.indent == "" {
		raw, err = json.Marshal(snapshot)
	} else {
		raw, err = json.MarshalIndent(snapshot, "", r.indent)
	}
	if err != nil {
		return nil, fmt.Errorf("views: encode snapshot: %w", err)
	}
	return append(raw, '\n'), nil
}
