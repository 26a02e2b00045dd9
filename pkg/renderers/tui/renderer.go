package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formengine/pkg/form"
	"github.com/goliatone/go-formengine/pkg/registry"
	"github.com/goliatone/go-formengine/pkg/schema"
	"github.com/goliatone/go-formengine/pkg/validation"
)

// Renderer walks a live form in the terminal. It prompts for every visible
// input of the effective views, re-reading visibility after each answer so
// conditionals and logic react as the user types. Wizard forms are walked
// page by page through the form's navigation gate.
type Renderer struct {
	driver            PromptDriver
	out               io.Writer
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
	registry          *registry.Registry
	maxAttempts       int
	logger            zerolog.Logger
}

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) *Renderer {
	r := &Renderer{
		out:          os.Stdout,
		outputFormat: OutputFormatJSON,
		theme:        DefaultTheme,
		registry:     registry.New(),
		maxAttempts:  DefaultMaxAttempts,
		logger:       zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(r.out)
	}
	r.logger = r.logger.With().Str("component", "tui").Logger()
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	return ContentType(r.outputFormat)
}

// Render runs the session and serializes the submitted data.
func (r *Renderer) Render(ctx context.Context, f *form.Form) ([]byte, error) {
	submission, err := r.Run(ctx, f)
	if err != nil {
		return nil, err
	}
	data := submission.Data
	if r.submitTransformer != nil {
		data, err = r.submitTransformer(data)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	return Encode(r.outputFormat, data)
}

// Run prompts until the form submits, the user aborts or the correction
// rounds are exhausted.
func (r *Renderer) Run(ctx context.Context, f *form.Form) (form.Submission, error) {
	if ctx == nil {
		return form.Submission{}, errors.New("tui: context is required")
	}
	if f == nil {
		return form.Submission{}, errors.New("tui: form is nil")
	}
	if err := ctx.Err(); err != nil {
		return form.Submission{}, err
	}

	if f.Pages() != nil {
		if err := r.runWizard(ctx, f); err != nil {
			return form.Submission{}, err
		}
	} else if err := r.promptKeys(ctx, f, r.inputKeys(f)); err != nil {
		return form.Submission{}, err
	}
	return r.submit(ctx, f)
}

func (r *Renderer) runWizard(ctx context.Context, f *form.Form) error {
	for {
		page, ok := f.Page()
		if !ok {
			return nil
		}
		state := f.Wizard()
		r.info(ctx, fmt.Sprintf("%s Step %d of %d: %s", r.theme.StepPrefix, state.Current+1, state.Total, page.Title))

		keys := page.InputKeys()
		for attempt := 0; ; attempt++ {
			if err := r.promptKeys(ctx, f, keys); err != nil {
				return err
			}
			if f.Next() {
				break
			}
			failing := errorsFor(f.Errors(), page.InputKeys())
			if len(failing) == 0 {
				// Last page.
				return nil
			}
			r.report(ctx, failing)
			if attempt+1 >= r.maxAttempts {
				return fmt.Errorf("%w: page %q", ErrInvalid, page.Title)
			}
			keys = keysOf(failing)
		}
	}
}

func (r *Renderer) submit(ctx context.Context, f *form.Form) (form.Submission, error) {
	for attempt := 0; ; attempt++ {
		submission, errs := f.Submit()
		if errs.Empty() {
			r.logger.Debug().Str("submission", submission.Metadata.SubmissionID).Msg("form submitted")
			return submission, nil
		}
		r.report(ctx, errs.All())
		if attempt+1 >= r.maxAttempts {
			return form.Submission{}, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs.Keys(), ", "))
		}
		if err := r.promptKeys(ctx, f, errs.Keys()); err != nil {
			return form.Submission{}, err
		}
	}
}

// inputKeys lists the promptable inputs in traversal order, hidden ones
// included; visibility is checked again at prompt time.
func (r *Renderer) inputKeys(f *form.Form) []string {
	var keys []string
	for _, view := range f.Views() {
		if r.promptable(view.Node) {
			keys = append(keys, view.Key)
		}
	}
	return keys
}

func (r *Renderer) promptable(node *schema.Node) bool {
	if node == nil || node.Key == "" || !r.registry.IsInput(node) {
		return false
	}
	if node.Disabled || node.Hidden || node.Type == registry.TypeHidden {
		return false
	}
	return node.CalculateValue == ""
}

func (r *Renderer) promptKeys(ctx context.Context, f *form.Form, keys []string) error {
	for _, key := range keys {
		if err := r.promptKey(ctx, f, key); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) promptKey(ctx context.Context, f *form.Form, key string) error {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		view, ok := f.View(key)
		if !ok || !view.Visible {
			return nil
		}
		if !r.promptable(view.Node) {
			r.showComputed(ctx, f, view.Node)
			return nil
		}
		current, _ := f.Value(key)
		value, ok, err := r.ask(ctx, view.Node, current)
		if err != nil {
			return err
		}
		if !ok {
			r.info(ctx, fmt.Sprintf("%s %s: enter a number", r.theme.ErrorPrefix, view.Title()))
			continue
		}
		f.SetValue(key, value)
		f.Blur(key)
		r.logger.Debug().Str("key", key).Msg("answer recorded")

		errs := f.Errors().ForKey(key)
		if len(errs) == 0 {
			return nil
		}
		r.report(ctx, errs)
	}
	return nil
}

func (r *Renderer) showComputed(ctx context.Context, f *form.Form, node *schema.Node) {
	if node == nil || node.CalculateValue == "" {
		return
	}
	value, _ := f.Value(node.Key)
	r.info(ctx, fmt.Sprintf("%s (%s): %s", node.Title(), r.theme.ComputedLabel, schema.Stringify(value)))
}

// ask prompts for node and converts the answer to the value shape the node
// stores. ok is false when the answer could not be parsed.
func (r *Renderer) ask(ctx context.Context, node *schema.Node, current any) (any, bool, error) {
	message := r.message(node)
	help := node.Description
	if help == "" {
		help = node.Tooltip
	}

	switch node.Type {
	case registry.TypeCheckbox:
		flag, _ := schema.AsBool(current)
		answer, err := r.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: flag, Help: help})
		return answer, true, err

	case registry.TypeSelect, registry.TypeRadio:
		if len(node.Values) == 0 {
			return current, true, nil
		}
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      message,
			Options:      optionLabels(node.Values),
			DefaultIndex: optionIndex(node.Values, current),
			Help:         help,
		})
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(node.Values) {
			return current, true, nil
		}
		return node.Values[idx].Value, true, nil

	case registry.TypeSelectBoxes:
		if len(node.Values) == 0 {
			return current, true, nil
		}
		picked, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  message,
			Options:  optionLabels(node.Values),
			Defaults: selectedIndices(node.Values, current),
			Help:     help,
		})
		if err != nil {
			return nil, false, err
		}
		return selection(node.Values, picked), true, nil

	case registry.TypeTextArea:
		text, err := r.driver.TextArea(ctx, TextAreaConfig{Message: message, Default: schema.Stringify(current), Help: help})
		return text, true, err

	case registry.TypePassword:
		text, err := r.driver.Password(ctx, InputConfig{Message: message, Default: schema.Stringify(current), Help: help})
		return text, true, err
	}

	if node.Multiple {
		text, err := r.driver.Input(ctx, InputConfig{
			Message:     message,
			Default:     joinList(current),
			Help:        help,
			Placeholder: "comma separated",
		})
		if err != nil {
			return nil, false, err
		}
		return splitList(text), true, nil
	}

	text, err := r.driver.Input(ctx, InputConfig{
		Message:     message,
		Default:     schema.Stringify(current),
		Help:        help,
		Placeholder: node.Placeholder,
	})
	if err != nil {
		return nil, false, err
	}
	if node.Type == registry.TypeNumber || node.Type == registry.TypeCurrency {
		return parseNumber(text)
	}
	return text, true, nil
}

func (r *Renderer) message(node *schema.Node) string {
	title := node.Title()
	if node.Validate != nil && node.Validate.Required && r.theme.RequiredMark != "" {
		return title + " " + r.theme.RequiredMark
	}
	return title
}

func (r *Renderer) report(ctx context.Context, errs []validation.Error) {
	for _, err := range errs {
		r.info(ctx, fmt.Sprintf("%s %s", r.theme.ErrorPrefix, err.Message))
	}
}

func (r *Renderer) info(ctx context.Context, msg string) {
	if err := r.driver.Info(ctx, strings.TrimSpace(msg)); err != nil {
		r.logger.Warn().Err(err).Msg("info message dropped")
	}
}

func errorsFor(errs validation.Errors, keys []string) []validation.Error {
	var out []validation.Error
	for _, key := range keys {
		out = append(out, errs.ForKey(key)...)
	}
	return out
}

func keysOf(errs []validation.Error) []string {
	seen := make(map[string]bool, len(errs))
	var out []string
	for _, err := range errs {
		if !seen[err.Key] {
			seen[err.Key] = true
			out = append(out, err.Key)
		}
	}
	return out
}

func optionLabels(values []schema.Option) []string {
	out := make([]string, 0, len(values))
	for _, opt := range values {
		label := opt.Label
		if label == "" {
			label = schema.Stringify(opt.Value)
		}
		out = append(out, label)
	}
	return out
}

func optionIndex(values []schema.Option, current any) int {
	for idx, opt := range values {
		if schema.Equal(opt.Value, current) {
			return idx
		}
	}
	return -1
}

func selectedIndices(values []schema.Option, current any) []int {
	selected, _ := current.(map[string]any)
	var out []int
	for idx, opt := range values {
		if flag, ok := schema.AsBool(selected[schema.Stringify(opt.Value)]); ok && flag {
			out = append(out, idx)
		}
	}
	return out
}

// selection builds the selectboxes value: every option keyed by its value
// string, true when picked.
func selection(values []schema.Option, picked []int) map[string]any {
	out := make(map[string]any, len(values))
	for _, opt := range values {
		out[schema.Stringify(opt.Value)] = false
	}
	for _, idx := range picked {
		if idx >= 0 && idx < len(values) {
			out[schema.Stringify(values[idx].Value)] = true
		}
	}
	return out
}

func joinList(value any) string {
	items, _ := value.([]any)
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, schema.Stringify(item))
	}
	return strings.Join(parts, ", ")
}

func splitList(text string) []any {
	out := []any{}
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseNumber(text string) (any, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, true, nil
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, false, nil
	}
	return value, true, nil
}
