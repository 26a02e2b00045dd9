// Package form runs a live form instance: it owns the data bag, applies
// field updates, settles logic overrides and calculated values, validates
// according to the configured trigger policy and produces submissions.
package form

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formengine/pkg/calc"
	"github.com/goliatone/go-formengine/pkg/i18n"
	"github.com/goliatone/go-formengine/pkg/logic"
	"github.com/goliatone/go-formengine/pkg/registry"
	"github.com/goliatone/go-formengine/pkg/schema"
	"github.com/goliatone/go-formengine/pkg/script"
	"github.com/goliatone/go-formengine/pkg/validation"
	"github.com/goliatone/go-formengine/pkg/wizard"
)

// StateSubmitted is the state recorded on accepted submissions.
const StateSubmitted = "submitted"

// Submission is the payload produced by a successful Submit.
type Submission struct {
	Data     map[string]any `json:"data"`
	Metadata Metadata       `json:"metadata"`
	State    string         `json:"state"`
}

// Metadata describes a submission.
type Metadata struct {
	Timezone     string    `json:"timezone"`
	SubmissionID string    `json:"submissionId"`
	FormID       string    `json:"formId"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// Form is a single form instance. Every public method is serialized behind
// one mutex, so updates are applied in call order and each one settles
// before the next starts.
type Form struct {
	mu sync.Mutex

	id       string
	cfg      Config
	registry *registry.Registry
	logger   zerolog.Logger
	metrics  *Metrics
	now      func() time.Time
	policy   *bluemonday.Policy

	translator validation.Translator
	locale     string

	nodes   []*schema.Node
	paths   map[string][]string
	data    map[string]any
	result  logic.Result
	errors  validation.Errors
	touched map[string]struct{}

	logic     *logic.Evaluator
	calc      *calc.Engine
	validator *validation.Validator
	wizard    *wizard.Controller
}

// Option configures a Form.
type Option func(*Form)

// WithConfig sets the form configuration. Zero fields take defaults.
func WithConfig(cfg Config) Option {
	return func(f *Form) {
		f.cfg = cfg
	}
}

// WithRegistry sets the type registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(f *Form) {
		if reg != nil {
			f.registry = reg
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Form) {
		f.logger = logger
	}
}

// WithMetrics records engine metrics.
func WithMetrics(m *Metrics) Option {
	return func(f *Form) {
		f.metrics = m
	}
}

// WithTranslator localises validation messages and the keyed texts of
// views. An empty locale uses Config.Locale.
func WithTranslator(t validation.Translator, locale string) Option {
	return func(f *Form) {
		f.translator = t
		f.locale = locale
	}
}

// WithPolicy overrides the HTML policy applied to content in views.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(f *Form) {
		f.policy = policy
	}
}

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) Option {
	return func(f *Form) {
		if now != nil {
			f.now = now
		}
	}
}

// WithID fixes the form instance id.
func WithID(id string) Option {
	return func(f *Form) {
		if id != "" {
			f.id = id
		}
	}
}

// New builds a form for nodes. The nodes are copied; the data bag starts from
// the schema defaults.
func New(nodes []*schema.Node, opts ...Option) *Form {
	f := &Form{
		id:       uuid.NewString(),
		cfg:      DefaultConfig(),
		registry: registry.New(),
		logger:   zerolog.Nop(),
		now:      time.Now,
		touched:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	f.cfg = f.cfg.normalise()
	if f.locale == "" {
		f.locale = f.cfg.Locale
	}
	f.logger = f.logger.With().Str("component", "form").Str("form", f.id).Logger()

	sandbox := script.New(
		script.WithStepBudget(f.cfg.ScriptStepBudget),
		script.WithTimeout(time.Duration(f.cfg.ScriptTimeout)),
	)
	f.logic = logic.New(
		logic.WithSandbox(sandbox),
		logic.WithTypeInfo(f.registry),
		logic.WithLogger(f.logger),
		logic.WithPolicy(f.policy),
		logic.WithFailureHook(func(kind string, _ error) {
			f.metrics.expressionFailed("logic." + kind)
		}),
	)
	f.calc = calc.New(
		calc.WithSandbox(sandbox),
		calc.WithTypeInfo(f.registry),
		calc.WithLogger(f.logger),
		calc.WithFailureHook(func(string, error) {
			f.metrics.expressionFailed("calculate")
		}),
	)
	f.validator = validation.New(
		validation.WithSandbox(sandbox),
		validation.WithTypeInfo(f.registry),
		validation.WithLogger(f.logger),
		validation.WithTranslator(f.translator, f.locale),
		validation.WithFailureHook(func(string, error) {
			f.metrics.expressionFailed("custom")
		}),
	)

	f.install(schema.Clone(nodes, schema.WithCloneLogger(f.logger)), nil)
	return f
}

// ID returns the form instance id.
func (f *Form) ID() string {
	return f.id
}

// Config returns the effective configuration.
func (f *Form) Config() Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

// Export returns a deep copy of the schema.
func (f *Form) Export() []*schema.Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	return schema.Clone(f.nodes, schema.WithCloneLogger(f.logger))
}

// Data returns a copy of the data bag.
func (f *Form) Data() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return schema.CloneData(f.data)
}

// Value returns the value stored for key.
func (f *Form) Value(key string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path, ok := f.paths[key]
	if !ok {
		return nil, false
	}
	value, ok := schema.Lookup(f.data, path)
	return schema.CloneValue(value), ok
}

// SetValue is the field-update path: it stores value under key, settles
// overrides and calculated values, and validates when the policy is
// "change". Unknown keys are ignored and return false.
func (f *Form) SetValue(key string, value any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.write(key, value) {
		return false
	}
	f.settle()
	f.changed([]string{key})
	return true
}

// Blur marks key as touched and validates it under the "blur" and "change"
// policies.
func (f *Form) Blur(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.paths[key]; !ok {
		return false
	}
	f.touched[key] = struct{}{}
	if f.cfg.ValidateOn == ValidateOnBlur || f.cfg.ValidateOn == ValidateOnChange {
		f.revalidate([]string{key})
	}
	return true
}

// Touched reports whether key has been blurred.
func (f *Form) Touched(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.touched[key]
	return ok
}

// Batch collects many edits and settles once. fn runs under the form lock
// and must only use the Batch it is given.
func (f *Form) Batch(fn func(b *Batch)) int {
	if fn == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := &Batch{form: f}
	fn(batch)
	if len(batch.keys) == 0 {
		return 0
	}
	f.settle()
	f.changed(batch.keys)
	return len(batch.keys)
}

// Batch stages edits for Form.Batch.
type Batch struct {
	form *Form
	keys []string
}

// Set stages a field update. Unknown keys return false.
func (b *Batch) Set(key string, value any) bool {
	if !b.form.write(key, value) {
		return false
	}
	b.keys = append(b.keys, key)
	return true
}

// Load replaces the data bag wholesale. Keys missing from data take their
// schema defaults. Errors and touched state are reset.
func (f *Form) Load(data map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.install(f.nodes, data)
	f.touched = make(map[string]struct{})
}

// SetSchema swaps the schema. Values of keys that still exist are kept.
func (f *Form) SetSchema(nodes []*schema.Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.install(schema.Clone(nodes, schema.WithCloneLogger(f.logger)), f.data)
}

// Errors returns the current error view.
func (f *Form) Errors() validation.Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors.Clone()
}

// Validate runs every rule on every visible input and stores the result.
func (f *Form) Validate() validation.Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validateAll()
	return f.errors.Clone()
}

// ApplyServerErrors maps an external error payload onto fields and returns
// the messages that belong to the form as a whole.
func (f *Form) ApplyServerErrors(payload map[string][]string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	mapping := validation.MapPayload(f.nodes, f.registry, payload)
	for _, key := range mapping.Fields.Keys() {
		f.errors.Set(key, mapping.Fields.ForKey(key))
	}
	return mapping.Form
}

// Visible reports the computed visibility of key.
func (f *Form) Visible(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result.VisibleKey(key)
}

// View returns the effective view of the node with key.
func (f *Form) View(key string) (logic.View, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	node := schema.FindByKey(f.nodes, key)
	if node == nil {
		return logic.View{}, false
	}
	return f.view(node), true
}

// Views returns the effective view of every node in traversal order,
// including hidden ones.
func (f *Form) Views() []logic.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []logic.View
	schema.Each(f.nodes, func(node *schema.Node) {
		out = append(out, f.view(node))
	})
	return out
}

func (f *Form) view(node *schema.Node) logic.View {
	return logic.View{Node: f.effective(node), Visible: f.result.IsVisible(node)}
}

// effective applies the node's overrides and, when a translator is
// configured, localises its keyed texts.
func (f *Form) effective(node *schema.Node) *schema.Node {
	out := f.logic.Effective(node, f.result.Overrides[node.Key])
	if f.translator != nil {
		i18n.Localize(out, f.locale, f.translator, nil)
	}
	return out
}

// Overrides returns the current property overrides.
func (f *Form) Overrides() logic.Overrides {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(logic.Overrides, len(f.result.Overrides))
	for key, patch := range f.result.Overrides {
		out[key] = schema.CloneData(patch)
	}
	return out
}

// Submit validates everything and, when there are no errors, returns the
// submission. Otherwise the errors are returned and no submission is made.
func (f *Form) Submit() (Submission, validation.Errors) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validateAll()
	if !f.errors.Empty() {
		f.metrics.submitted("rejected")
		f.logger.Debug().Int("errors", f.errors.Count()).Msg("submission rejected")
		return Submission{}, f.errors.Clone()
	}

	submission := Submission{
		Data: schema.CloneData(f.data),
		Metadata: Metadata{
			Timezone:     f.timezone(),
			SubmissionID: uuid.NewString(),
			FormID:       f.id,
			SubmittedAt:  f.now().UTC(),
		},
		State: StateSubmitted,
	}
	f.metrics.submitted("accepted")
	f.logger.Info().Str("submission", submission.Metadata.SubmissionID).Msg("form submitted")
	return submission, validation.Errors{}
}

func (f *Form) timezone() string {
	if f.cfg.Timezone != "" {
		return f.cfg.Timezone
	}
	return f.now().Location().String()
}

// install replaces the schema and rebuilds the bag from defaults overlaid
// with values. Must be called with the lock held (or during New).
func (f *Form) install(nodes []*schema.Node, values map[string]any) {
	f.nodes = nodes
	f.paths = schema.Paths(nodes, f.registry)
	data := schema.Defaults(nodes, f.registry)
	for key, path := range f.paths {
		if value, ok := schema.Lookup(values, path); ok {
			schema.SetPath(data, path, schema.CloneValue(value))
			continue
		}
		// Values stored flat for a key that now lives in a data group.
		if len(path) > 1 {
			if value, ok := values[key]; ok {
				schema.SetPath(data, path, schema.CloneValue(value))
			}
		}
	}
	f.data = data
	f.errors = validation.Errors{}
	f.settle()
	f.installWizard()
}

func (f *Form) write(key string, value any) bool {
	path, ok := f.paths[key]
	if !ok {
		f.logger.Debug().Str("key", key).Msg("update ignored: unknown key")
		return false
	}
	schema.SetPath(f.data, path, schema.CloneValue(value))
	return true
}

// settle alternates logic and calculated-value recomputes until a pass makes
// no writes or the iteration cap is hit.
func (f *Form) settle() {
	limit := f.cfg.MaxSettleIterations
	iterations, capped := 0, true
	for iterations < limit {
		iterations++
		f.result = f.logic.Recompute(f.nodes, f.data)
		writes := f.clearHidden()
		writes += f.calc.Recompute(f.nodes, f.data, f.setComputed)
		if writes == 0 {
			capped = false
			break
		}
	}
	if capped {
		f.result = f.logic.Recompute(f.nodes, f.data)
		f.logger.Warn().Int("iterations", iterations).Msg("settle loop did not converge")
	}
	for _, key := range f.errors.Keys() {
		if !f.result.VisibleKey(key) {
			f.errors.Clear(key)
		}
	}
	f.metrics.observeSettle(iterations, capped)
}

func (f *Form) setComputed(key string, value any) {
	if path, ok := f.paths[key]; ok {
		schema.SetPath(f.data, path, value)
	}
}

// clearHidden empties inputs flagged clearOnHide while they are hidden.
func (f *Form) clearHidden() int {
	writes := 0
	schema.Each(f.nodes, func(node *schema.Node) {
		if !node.ClearOnHide || f.result.IsVisible(node) {
			return
		}
		path, ok := f.paths[node.Key]
		if !ok || !f.registry.IsInput(node) {
			return
		}
		current, _ := schema.Lookup(f.data, path)
		var empty any
		if node.Multiple {
			empty = []any{}
		}
		if current == nil || schema.Equal(current, empty) {
			return
		}
		schema.SetPath(f.data, path, empty)
		writes++
	})
	return writes
}

func (f *Form) changed(keys []string) {
	if f.cfg.ValidateOn == ValidateOnChange {
		f.revalidate(keys)
	}
}

func (f *Form) scope(keys []string) validation.Scope {
	return validation.Scope{
		Visible:   f.result.IsVisible,
		Effective: f.effective,
		Keys:      keys,
	}
}

// revalidate refreshes the errors of keys.
func (f *Form) revalidate(keys []string) validation.Errors {
	errs := f.validator.ValidateTree(f.nodes, f.data, f.scope(keys))
	for _, key := range keys {
		f.errors.Set(key, errs.ForKey(key))
	}
	f.count(errs)
	return errs
}

func (f *Form) validateAll() {
	f.errors = f.validator.ValidateTree(f.nodes, f.data, f.scope(nil))
	f.count(f.errors)
}

func (f *Form) count(errs validation.Errors) {
	if f.metrics == nil {
		return
	}
	for _, err := range errs.All() {
		f.metrics.validationFailed(string(err.Type))
	}
}
