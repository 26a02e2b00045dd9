package logic

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formengine/pkg/logic/expr"
	"github.com/goliatone/go-formengine/pkg/schema"
	"github.com/goliatone/go-formengine/pkg/script"
)

// Patch is a partial property set merged into a node's effective view.
type Patch = map[string]any

// Overrides maps node keys to their patch.
type Overrides map[string]Patch

// Result is the output of one recompute pass. Both maps are rebuilt from
// scratch on every pass.
type Result struct {
	Overrides Overrides
	// Visible holds the effective visibility per key. Keyless nodes are
	// tracked by identity only; use IsVisible for those.
	Visible map[string]bool

	hidden map[*schema.Node]bool
}

// IsVisible reports the visibility computed for node.
func (r Result) IsVisible(node *schema.Node) bool {
	if node == nil {
		return false
	}
	if hidden, ok := r.hidden[node]; ok {
		return !hidden
	}
	if visible, ok := r.Visible[node.Key]; ok {
		return visible
	}
	return true
}

// VisibleKey reports the visibility for key; unknown keys are visible.
func (r Result) VisibleKey(key string) bool {
	if visible, ok := r.Visible[key]; ok {
		return visible
	}
	return true
}

// FailureFunc observes trigger failures. kind is the trigger type.
type FailureFunc func(kind string, err error)

// Evaluator computes visibility and property overrides. It is safe for
// concurrent use as long as the tree and data passed in are not mutated
// during a call.
type Evaluator struct {
	sandbox   *script.Sandbox
	exprs     *expr.Evaluator
	info      schema.TypeInfo
	logger    zerolog.Logger
	policy    *bluemonday.Policy
	onFailure FailureFunc
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithSandbox sets the sandbox used by javascript triggers.
func WithSandbox(sandbox *script.Sandbox) Option {
	return func(e *Evaluator) {
		if sandbox != nil {
			e.sandbox = sandbox
		}
	}
}

// WithTypeInfo lets the evaluator resolve row scopes for nodes nested in data
// groups.
func WithTypeInfo(info schema.TypeInfo) Option {
	return func(e *Evaluator) {
		e.info = info
	}
}

// WithLogger sets the logger used for trigger failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithPolicy overrides the HTML policy applied to content in effective views.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(e *Evaluator) {
		if policy != nil {
			e.policy = policy
		}
	}
}

// WithFailureHook registers a callback for trigger failures.
func WithFailureHook(fn FailureFunc) Option {
	return func(e *Evaluator) {
		e.onFailure = fn
	}
}

// New constructs an evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		sandbox: script.New(),
		exprs:   expr.New(),
		logger:  zerolog.Nop(),
		policy:  bluemonday.UGCPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.logger = e.logger.With().Str("component", "logic").Logger()
	return e
}

// Recompute evaluates every node's logic rules and visibility against data.
// A node is visible when its conditional passes, its effective hidden flag is
// false and its parent is visible.
func (e *Evaluator) Recompute(nodes []*schema.Node, data map[string]any) Result {
	result := Result{
		Overrides: Overrides{},
		Visible:   map[string]bool{},
		hidden:    map[*schema.Node]bool{},
	}
	if data == nil {
		data = map[string]any{}
	}

	schema.WalkPath(nodes, func(node *schema.Node, ancestors []*schema.Node) bool {
		row := e.rowFor(node, ancestors, data)
		patch := e.patchFor(node, data, row)
		if len(patch) > 0 && node.Key != "" {
			merged := result.Overrides[node.Key]
			if merged == nil {
				merged = Patch{}
				result.Overrides[node.Key] = merged
			}
			for k, v := range patch {
				merged[k] = v
			}
		}

		hidden := false
		if len(ancestors) > 0 && result.hidden[ancestors[len(ancestors)-1]] {
			hidden = true
		}
		if !hidden {
			hidden = !e.conditionalVisible(node, data, row)
		}
		if !hidden {
			effective := node.Hidden
			if value, ok := result.Overrides[node.Key]["hidden"]; ok {
				if flag, ok := schema.AsBool(value); ok {
					effective = flag
				}
			}
			hidden = effective
		}

		result.hidden[node] = hidden
		if node.Key != "" {
			if _, seen := result.Visible[node.Key]; !seen {
				result.Visible[node.Key] = !hidden
			}
		}
		return true
	})
	return result
}

// Visible evaluates the node's full conditional (simple, predicate tree or
// expression) with row defaulting to data.
func (e *Evaluator) Visible(node *schema.Node, data map[string]any) bool {
	return e.conditionalVisible(node, data, data)
}

func (e *Evaluator) conditionalVisible(node *schema.Node, data, row map[string]any) bool {
	cond := node.Conditional
	if cond == nil {
		return true
	}
	switch {
	case cond.JSON != nil:
		value, err := EvalPredicate(cond.JSON, data, row)
		if err != nil {
			e.fail(node, string(schema.TriggerJSON), err)
			return true
		}
		return Truthy(value)
	case strings.TrimSpace(cond.Expression) != "":
		ok, err := e.exprs.Eval(cond.Expression, expr.Context{Data: data, Row: row})
		if err != nil {
			e.fail(node, string(schema.TriggerExpression), err)
			return true
		}
		return ok
	}
	return simpleMatches(cond, data, row, true)
}

// patchFor merges the property actions of every firing rule, later rules
// winning on collisions.
func (e *Evaluator) patchFor(node *schema.Node, data, row map[string]any) Patch {
	if len(node.Logic) == 0 {
		return nil
	}
	var patch Patch
	for _, rule := range node.Logic {
		if !e.Triggered(node, rule.Trigger, data, row) {
			continue
		}
		for _, action := range rule.Actions {
			name, value, ok := propertyAction(action)
			if !ok {
				e.logger.Debug().
					Str("key", node.Key).
					Str("action", action.Type).
					Msg("logic action ignored")
				continue
			}
			if patch == nil {
				patch = Patch{}
			}
			patch[name] = value
		}
	}
	return patch
}

func propertyAction(action schema.Action) (string, any, bool) {
	actionType := strings.TrimSpace(action.Type)
	if actionType != "" && actionType != schema.ActionProperty {
		return "", nil, false
	}
	name := strings.TrimSpace(action.Property)
	if name == "" {
		return "", nil, false
	}
	value := action.Value
	if s, ok := value.(string); ok {
		switch strings.TrimSpace(s) {
		case "true":
			value = true
		case "false":
			value = false
		}
	}
	return name, value, true
}

// Triggered reports whether trigger fires for node. Failures are logged and
// count as not triggered.
func (e *Evaluator) Triggered(node *schema.Node, trigger schema.Trigger, data, row map[string]any) bool {
	if row == nil {
		row = data
	}
	switch trigger.Type {
	case schema.TriggerSimple:
		if trigger.Simple == nil {
			return false
		}
		return simpleMatches(trigger.Simple, data, row, false)
	case schema.TriggerJSON:
		if trigger.JSON == nil {
			return false
		}
		value, err := EvalPredicate(trigger.JSON, data, row)
		if err != nil {
			e.fail(node, string(trigger.Type), err)
			return false
		}
		return Truthy(value)
	case schema.TriggerJavascript:
		if strings.TrimSpace(trigger.Javascript) == "" {
			return false
		}
		value, err := e.sandbox.Run(trigger.Javascript, "result", false, script.Bindings{
			"data":      data,
			"row":       row,
			"component": node.Record(),
		})
		if err != nil {
			e.fail(node, string(trigger.Type), err)
			return false
		}
		return Truthy(value)
	case schema.TriggerExpression:
		ok, err := e.exprs.Eval(trigger.Expression, expr.Context{Data: data, Row: row})
		if err != nil {
			e.fail(node, string(trigger.Type), err)
			return false
		}
		return ok
	default:
		e.logger.Debug().Str("key", node.Key).Str("trigger", string(trigger.Type)).Msg("unknown trigger type")
		return false
	}
}

func (e *Evaluator) fail(node *schema.Node, kind string, err error) {
	e.logger.Warn().Err(err).Str("key", node.Key).Str("trigger", kind).Msg("logic evaluation failed")
	if e.onFailure != nil {
		e.onFailure(kind, err)
	}
}

// rowFor returns the record holding node's value: the nearest enclosing data
// group, or data itself at the top level.
func (e *Evaluator) rowFor(node *schema.Node, ancestors []*schema.Node, data map[string]any) map[string]any {
	if e.info == nil {
		return data
	}
	path := schema.DataPath(node, ancestors, e.info)
	if len(path) < 2 {
		return data
	}
	value, ok := schema.Lookup(data, path[:len(path)-1])
	if !ok {
		return data
	}
	if record, ok := value.(map[string]any); ok {
		return record
	}
	return data
}

// View is a node's effective view: the stored node merged with its override
// patch, plus its computed visibility.
type View struct {
	*schema.Node
	Visible bool `json:"visible"`
}

// Effective returns a shallow copy of node with patch applied. The stored
// node is never modified. Content HTML is sanitized.
func (e *Evaluator) Effective(node *schema.Node, patch Patch) *schema.Node {
	if node == nil {
		return nil
	}
	view := node.ShallowCopy()
	view.Apply(patch)
	if view.Content != "" {
		view.Content = e.policy.Sanitize(view.Content)
	}
	return view
}

// View builds the effective view of node from result.
func (e *Evaluator) View(node *schema.Node, result Result) View {
	return View{
		Node:    e.Effective(node, result.Overrides[node.Key]),
		Visible: result.IsVisible(node),
	}
}
