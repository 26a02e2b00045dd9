package script

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.starlark.net/starlark"
)

const (
	// DefaultStepBudget bounds the number of starlark execution steps per run.
	DefaultStepBudget uint64 = 100_000
	// DefaultTimeout bounds wall-clock time per run.
	DefaultTimeout = 250 * time.Millisecond

	runFunc   = "_formengine_run"
	runResult = "_formengine_result"
	runSeed   = "_formengine_seed"
)

// Error kinds reported by Error.Kind.
const (
	KindCompile = "compile"
	KindRuntime = "runtime"
	KindTimeout = "timeout"
	KindBudget  = "budget"
	KindConvert = "convert"
	KindEmpty   = "empty"
)

// ErrEmptyScript is returned for blank sources.
var ErrEmptyScript = errors.New("script: source is empty")

// Error wraps a failure raised while evaluating a user expression.
type Error struct {
	Kind   string
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("script: %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Bindings are the names exposed to a script. Values are JSON-like Go values;
// records are exposed with attribute access (data.total) as well as indexing
// (data["total"]).
type Bindings map[string]any

// Sandbox evaluates user-authored expressions with starlark. Scripts see only
// their bindings and a few JSON-style aliases (true, false, null); there is no
// load(), no print output and every run is bounded by a step budget and a
// timeout.
type Sandbox struct {
	steps   uint64
	timeout time.Duration
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithStepBudget overrides the per-run execution step budget.
func WithStepBudget(steps uint64) Option {
	return func(s *Sandbox) {
		if steps > 0 {
			s.steps = steps
		}
	}
}

// WithTimeout overrides the per-run timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Sandbox) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// New constructs a sandbox.
func New(opts ...Option) *Sandbox {
	s := &Sandbox{steps: DefaultStepBudget, timeout: DefaultTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Run executes src and returns the final value of the variable named out.
// The variable starts as seed. When src never assigns out it is treated as a
// bare expression whose result becomes out. The body runs inside a function,
// so conditionals and loops are allowed and out may be read before it is
// reassigned (value = value + 1).
func (s *Sandbox) Run(src, out string, seed any, bindings Bindings) (result any, err error) {
	if strings.TrimSpace(src) == "" {
		return nil, &Error{Kind: KindEmpty, Source: src, Err: ErrEmptyScript}
	}
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &Error{Kind: KindRuntime, Source: src, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	predeclared, err := s.predeclared(seed, bindings)
	if err != nil {
		return nil, &Error{Kind: KindConvert, Source: src, Err: err}
	}

	program := wrap(src, out)

	thread := &starlark.Thread{
		Name:  "formengine",
		Print: func(*starlark.Thread, string) {},
	}
	thread.SetMaxExecutionSteps(s.steps)

	var timedOut atomic.Bool
	timer := time.AfterFunc(s.timeout, func() {
		timedOut.Store(true)
		thread.Cancel("timeout")
	})
	defer timer.Stop()

	globals, execErr := starlark.ExecFile(thread, "expression.star", program, predeclared)
	if execErr != nil {
		return nil, &Error{Kind: classify(execErr, timedOut.Load()), Source: src, Err: execErr}
	}

	value, ok := globals[runResult]
	if !ok {
		return nil, nil
	}
	converted, err := FromValue(value)
	if err != nil {
		return nil, &Error{Kind: KindConvert, Source: src, Err: err}
	}
	return converted, nil
}

// Eval evaluates a bare expression and returns its value.
func (s *Sandbox) Eval(src string, bindings Bindings) (any, error) {
	return s.Run(src, "_formengine_value", nil, bindings)
}

func (s *Sandbox) predeclared(seed any, bindings Bindings) (starlark.StringDict, error) {
	dict := starlark.StringDict{
		"true":  starlark.True,
		"false": starlark.False,
		"null":  starlark.None,
	}
	for name, value := range builtins() {
		dict[name] = value
	}
	for name, value := range bindings {
		converted, err := ToValue(value)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
		dict[name] = converted
	}
	converted, err := ToValue(seed)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	dict[runSeed] = converted
	return dict, nil
}

func classify(err error, timedOut bool) string {
	if timedOut {
		return KindTimeout
	}
	if strings.Contains(err.Error(), "too many steps") {
		return KindBudget
	}
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return KindRuntime
	}
	return KindCompile
}

// wrap turns src into a module that defines and calls a function binding out.
func wrap(src, out string) string {
	body := normalizeOperators(strings.TrimSpace(src))
	if !Assigns(body, out) {
		body = out + " = (" + strings.TrimRight(body, "; \t\n") + ")"
	}

	var b strings.Builder
	b.WriteString("def " + runFunc + "(" + out + "):\n")
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		b.WriteString("    ")
		b.WriteString(expandTabs(line))
		b.WriteByte('\n')
	}
	b.WriteString("    return " + out + "\n")
	b.WriteString(runResult + " = " + runFunc + "(" + runSeed + ")\n")
	return b.String()
}

var (
	assignMu       sync.Mutex
	assignPatterns = map[string]*regexp.Regexp{}
)

// Assigns reports whether src contains an assignment to name.
func Assigns(src, name string) bool {
	assignMu.Lock()
	pattern, ok := assignPatterns[name]
	if !ok {
		pattern = regexp.MustCompile(`(?m)(^|;)\s*` + regexp.QuoteMeta(name) + `\s*(\+|-|\*|/|//|%)?=([^=]|$)`)
		assignPatterns[name] = pattern
	}
	assignMu.Unlock()
	return pattern.MatchString(src)
}

func expandTabs(line string) string {
	idx := 0
	for idx < len(line) && (line[idx] == ' ' || line[idx] == '\t') {
		idx++
	}
	return strings.ReplaceAll(line[:idx], "\t", "    ") + line[idx:]
}

// normalizeOperators rewrites the JavaScript-style operators form authors
// commonly type (===, !==, &&, ||, !) to starlark equivalents. String
// literals are left alone.
func normalizeOperators(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(src) {
				i++
				b.WriteByte(src[i])
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			quote = c
			b.WriteByte(c)
		case strings.HasPrefix(src[i:], "==="):
			b.WriteString("==")
			i += 2
		case strings.HasPrefix(src[i:], "!=="):
			b.WriteString("!=")
			i += 2
		case strings.HasPrefix(src[i:], "&&"):
			b.WriteString(" and ")
			i++
		case strings.HasPrefix(src[i:], "||"):
			b.WriteString(" or ")
			i++
		case c == '!' && !strings.HasPrefix(src[i:], "!="):
			b.WriteString(" not ")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
