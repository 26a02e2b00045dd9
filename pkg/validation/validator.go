package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	playground "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formengine/pkg/schema"
	"github.com/goliatone/go-formengine/pkg/script"
)

const (
	typeEmail       = "email"
	typeURL         = "url"
	typeCheckbox    = "checkbox"
	typeSelectBoxes = "selectboxes"
	typeSelect      = "select"
	typeRadio       = "radio"
)

// VisibilityFunc reports whether a node currently takes part in validation.
type VisibilityFunc func(node *schema.Node) bool

// FailureFunc observes custom rule failures (the validator still passes the
// field).
type FailureFunc func(key string, err error)

// Validator applies a node's rules to a value. Safe for concurrent use.
type Validator struct {
	sandbox    *script.Sandbox
	info       schema.TypeInfo
	logger     zerolog.Logger
	translator Translator
	locale     string
	checks     *playground.Validate
	onFailure  FailureFunc
	patterns   sync.Map
}

// Option configures a Validator.
type Option func(*Validator)

// WithSandbox sets the sandbox used for custom rules.
func WithSandbox(sandbox *script.Sandbox) Option {
	return func(v *Validator) {
		if sandbox != nil {
			v.sandbox = sandbox
		}
	}
}

// WithTypeInfo sets the type information used to skip non-input nodes and
// resolve nested data-group values. Without it every keyed leaf is treated as
// an input.
func WithTypeInfo(info schema.TypeInfo) Option {
	return func(v *Validator) {
		v.info = info
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// WithTranslator routes messages through t for locale.
func WithTranslator(t Translator, locale string) Option {
	return func(v *Validator) {
		v.translator = t
		v.locale = locale
	}
}

// WithFailureHook registers a callback invoked when a custom rule fails to
// evaluate.
func WithFailureHook(fn FailureFunc) Option {
	return func(v *Validator) {
		v.onFailure = fn
	}
}

// New constructs a validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		sandbox: script.New(),
		logger:  zerolog.Nop(),
		checks:  playground.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	v.logger = v.logger.With().Str("component", "validation").Logger()
	return v
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
)

// ValidateField validates value against node's rules with a default
// validator.
func ValidateField(node *schema.Node, value any, data map[string]any) []Error {
	defaultOnce.Do(func() { defaultValidator = New() })
	return defaultValidator.ValidateField(node, value, data)
}

// ValidateField validates value against node's rules. row defaults to data.
func (v *Validator) ValidateField(node *schema.Node, value any, data map[string]any) []Error {
	return v.ValidateFieldIn(node, value, data, data)
}

// ValidateFieldIn validates value with an explicit row scope. Rules run in a
// fixed order; an empty value that is not required is never checked further.
// A panicking rule is recovered and logged.
func (v *Validator) ValidateFieldIn(node *schema.Node, value any, data, row map[string]any) (errs []Error) {
	if node == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error().Str("key", node.Key).Interface("panic", r).Msg("validation panicked")
			errs = nil
		}
	}()

	rule := node.Validate
	if rule == nil {
		rule = &schema.ValidationRule{}
	}

	fail := func(kind Kind, limit string) {
		errs = append(errs, Error{Key: node.Key, Type: kind, Message: v.message(node, kind, limit)})
	}

	if isEmpty(node, value) {
		if rule.Required {
			fail(KindRequired, "")
		}
		return errs
	}

	values := []any{value}
	if list, ok := value.([]any); ok && node.Multiple {
		values = list
	}
	seen := map[Kind]bool{}
	once := func(kind Kind, limit string) {
		if seen[kind] {
			return
		}
		seen[kind] = true
		fail(kind, limit)
	}

	for _, item := range values {
		text := schema.Stringify(item)
		if rule.MinLength != nil && utf8.RuneCountInString(text) < *rule.MinLength {
			once(KindMinLength, strconv.Itoa(*rule.MinLength))
		}
		if rule.MaxLength != nil && utf8.RuneCountInString(text) > *rule.MaxLength {
			once(KindMaxLength, strconv.Itoa(*rule.MaxLength))
		}

		words := len(strings.Fields(text))
		if rule.MinWords != nil && words < *rule.MinWords {
			once(KindMinWords, strconv.Itoa(*rule.MinWords))
		}
		if rule.MaxWords != nil && words > *rule.MaxWords {
			once(KindMaxWords, strconv.Itoa(*rule.MaxWords))
		}

		number, numeric := numericValue(item)
		if numeric {
			if rule.Min != nil && number < *rule.Min {
				once(KindMin, formatNumber(*rule.Min))
			}
			if rule.Max != nil && number > *rule.Max {
				once(KindMax, formatNumber(*rule.Max))
			}
		}
		if rule.Integer && (!numeric || math.Mod(number, 1) != 0) {
			once(KindInteger, "")
		}

		if pattern := strings.TrimSpace(rule.Pattern); pattern != "" {
			if re := v.pattern(node, pattern); re != nil && !re.MatchString(text) {
				once(KindPattern, pattern)
			}
		}

		switch node.Type {
		case typeEmail:
			if err := v.checks.Var(text, "email"); err != nil {
				once(KindEmail, "")
			}
		case typeURL:
			if err := v.checks.Var(text, "url"); err != nil {
				once(KindURL, "")
			}
		}
		if rule.OnlyAvailableItems && (node.Type == typeSelect || node.Type == typeRadio) && !hasOption(node, item) {
			once(KindSelect, "")
		}
	}

	if rule.MinSelectedCount != nil || rule.MaxSelectedCount != nil {
		count := selectedCount(value)
		if rule.MinSelectedCount != nil && count < *rule.MinSelectedCount {
			fail(KindMinSelectedCount, strconv.Itoa(*rule.MinSelectedCount))
		}
		if rule.MaxSelectedCount != nil && count > *rule.MaxSelectedCount {
			fail(KindMaxSelectedCount, strconv.Itoa(*rule.MaxSelectedCount))
		}
	}

	if strings.TrimSpace(rule.Custom) != "" {
		if msg, failed := v.custom(node, rule, value, data, row); failed {
			errs = append(errs, Error{Key: node.Key, Type: KindCustom, Message: msg})
		}
	}
	return errs
}

// custom runs the user rule. It assigns `valid`; true or None passes, a
// string is the failure message and false falls back to customMessage.
// Evaluation errors pass the field (fail open).
func (v *Validator) custom(node *schema.Node, rule *schema.ValidationRule, value any, data, row map[string]any) (string, bool) {
	result, err := v.sandbox.Run(rule.Custom, "valid", true, script.Bindings{
		"input":     value,
		"data":      data,
		"row":       row,
		"component": node.Record(),
	})
	if err != nil {
		v.logger.Warn().Err(err).Str("key", node.Key).Msg("custom validation failed to evaluate")
		if v.onFailure != nil {
			v.onFailure(node.Key, err)
		}
		return "", false
	}
	switch res := result.(type) {
	case nil:
		return "", false
	case bool:
		if res {
			return "", false
		}
	case string:
		if strings.TrimSpace(res) != "" {
			return res, true
		}
	default:
		return "", false
	}
	if msg := strings.TrimSpace(rule.CustomMessage); msg != "" {
		return msg, true
	}
	return v.message(node, KindCustom, ""), true
}

func (v *Validator) pattern(node *schema.Node, pattern string) *regexp.Regexp {
	if cached, ok := v.patterns.Load(pattern); ok {
		re, _ := cached.(*regexp.Regexp)
		return re
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		v.logger.Warn().Err(err).Str("key", node.Key).Str("pattern", pattern).Msg("invalid validation pattern skipped")
		v.patterns.Store(pattern, (*regexp.Regexp)(nil))
		return nil
	}
	v.patterns.Store(pattern, re)
	return re
}

// isEmpty reports whether value counts as missing for node.
func isEmpty(node *schema.Node, value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		if node.Type == typeSelectBoxes {
			return selectedCount(v) == 0
		}
		return len(v) == 0
	case bool:
		return node.Type == typeCheckbox && !v
	}
	return false
}

func selectedCount(value any) int {
	switch v := value.(type) {
	case map[string]any:
		count := 0
		for _, selected := range v {
			if flag, ok := schema.AsBool(selected); ok {
				if flag {
					count++
				}
				continue
			}
			if selected != nil && selected != "" {
				count++
			}
		}
		return count
	case []any:
		return len(v)
	case []string:
		return len(v)
	case nil:
		return 0
	}
	return 1
}

func numericValue(value any) (float64, bool) {
	if _, ok := value.(bool); ok {
		return 0, false
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return 0, false
	}
	return schema.AsNumber(value)
}

func hasOption(node *schema.Node, value any) bool {
	for _, option := range node.Values {
		if schema.Equal(option.Value, value) || schema.Stringify(option.Value) == schema.Stringify(value) {
			return true
		}
	}
	return false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (k Kind) String() string { return string(k) }
