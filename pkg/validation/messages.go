package validation

import (
	"strings"

	"github.com/goliatone/go-formengine/pkg/schema"
)

// Translator resolves message keys for a locale. Message catalogs live with
// the host; the validator only asks for "validation.<kind>" keys and falls
// back to its English templates when the translator fails or returns "".
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate delegates to the underlying function.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

var defaultMessages = map[Kind]string{
	KindRequired:         "{field} is required",
	KindMinLength:        "{field} must have at least {limit} characters",
	KindMaxLength:        "{field} must have no more than {limit} characters",
	KindMin:              "{field} cannot be less than {limit}",
	KindMax:              "{field} cannot be greater than {limit}",
	KindPattern:          "{field} does not match the pattern {limit}",
	KindInteger:          "{field} must be an integer",
	KindMinWords:         "{field} must have at least {limit} words",
	KindMaxWords:         "{field} must have no more than {limit} words",
	KindMinSelectedCount: "You must select at least {limit} items",
	KindMaxSelectedCount: "You may only select up to {limit} items",
	KindCustom:           "{field} is invalid",
	KindEmail:            "{field} must be a valid email",
	KindURL:              "{field} must be a valid url",
	KindSelect:           "{field} is an invalid value",
	KindServer:           "{field} is invalid",
}

// message renders the text for kind on node. limit is the rule argument
// ("2" for minLength: 2) or "" when the rule has none.
func (v *Validator) message(node *schema.Node, kind Kind, limit string) string {
	field := node.Title()
	if v.translator != nil {
		params := map[string]any{"field": field, "limit": limit, "key": node.Key}
		msg, err := v.translator.Translate(v.locale, "validation."+string(kind), params)
		if err == nil && strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	template, ok := defaultMessages[kind]
	if !ok {
		template = defaultMessages[KindCustom]
	}
	return strings.NewReplacer("{field}", field, "{limit}", limit).Replace(template)
}
