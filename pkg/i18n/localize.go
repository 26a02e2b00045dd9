package i18n

import (
	"strings"

	"github.com/goliatone/go-formengine/pkg/schema"
)

// Property names holding translation keys on a node.
const (
	LabelKey       = "labelKey"
	DescriptionKey = "descriptionKey"
	PlaceholderKey = "placeholderKey"
	TooltipKey     = "tooltipKey"
	// OptionKeyPrefix prefixes option keys: "<prefix>.<value>" is looked up
	// for every option when set.
	OptionKeyPrefix = "optionsKey"
)

// MissingFunc decides the text used when a key has no translation.
type MissingFunc func(locale, key, fallback string, err error) string

// KeepFallback returns the authored text, or the key when there is none.
func KeepFallback(_, key, fallback string, _ error) string {
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return key
}

// Localize rewrites the text fields of node that carry a translation key.
// node must be a copy owned by the caller; Values are replaced rather than
// edited in place.
func Localize(node *schema.Node, locale string, t Translator, onMissing MissingFunc) {
	if node == nil || len(node.Properties) == 0 {
		return
	}
	if onMissing == nil {
		onMissing = KeepFallback
	}
	tr := func(prop, fallback string) string {
		key, _ := node.Properties[prop].(string)
		if key = strings.TrimSpace(key); key == "" {
			return fallback
		}
		return translate(locale, key, fallback, t, onMissing)
	}

	node.Label = tr(LabelKey, node.Label)
	node.Description = tr(DescriptionKey, node.Description)
	node.Placeholder = tr(PlaceholderKey, node.Placeholder)
	node.Tooltip = tr(TooltipKey, node.Tooltip)

	prefix, _ := node.Properties[OptionKeyPrefix].(string)
	if prefix = strings.TrimSpace(prefix); prefix != "" && len(node.Values) > 0 {
		values := make([]schema.Option, len(node.Values))
		for idx, opt := range node.Values {
			opt.Label = translate(locale, prefix+"."+schema.Stringify(opt.Value), opt.Label, t, onMissing)
			values[idx] = opt
		}
		node.Values = values
	}
}

func translate(locale, key, fallback string, t Translator, onMissing MissingFunc) string {
	if t == nil {
		return onMissing(locale, key, fallback, ErrMissingTranslation)
	}
	msg, err := t.Translate(locale, key)
	if err == nil && strings.TrimSpace(msg) != "" {
		return msg
	}
	return onMissing(locale, key, fallback, err)
}
