// Package i18n provides message catalogs and node localisation. A Catalog
// satisfies validation.Translator, so the same catalog can serve validation
// messages and the labels shown in effective views.
package i18n

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrMissingTranslation is returned when no locale in the fallback chain has
// the key.
var ErrMissingTranslation = errors.New("i18n: missing translation")

// Translator resolves message keys for a locale. Args may carry one
// map[string]any whose entries fill {name} placeholders.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// Catalog holds messages per locale. Lookups fall back from "nb-NO" to "nb"
// and finally to the default locale. Safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]map[string]string
	fallback string
}

// NewCatalog returns an empty catalog falling back to fallback.
func NewCatalog(fallback string) *Catalog {
	return &Catalog{
		messages: make(map[string]map[string]string),
		fallback: normaliseLocale(fallback),
	}
}

// Add registers messages for locale, replacing existing keys.
func (c *Catalog) Add(locale string, messages map[string]string) {
	locale = normaliseLocale(locale)
	if locale == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.messages[locale]
	if !ok {
		bucket = make(map[string]string, len(messages))
		c.messages[locale] = bucket
	}
	for key, msg := range messages {
		bucket[strings.TrimSpace(key)] = msg
	}
}

// Locales lists the locales with messages, sorted.
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.messages))
	for locale := range c.messages {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Translate implements Translator.
func (c *Catalog) Translate(locale, key string, args ...any) (string, error) {
	key = strings.TrimSpace(key)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, candidate := range c.chain(locale) {
		if msg, ok := c.messages[candidate][key]; ok {
			return interpolate(msg, args), nil
		}
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrMissingTranslation, key, locale)
}

func (c *Catalog) chain(locale string) []string {
	locale = normaliseLocale(locale)
	var out []string
	if locale != "" {
		out = append(out, locale)
		if base, _, ok := strings.Cut(locale, "-"); ok {
			out = append(out, base)
		}
	}
	if c.fallback != "" {
		out = append(out, c.fallback)
	}
	return out
}

// ParseCatalog decodes a {locale: {key: message}} document, JSON first with
// a YAML fallback.
func ParseCatalog(data []byte, fallback, source string) (*Catalog, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("i18n: catalog %s is empty", source)
	}
	var raw map[string]map[string]string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		raw = nil
		if yerr := yaml.Unmarshal(trimmed, &raw); yerr != nil {
			return nil, fmt.Errorf("i18n: parse catalog %s: invalid JSON or YAML: %w", source, yerr)
		}
	}
	catalog := NewCatalog(fallback)
	for locale, messages := range raw {
		catalog.Add(locale, messages)
	}
	return catalog, nil
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path, fallback string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("i18n: read catalog %s: %w", path, err)
	}
	return ParseCatalog(data, fallback, path)
}

func normaliseLocale(locale string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
}

func interpolate(msg string, args []any) string {
	if len(args) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	params, ok := args[0].(map[string]any)
	if !ok {
		return msg
	}
	pairs := make([]string, 0, len(params)*2)
	for name, value := range params {
		pairs = append(pairs, "{"+name+"}", fmt.Sprint(value))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}
