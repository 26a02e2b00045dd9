package validation

import (
	"encoding/json"
	"strings"
)

// Kind tags a validation error with the rule that produced it.
type Kind string

const (
	KindRequired         Kind = "required"
	KindMinLength        Kind = "minLength"
	KindMaxLength        Kind = "maxLength"
	KindMin              Kind = "min"
	KindMax              Kind = "max"
	KindPattern          Kind = "pattern"
	KindInteger          Kind = "integer"
	KindMinWords         Kind = "minWords"
	KindMaxWords         Kind = "maxWords"
	KindMinSelectedCount Kind = "minSelectedCount"
	KindMaxSelectedCount Kind = "maxSelectedCount"
	KindCustom           Kind = "custom"
	KindEmail            Kind = "email"
	KindURL              Kind = "url"
	KindSelect           Kind = "select"
	// KindServer tags errors mapped from an external payload.
	KindServer Kind = "server"
)

// Error is a single failing rule on a field.
type Error struct {
	Key     string `json:"key"`
	Type    Kind   `json:"type"`
	Message string `json:"message"`
}

func (e Error) Error() string {
	return e.Key + ": " + e.Message
}

// Errors aggregates field errors keyed by node key. Keys are remembered in
// the order they were first added, which is traversal order for ValidateAll.
// The zero value is ready to use.
type Errors struct {
	order []string
	byKey map[string][]Error
}

// Add appends errs, grouping them by key.
func (e *Errors) Add(errs ...Error) {
	for _, err := range errs {
		if e.byKey == nil {
			e.byKey = make(map[string][]Error)
		}
		if _, ok := e.byKey[err.Key]; !ok {
			e.order = append(e.order, err.Key)
		}
		e.byKey[err.Key] = append(e.byKey[err.Key], err)
	}
}

// Set replaces the errors recorded for key. An empty list clears the key.
func (e *Errors) Set(key string, errs []Error) {
	if len(errs) == 0 {
		e.Clear(key)
		return
	}
	if e.byKey == nil {
		e.byKey = make(map[string][]Error)
	}
	if _, ok := e.byKey[key]; !ok {
		e.order = append(e.order, key)
	}
	e.byKey[key] = append([]Error(nil), errs...)
}

// Clear drops every error for key.
func (e *Errors) Clear(key string) {
	if _, ok := e.byKey[key]; !ok {
		return
	}
	delete(e.byKey, key)
	for i, existing := range e.order {
		if existing == key {
			e.order = append(e.order[:i:i], e.order[i+1:]...)
			break
		}
	}
}

// Merge appends every error from other.
func (e *Errors) Merge(other Errors) {
	for _, key := range other.order {
		e.Add(other.byKey[key]...)
	}
}

// ForKey returns the errors recorded for key.
func (e Errors) ForKey(key string) []Error {
	return append([]Error(nil), e.byKey[key]...)
}

// Has reports whether key has errors.
func (e Errors) Has(key string) bool {
	return len(e.byKey[key]) > 0
}

// Keys returns the keys with errors in insertion order.
func (e Errors) Keys() []string {
	return append([]string(nil), e.order...)
}

// All flattens every error list in key order.
func (e Errors) All() []Error {
	out := make([]Error, 0, e.Count())
	for _, key := range e.order {
		out = append(out, e.byKey[key]...)
	}
	return out
}

// Count returns the total number of errors.
func (e Errors) Count() int {
	total := 0
	for _, errs := range e.byKey {
		total += len(errs)
	}
	return total
}

// Empty reports whether there are no errors.
func (e Errors) Empty() bool {
	return e.Count() == 0
}

// Map returns a copy of the key→errors mapping.
func (e Errors) Map() map[string][]Error {
	if len(e.byKey) == 0 {
		return nil
	}
	out := make(map[string][]Error, len(e.byKey))
	for key, errs := range e.byKey {
		out[key] = append([]Error(nil), errs...)
	}
	return out
}

// Messages returns the distinct messages in order, trimmed, for banners.
func (e Errors) Messages() []string {
	messages := make([]string, 0, e.Count())
	for _, err := range e.All() {
		messages = append(messages, err.Message)
	}
	return normalizeMessages(messages)
}

// Clone returns an independent copy.
func (e Errors) Clone() Errors {
	out := Errors{}
	out.Merge(e)
	return out
}

// MarshalJSON renders the error view consumed by renderers.
func (e Errors) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Fields map[string][]Error `json:"fields,omitempty"`
		All    []Error            `json:"all"`
		Count  int                `json:"count"`
	}{
		Fields: e.Map(),
		All:    e.All(),
		Count:  e.Count(),
	})
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
