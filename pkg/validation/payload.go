package validation

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formengine/pkg/schema"
)

// PayloadMapping splits an external error payload (for example a server
// response after submission) into field errors and form-level messages.
type PayloadMapping struct {
	Fields Errors
	Form   []string
}

// MapPayload maps payload paths onto node keys. Paths may be plain keys,
// dotted data paths ("address.city"), JSON pointers ("/data/address/city") or
// bracketed indexes ("items[0].name"). Unknown paths become form-level
// messages so nothing is lost.
func MapPayload(nodes []*schema.Node, info schema.TypeInfo, payload map[string][]string) PayloadMapping {
	var mapping PayloadMapping
	if len(payload) == 0 {
		return mapping
	}

	fieldPaths := make(map[string]string)
	for key, path := range schema.Paths(nodes, info) {
		fieldPaths[strings.Join(path, ".")] = key
		if _, exists := fieldPaths[key]; !exists {
			fieldPaths[key] = key
		}
	}

	rawPaths := make([]string, 0, len(payload))
	for rawPath := range payload {
		rawPaths = append(rawPaths, rawPath)
	}
	sort.Strings(rawPaths)

	for _, rawPath := range rawPaths {
		messages := normalizeMessages(payload[rawPath])
		if len(messages) == 0 {
			continue
		}
		key, formLevel := mapErrorPath(rawPath, fieldPaths)
		if formLevel {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		for _, message := range messages {
			mapping.Fields.Add(Error{Key: key, Type: KindServer, Message: message})
		}
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func mapErrorPath(raw string, fieldPaths map[string]string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", true
	}
	segments := parsePathSegments(trimmed)
	if len(segments) == 0 {
		return "", true
	}

	best, bestLen := "", 0
	for _, variant := range segmentVariants(segments) {
		key, length := longestMatchingPath(variant, fieldPaths)
		if key != "" && length > bestLen {
			best, bestLen = key, length
		}
	}
	if best == "" {
		return "", true
	}
	return best, false
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimLeft(clean, "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "", "//", "/").Replace(clean)
	clean = strings.Trim(clean, "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

// segmentVariants returns the raw segments plus variants without wrapper
// prefixes ("data", "body", ...) and without numeric indexes.
func segmentVariants(segments []string) [][]string {
	var variants [][]string
	seen := make(map[string]struct{}, 4)
	add := func(candidate []string) {
		if len(candidate) == 0 {
			return
		}
		key := strings.Join(candidate, ".")
		if _, exists := seen[key]; exists {
			return
		}
		seen[key] = struct{}{}
		variants = append(variants, append([]string(nil), candidate...))
	}

	unwrapped := dropWrapperSegments(segments)
	add(segments)
	add(unwrapped)
	add(stripNumericSegments(segments))
	add(stripNumericSegments(unwrapped))
	return variants
}

var wrapperSegments = map[string]bool{
	"body": true, "request": true, "payload": true, "data": true, "attributes": true,
}

func dropWrapperSegments(segments []string) []string {
	out := segments
	for len(out) > 0 && wrapperSegments[strings.ToLower(out[0])] {
		out = out[1:]
	}
	return out
}

func stripNumericSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func longestMatchingPath(segments []string, fieldPaths map[string]string) (string, int) {
	for end := len(segments); end > 0; end-- {
		if key, ok := fieldPaths[strings.Join(segments[:end], ".")]; ok {
			return key, end
		}
	}
	return "", 0
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
