package tui

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goliatone/go-formengine/pkg/schema"
)

// Encode serializes data in format. Map keys are emitted in sorted order.
func Encode(format OutputFormat, data map[string]any) ([]byte, error) {
	switch format {
	case OutputFormatFormURLEncoded:
		values := url.Values{}
		flatten("", data, values)
		return []byte(values.Encode()), nil
	case OutputFormatPrettyText:
		var b strings.Builder
		writePretty(&b, "", data)
		return []byte(b.String()), nil
	case OutputFormatJSON, "":
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("tui: encode json: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("tui: unknown output format %q", format)
	}
}

// ContentType reports the media type produced by format.
func ContentType(format OutputFormat) string {
	switch format {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(v) {
			flatten(join(prefix, key), v[key], out)
		}
	case []any:
		for _, item := range v {
			out.Add(prefix+"[]", schema.Stringify(item))
		}
	case nil:
		out.Set(prefix, "")
	default:
		out.Set(prefix, schema.Stringify(v))
	}
}

func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(v) {
			writePretty(b, join(prefix, key), v[key])
		}
	case []any:
		for idx, item := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), item)
		}
	default:
		if prefix != "" {
			fmt.Fprintf(b, "%s=%s\n", prefix, schema.Stringify(v))
		}
	}
}
