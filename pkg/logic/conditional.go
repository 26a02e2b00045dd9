package logic

import (
	"strings"

	"github.com/goliatone/go-formengine/pkg/schema"
)

// Visible evaluates a node's simple conditional against data:
//   - nothing configured: visible
//   - show == false and no when: hidden
//   - when set: (data[when] == eq) XOR (show == false)
//
// The comparison is loose because the bag may hold numbers or booleans while
// eq is usually authored as a string. When the watched value is a record
// (selectboxes), the entry named by eq is checked instead.
func Visible(node *schema.Node, data map[string]any) bool {
	if node == nil || node.Conditional == nil {
		return true
	}
	return simpleMatches(node.Conditional, data, data, true)
}

// simpleMatches evaluates cond. unset is returned when the conditional
// carries neither show nor when.
func simpleMatches(cond *schema.Conditional, data, row map[string]any, unset bool) bool {
	if cond == nil {
		return unset
	}
	hideOnMatch := cond.Show != nil && !*cond.Show
	when := strings.TrimSpace(cond.When)
	if when == "" {
		if cond.Show == nil {
			return unset
		}
		return *cond.Show
	}

	value, ok := lookupWhen(when, data, row)
	if !ok {
		value = nil
	}
	matched := whenEquals(value, cond.Eq)
	return matched != hideOnMatch
}

func lookupWhen(when string, data, row map[string]any) (any, bool) {
	if v, ok := row[when]; ok {
		return v, true
	}
	if v, ok := data[when]; ok {
		return v, true
	}
	if value, ok := walkPath(data, strings.TrimPrefix(when, "data.")); ok {
		return value, true
	}
	return nil, false
}

func whenEquals(value, eq any) bool {
	if record, ok := value.(map[string]any); ok {
		if selected, exists := record[schema.Stringify(eq)]; exists {
			return Truthy(selected)
		}
		return false
	}
	if list, ok := value.([]any); ok {
		return contains(list, eq)
	}
	if value == nil {
		return eq == nil || schema.Stringify(eq) == ""
	}
	return looseEqual(value, eq)
}
