// Package wizard derives multi-step pages from a schema tree and gates
// navigation between them.
package wizard

import (
	"github.com/goliatone/go-formengine/pkg/schema"
)

// DefaultPageType is the node type treated as a page when none is given.
const DefaultPageType = "panel"

// Page is one step of a multi-step form. Pages are derived, never stored.
type Page struct {
	Index  int
	Title  string
	Key    string
	Node   *schema.Node
	Inputs []*schema.Node
}

// InputKeys returns the keys of the page's input nodes.
func (p Page) InputKeys() []string {
	out := make([]string, 0, len(p.Inputs))
	for _, node := range p.Inputs {
		if node.Key != "" {
			out = append(out, node.Key)
		}
	}
	return out
}

// DerivePages returns one page per top-level node of pageType, in document
// order. Each page lists its input descendants; info decides what counts as
// an input (leaf nodes when nil).
func DerivePages(nodes []*schema.Node, info schema.TypeInfo, pageType string) []Page {
	if pageType == "" {
		pageType = DefaultPageType
	}
	var pages []Page
	for _, node := range nodes {
		if node == nil || node.Type != pageType {
			continue
		}
		page := Page{
			Index: len(pages),
			Title: node.Title(),
			Key:   node.Key,
			Node:  node,
		}
		schema.Walk(childrenOf(node), func(child *schema.Node) bool {
			if isInput(child, info) {
				page.Inputs = append(page.Inputs, child)
			}
			return true
		})
		pages = append(pages, page)
	}
	return pages
}

func childrenOf(node *schema.Node) []*schema.Node {
	var out []*schema.Node
	for _, list := range schema.ChildLists(node) {
		out = append(out, *list...)
	}
	return out
}

func isInput(node *schema.Node, info schema.TypeInfo) bool {
	if info != nil {
		return info.IsInput(node)
	}
	if flag, ok := node.IsInputFlagged(); ok {
		return flag
	}
	return !node.HasChildren()
}
