package schema

// Visitor is called for every node reached by Walk. Returning false skips the
// node's descendants; siblings are still visited.
type Visitor func(node *Node) bool

// PathVisitor receives the chain of container ancestors alongside the node.
// The ancestors slice is reused between calls; copy it before retaining.
type PathVisitor func(node *Node, ancestors []*Node) bool

// Walk visits every node reachable from nodes through all nesting shapes,
// depth-first, parent before children. Nil entries and absent shapes count as
// zero children. A node reachable more than once (aliasing) is visited only on
// first contact, so self-referential trees terminate.
func Walk(nodes []*Node, fn Visitor) {
	if fn == nil {
		return
	}
	WalkPath(nodes, func(node *Node, _ []*Node) bool {
		return fn(node)
	})
}

// Each visits every node without pruning.
func Each(nodes []*Node, fn func(node *Node)) {
	if fn == nil {
		return
	}
	Walk(nodes, func(node *Node) bool {
		fn(node)
		return true
	})
}

// WalkPath is Walk with the ancestor chain exposed.
func WalkPath(nodes []*Node, fn PathVisitor) {
	if fn == nil {
		return
	}
	w := walker{fn: fn, seen: make(map[*Node]struct{})}
	w.list(nodes)
}

type walker struct {
	fn        PathVisitor
	seen      map[*Node]struct{}
	ancestors []*Node
}

func (w *walker) list(nodes []*Node) {
	for _, node := range nodes {
		w.node(node)
	}
}

func (w *walker) node(node *Node) {
	if node == nil {
		return
	}
	if _, ok := w.seen[node]; ok {
		return
	}
	w.seen[node] = struct{}{}

	if !w.fn(node, w.ancestors) {
		return
	}

	w.ancestors = append(w.ancestors, node)
	w.list(node.Components)
	for _, column := range node.Columns {
		if column != nil {
			w.list(column.Components)
		}
	}
	for _, panel := range node.Panels {
		if panel != nil {
			w.list(panel.Components)
		}
	}
	for _, row := range node.Rows {
		for _, cell := range row {
			if cell != nil {
				w.list(cell.Components)
			}
		}
	}
	w.tree(node.Tree, make(map[*TreeNode]struct{}))
	w.ancestors = w.ancestors[:len(w.ancestors)-1]
}

func (w *walker) tree(entries []*TreeNode, seen map[*TreeNode]struct{}) {
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		w.list(entry.Components)
		w.tree(entry.Children, seen)
	}
}

// ChildLists returns pointers to every child list owned directly by node, in
// traversal order. Callers may splice through the returned pointers.
func ChildLists(node *Node) []*[]*Node {
	if node == nil {
		return nil
	}
	var out []*[]*Node
	out = append(out, &node.Components)
	for _, column := range node.Columns {
		if column != nil {
			out = append(out, &column.Components)
		}
	}
	for _, panel := range node.Panels {
		if panel != nil {
			out = append(out, &panel.Components)
		}
	}
	for _, row := range node.Rows {
		for _, cell := range row {
			if cell != nil {
				out = append(out, &cell.Components)
			}
		}
	}
	seen := make(map[*TreeNode]struct{})
	var tree func(entries []*TreeNode)
	tree = func(entries []*TreeNode) {
		for _, entry := range entries {
			if entry == nil {
				continue
			}
			if _, ok := seen[entry]; ok {
				continue
			}
			seen[entry] = struct{}{}
			out = append(out, &entry.Components)
			tree(entry.Children)
		}
	}
	tree(node.Tree)
	return out
}

// FindByKey returns the first node (in traversal order) with the given key.
func FindByKey(nodes []*Node, key string) *Node {
	if key == "" {
		return nil
	}
	var found *Node
	Walk(nodes, func(node *Node) bool {
		if found != nil {
			return false
		}
		if node.Key == key {
			found = node
			return false
		}
		return true
	})
	return found
}

// FindWithParentList locates the list owning the node with key and its index
// inside that list. It returns (nil, -1) when the key is absent.
func FindWithParentList(root *[]*Node, key string) (*[]*Node, int) {
	if root == nil || key == "" {
		return nil, -1
	}
	seen := make(map[*Node]struct{})
	var search func(list *[]*Node) (*[]*Node, int)
	search = func(list *[]*Node) (*[]*Node, int) {
		for idx, node := range *list {
			if node == nil {
				continue
			}
			if node.Key == key {
				return list, idx
			}
			if _, ok := seen[node]; ok {
				continue
			}
			seen[node] = struct{}{}
			for _, child := range ChildLists(node) {
				if owner, idx := search(child); owner != nil {
					return owner, idx
				}
			}
		}
		return nil, -1
	}
	return search(root)
}

// Keys returns all non-empty keys in traversal order.
func Keys(nodes []*Node) []string {
	var out []string
	Each(nodes, func(node *Node) {
		if node.Key != "" {
			out = append(out, node.Key)
		}
	})
	return out
}

// KeySet returns the set of keys used anywhere in the tree.
func KeySet(nodes []*Node) map[string]struct{} {
	out := make(map[string]struct{})
	Each(nodes, func(node *Node) {
		if node.Key != "" {
			out[node.Key] = struct{}{}
		}
	})
	return out
}

// DuplicateKeys reports keys that appear on more than one node.
func DuplicateKeys(nodes []*Node) []string {
	counts := make(map[string]int)
	var order []string
	Each(nodes, func(node *Node) {
		if node.Key == "" {
			return
		}
		if counts[node.Key] == 0 {
			order = append(order, node.Key)
		}
		counts[node.Key]++
	})
	var out []string
	for _, key := range order {
		if counts[key] > 1 {
			out = append(out, key)
		}
	}
	return out
}

// Count returns the number of nodes in the tree.
func Count(nodes []*Node) int {
	total := 0
	Each(nodes, func(*Node) { total++ })
	return total
}

// HasChildren reports whether node owns any non-empty nesting shape.
func (n *Node) HasChildren() bool {
	if n == nil {
		return false
	}
	return len(n.Components) > 0 || len(n.Columns) > 0 || len(n.Panels) > 0 ||
		len(n.Rows) > 0 || len(n.Tree) > 0
}
