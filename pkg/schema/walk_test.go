package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func allShapesTree() []*Node {
	return []*Node{
		{Type: "textfield", Key: "name"},
		{
			Type: "panel", Key: "details",
			Components: []*Node{{Type: "email", Key: "email"}},
		},
		{
			Type: "columns", Key: "cols",
			Columns: []*Column{
				{Width: 6, Components: []*Node{{Type: "textfield", Key: "first"}}},
				{Width: 6, Components: []*Node{{Type: "textfield", Key: "last"}}},
			},
		},
		{
			Type: "tabs", Key: "tabs",
			Panels: []*Panel{
				{Key: "general", Label: "General", Components: []*Node{{Type: "number", Key: "age"}}},
				{Key: "extra", Label: "Extra"},
			},
		},
		{
			Type: "table", Key: "grid",
			Rows: [][]*Cell{
				{{Components: []*Node{{Type: "checkbox", Key: "agree"}}}, nil},
				{{}},
			},
		},
		{
			Type: "tree", Key: "org",
			Tree: []*TreeNode{
				{
					Data:       map[string]any{"name": "root"},
					Components: []*Node{{Type: "textfield", Key: "rootName"}},
					Children: []*TreeNode{
						{Components: []*Node{{Type: "textfield", Key: "childName"}}},
					},
				},
			},
		},
	}
}

func TestWalkVisitsEveryShapeParentFirst(t *testing.T) {
	var visited []string
	Each(allShapesTree(), func(node *Node) {
		visited = append(visited, node.Key)
	})

	want := []string{
		"name",
		"details", "email",
		"cols", "first", "last",
		"tabs", "age",
		"grid", "agree",
		"org", "rootName", "childName",
	}
	if diff := cmp.Diff(want, visited); diff != "" {
		t.Fatalf("visit order mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkPruneSkipsDescendants(t *testing.T) {
	var visited []string
	Walk(allShapesTree(), func(node *Node) bool {
		visited = append(visited, node.Key)
		return node.Key != "cols"
	})
	for _, key := range visited {
		if key == "first" || key == "last" {
			t.Fatalf("expected column children to be skipped, visited %v", visited)
		}
	}
	if visited[len(visited)-1] != "childName" {
		t.Fatalf("expected siblings after pruned node to be visited, got %v", visited)
	}
}

func TestWalkTerminatesOnAliasCycle(t *testing.T) {
	parent := &Node{Type: "panel", Key: "loop"}
	parent.Components = []*Node{{Type: "textfield", Key: "inner"}, parent}

	count := 0
	Each([]*Node{parent}, func(*Node) { count++ })
	if count != 2 {
		t.Fatalf("expected 2 visits, got %d", count)
	}
}

func TestFindWithParentListTerminatesOnAliasedTreeEntries(t *testing.T) {
	entry := &TreeNode{Components: []*Node{{Type: "textfield", Key: "leaf"}}}
	entry.Children = []*TreeNode{entry, entry}
	root := []*Node{{Type: "tree", Key: "org", Tree: []*TreeNode{entry}}}

	if lists := ChildLists(root[0]); len(lists) != 2 {
		t.Fatalf("expected component list plus one tree entry, got %d", len(lists))
	}
	if list, idx := FindWithParentList(&root, "missing"); list != nil || idx != -1 {
		t.Fatalf("expected (nil, -1) for missing key, got %d", idx)
	}
	list, idx := FindWithParentList(&root, "leaf")
	if list != &entry.Components || idx != 0 {
		t.Fatalf("expected leaf inside the tree entry, got %d", idx)
	}
}

func TestFindWithParentListReachesDeepTreeEntries(t *testing.T) {
	top := &TreeNode{}
	cursor := top
	for i := 0; i < 300; i++ {
		next := &TreeNode{}
		cursor.Children = []*TreeNode{next}
		cursor = next
	}
	cursor.Components = []*Node{{Type: "textfield", Key: "deep"}}
	root := []*Node{{Type: "tree", Key: "org", Tree: []*TreeNode{top}}}

	if list, idx := FindWithParentList(&root, "deep"); list != &cursor.Components || idx != 0 {
		t.Fatalf("expected deep leaf to be found, got %d", idx)
	}
}

func TestWalkEmptyInputs(t *testing.T) {
	Each(nil, func(*Node) { t.Fatal("unexpected visit") })
	Each([]*Node{nil}, func(*Node) { t.Fatal("unexpected visit") })
	if got := Count([]*Node{{Type: "panel", Key: "empty"}}); got != 1 {
		t.Fatalf("expected 1 node, got %d", got)
	}
}

func TestFindByKey(t *testing.T) {
	tree := allShapesTree()
	if got := FindByKey(tree, "childName"); got == nil || got.Type != "textfield" {
		t.Fatalf("expected to find childName, got %#v", got)
	}
	if got := FindByKey(tree, "missing"); got != nil {
		t.Fatalf("expected nil for missing key, got %#v", got)
	}
}

func TestFindWithParentListAllowsSplice(t *testing.T) {
	tree := allShapesTree()

	list, idx := FindWithParentList(&tree, "last")
	if list == nil || idx != 0 {
		t.Fatalf("expected owning list with index 0, got %v %d", list, idx)
	}
	*list = append((*list)[:idx], (*list)[idx+1:]...)
	if FindByKey(tree, "last") != nil {
		t.Fatalf("expected splice through owning list to remove node")
	}

	list, idx = FindWithParentList(&tree, "tabs")
	if list != &tree || idx != 3 {
		t.Fatalf("expected top-level list at index 3, got %d", idx)
	}

	if list, idx := FindWithParentList(&tree, "nope"); list != nil || idx != -1 {
		t.Fatalf("expected (nil, -1) for missing key")
	}
}

func TestChildListsCoversAllShapes(t *testing.T) {
	tree := allShapesTree()
	lists := ChildLists(tree[5])
	if len(lists) != 3 {
		t.Fatalf("expected component list plus two tree entries, got %d", len(lists))
	}
	if lists := ChildLists(tree[4]); len(lists) != 3 {
		t.Fatalf("expected component list plus two non-nil cells, got %d", len(lists))
	}
}

func TestDuplicateKeys(t *testing.T) {
	tree := allShapesTree()
	tree = append(tree, &Node{Type: "textfield", Key: "email"})
	if diff := cmp.Diff([]string{"email"}, DuplicateKeys(tree)); diff != "" {
		t.Fatalf("duplicate keys mismatch (-want +got):\n%s", diff)
	}
}
