// Package builder implements structural editing of a schema tree with
// bounded undo/redo and a current selection.
package builder

import (
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formengine/pkg/history"
	"github.com/goliatone/go-formengine/pkg/registry"
	"github.com/goliatone/go-formengine/pkg/schema"
)

// ChangeFunc observes the tree after every change. It receives a detached
// copy.
type ChangeFunc func(nodes []*schema.Node, version uint64)

// Builder owns a live tree. Mutations that cannot apply (unknown keys, lists
// outside the tree, indexes out of range) return false and leave both the
// tree and the history untouched. Safe for concurrent use.
type Builder struct {
	mu       sync.Mutex
	nodes    []*schema.Node
	registry *registry.Registry
	history  *history.Log
	selected string
	version  uint64
	logger   zerolog.Logger
	onChange ChangeFunc
}

// Option configures a Builder.
type Option func(*Builder)

// WithRegistry sets the type registry used to build default nodes.
func WithRegistry(reg *registry.Registry) Option {
	return func(b *Builder) {
		if reg != nil {
			b.registry = reg
		}
	}
}

// WithHistory replaces the undo/redo log.
func WithHistory(log *history.Log) Option {
	return func(b *Builder) {
		if log != nil {
			b.history = log
		}
	}
}

// WithHistoryLimit sets the undo cap of the default log.
func WithHistoryLimit(limit int) Option {
	return func(b *Builder) {
		b.history = history.New(history.WithLimit(limit))
	}
}

// WithNodes seeds the tree. The nodes are copied.
func WithNodes(nodes []*schema.Node) Option {
	return func(b *Builder) {
		b.nodes = schema.Clone(nodes)
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithChangeHook registers fn to run after every tree change, outside the
// builder lock.
func WithChangeHook(fn ChangeFunc) Option {
	return func(b *Builder) {
		b.onChange = fn
	}
}

// New constructs a builder.
func New(opts ...Option) *Builder {
	b := &Builder{
		registry: registry.New(),
		history:  history.New(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.logger = b.logger.With().Str("component", "builder").Logger()
	return b
}

// Root returns the pointer to the top-level list, usable as a target.
func (b *Builder) Root() *[]*schema.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &b.nodes
}

// List returns the slot-th child list of the node with parentKey, in
// schema.ChildLists order. An empty parentKey addresses the root.
func (b *Builder) List(parentKey string, slot int) *[]*schema.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	if parentKey == "" {
		return &b.nodes
	}
	lists := schema.ChildLists(schema.FindByKey(b.nodes, parentKey))
	if slot < 0 || slot >= len(lists) {
		return nil
	}
	return lists[slot]
}

// Nodes returns the live tree. Callers must not mutate it; use Export for a
// detached copy.
func (b *Builder) Nodes() []*schema.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nodes
}

// Export returns a clean deep copy of the tree.
func (b *Builder) Export() []*schema.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return schema.Clone(b.nodes, schema.WithCloneLogger(b.logger))
}

// Version increments on every tree change.
func (b *Builder) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Select marks key as the current selection. Unknown keys clear it.
func (b *Builder) Select(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if schema.FindByKey(b.nodes, key) == nil {
		b.selected = ""
		return false
	}
	b.selected = key
	return true
}

// Selected returns the selected node, if any.
func (b *Builder) Selected() (*schema.Node, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	node := schema.FindByKey(b.nodes, b.selected)
	return node, node != nil
}

// AddNode inserts a default node of nodeType into target at index. A nil
// target means the root; an index outside [0, len] appends. The new node's
// key is the type followed by the smallest numeric suffix not used anywhere
// in the tree.
func (b *Builder) AddNode(nodeType string, target *[]*schema.Node, index int) (*schema.Node, bool) {
	nodeType = strings.TrimSpace(nodeType)
	if nodeType == "" {
		return nil, false
	}
	b.mu.Lock()
	target = b.resolve(target)
	if !b.owns(target) {
		b.mu.Unlock()
		b.logger.Debug().Str("type", nodeType).Msg("add rejected: target outside tree")
		return nil, false
	}

	node := b.registry.Default(nodeType)
	used := schema.KeySet(b.nodes)
	node.Key = uniqueKey(node.Key, used)
	schema.Each(childrenOf(node), func(child *schema.Node) {
		if child.Key != "" {
			child.Key = uniqueKey(child.Key, used)
		}
	})

	b.snapshot("add " + node.Key)
	*target = insert(*target, index, node)
	notify := b.changed()
	b.mu.Unlock()

	notify()
	return node, true
}

// RemoveNode deletes the node with key. With a nil target the node is
// located anywhere in the tree; otherwise it must be a direct entry of
// target.
func (b *Builder) RemoveNode(key string, target *[]*schema.Node) bool {
	b.mu.Lock()
	list, idx := b.locate(key, target)
	if list == nil {
		b.mu.Unlock()
		b.logger.Debug().Str("key", key).Msg("remove rejected: key not found")
		return false
	}
	b.snapshot("remove " + key)
	*list = append((*list)[:idx:idx], (*list)[idx+1:]...)
	if b.selected != "" && schema.FindByKey(b.nodes, b.selected) == nil {
		b.selected = ""
	}
	notify := b.changed()
	b.mu.Unlock()

	notify()
	return true
}

// DuplicateNode deep-copies the node with key and inserts the copy right
// after the original. Only the copy's own key is regenerated; descendants
// keep their keys.
func (b *Builder) DuplicateNode(key string, target *[]*schema.Node) (*schema.Node, bool) {
	b.mu.Lock()
	list, idx := b.locate(key, target)
	if list == nil {
		b.mu.Unlock()
		b.logger.Debug().Str("key", key).Msg("duplicate rejected: key not found")
		return nil, false
	}
	clone := schema.CloneNode((*list)[idx], schema.WithCloneLogger(b.logger))
	clone.Key = uniqueKey(trimSuffix(clone.Key, clone.Type), schema.KeySet(b.nodes))

	b.snapshot("duplicate " + key)
	*list = insert(*list, idx+1, clone)
	if dups := schema.DuplicateKeys(b.nodes); len(dups) > 0 {
		b.logger.Debug().Strs("keys", dups).Msg("duplicate left repeated descendant keys")
	}
	notify := b.changed()
	b.mu.Unlock()

	notify()
	return clone, true
}

// UpdateNode merges patch into the stored node with key. A key change that
// would collide with another node is rejected.
func (b *Builder) UpdateNode(key string, patch map[string]any) bool {
	if len(patch) == 0 {
		return false
	}
	b.mu.Lock()
	node := schema.FindByKey(b.nodes, key)
	if node == nil {
		b.mu.Unlock()
		b.logger.Debug().Str("key", key).Msg("update rejected: key not found")
		return false
	}
	if raw, ok := patch["key"]; ok {
		next, _ := raw.(string)
		if next == "" {
			b.mu.Unlock()
			return false
		}
		if next != key && schema.FindByKey(b.nodes, next) != nil {
			b.mu.Unlock()
			b.logger.Debug().Str("key", key).Str("next", next).Msg("update rejected: key in use")
			return false
		}
	}

	b.snapshot("update " + key)
	node.Apply(patch)
	if b.selected == key {
		b.selected = node.Key
	}
	notify := b.changed()
	b.mu.Unlock()

	notify()
	return true
}

// MoveNode reorders list by moving the entry at from to index to. A nil list
// means the root.
func (b *Builder) MoveNode(list *[]*schema.Node, from, to int) bool {
	b.mu.Lock()
	list = b.resolve(list)
	if !b.owns(list) || from < 0 || from >= len(*list) || to < 0 || to >= len(*list) {
		b.mu.Unlock()
		b.logger.Debug().Int("from", from).Int("to", to).Msg("move rejected: out of range")
		return false
	}
	if from == to {
		b.mu.Unlock()
		return true
	}
	b.snapshot("move")
	node := (*list)[from]
	rest := append((*list)[:from:from], (*list)[from+1:]...)
	*list = insert(rest, to, node)
	notify := b.changed()
	b.mu.Unlock()

	notify()
	return true
}

// MoveNodeBetweenLists moves the entry at sourceIndex of source into target
// at targetIndex (appending when targetIndex is outside [0, len]). A node
// cannot be moved into its own subtree.
func (b *Builder) MoveNodeBetweenLists(source *[]*schema.Node, sourceIndex int, target *[]*schema.Node, targetIndex int) bool {
	b.mu.Lock()
	source, target = b.resolve(source), b.resolve(target)
	if !b.owns(source) || !b.owns(target) || sourceIndex < 0 || sourceIndex >= len(*source) {
		b.mu.Unlock()
		b.logger.Debug().Int("index", sourceIndex).Msg("move rejected: out of range")
		return false
	}
	node := (*source)[sourceIndex]
	if within(node, target) {
		b.mu.Unlock()
		b.logger.Debug().Str("key", node.Key).Msg("move rejected: target inside moved node")
		return false
	}

	b.snapshot("move " + node.Key)
	*source = append((*source)[:sourceIndex:sourceIndex], (*source)[sourceIndex+1:]...)
	*target = insert(*target, targetIndex, node)
	notify := b.changed()
	b.mu.Unlock()

	notify()
	return true
}

// Undo restores the tree captured before the last mutation and clears the
// selection.
func (b *Builder) Undo() bool {
	return b.travel(b.history.Undo, "undo")
}

// Redo reapplies the last undone mutation and clears the selection.
func (b *Builder) Redo() bool {
	return b.travel(b.history.Redo, "redo")
}

// CanUndo reports whether Undo would succeed.
func (b *Builder) CanUndo() bool { return b.history.CanUndo() }

// CanRedo reports whether Redo would succeed.
func (b *Builder) CanRedo() bool { return b.history.CanRedo() }

func (b *Builder) travel(step func([]*schema.Node) ([]*schema.Node, bool), name string) bool {
	b.mu.Lock()
	nodes, ok := step(b.nodes)
	if !ok {
		b.mu.Unlock()
		return false
	}
	b.nodes = nodes
	b.selected = ""
	notify := b.changed()
	b.mu.Unlock()

	b.logger.Debug().Str("op", name).Msg("history applied")
	notify()
	return true
}

func (b *Builder) snapshot(label string) {
	b.history.Push(b.nodes, label)
}

// changed bumps the version and returns the deferred change notification.
// Must be called with the lock held.
func (b *Builder) changed() func() {
	b.version++
	if b.onChange == nil {
		return func() {}
	}
	nodes, version, fn := schema.Clone(b.nodes), b.version, b.onChange
	return func() { fn(nodes, version) }
}

func (b *Builder) resolve(list *[]*schema.Node) *[]*schema.Node {
	if list == nil {
		return &b.nodes
	}
	return list
}

// owns reports whether list is the root or a child list of a node in the
// tree.
func (b *Builder) owns(list *[]*schema.Node) bool {
	if list == &b.nodes {
		return true
	}
	found := false
	schema.Walk(b.nodes, func(node *schema.Node) bool {
		if found {
			return false
		}
		for _, child := range schema.ChildLists(node) {
			if child == list {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func (b *Builder) locate(key string, target *[]*schema.Node) (*[]*schema.Node, int) {
	if key == "" {
		return nil, -1
	}
	if target == nil {
		return schema.FindWithParentList(&b.nodes, key)
	}
	if !b.owns(target) {
		return nil, -1
	}
	for idx, node := range *target {
		if node != nil && node.Key == key {
			return target, idx
		}
	}
	return nil, -1
}

// within reports whether list belongs to node or one of its descendants.
func within(node *schema.Node, list *[]*schema.Node) bool {
	found := false
	schema.Walk([]*schema.Node{node}, func(n *schema.Node) bool {
		for _, child := range schema.ChildLists(n) {
			if child == list {
				found = true
			}
		}
		return !found
	})
	return found
}

func childrenOf(node *schema.Node) []*schema.Node {
	var out []*schema.Node
	for _, list := range schema.ChildLists(node) {
		out = append(out, *list...)
	}
	return out
}

// trimSuffix strips trailing digits so copies of "textfield1" are keyed
// from "textfield".
func trimSuffix(key, fallback string) string {
	base := strings.TrimRightFunc(key, func(r rune) bool { return r >= '0' && r <= '9' })
	if base == "" {
		return fallback
	}
	return base
}

// uniqueKey returns base, or base with the smallest numeric suffix not in
// used, and records the result.
func uniqueKey(base string, used map[string]struct{}) string {
	if base == "" {
		base = "field"
	}
	key := base
	for i := 1; ; i++ {
		if _, taken := used[key]; !taken {
			break
		}
		key = base + strconv.Itoa(i)
	}
	used[key] = struct{}{}
	return key
}

func insert(list []*schema.Node, index int, node *schema.Node) []*schema.Node {
	if index < 0 || index > len(list) {
		return append(list, node)
	}
	list = append(list, nil)
	copy(list[index+1:], list[index:])
	list[index] = node
	return list
}
