// Package history keeps a bounded, linear undo/redo log of schema trees.
package history

import (
	"sync"
	"time"

	"github.com/goliatone/go-formengine/pkg/schema"
)

// DefaultLimit is the number of undo entries kept when no limit is set.
const DefaultLimit = 50

// Snapshot is an immutable deep copy of a whole tree.
type Snapshot struct {
	Label string
	At    time.Time
	nodes []*schema.Node
}

// Nodes returns a fresh copy of the snapshot tree.
func (s Snapshot) Nodes() []*schema.Node {
	return schema.Clone(s.nodes)
}

// Log records pre-mutation snapshots. Pushing truncates the redo side; once
// the limit is reached the oldest entry is dropped. Safe for concurrent use.
type Log struct {
	mu    sync.Mutex
	limit int
	undo  []Snapshot
	redo  []Snapshot
	now   func() time.Time
	clone func([]*schema.Node) []*schema.Node
}

// Option configures a Log.
type Option func(*Log)

// WithLimit caps the number of undo entries. Values below one keep the
// default.
func WithLimit(limit int) Option {
	return func(l *Log) {
		if limit > 0 {
			l.limit = limit
		}
	}
}

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// WithCloneOptions passes options to the tree clone used for snapshots.
func WithCloneOptions(opts ...schema.CloneOption) Option {
	return func(l *Log) {
		l.clone = func(nodes []*schema.Node) []*schema.Node {
			return schema.Clone(nodes, opts...)
		}
	}
}

// New constructs an empty log.
func New(opts ...Option) *Log {
	l := &Log{
		limit: DefaultLimit,
		now:   time.Now,
		clone: func(nodes []*schema.Node) []*schema.Node { return schema.Clone(nodes) },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Push records nodes as the state to return to on the next Undo.
func (l *Log) Push(nodes []*schema.Node, label string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.redo = nil
	l.pushUndo(l.snapshot(nodes, label))
}

// Undo swaps current for the most recent snapshot. It returns false when
// there is nothing to undo.
func (l *Log) Undo(current []*schema.Node) ([]*schema.Node, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.undo) == 0 {
		return nil, false
	}
	last := l.undo[len(l.undo)-1]
	l.undo = l.undo[:len(l.undo)-1]
	l.redo = append(l.redo, l.snapshot(current, last.Label))
	return last.Nodes(), true
}

// Redo reapplies the most recently undone state.
func (l *Log) Redo(current []*schema.Node) ([]*schema.Node, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.redo) == 0 {
		return nil, false
	}
	next := l.redo[len(l.redo)-1]
	l.redo = l.redo[:len(l.redo)-1]
	l.pushUndo(l.snapshot(current, next.Label))
	return next.Nodes(), true
}

// CanUndo reports whether Undo would succeed.
func (l *Log) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.undo) > 0
}

// CanRedo reports whether Redo would succeed.
func (l *Log) CanRedo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.redo) > 0
}

// Len returns the number of undo entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.undo)
}

// Labels returns undo entry labels, oldest first.
func (l *Log) Labels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.undo))
	for i, entry := range l.undo {
		out[i] = entry.Label
	}
	return out
}

// Reset drops every entry.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.undo = nil
	l.redo = nil
}

func (l *Log) snapshot(nodes []*schema.Node, label string) Snapshot {
	return Snapshot{Label: label, At: l.now(), nodes: l.clone(nodes)}
}

func (l *Log) pushUndo(entry Snapshot) {
	l.undo = append(l.undo, entry)
	if overflow := len(l.undo) - l.limit; overflow > 0 {
		l.undo = append([]Snapshot(nil), l.undo[overflow:]...)
	}
}
