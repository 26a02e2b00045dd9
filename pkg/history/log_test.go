package history

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formengine/pkg/schema"
)

func tree(keys ...string) []*schema.Node {
	out := make([]*schema.Node, 0, len(keys))
	for _, key := range keys {
		out = append(out, &schema.Node{Type: "textfield", Key: key})
	}
	return out
}

func TestUndoRedoRoundTrip(t *testing.T) {
	log := New()
	before := tree("a")
	after := tree("a", "b")

	log.Push(before, "add b")
	restored, ok := log.Undo(after)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, schema.Keys(restored))

	again, ok := log.Redo(restored)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, schema.Keys(again))

	_, ok = log.Redo(again)
	assert.False(t, ok, "nothing left to redo")
}

func TestEmptyLog(t *testing.T) {
	log := New()
	_, ok := log.Undo(tree("a"))
	assert.False(t, ok)
	_, ok = log.Redo(tree("a"))
	assert.False(t, ok)
	assert.False(t, log.CanUndo())
	assert.False(t, log.CanRedo())
}

func TestPushTruncatesRedo(t *testing.T) {
	log := New()
	log.Push(tree("a"), "one")
	current, ok := log.Undo(tree("a", "b"))
	require.True(t, ok)
	require.True(t, log.CanRedo())

	log.Push(current, "two")
	assert.False(t, log.CanRedo())
	assert.Equal(t, []string{"two"}, log.Labels())
}

func TestLimitDropsOldest(t *testing.T) {
	log := New(WithLimit(3))
	for i := 0; i < 5; i++ {
		log.Push(tree("k"+strconv.Itoa(i)), strconv.Itoa(i))
	}
	assert.Equal(t, 3, log.Len())
	assert.Equal(t, []string{"2", "3", "4"}, log.Labels())

	defaults := New()
	for i := 0; i < DefaultLimit+10; i++ {
		defaults.Push(tree("k"), strconv.Itoa(i))
	}
	assert.Equal(t, DefaultLimit, defaults.Len())
	assert.Equal(t, "10", defaults.Labels()[0])
}

func TestSnapshotsAreIsolated(t *testing.T) {
	log := New()
	live := tree("a")
	log.Push(live, "edit")
	live[0].Label = "changed after push"

	restored, ok := log.Undo(live)
	require.True(t, ok)
	assert.Empty(t, restored[0].Label)

	restored[0].Label = "changed after undo"
	again, ok := log.Redo(restored)
	require.True(t, ok)
	assert.Equal(t, "changed after push", again[0].Label)
}
