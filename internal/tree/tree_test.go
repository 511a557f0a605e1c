package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id     string
	parent string
	order  int
}

func itemAccessors() Accessors[item, string, string] {
	return Accessors[item, string, string]{
		ID: func(i item) string { return i.id },
		ParentID: func(i item) (string, bool) {
			return i.parent, i.parent != ""
		},
		SortKey: func(i item) int { return i.order },
		Overlay: func(i item) string { return "overlay-" + i.id },
	}
}

func ids(ns []*Node[item, string]) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Item.id)
	}
	return out
}

func TestBuildForest_OrdersRootsAndChildren(t *testing.T) {
	items := []item{
		{id: "b", order: 2},
		{id: "a", order: 1},
		{id: "b2", parent: "b", order: 2},
		{id: "b1", parent: "b", order: 1},
		{id: "a1", parent: "a", order: 5},
	}

	forest := BuildForest(items, itemAccessors())

	require.Len(t, forest, 2)
	assert.Equal(t, []string{"a", "b"}, ids(forest))
	assert.Equal(t, []string{"a1"}, ids(forest[0].Children))
	assert.Equal(t, []string{"b1", "b2"}, ids(forest[1].Children))
	assert.Equal(t, "overlay-b1", forest[1].Children[0].Overlay)
}

func TestBuildForest_OrphanBecomesRoot(t *testing.T) {
	items := []item{
		{id: "root", order: 2},
		{id: "orphan", parent: "missing", order: 1},
	}

	forest := BuildForest(items, itemAccessors())

	assert.Equal(t, []string{"orphan", "root"}, ids(forest))
}

func TestBuildForest_EveryNodeExactlyOnce(t *testing.T) {
	items := []item{
		{id: "1", order: 1},
		{id: "2", parent: "1", order: 1},
		{id: "3", parent: "2", order: 1},
		{id: "4", parent: "9", order: 1},
		{id: "5", parent: "1", order: 0},
	}

	forest := BuildForest(items, itemAccessors())

	seen := map[string]int{}
	Walk(forest, func(n *Node[item, string], _ int) { seen[n.Item.id]++ })
	assert.Len(t, seen, len(items))
	for id, c := range seen {
		assert.Equal(t, 1, c, id)
	}
	assert.Equal(t, len(items), Count(forest))
}

func TestBuildForest_StableForEqualSortKeys(t *testing.T) {
	items := []item{
		{id: "x", order: 1},
		{id: "y", order: 1},
		{id: "z", order: 1},
	}

	forest := BuildForest(items, itemAccessors())

	assert.Equal(t, []string{"x", "y", "z"}, ids(forest))
}

func TestBuildForest_CycleIsBroken(t *testing.T) {
	items := []item{
		{id: "a", parent: "b", order: 1},
		{id: "b", parent: "a", order: 2},
		{id: "self", parent: "self", order: 3},
	}

	forest := BuildForest(items, itemAccessors())

	assert.Equal(t, 3, Count(forest))
	assert.Equal(t, []string{"a", "self"}, ids(forest))
	assert.Equal(t, []string{"b"}, ids(forest[0].Children))
}

func TestBuildForest_Empty(t *testing.T) {
	forest := BuildForest([]item{}, itemAccessors())
	assert.Empty(t, forest)
}

func TestBuildForest_NilOverlay(t *testing.T) {
	acc := itemAccessors()
	acc.Overlay = nil

	forest := BuildForest([]item{{id: "a"}}, acc)

	require.Len(t, forest, 1)
	assert.Equal(t, "", forest[0].Overlay)
}

func TestFind(t *testing.T) {
	items := []item{
		{id: "a", order: 1},
		{id: "a1", parent: "a", order: 1},
		{id: "a11", parent: "a1", order: 1},
	}
	forest := BuildForest(items, itemAccessors())

	n := Find(forest, func(i item) bool { return i.id == "a1" })
	require.NotNil(t, n)
	assert.Equal(t, []string{"a11"}, ids(n.Children))

	assert.Nil(t, Find(forest, func(i item) bool { return i.id == "nope" }))
}

func TestWalk_Depth(t *testing.T) {
	items := []item{
		{id: "a", order: 1},
		{id: "a1", parent: "a", order: 1},
		{id: "a11", parent: "a1", order: 1},
	}
	forest := BuildForest(items, itemAccessors())

	depths := map[string]int{}
	Walk(forest, func(n *Node[item, string], depth int) { depths[n.Item.id] = depth })

	assert.Equal(t, map[string]int{"a": 1, "a1": 2, "a11": 3}, depths)
}
