package decompressed_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/hyperast"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/node"
)

func leaf(token string) *node.Node { return node.NewNodeWithToken(node.UASTIdentifier, token) }

// buildTree interns
//
//	File(x, Call(a, b), Block(Call(a, b), y))
//
// whose postorder is x0 a1 b2 Call3 a4 b5 Call6 y7 Block8 File9.
func buildTree(t *testing.T) (*hyperast.Store, hyperast.IdN) {
	t.Helper()

	store := hyperast.NewStore()
	tree := node.NewInternal(node.UASTFile,
		leaf("x"),
		node.NewInternal(node.UASTCall, leaf("a"), leaf("b")),
		node.NewInternal(node.UASTBlock,
			node.NewInternal(node.UASTCall, leaf("a"), leaf("b")),
			leaf("y"),
		),
	)

	return store, store.InternTree(tree)
}

func TestPostOrder_Layout(t *testing.T) {
	t.Parallel()

	store, root := buildTree(t)
	po := decompressed.Decompress(store, root)

	require.Equal(t, 10, po.Len())
	assert.Equal(t, decompressed.IdD(9), po.Root())
	assert.Equal(t, []decompressed.IdD{0, 1, 2, 1, 4, 5, 4, 7, 4, 0}, llds(po))

	parent, ok := po.Parent(3)
	require.True(t, ok)
	assert.Equal(t, decompressed.IdD(9), parent)

	_, ok = po.Parent(po.Root())
	assert.False(t, ok)

	// The two Call occurrences share one identity but have distinct indices.
	assert.Equal(t, po.Original(3), po.Original(6))
	assert.Equal(t, []decompressed.IdD{0, 3, 8}, po.DecompressChildren(9))
}

func TestPostOrder_RangeBound(t *testing.T) {
	t.Parallel()

	store, root := buildTree(t)
	po := decompressed.Decompress(store, root)

	for x := range po.IterDfPost(true) {
		r := po.DescendantsRange(x)
		assert.Equal(t, po.Lld(x), r.Start)
		assert.Equal(t, x, r.End)
		assert.Equal(t, po.DescendantsCount(x), r.Len())
		assert.LessOrEqual(t, po.Lld(x), x)
	}
}

func TestIterDfPost_WithoutRoot(t *testing.T) {
	t.Parallel()

	store, root := buildTree(t)
	po := decompressed.Decompress(store, root)

	all := slices.Collect(po.IterDfPost(false))

	require.Len(t, all, po.Len()-1)
	assert.NotContains(t, all, po.Root())
}

func TestIterKR_OnePerLeftmostLeaf(t *testing.T) {
	t.Parallel()

	store, root := buildTree(t)
	po := decompressed.Decompress(store, root)

	assert.Equal(t, []decompressed.IdD{2, 3, 5, 7, 8, 9}, slices.Collect(po.IterKR()))
}

func TestLazy_StartsWithRootOnly(t *testing.T) {
	t.Parallel()

	store, root := buildTree(t)
	lazy := decompressed.NewLazy(store, root)

	assert.Equal(t, 1, lazy.Materialized())
	assert.True(t, lazy.IsMaterialized(lazy.Root()))
	assert.False(t, lazy.IsExpanded(lazy.Root()))
	assert.False(t, lazy.IsMaterialized(4))
	assert.Panics(t, func() { lazy.Lld(4) })
}

func TestLazy_DecompressToMaterializesPath(t *testing.T) {
	t.Parallel()

	store, root := buildTree(t)
	lazy := decompressed.NewLazy(store, root)

	assert.Equal(t, decompressed.IdD(4), lazy.DecompressTo(4))

	// Root children, Block children, Call children.
	assert.Equal(t, 1+3+2+2, lazy.Materialized())
	assert.True(t, lazy.IsMaterialized(6))
	assert.True(t, lazy.IsMaterialized(8))
	assert.False(t, lazy.IsMaterialized(1))

	before := lazy.Materialized()
	lazy.DecompressTo(4)
	assert.Equal(t, before, lazy.Materialized())

	parent, ok := lazy.Parent(4)
	require.True(t, ok)
	assert.Equal(t, decompressed.IdD(6), parent)
}

func TestLazy_MatchesEager(t *testing.T) {
	t.Parallel()

	store, root := buildTree(t)
	po := decompressed.Decompress(store, root)
	lazy := decompressed.NewLazy(store, root, decompressed.WithMemoEntries(2))

	// Reverse order exercises upward walks from the hint.
	for x := po.Len() - 1; x >= 0; x-- {
		idx := lazy.DecompressTo(decompressed.IdD(x))
		assert.Equal(t, po.Original(idx), lazy.Original(idx))
		assert.Equal(t, po.Lld(idx), lazy.Lld(idx))

		pe, okE := po.Parent(idx)
		pl, okL := lazy.Parent(idx)
		assert.Equal(t, okE, okL)
		assert.Equal(t, pe, pl)
	}

	assert.Equal(t, slices.Collect(po.IterKR()), slices.Collect(lazy.IterKR()))
}

func TestLazy_SharedLayoutCache(t *testing.T) {
	t.Parallel()

	store, root := buildTree(t)
	cache := decompressed.NewLayoutCache(store, decompressed.DefaultMemoEntries)

	first := decompressed.NewLazy(store, root, decompressed.WithLayoutCache(cache))
	first.CompleteSubtree(first.Root())

	second := decompressed.NewLazy(store, root, decompressed.WithLayoutCache(cache))
	second.CompleteSubtree(second.Root())

	assert.Equal(t, first.Len(), second.Materialized())
	assert.Positive(t, cache.Stats().Hits)

	other := hyperast.NewStore()
	assert.Panics(t, func() {
		decompressed.NewLazy(other, other.Intern(node.UASTFile, "", nil), decompressed.WithLayoutCache(cache))
	})
}

func TestSlicePO_Projection(t *testing.T) {
	t.Parallel()

	store, root := buildTree(t)

	views := map[string]decompressed.View{
		"eager": decompressed.Decompress(store, root),
		"lazy":  decompressed.NewLazy(store, root),
	}

	for name, view := range views {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			block := view.DecompressTo(8)
			slice := view.SlicePO(block)

			require.Equal(t, 5, slice.Len())
			assert.Equal(t, decompressed.IdD(4), slice.Root())
			assert.Equal(t, view.FirstDescendant(block), slice.Offset())
			assert.Equal(t, block, slice.ToOuter(slice.Root()))

			for x := range slice.IterDfPost(true) {
				assert.Equal(t, view.Original(slice.ToOuter(x)), slice.Original(x))
				assert.Equal(t, view.Lld(slice.ToOuter(x))-slice.Offset(), slice.Lld(x))
			}

			parent, ok := slice.Parent(2)
			require.True(t, ok)
			assert.Equal(t, slice.Root(), parent)

			_, ok = slice.Parent(slice.Root())
			assert.False(t, ok)

			assert.Equal(t, []decompressed.IdD{1, 3, 4}, slices.Collect(slice.IterKR()))
			assert.Panics(t, func() { slice.Original(5) })
		})
	}
}

func TestRange(t *testing.T) {
	t.Parallel()

	r := decompressed.Range{Start: 2, End: 5}

	assert.Equal(t, 3, r.Len())
	assert.True(t, r.Contains(2))
	assert.False(t, r.Contains(5))
	assert.Equal(t, []decompressed.IdD{2, 3, 4}, slices.Collect(r.All()))
}

func TestOutOfRangePanics(t *testing.T) {
	t.Parallel()

	store, root := buildTree(t)
	po := decompressed.Decompress(store, root)
	lazy := decompressed.NewLazy(store, root)

	assert.Panics(t, func() { po.Original(10) })
	assert.Panics(t, func() { lazy.DecompressTo(10) })
}

func llds(tree decompressed.Tree) []decompressed.IdD {
	out := make([]decompressed.IdD, 0, tree.Len())
	for x := range tree.IterDfPost(true) {
		out = append(out, tree.Lld(x))
	}

	return out
}
