package subtree_test

import (
	"bytes"
	"cmp"
	"context"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/hyperast"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers/heuristic/subtree"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/node"
)

func ident(name string) *node.Node { return node.NewNodeWithToken(node.UASTIdentifier, name) }

func call(fn, arg string) *node.Node {
	return node.NewInternal(node.UASTCall, ident(fn), ident(arg))
}

// program is File(Function(main, Block(Call(print, arg), Return(0)))).
// Postorder: main0 print1 arg2 Call3 0_4 Return5 Block6 Function7 File8.
func program(arg string) *node.Node {
	return node.NewInternal(node.UASTFile,
		node.NewInternal(node.UASTFunction,
			ident("main"),
			node.NewInternal(node.UASTBlock,
				call("print", arg),
				node.NewInternal(node.UASTReturn, node.NewNodeWithToken(node.UASTLiteral, "0")),
			),
		),
	)
}

func eager(src, dst *node.Node) *matchers.Mapper {
	store := hyperast.NewStore()

	return matchers.NewEagerMapper(store, store.InternTree(src), store.InternTree(dst))
}

func lazy(src, dst *node.Node) *matchers.Mapper {
	store := hyperast.NewStore()

	return matchers.NewLazyMapper(store, store.InternTree(src), store.InternTree(dst), matchers.DefaultConfig())
}

func pairs(m *mapping.Store) []mapping.Pair {
	out := m.Pairs()
	slices.SortFunc(out, func(a, b mapping.Pair) int { return cmp.Compare(a.Src, b.Src) })

	return out
}

func TestMatch_IdenticalTreesLinkEverything(t *testing.T) {
	t.Parallel()

	mp := eager(program("x"), program("x"))
	stats := subtree.New(matchers.DefaultConfig()).Match(context.Background(), mp)

	assert.Equal(t, 1, stats.Unique)
	assert.Equal(t, 9, stats.Links)

	for s, d := range mp.Mappings.Iter() {
		assert.Equal(t, s, d)
	}
}

func TestMatch_IdenticalLazyTreesStayCompressed(t *testing.T) {
	t.Parallel()

	mp := lazy(program("x"), program("x"))
	subtree.New(matchers.DefaultConfig()).Match(context.Background(), mp)

	assert.Equal(t, 9, mp.Mappings.Len())
	assert.Equal(t, 1, mp.Src.(*decompressed.LazyPostOrder).Materialized())
	assert.Equal(t, 1, mp.Dst.(*decompressed.LazyPostOrder).Materialized())
}

func TestMatch_RenamedLeaf(t *testing.T) {
	t.Parallel()

	for name, build := range map[string]func(src, dst *node.Node) *matchers.Mapper{"eager": eager, "lazy": lazy} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			mp := build(program("x"), program("y"))
			stats := subtree.New(matchers.DefaultConfig()).Match(context.Background(), mp)

			assert.Equal(t, 3, stats.Unique)
			assert.Equal(t, 0, stats.Ambiguous)
			assert.Equal(t, []mapping.Pair{{Src: 0, Dst: 0}, {Src: 1, Dst: 1}, {Src: 4, Dst: 4}, {Src: 5, Dst: 5}},
				pairs(mp.Mappings))
		})
	}
}

func TestMatch_MinHeightStopsEarly(t *testing.T) {
	t.Parallel()

	cfg := matchers.DefaultConfig()
	cfg.MinHeight = 2

	mp := eager(program("x"), program("y"))
	stats := subtree.New(cfg).Match(context.Background(), mp)

	assert.Equal(t, 1, stats.Unique)
	assert.Equal(t, []mapping.Pair{{Src: 4, Dst: 4}, {Src: 5, Dst: 5}}, pairs(mp.Mappings))
}

func TestMatch_AmbiguousPrefersCloserPosition(t *testing.T) {
	t.Parallel()

	// Src: f0 a1 Call2 f3 a4 Call5 Block6.
	// Dst: f0 a1 Call2 f3 a4 Call5 0_6 Return7 Block8.
	src := node.NewInternal(node.UASTBlock, call("f", "a"), call("f", "a"))
	dst := node.NewInternal(node.UASTBlock, call("f", "a"), call("f", "a"),
		node.NewInternal(node.UASTReturn, node.NewNodeWithToken(node.UASTLiteral, "0")))

	mp := eager(src, dst)
	stats := subtree.New(matchers.DefaultConfig()).Match(context.Background(), mp)

	assert.Equal(t, 2, stats.Ambiguous)
	assert.Equal(t, 6, stats.Links)

	for s, d := range mp.Mappings.Iter() {
		assert.Equal(t, s, d)
	}
}

func TestMatch_RootPairsOnlyWithRoot(t *testing.T) {
	t.Parallel()

	// Src: a0 Block1 File2. Dst: a0 Block1, identical to the src Block.
	src := node.NewInternal(node.UASTFile, node.NewInternal(node.UASTBlock, ident("a")))
	dst := node.NewInternal(node.UASTBlock, ident("a"))

	mp := eager(src, dst)
	stats := subtree.New(matchers.DefaultConfig()).Match(context.Background(), mp)

	assert.Equal(t, []mapping.Pair{{Src: 0, Dst: 0}}, mp.Mappings.Pairs())
	assert.Equal(t, 1, stats.Links)
	assert.False(t, mp.Mappings.IsDst(mp.Dst.Root()))
}

func TestMatch_LinksAreTypePreserving(t *testing.T) {
	t.Parallel()

	src := node.NewInternal(node.UASTFile, call("f", "a"), call("g", "b"), call("f", "a"))
	dst := node.NewInternal(node.UASTFile, call("g", "b"), call("f", "a"))

	mp := eager(src, dst)
	subtree.New(matchers.DefaultConfig()).Match(context.Background(), mp)

	require.Positive(t, mp.Mappings.Len())

	for s, d := range mp.Mappings.Iter() {
		assert.Equal(t, mp.SrcType(s), mp.DstType(d))
	}
}

func TestMatch_LogsSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	subtree.New(matchers.DefaultConfig(), subtree.WithLogger(logger)).
		Match(context.Background(), eager(program("x"), program("y")))

	assert.Contains(t, buf.String(), `"msg":"top-down matching done"`)
	assert.Contains(t, buf.String(), `"links":4`)
}
