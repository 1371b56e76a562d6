package bottomup_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/hyperast"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/node"
)

func ident(name string) *node.Node { return node.NewNodeWithToken(node.UASTIdentifier, name) }

func lit(value string) *node.Node { return node.NewNodeWithToken(node.UASTLiteral, value) }

// renamedLeafPair is
//
//	File(Function(main, Block(Call(print, x), Return(0))))
//
// against the same tree with x renamed to y. Postorder:
// main0 print1 x2 Call3 0_4 Return5 Block6 Function7 File8.
func renamedLeafPair() (*node.Node, *node.Node) {
	build := func(arg string) *node.Node {
		return node.NewInternal(node.UASTFile,
			node.NewInternal(node.UASTFunction,
				ident("main"),
				node.NewInternal(node.UASTBlock,
					node.NewInternal(node.UASTCall, ident("print"), ident(arg)),
					node.NewInternal(node.UASTReturn, lit("0")),
				),
			),
		)
	}

	return build("x"), build("y")
}

type viewKind int

const (
	eagerViews viewKind = iota
	lazyViews
)

func newMapper(src, dst *node.Node, kind viewKind) *matchers.Mapper {
	store := hyperast.NewStore()
	srcRoot := store.InternTree(src)
	dstRoot := store.InternTree(dst)

	if kind == lazyViews {
		return matchers.NewLazyMapper(store, srcRoot, dstRoot, matchers.DefaultConfig())
	}

	return matchers.NewEagerMapper(store, srcRoot, dstRoot)
}

// seedLeaves stands in for an earlier phase: it links every source leaf to
// the first unmapped destination leaf with the same type and label.
func seedLeaves(mp *matchers.Mapper) {
	type key struct {
		kind  node.Type
		label string
	}

	keyOf := func(view decompressed.View, x decompressed.IdD) (key, bool) {
		ref := mp.Store.Resolve(view.Original(view.DecompressTo(x)))
		label, _ := ref.Label()

		return key{ref.Type(), label}, !ref.HasChildren()
	}

	free := make(map[key][]decompressed.IdD)

	for d := range mp.Dst.IterDfPost(true) {
		if k, leaf := keyOf(mp.Dst, d); leaf {
			free[k] = append(free[k], d)
		}
	}

	for s := range mp.Src.IterDfPost(true) {
		k, leaf := keyOf(mp.Src, s)
		if !leaf || len(free[k]) == 0 {
			continue
		}

		mp.Mappings.Link(s, free[k][0])
		free[k] = free[k][1:]
	}
}

var (
	leafTypes     = []node.Type{node.UASTIdentifier, node.UASTLiteral}
	internalTypes = []node.Type{node.UASTBlock, node.UASTCall, node.UASTIf, node.UASTReturn, node.UASTAssignment}
)

// randomTree builds a tree of the given depth from a seeded generator.
func randomTree(rng *rand.Rand, depth int) *node.Node {
	if depth == 0 || rng.IntN(4) == 0 {
		return node.NewNodeWithToken(leafTypes[rng.IntN(len(leafTypes))], fmt.Sprintf("v%d", rng.IntN(12)))
	}

	n := node.NewInternal(internalTypes[rng.IntN(len(internalTypes))])
	for range 1 + rng.IntN(3) {
		n.AddChild(randomTree(rng, depth-1))
	}

	return n
}

// mutate copies tree, renaming some leaves and dropping or inserting some
// children.
func mutate(rng *rand.Rand, tree *node.Node) *node.Node {
	if len(tree.Children) == 0 {
		if rng.IntN(8) == 0 {
			return node.NewNodeWithToken(tree.Type, tree.Token+"_renamed")
		}

		return node.NewNodeWithToken(tree.Type, tree.Token)
	}

	out := node.NewInternal(tree.Type)

	for _, child := range tree.Children {
		switch rng.IntN(12) {
		case 0:
			continue
		case 1:
			out.AddChild(randomTree(rng, 1))
		}

		out.AddChild(mutate(rng, child))
	}

	if len(out.Children) == 0 {
		out.AddChild(ident("filler"))
	}

	return out
}

// randomPair returns a File-rooted tree and a mutated copy for a seed.
func randomPair(seed uint64) (*node.Node, *node.Node) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	src := node.NewInternal(node.UASTFile)
	for range 3 {
		src.AddChild(randomTree(rng, 5))
	}

	return src, node.NewInternal(node.UASTFile, mutate(rng, src).Children...)
}

func pairsOf(m *mapping.Store) map[mapping.Pair]bool {
	out := make(map[mapping.Pair]bool, m.Len())
	for s, d := range m.Iter() {
		out[mapping.Pair{Src: s, Dst: d}] = true
	}

	return out
}

func requireInjective(t *testing.T, m *mapping.Store) {
	t.Helper()

	srcSeen := make(map[decompressed.IdD]bool)
	dstSeen := make(map[decompressed.IdD]bool)

	for s, d := range m.Iter() {
		if srcSeen[s] || dstSeen[d] {
			t.Fatalf("pair (%d, %d) reuses a mapped node", s, d)
		}

		srcSeen[s], dstSeen[d] = true, true

		if got, _ := m.GetDst(s); got != d {
			t.Fatalf("src %d maps to %d in the table but %d in the pair list", s, got, d)
		}

		if got, _ := m.GetSrc(d); got != s {
			t.Fatalf("dst %d maps from %d in the table but %d in the pair list", d, got, s)
		}
	}
}
