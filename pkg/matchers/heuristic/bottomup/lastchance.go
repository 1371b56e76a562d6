package bottomup

import (
	"fmt"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers/optimal/zs"
)

// lastChance runs the exact matcher on the subtrees of a and b when either
// has fewer descendants than the size threshold, and commits the pairs it
// finds between still unmapped nodes of equal type. a and b themselves are
// left to the caller.
func (r *run) lastChance(a, b decompressed.IdD) {
	src, dst := r.mp.Src, r.mp.Dst

	if !r.cfg.UnderSizeThreshold(src.DescendantsCount(a), dst.DescendantsCount(b)) {
		r.stats.OracleSkips++

		return
	}

	r.stats.OracleCalls++

	srcTree, srcOffset := r.oracleInput(src, a)
	dstTree, dstOffset := r.oracleInput(dst, b)

	store, mappings := r.mp.Store, r.mp.Mappings

	for i, j := range zs.Match(store, srcTree, dstTree).Iter() {
		s, d := i+srcOffset, j+dstOffset

		if s == a || d == b || mappings.IsSrc(s) || mappings.IsDst(d) {
			continue
		}

		if !store.SameType(srcTree.Original(i), dstTree.Original(j)) {
			continue
		}

		mappings.Link(s, d)
		r.stats.OracleLinks++
	}
}

// oracleInput returns the subtree of x renumbered from 0, with the offset
// back into view. Both strategies yield the same tree and offset.
func (r *run) oracleInput(view decompressed.View, x decompressed.IdD) (decompressed.Tree, decompressed.IdD) {
	var tree decompressed.Tree

	switch r.cfg.Slicing {
	case matchers.SliceDecompress:
		tree = decompressed.Decompress(r.mp.Store, view.Original(x))
	default:
		tree = view.SlicePO(x)
	}

	offset := x - tree.Root()
	if offset != view.FirstDescendant(x) {
		panic(fmt.Sprintf("bottomup: oracle offset %d of node %d differs from its first descendant %d",
			offset, x, view.FirstDescendant(x)))
	}

	return tree, offset
}
