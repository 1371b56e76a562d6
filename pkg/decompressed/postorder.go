package decompressed

import (
	"iter"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/hyperast"
)

// PostOrder is a fully decompressed view.
type PostOrder struct {
	store     *hyperast.Store
	originals []hyperast.IdN
	llds      []IdD
	parents   []IdD
	kr        []IdD
}

// Decompress materializes the whole subtree of root.
func Decompress(store *hyperast.Store, root hyperast.IdN) *PostOrder {
	n := store.Resolve(root).Size()
	po := &PostOrder{
		store:     store,
		originals: make([]hyperast.IdN, n),
		llds:      make([]IdD, n),
		parents:   make([]IdD, n),
	}

	rootIdx := IdD(n - 1)
	po.originals[rootIdx] = root
	po.llds[rootIdx] = 0
	po.parents[rootIdx] = noParent

	stack := []IdD{rootIdx}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		start := po.llds[x]
		for _, slot := range layoutOf(store, po.originals[x]) {
			child := start + slot.size - 1
			po.originals[child] = slot.id
			po.llds[child] = start
			po.parents[child] = x
			start += slot.size

			stack = append(stack, child)
		}
	}

	return po
}

// Len implements Tree.
func (po *PostOrder) Len() int { return len(po.originals) }

// Root implements Tree.
func (po *PostOrder) Root() IdD { return IdD(len(po.originals) - 1) }

// Original implements Tree.
func (po *PostOrder) Original(x IdD) hyperast.IdN {
	checkIndex("postorder", x, po.Len())

	return po.originals[x]
}

// Lld implements Tree.
func (po *PostOrder) Lld(x IdD) IdD {
	checkIndex("postorder", x, po.Len())

	return po.llds[x]
}

// DescendantsCount implements Tree.
func (po *PostOrder) DescendantsCount(x IdD) int { return int(x - po.Lld(x)) }

// DescendantsRange implements Tree.
func (po *PostOrder) DescendantsRange(x IdD) Range { return Range{Start: po.Lld(x), End: x} }

// FirstDescendant implements Tree.
func (po *PostOrder) FirstDescendant(x IdD) IdD { return po.Lld(x) }

// IterDfPost implements Tree.
func (po *PostOrder) IterDfPost(withRoot bool) iter.Seq[IdD] { return iterPost(po.Len(), withRoot) }

// IterKR implements Tree.
func (po *PostOrder) IterKR() iter.Seq[IdD] {
	if po.kr == nil {
		po.kr = keyRoots(po.Len(), po.Lld)
	}

	return iterSlice(po.kr)
}

// Parent implements View.
func (po *PostOrder) Parent(x IdD) (IdD, bool) {
	checkIndex("postorder", x, po.Len())

	p := po.parents[x]

	return p, p != noParent
}

// DecompressTo implements View; everything is already materialized.
func (po *PostOrder) DecompressTo(x IdD) IdD {
	checkIndex("postorder", x, po.Len())

	return x
}

// DecompressChildren implements View.
func (po *PostOrder) DecompressChildren(x IdD) []IdD {
	var children []IdD

	start := po.Lld(x)
	for _, slot := range layoutOf(po.store, po.originals[x]) {
		children = append(children, start+slot.size-1)
		start += slot.size
	}

	return children
}

// SlicePO implements View.
func (po *PostOrder) SlicePO(x IdD) *Slice {
	return newSlice(po, x)
}
