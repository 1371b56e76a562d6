// Package decompressed materializes subtrees of the shared AST store as
// postorder-indexed views. Every node occurrence gets its own dense index
// (IdD): descendants precede their ancestors, the root is Len()-1, and the
// descendants of x occupy the contiguous range [Lld(x), x).
//
// Two views implement the same capability set: PostOrder is decompressed
// eagerly at construction, LazyPostOrder materializes nodes on demand. Slice
// is a renumbered projection of either one.
//
// Invariant violations (out-of-range or unmaterialized indices) panic.
package decompressed

import (
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/hyperast"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/safeconv"
)

// IdD is a postorder index inside one decompressed view.
type IdD = uint32

// noParent marks the root in parent tables.
const noParent IdD = math.MaxUint32

// Range is the half-open index interval [Start, End).
type Range struct {
	Start IdD
	End   IdD
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	return int(r.End - r.Start)
}

// Contains reports whether x lies inside the range.
func (r Range) Contains(x IdD) bool {
	return x >= r.Start && x < r.End
}

// All iterates the indices of the range in increasing order.
func (r Range) All() iter.Seq[IdD] {
	return func(yield func(IdD) bool) {
		for x := r.Start; x < r.End; x++ {
			if !yield(x) {
				return
			}
		}
	}
}

// Tree is the read-only postorder capability set. It is all the exact
// matcher needs.
type Tree interface {
	// Len returns the number of indices of the view.
	Len() int
	// Root returns the root index, always Len()-1.
	Root() IdD
	// Original returns the store identity of x.
	Original(x IdD) hyperast.IdN
	// Lld returns the leftmost leaf descendant of x.
	Lld(x IdD) IdD
	// DescendantsCount returns the number of strict descendants of x.
	DescendantsCount(x IdD) int
	// DescendantsRange returns [Lld(x), x).
	DescendantsRange(x IdD) Range
	// FirstDescendant returns the lowest index in the subtree of x.
	FirstDescendant(x IdD) IdD
	// IterDfPost iterates indices in postorder, optionally skipping the root.
	IterDfPost(withRoot bool) iter.Seq[IdD]
	// IterKR iterates the key roots in increasing order.
	IterKR() iter.Seq[IdD]
}

// View is the capability set the heuristic matchers are written against.
type View interface {
	Tree
	// Parent returns the parent of x, false for the root.
	Parent(x IdD) (IdD, bool)
	// DecompressTo makes sure x is materialized and returns it.
	DecompressTo(x IdD) IdD
	// DecompressChildren materializes and returns the children of x.
	DecompressChildren(x IdD) []IdD
	// SlicePO returns a renumbered view of the subtree rooted at x.
	SlicePO(x IdD) *Slice
}

// childSlot is the layout of one child: its identity and subtree size.
type childSlot struct {
	id   hyperast.IdN
	size uint32
}

// layoutOf computes the child layout of an identity from store statistics.
func layoutOf(store *hyperast.Store, id hyperast.IdN) []childSlot {
	ref := store.Resolve(id)
	if !ref.HasChildren() {
		return nil
	}

	slots := make([]childSlot, ref.ChildCount())
	for i, child := range ref.Children() {
		slots[i] = childSlot{id: child, size: safeconv.MustIntToUint32(store.Resolve(child).Size())}
	}

	return slots
}

// iterPost yields 0..n-1 (or 0..n-2 without the root).
func iterPost(n int, withRoot bool) iter.Seq[IdD] {
	end := n
	if !withRoot {
		end--
	}

	return func(yield func(IdD) bool) {
		for x := range end {
			if !yield(IdD(x)) {
				return
			}
		}
	}
}

// keyRoots returns, in increasing order, the highest index of every distinct
// leftmost-leaf value of a fully materialized tree of n nodes.
func keyRoots(n int, lld func(IdD) IdD) []IdD {
	seen := roaring.New()

	var roots []IdD

	for x := n - 1; x >= 0; x-- {
		if seen.CheckedAdd(lld(IdD(x))) {
			roots = append(roots, IdD(x))
		}
	}

	slices.Reverse(roots)

	return roots
}

func iterSlice(values []IdD) iter.Seq[IdD] {
	return func(yield func(IdD) bool) {
		for _, v := range values {
			if !yield(v) {
				return
			}
		}
	}
}

func checkIndex(view string, x IdD, n int) {
	if int(x) >= n {
		panic(fmt.Sprintf("decompressed: %s index %d out of range [0, %d)", view, x, n))
	}
}
