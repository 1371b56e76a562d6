package decompressed

import (
	"iter"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/hyperast"
)

// projectable is what a Slice reads from its parent view.
type projectable interface {
	Original(x IdD) hyperast.IdN
	Lld(x IdD) IdD
	Parent(x IdD) (IdD, bool)
}

// Slice is a renumbered postorder view of one subtree of a parent view:
// slice index i is parent index i+Offset(). Building a slice never mutates
// the parent, and the parent's subtree must already be fully materialized.
type Slice struct {
	base   projectable
	kr     []IdD
	offset IdD
	n      int
}

func newSlice(base projectable, x IdD) *Slice {
	lld := base.Lld(x)

	return &Slice{
		base:   base,
		offset: lld,
		n:      int(x-lld) + 1,
	}
}

// Offset returns parent index minus slice index.
func (s *Slice) Offset() IdD { return s.offset }

// ToOuter converts a slice index back into the parent view's index space.
func (s *Slice) ToOuter(x IdD) IdD {
	checkIndex("slice", x, s.n)

	return x + s.offset
}

// Len implements Tree.
func (s *Slice) Len() int { return s.n }

// Root implements Tree.
func (s *Slice) Root() IdD { return IdD(s.n - 1) }

// Original implements Tree.
func (s *Slice) Original(x IdD) hyperast.IdN { return s.base.Original(s.ToOuter(x)) }

// Lld implements Tree.
func (s *Slice) Lld(x IdD) IdD { return s.base.Lld(s.ToOuter(x)) - s.offset }

// Parent returns the parent of x inside the slice, false for the slice root.
func (s *Slice) Parent(x IdD) (IdD, bool) {
	if x == s.Root() {
		return 0, false
	}

	p, ok := s.base.Parent(s.ToOuter(x))
	if !ok {
		return 0, false
	}

	return p - s.offset, true
}

// DescendantsCount implements Tree.
func (s *Slice) DescendantsCount(x IdD) int { return int(x - s.Lld(x)) }

// DescendantsRange implements Tree.
func (s *Slice) DescendantsRange(x IdD) Range { return Range{Start: s.Lld(x), End: x} }

// FirstDescendant implements Tree.
func (s *Slice) FirstDescendant(x IdD) IdD { return s.Lld(x) }

// IterDfPost implements Tree.
func (s *Slice) IterDfPost(withRoot bool) iter.Seq[IdD] { return iterPost(s.n, withRoot) }

// IterKR implements Tree.
func (s *Slice) IterKR() iter.Seq[IdD] {
	if s.kr == nil {
		s.kr = keyRoots(s.n, s.Lld)
	}

	return iterSlice(s.kr)
}
