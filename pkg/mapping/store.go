// Package mapping holds the correspondences between the postorder indices of
// a source and a destination view, and the similarity measures computed from
// them.
package mapping

import (
	"fmt"
	"iter"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
)

// unmapped marks a free slot in both direction tables.
const unmapped = ^decompressed.IdD(0)

// Pair is one committed correspondence.
type Pair struct {
	Src decompressed.IdD `json:"src" yaml:"src"`
	Dst decompressed.IdD `json:"dst" yaml:"dst"`
}

// Store is a monotonic bidirectional mapping: every src index maps to at most
// one dst index and the other way around. Pairs are never removed.
type Store struct {
	srcToDst []decompressed.IdD
	dstToSrc []decompressed.IdD
	pairs    []Pair
	sized    bool
}

// NewStore returns an empty store with no capacity. Call Topit before Link.
func NewStore() *Store {
	return &Store{}
}

// Topit declares the sizes of the two index spaces. Repeating it with the same
// sizes is a no-op, so a pre-filled store can be handed to another matcher.
// Any other resize of a sized store panics.
func (s *Store) Topit(srcLen, dstLen int) {
	if s.sized {
		if srcLen != len(s.srcToDst) || dstLen != len(s.dstToSrc) {
			panic(fmt.Sprintf("mapping: capacity mismatch: store is %dx%d, requested %dx%d",
				len(s.srcToDst), len(s.dstToSrc), srcLen, dstLen))
		}

		return
	}

	s.srcToDst = filled(srcLen)
	s.dstToSrc = filled(dstLen)
	s.sized = true
}

// Capacity returns the declared sizes.
func (s *Store) Capacity() (srcLen, dstLen int) {
	return len(s.srcToDst), len(s.dstToSrc)
}

// Link records src <-> dst. Both sides must be free and in range.
func (s *Store) Link(src, dst decompressed.IdD) {
	if int(src) >= len(s.srcToDst) || int(dst) >= len(s.dstToSrc) {
		panic(fmt.Sprintf("mapping: link (%d, %d) outside capacity %dx%d",
			src, dst, len(s.srcToDst), len(s.dstToSrc)))
	}

	if s.srcToDst[src] != unmapped {
		panic(fmt.Sprintf("mapping: src %d is already mapped to %d", src, s.srcToDst[src]))
	}

	if s.dstToSrc[dst] != unmapped {
		panic(fmt.Sprintf("mapping: dst %d is already mapped from %d", dst, s.dstToSrc[dst]))
	}

	s.srcToDst[src] = dst
	s.dstToSrc[dst] = src
	s.pairs = append(s.pairs, Pair{Src: src, Dst: dst})
}

// IsSrc reports whether src is mapped.
func (s *Store) IsSrc(src decompressed.IdD) bool {
	return int(src) < len(s.srcToDst) && s.srcToDst[src] != unmapped
}

// IsDst reports whether dst is mapped.
func (s *Store) IsDst(dst decompressed.IdD) bool {
	return int(dst) < len(s.dstToSrc) && s.dstToSrc[dst] != unmapped
}

// GetDst returns the image of src.
func (s *Store) GetDst(src decompressed.IdD) (decompressed.IdD, bool) {
	if !s.IsSrc(src) {
		return 0, false
	}

	return s.srcToDst[src], true
}

// GetSrc returns the preimage of dst.
func (s *Store) GetSrc(dst decompressed.IdD) (decompressed.IdD, bool) {
	if !s.IsDst(dst) {
		return 0, false
	}

	return s.dstToSrc[dst], true
}

// Has reports whether exactly src <-> dst is recorded.
func (s *Store) Has(src, dst decompressed.IdD) bool {
	got, ok := s.GetDst(src)

	return ok && got == dst
}

// Len returns the number of pairs.
func (s *Store) Len() int {
	return len(s.pairs)
}

// Iter yields the pairs in insertion order. Each call starts over.
func (s *Store) Iter() iter.Seq2[decompressed.IdD, decompressed.IdD] {
	return func(yield func(decompressed.IdD, decompressed.IdD) bool) {
		for _, p := range s.pairs {
			if !yield(p.Src, p.Dst) {
				return
			}
		}
	}
}

// Pairs returns a copy of the pairs in insertion order.
func (s *Store) Pairs() []Pair {
	out := make([]Pair, len(s.pairs))
	copy(out, s.pairs)

	return out
}

func filled(n int) []decompressed.IdD {
	out := make([]decompressed.IdD, n)
	for i := range out {
		out[i] = unmapped
	}

	return out
}
