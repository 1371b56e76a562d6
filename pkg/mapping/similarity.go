package mapping

import "github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"

// Similarity summarizes how much two descendant ranges already agree.
type Similarity struct {
	Common  int
	SrcSize int
	DstSize int
}

// NewSimilarity counts the pairs of m whose src lies in src and whose dst
// lies in dst. It iterates the smaller range.
func NewSimilarity(src, dst decompressed.Range, m *Store) Similarity {
	sim := Similarity{SrcSize: src.Len(), DstSize: dst.Len()}

	if sim.SrcSize <= sim.DstSize {
		for s := range src.All() {
			if d, ok := m.GetDst(s); ok && dst.Contains(d) {
				sim.Common++
			}
		}
	} else {
		for d := range dst.All() {
			if s, ok := m.GetSrc(d); ok && src.Contains(s) {
				sim.Common++
			}
		}
	}

	return sim
}

// Dice is 2c / (|S| + |D|), 0 when both ranges are empty.
func (s Similarity) Dice() float64 {
	total := s.SrcSize + s.DstSize
	if total == 0 {
		return 0
	}

	return 2 * float64(s.Common) / float64(total)
}

// Jaccard is c / (|S| + |D| - c), 0 when both ranges are empty.
func (s Similarity) Jaccard() float64 {
	union := s.SrcSize + s.DstSize - s.Common
	if union == 0 {
		return 0
	}

	return float64(s.Common) / float64(union)
}

// Chawathe is c / max(|S|, |D|), 0 when both ranges are empty.
func (s Similarity) Chawathe() float64 {
	larger := max(s.SrcSize, s.DstSize)
	if larger == 0 {
		return 0
	}

	return float64(s.Common) / float64(larger)
}

// Dice is a shortcut for NewSimilarity(src, dst, m).Dice().
func Dice(src, dst decompressed.Range, m *Store) float64 {
	return NewSimilarity(src, dst, m).Dice()
}
