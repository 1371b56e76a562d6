// Package zs is the Zhang-Shasha tree edit distance matcher. It is exact and
// quadratic in memory, so callers only hand it bounded trees.
package zs

import (
	"math"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/hyperast"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/levenshtein"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/node"
)

// Edit costs.
const (
	costDelete = 1.0
	costInsert = 1.0
)

// side caches what the DP reads about one tree, 1-based: entry i describes
// postorder index i-1, and entry 0 is the empty forest.
type side struct {
	lld    []int
	kinds  []node.Type
	labels []string
	kr     []int
}

func newSide(store *hyperast.Store, tree decompressed.Tree) side {
	n := tree.Len()
	s := side{
		lld:    make([]int, n+1),
		kinds:  make([]node.Type, n+1),
		labels: make([]string, n+1),
	}

	for x := range tree.IterDfPost(true) {
		ref := store.Resolve(tree.Original(x))
		i := int(x) + 1

		s.lld[i] = int(tree.Lld(x)) + 1
		s.kinds[i] = ref.Type()
		s.labels[i], _ = ref.Label()
	}

	for k := range tree.IterKR() {
		s.kr = append(s.kr, int(k)+1)
	}

	return s
}

type matcher struct {
	src, dst   side
	treeDist   [][]float64
	forestDist [][]float64
	lev        levenshtein.Context
}

// Match computes a minimum-cost edit mapping between src and dst and returns
// it in their own index spaces. Deletions and insertions cost 1. An update
// costs 0 for equal labels, the normalized Levenshtein distance for different
// labels, and is forbidden across types. Only pairs of equal type are emitted.
func Match(store *hyperast.Store, src, dst decompressed.Tree) *mapping.Store {
	m := &matcher{
		src:        newSide(store, src),
		dst:        newSide(store, dst),
		treeDist:   table(src.Len()+1, dst.Len()+1),
		forestDist: table(src.Len()+1, dst.Len()+1),
	}

	out := mapping.NewStore()
	out.Topit(src.Len(), dst.Len())

	if src.Len() == 0 || dst.Len() == 0 {
		return out
	}

	for _, i := range m.src.kr {
		for _, j := range m.dst.kr {
			m.computeForestDist(i, j)
		}
	}

	m.backtrace(out)

	return out
}

func (m *matcher) updateCost(i, j int) float64 {
	if m.src.kinds[i] != m.dst.kinds[j] {
		return math.Inf(1)
	}

	if m.src.labels[i] == m.dst.labels[j] {
		return 0
	}

	return 1 - m.lev.Similarity(m.src.labels[i], m.dst.labels[j])
}

func (m *matcher) computeForestDist(i, j int) {
	li, lj := m.src.lld[i], m.dst.lld[j]
	fd := m.forestDist

	fd[li-1][lj-1] = 0

	for di := li; di <= i; di++ {
		fd[di][lj-1] = fd[di-1][lj-1] + costDelete

		for dj := lj; dj <= j; dj++ {
			fd[li-1][dj] = fd[li-1][dj-1] + costInsert

			if m.src.lld[di] == li && m.dst.lld[dj] == lj {
				fd[di][dj] = min(
					fd[di-1][dj]+costDelete,
					fd[di][dj-1]+costInsert,
					fd[di-1][dj-1]+m.updateCost(di, dj),
				)
				m.treeDist[di][dj] = fd[di][dj]
			} else {
				fd[di][dj] = min(
					fd[di-1][dj]+costDelete,
					fd[di][dj-1]+costInsert,
					fd[m.src.lld[di]-1][m.dst.lld[dj]-1]+m.treeDist[di][dj],
				)
			}
		}
	}
}

// backtrace walks the forest tables from the two roots, recomputing the
// forest table of every nested subtree pair it has to enter.
func (m *matcher) backtrace(out *mapping.Store) {
	type treePair struct{ row, col int }

	stack := []treePair{{len(m.src.lld) - 1, len(m.dst.lld) - 1}}
	rootPair := true

	for len(stack) > 0 {
		pair := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !rootPair {
			m.computeForestDist(pair.row, pair.col)
		}

		rootPair = false

		firstRow := m.src.lld[pair.row] - 1
		firstCol := m.dst.lld[pair.col] - 1
		row, col := pair.row, pair.col
		fd := m.forestDist

		for row > firstRow || col > firstCol {
			switch {
			case row > firstRow && fd[row-1][col]+costDelete == fd[row][col]:
				row--
			case col > firstCol && fd[row][col-1]+costInsert == fd[row][col]:
				col--
			case m.src.lld[row]-1 == firstRow && m.dst.lld[col]-1 == firstCol:
				if m.src.kinds[row] == m.dst.kinds[col] {
					out.Link(decompressed.IdD(row-1), decompressed.IdD(col-1))
				}

				row--
				col--
			default:
				stack = append(stack, treePair{row, col})
				row = m.src.lld[row] - 1
				col = m.dst.lld[col] - 1
			}
		}
	}
}

func table(rows, cols int) [][]float64 {
	cells := make([]float64, rows*cols)
	out := make([][]float64, rows)

	for r := range out {
		out[r] = cells[r*cols : (r+1)*cols : (r+1)*cols]
	}

	return out
}
