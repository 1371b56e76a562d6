package subtree

import (
	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/hyperast"
)

// queue is a height-bucketed priority list of subtree roots of one view.
type queue struct {
	store   *hyperast.Store
	view    decompressed.View
	buckets [][]decompressed.IdD
	top     int
}

func newQueue(store *hyperast.Store, view decompressed.View) *queue {
	height := store.Resolve(view.Original(view.Root())).Height()

	return &queue{
		store:   store,
		view:    view,
		buckets: make([][]decompressed.IdD, height+1),
	}
}

func (q *queue) push(x decompressed.IdD) {
	h := q.store.Resolve(q.view.Original(x)).Height()
	q.buckets[h] = append(q.buckets[h], x)
	q.top = max(q.top, h)
}

// peekHeight returns the greatest height present, 0 when empty.
func (q *queue) peekHeight() int {
	for q.top > 0 && len(q.buckets[q.top]) == 0 {
		q.top--
	}

	return q.top
}

func (q *queue) popAll() []decompressed.IdD {
	h := q.peekHeight()
	out := q.buckets[h]
	q.buckets[h] = nil

	return out
}

// openAll pushes the children of every node.
func (q *queue) openAll(xs []decompressed.IdD) {
	for _, x := range xs {
		for _, child := range q.view.DecompressChildren(x) {
			q.push(child)
		}
	}
}
