package decompressed

import (
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/alg/lru"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/hyperast"
)

// Page geometry of the lazy index table.
const (
	pageBits = 10
	pageSize = 1 << pageBits
	pageMask = pageSize - 1
)

// DefaultMemoEntries is the default capacity of a LayoutCache.
const DefaultMemoEntries = 4096

// LayoutCache memoizes the child layout of store identities, so shared
// subtrees are expanded from the store only once. A cache is bound to one
// store and may be shared by every lazy view over that store.
type LayoutCache struct {
	store *hyperast.Store
	cache *lru.Cache[hyperast.IdN, []childSlot]
}

// NewLayoutCache creates a cache holding at most maxEntries layouts.
func NewLayoutCache(store *hyperast.Store, maxEntries int) *LayoutCache {
	return &LayoutCache{
		store: store,
		cache: lru.New(lru.WithMaxEntries[hyperast.IdN, []childSlot](max(maxEntries, 1))),
	}
}

// Stats returns hit/miss counters of the cache.
func (lc *LayoutCache) Stats() lru.Stats {
	return lc.cache.Stats()
}

func (lc *LayoutCache) layout(id hyperast.IdN) []childSlot {
	if slots, ok := lc.cache.Get(id); ok {
		return slots
	}

	slots := layoutOf(lc.store, id)
	lc.cache.Put(id, slots)

	return slots
}

type lazyEntry struct {
	original hyperast.IdN
	parent   IdD
	lld      IdD
	set      bool
}

type lazyPage [pageSize]lazyEntry

// LazyPostOrder is a view whose nodes are materialized on demand. The index
// space is sized from the root's subtree size, so every index is known up
// front, but identities, parents and llds are only filled in when a node is
// reached from its parent. Materialized entries never change.
//
// Entries live in fixed-size pages allocated on first touch. The frontier
// holds materialized nodes whose children are not materialized yet.
type LazyPostOrder struct {
	store    *hyperast.Store
	layouts  *LayoutCache
	frontier *roaring.Bitmap
	complete *roaring.Bitmap
	pages    []*lazyPage
	kr       []IdD
	n        int
	count    int
	last     IdD
}

// LazyOption configures a LazyPostOrder.
type LazyOption func(*LazyPostOrder)

// WithLayoutCache shares a layout cache between views of the same store.
func WithLayoutCache(lc *LayoutCache) LazyOption {
	return func(lp *LazyPostOrder) {
		lp.layouts = lc
	}
}

// WithMemoEntries gives the view a private layout cache of the given capacity.
func WithMemoEntries(n int) LazyOption {
	return func(lp *LazyPostOrder) {
		lp.layouts = NewLayoutCache(lp.store, n)
	}
}

// NewLazy creates a lazy view of the subtree of root. Only the root is
// materialized.
func NewLazy(store *hyperast.Store, root hyperast.IdN, opts ...LazyOption) *LazyPostOrder {
	n := store.Resolve(root).Size()
	lp := &LazyPostOrder{
		store:    store,
		frontier: roaring.New(),
		complete: roaring.New(),
		pages:    make([]*lazyPage, (n+pageSize-1)>>pageBits),
		n:        n,
	}

	for _, opt := range opts {
		opt(lp)
	}

	if lp.layouts == nil {
		lp.layouts = NewLayoutCache(store, DefaultMemoEntries)
	}

	if lp.layouts.store != store {
		panic("decompressed: layout cache is bound to another store")
	}

	rootIdx := IdD(n - 1)
	lp.set(rootIdx, root, noParent, 0)
	lp.last = rootIdx

	return lp
}

// Materialized returns the number of materialized nodes.
func (lp *LazyPostOrder) Materialized() int { return lp.count }

// IsMaterialized reports whether x has been reached.
func (lp *LazyPostOrder) IsMaterialized(x IdD) bool {
	e := lp.entry(x)

	return e != nil && e.set
}

// IsExpanded reports whether the children of x are materialized.
func (lp *LazyPostOrder) IsExpanded(x IdD) bool {
	return lp.IsMaterialized(x) && !lp.frontier.Contains(x)
}

// Len implements Tree.
func (lp *LazyPostOrder) Len() int { return lp.n }

// Root implements Tree.
func (lp *LazyPostOrder) Root() IdD { return IdD(lp.n - 1) }

// Original implements Tree.
func (lp *LazyPostOrder) Original(x IdD) hyperast.IdN { return lp.must(x).original }

// Lld implements Tree.
func (lp *LazyPostOrder) Lld(x IdD) IdD { return lp.must(x).lld }

// DescendantsCount implements Tree.
func (lp *LazyPostOrder) DescendantsCount(x IdD) int { return int(x - lp.Lld(x)) }

// DescendantsRange implements Tree.
func (lp *LazyPostOrder) DescendantsRange(x IdD) Range { return Range{Start: lp.Lld(x), End: x} }

// FirstDescendant implements Tree.
func (lp *LazyPostOrder) FirstDescendant(x IdD) IdD { return lp.Lld(x) }

// IterDfPost implements Tree. Indices are yielded without materializing them;
// callers use DecompressTo before reading one.
func (lp *LazyPostOrder) IterDfPost(withRoot bool) iter.Seq[IdD] { return iterPost(lp.n, withRoot) }

// IterKR implements Tree. It materializes the whole tree.
func (lp *LazyPostOrder) IterKR() iter.Seq[IdD] {
	if lp.kr == nil {
		lp.CompleteSubtree(lp.Root())
		lp.kr = keyRoots(lp.n, lp.Lld)
	}

	return iterSlice(lp.kr)
}

// Parent implements View.
func (lp *LazyPostOrder) Parent(x IdD) (IdD, bool) {
	p := lp.must(x).parent

	return p, p != noParent
}

// DecompressTo implements View. It descends from the nearest materialized
// ancestor of x, found by walking up from the previously requested node.
func (lp *LazyPostOrder) DecompressTo(x IdD) IdD {
	checkIndex("lazy", x, lp.n)

	if lp.IsMaterialized(x) {
		lp.last = x

		return x
	}

	cur := lp.last
	for {
		e := lp.must(cur)
		if e.lld <= x && x < cur {
			break
		}

		cur = e.parent
	}

	for cur != x {
		cur = lp.childContaining(cur, x)
	}

	lp.last = x

	return x
}

// DecompressChildren implements View.
func (lp *LazyPostOrder) DecompressChildren(x IdD) []IdD {
	return lp.expand(x)
}

// CompleteSubtree materializes every descendant of x.
func (lp *LazyPostOrder) CompleteSubtree(x IdD) {
	if lp.complete.Contains(x) {
		return
	}

	stack := []IdD{x}
	for len(stack) > 0 {
		y := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if lp.complete.Contains(y) {
			continue
		}

		stack = append(stack, lp.expand(y)...)
	}

	lp.complete.Add(x)
}

// SlicePO implements View. The subtree of x is completed first.
func (lp *LazyPostOrder) SlicePO(x IdD) *Slice {
	lp.CompleteSubtree(x)

	return newSlice(lp, x)
}

// expand materializes the children of x (once) and returns their indices.
func (lp *LazyPostOrder) expand(x IdD) []IdD {
	e := lp.must(x)
	layout := lp.layouts.layout(e.original)

	if len(layout) == 0 {
		return nil
	}

	fresh := lp.frontier.Contains(x)
	children := make([]IdD, 0, len(layout))
	start := e.lld

	for _, slot := range layout {
		child := start + slot.size - 1
		if fresh {
			lp.set(child, slot.id, x, start)
		}

		children = append(children, child)
		start += slot.size
	}

	if fresh {
		lp.frontier.Remove(x)
	}

	return children
}

// childContaining expands parent and returns the child whose subtree holds x.
func (lp *LazyPostOrder) childContaining(parent, x IdD) IdD {
	for _, child := range lp.expand(parent) {
		if x <= child {
			return child
		}
	}

	panic(fmt.Sprintf("decompressed: index %d is not below %d", x, parent))
}

func (lp *LazyPostOrder) set(x IdD, id hyperast.IdN, parent, lld IdD) {
	page := lp.pages[x>>pageBits]
	if page == nil {
		page = new(lazyPage)
		lp.pages[x>>pageBits] = page
	}

	page[x&pageMask] = lazyEntry{original: id, parent: parent, lld: lld, set: true}
	lp.count++

	if lp.store.Resolve(id).HasChildren() {
		lp.frontier.Add(x)
	}
}

func (lp *LazyPostOrder) entry(x IdD) *lazyEntry {
	if int(x) >= lp.n {
		return nil
	}

	page := lp.pages[x>>pageBits]
	if page == nil {
		return nil
	}

	return &page[x&pageMask]
}

func (lp *LazyPostOrder) must(x IdD) *lazyEntry {
	checkIndex("lazy", x, lp.n)

	e := lp.entry(x)
	if e == nil || !e.set {
		panic(fmt.Sprintf("decompressed: lazy index %d is not materialized", x))
	}

	return e
}
