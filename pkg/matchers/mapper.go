package matchers

import (
	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/hyperast"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/node"
)

// Mapper is the state of one matching run: the store both trees live in, a
// view per side, and the mappings between the two index spaces. Matchers run
// one after another over the same Mapper.
type Mapper struct {
	Store    *hyperast.Store
	Src      decompressed.View
	Dst      decompressed.View
	Mappings *mapping.Store
	// Layouts is the layout memo shared by lazy views, nil otherwise.
	Layouts *decompressed.LayoutCache
}

// NewMapper wraps two views with a mapping store sized for them.
func NewMapper(store *hyperast.Store, src, dst decompressed.View) *Mapper {
	m := mapping.NewStore()
	m.Topit(src.Len(), dst.Len())

	return &Mapper{Store: store, Src: src, Dst: dst, Mappings: m}
}

// NewLazyMapper builds lazy views of both roots over one shared layout cache.
func NewLazyMapper(store *hyperast.Store, srcRoot, dstRoot hyperast.IdN, cfg Config) *Mapper {
	layouts := decompressed.NewLayoutCache(store, cfg.LazyMemoEntries)

	m := NewMapper(store,
		decompressed.NewLazy(store, srcRoot, decompressed.WithLayoutCache(layouts)),
		decompressed.NewLazy(store, dstRoot, decompressed.WithLayoutCache(layouts)),
	)
	m.Layouts = layouts

	return m
}

// NewEagerMapper builds fully decompressed views of both roots.
func NewEagerMapper(store *hyperast.Store, srcRoot, dstRoot hyperast.IdN) *Mapper {
	return NewMapper(store, decompressed.Decompress(store, srcRoot), decompressed.Decompress(store, dstRoot))
}

// SrcType resolves the structural type of a source index.
func (m *Mapper) SrcType(x decompressed.IdD) node.Type {
	return m.Store.ResolveType(m.Src.Original(x))
}

// DstType resolves the structural type of a destination index.
func (m *Mapper) DstType(x decompressed.IdD) node.Type {
	return m.Store.ResolveType(m.Dst.Original(x))
}
