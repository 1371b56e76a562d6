package matchers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/hyperast"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/node"
)

func TestNewLazyMapper(t *testing.T) {
	t.Parallel()

	store := hyperast.NewStore()
	src := store.InternTree(node.NewInternal(node.UASTBlock,
		node.NewNodeWithToken(node.UASTIdentifier, "a"),
		node.NewNodeWithToken(node.UASTIdentifier, "b"),
	))
	dst := store.InternTree(node.NewInternal(node.UASTBlock,
		node.NewNodeWithToken(node.UASTIdentifier, "a"),
	))

	m := matchers.NewLazyMapper(store, src, dst, matchers.DefaultConfig())

	srcLen, dstLen := m.Mappings.Capacity()
	assert.Equal(t, 3, srcLen)
	assert.Equal(t, 2, dstLen)
	assert.IsType(t, &decompressed.LazyPostOrder{}, m.Src)
	assert.Equal(t, node.UASTBlock, m.SrcType(m.Src.Root()))
	assert.Equal(t, node.UASTBlock, m.DstType(m.Dst.Root()))

	eager := matchers.NewEagerMapper(store, src, dst)
	assert.Equal(t, node.UASTIdentifier, eager.SrcType(0))
	assert.Zero(t, eager.Mappings.Len())
}
