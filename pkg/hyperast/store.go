// Package hyperast provides the shared, content-addressed AST store that the
// matchers resolve node identities against. Structurally identical subtrees
// (same type, label, and children) are interned once and share one IdN, so a
// single identity may occur many times inside one decompressed tree.
package hyperast

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/safeconv"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/node"
)

// IdN is the identity of an interned node.
type IdN uint32

// record is the immutable payload of an interned node.
type record struct {
	kind     node.Type
	children []IdN
	hash     uint64
	label    LabelID
	size     uint32
	height   uint32
}

// Store interns nodes and answers resolution queries about them.
// It is not safe for concurrent mutation.
type Store struct {
	labels  *LabelStore
	dedup   map[string]IdN
	records []record
	keyBuf  []byte
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		labels: NewLabelStore(),
		dedup:  make(map[string]IdN),
	}
}

// Labels returns the label store backing this store.
func (s *Store) Labels() *LabelStore {
	return s.labels
}

// Len returns the number of distinct interned nodes.
func (s *Store) Len() int {
	return len(s.records)
}

// Intern returns the identity of the node with the given type, label and
// children, creating it on first use. An empty label means "no label".
func (s *Store) Intern(kind node.Type, label string, children []IdN) IdN {
	labelID := noLabel
	if label != "" {
		labelID = s.labels.GetOrInsert(label)
	}

	key := s.internKey(kind, labelID, children)
	if id, ok := s.dedup[string(key)]; ok {
		return id
	}

	rec := record{
		kind:     kind,
		label:    labelID,
		children: append([]IdN(nil), children...),
		size:     1,
		height:   1,
	}

	digest := xxhash.New()
	_, _ = digest.WriteString(string(kind))
	_, _ = digest.Write([]byte{0})
	_, _ = digest.WriteString(label)
	_, _ = digest.Write([]byte{0})

	var hashBuf [8]byte

	for _, child := range children {
		childRec := s.record(child)
		rec.size += childRec.size
		rec.height = max(rec.height, childRec.height+1)

		binary.LittleEndian.PutUint64(hashBuf[:], childRec.hash)
		_, _ = digest.Write(hashBuf[:])
	}

	rec.hash = digest.Sum64()

	id := IdN(safeconv.MustIntToUint32(len(s.records)))
	s.records = append(s.records, rec)
	s.dedup[string(key)] = id

	return id
}

// InternTree interns a whole UAST tree bottom-up and returns the identity of its root.
func (s *Store) InternTree(root *node.Node) IdN {
	if root == nil {
		panic("hyperast: cannot intern a nil tree")
	}

	var stack []IdN

	root.VisitPostOrder(func(visited *node.Node) {
		arity := len(visited.Children)
		children := stack[len(stack)-arity:]
		id := s.Intern(visited.Type, visited.Token, children)
		stack = append(stack[:len(stack)-arity], id)
	})

	return stack[0]
}

// Resolve returns a read-only handle on an interned node.
func (s *Store) Resolve(id IdN) NodeRef {
	s.record(id)

	return NodeRef{store: s, id: id}
}

// ResolveType returns the structural type of a node.
func (s *Store) ResolveType(id IdN) node.Type {
	return s.record(id).kind
}

// SameType reports whether two nodes have the same structural type.
func (s *Store) SameType(a, b IdN) bool {
	return s.record(a).kind == s.record(b).kind
}

// Tree rebuilds a UAST tree from an interned identity. Shared subtrees are
// expanded into distinct nodes.
func (s *Store) Tree(id IdN) *node.Node {
	rec := s.record(id)
	built := &node.Node{Type: rec.kind, Token: s.labels.Resolve(rec.label)}

	for _, child := range rec.children {
		built.Children = append(built.Children, s.Tree(child))
	}

	return built
}

func (s *Store) record(id IdN) *record {
	if int(id) >= len(s.records) {
		panic(fmt.Sprintf("hyperast: unknown node id %d (store has %d nodes)", id, len(s.records)))
	}

	return &s.records[id]
}

func (s *Store) internKey(kind node.Type, label LabelID, children []IdN) []byte {
	buf := s.keyBuf[:0]
	buf = append(buf, kind...)
	buf = append(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(label))

	for _, child := range children {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(child))
	}

	s.keyBuf = buf

	return buf
}
