package hyperast

import "github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/node"

// NodeRef is a resolved, read-only view of an interned node.
type NodeRef struct {
	store *Store
	id    IdN
}

// ID returns the node identity.
func (ref NodeRef) ID() IdN { return ref.id }

// Type returns the structural type.
func (ref NodeRef) Type() node.Type { return ref.rec().kind }

// Label returns the label, if the node has one.
func (ref NodeRef) Label() (string, bool) {
	rec := ref.rec()
	if rec.label == noLabel {
		return "", false
	}

	return ref.store.labels.Resolve(rec.label), true
}

// LabelID returns the interned label identity (zero when unlabeled).
func (ref NodeRef) LabelID() LabelID { return ref.rec().label }

// HasChildren reports whether the node has at least one child.
func (ref NodeRef) HasChildren() bool { return len(ref.rec().children) > 0 }

// ChildCount returns the number of children.
func (ref NodeRef) ChildCount() int { return len(ref.rec().children) }

// Child returns the i-th child.
func (ref NodeRef) Child(i int) IdN { return ref.rec().children[i] }

// Children returns the children. The slice must not be modified.
func (ref NodeRef) Children() []IdN { return ref.rec().children }

// Size returns the number of nodes in the subtree, the node included.
func (ref NodeRef) Size() int { return int(ref.rec().size) }

// Height returns the subtree height; leaves have height 1.
func (ref NodeRef) Height() int { return int(ref.rec().height) }

// Hash returns the structural hash of the subtree.
func (ref NodeRef) Hash() uint64 { return ref.rec().hash }

func (ref NodeRef) rec() *record { return ref.store.record(ref.id) }
