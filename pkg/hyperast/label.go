package hyperast

import (
	"fmt"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/safeconv"
)

// LabelID is the interned identity of a label string.
type LabelID uint32

// noLabel marks nodes without a label.
const noLabel LabelID = 0

// LabelStore interns label strings.
type LabelStore struct {
	ids    map[string]LabelID
	labels []string
}

// NewLabelStore creates an empty label store.
func NewLabelStore() *LabelStore {
	return &LabelStore{
		ids:    make(map[string]LabelID),
		labels: []string{""},
	}
}

// GetOrInsert returns the identity of label, interning it if needed.
func (ls *LabelStore) GetOrInsert(label string) LabelID {
	if id, ok := ls.ids[label]; ok {
		return id
	}

	id := LabelID(safeconv.MustIntToUint32(len(ls.labels)))
	ls.labels = append(ls.labels, label)
	ls.ids[label] = id

	return id
}

// Get returns the identity of an already interned label.
func (ls *LabelStore) Get(label string) (LabelID, bool) {
	id, ok := ls.ids[label]

	return id, ok
}

// Resolve returns the string behind a label identity.
func (ls *LabelStore) Resolve(id LabelID) string {
	if int(id) >= len(ls.labels) {
		panic(fmt.Sprintf("hyperast: unknown label id %d", id))
	}

	return ls.labels[id]
}

// Len returns the number of interned labels.
func (ls *LabelStore) Len() int {
	return len(ls.labels) - 1
}
