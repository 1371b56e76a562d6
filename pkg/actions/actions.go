// Package actions turns a finished mapping into an edit summary: which
// destination nodes were inserted, which source nodes were deleted, and
// which mapped nodes changed label or moved to another parent.
package actions

import (
	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/node"
)

// Kind is the kind of an edit action.
type Kind string

// Action kinds.
const (
	Insert Kind = "insert"
	Delete Kind = "delete"
	Update Kind = "update"
	Move   Kind = "move"
)

// Action is one edit. Src is meaningful for delete, update and move; Dst
// for insert, update and move.
type Action struct {
	Kind     Kind             `json:"kind"                yaml:"kind"`
	Type     node.Type        `json:"type"                yaml:"type"`
	Src      decompressed.IdD `json:"src"                 yaml:"src"`
	Dst      decompressed.IdD `json:"dst"                 yaml:"dst"`
	OldLabel string           `json:"old_label,omitempty" yaml:"old_label,omitempty"`
	NewLabel string           `json:"new_label,omitempty" yaml:"new_label,omitempty"`
}

// Summary counts actions by kind.
type Summary struct {
	Inserts int `json:"inserts" yaml:"inserts"`
	Deletes int `json:"deletes" yaml:"deletes"`
	Updates int `json:"updates" yaml:"updates"`
	Moves   int `json:"moves"   yaml:"moves"`
}

// Total returns the number of actions.
func (s Summary) Total() int { return s.Inserts + s.Deletes + s.Updates + s.Moves }

// Script is the ordered list of actions of one run: destination-side
// actions in destination postorder, then deletions in source postorder.
type Script struct {
	Actions []Action `json:"actions" yaml:"actions"`
	Summary Summary  `json:"summary" yaml:"summary"`
}

// Classify derives the actions of mp. Both views are fully materialized.
//
// A mapped non-root node is a move when its parent is not mapped to the
// parent of its image. Reordering among the same parent is not reported.
func Classify(mp *matchers.Mapper) *Script {
	src, dst, m := mp.Src, mp.Dst, mp.Mappings
	s := &Script{}

	for d := range dst.IterDfPost(true) {
		d = dst.DecompressTo(d)
		kind := mp.DstType(d)
		newLabel := label(mp, dst, d)

		a, ok := m.GetSrc(d)
		if !ok {
			s.add(Action{Kind: Insert, Type: kind, Dst: d, NewLabel: newLabel})

			continue
		}

		a = src.DecompressTo(a)

		if oldLabel := label(mp, src, a); oldLabel != newLabel {
			s.add(Action{Kind: Update, Type: kind, Src: a, Dst: d, OldLabel: oldLabel, NewLabel: newLabel})
		}

		if moved(mp, a, d) {
			s.add(Action{Kind: Move, Type: kind, Src: a, Dst: d})
		}
	}

	for a := range src.IterDfPost(true) {
		if m.IsSrc(a) {
			continue
		}

		a = src.DecompressTo(a)
		s.add(Action{Kind: Delete, Type: mp.SrcType(a), Src: a, OldLabel: label(mp, src, a)})
	}

	return s
}

func (s *Script) add(a Action) {
	s.Actions = append(s.Actions, a)

	switch a.Kind {
	case Insert:
		s.Summary.Inserts++
	case Delete:
		s.Summary.Deletes++
	case Update:
		s.Summary.Updates++
	case Move:
		s.Summary.Moves++
	}
}

func label(mp *matchers.Mapper, view decompressed.View, x decompressed.IdD) string {
	l, _ := mp.Store.Resolve(view.Original(x)).Label()

	return l
}

func moved(mp *matchers.Mapper, a, d decompressed.IdD) bool {
	pa, okA := mp.Src.Parent(a)
	pd, okD := mp.Dst.Parent(d)

	if !okA || !okD {
		return okA != okD
	}

	img, ok := mp.Mappings.GetDst(pa)

	return !ok || img != pd
}
