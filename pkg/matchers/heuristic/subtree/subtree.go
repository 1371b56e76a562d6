// Package subtree is the greedy top-down matcher: it pairs identical
// subtrees, largest first. In the shared store identical subtrees have the
// same identity, so isomorphism is an identity comparison.
package subtree

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/hyperast"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
)

// Stats describes one run.
type Stats struct {
	// Unique counts subtree pairs matched without competition.
	Unique int `json:"unique"`
	// Ambiguous counts subtree pairs chosen among several identical ones.
	Ambiguous int `json:"ambiguous"`
	// Links counts node pairs committed.
	Links int `json:"links"`
}

// Matcher runs the top-down phase.
type Matcher struct {
	cfg    matchers.Config
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) { m.logger = logger }
}

// WithTracer sets the tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Matcher) { m.tracer = tracer }
}

// New creates a Matcher. Only subtrees of height cfg.MinHeight or more are
// paired.
func New(cfg matchers.Config, opts ...Option) *Matcher {
	m := &Matcher{
		cfg:    cfg,
		logger: slog.Default(),
		tracer: nooptrace.NewTracerProvider().Tracer("subtree"),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Match pairs identical subtrees of mp.Src and mp.Dst. A root is only ever
// paired with the other root, so the bottom-up phase can always link them.
func (m *Matcher) Match(ctx context.Context, mp *matchers.Mapper) Stats {
	ctx, span := m.tracer.Start(ctx, "match.subtree")
	defer span.End()

	mp.Mappings.Topit(mp.Src.Len(), mp.Dst.Len())

	r := &run{
		mp:  mp,
		src: newQueue(mp.Store, mp.Src),
		dst: newQueue(mp.Store, mp.Dst),
	}

	r.src.push(mp.Src.Root())
	r.dst.push(mp.Dst.Root())
	r.execute(max(m.cfg.MinHeight, 1))

	span.SetAttributes(attribute.Int("match.subtree_links", r.stats.Links))
	m.logger.InfoContext(ctx, "top-down matching done",
		"unique", r.stats.Unique, "ambiguous", r.stats.Ambiguous, "links", r.stats.Links)

	return r.stats
}

type run struct {
	mp       *matchers.Mapper
	src, dst *queue
	stats    Stats
}

// group gathers the nodes of one height sharing an identity.
type group struct {
	srcs, dsts []decompressed.IdD
}

func (r *run) execute(minHeight int) {
	for {
		hs, hd := r.src.peekHeight(), r.dst.peekHeight()
		if min(hs, hd) < minHeight {
			return
		}

		switch {
		case hs > hd:
			r.src.openAll(r.src.popAll())
		case hd > hs:
			r.dst.openAll(r.dst.popAll())
		default:
			r.matchLevel(r.src.popAll(), r.dst.popAll())
		}
	}
}

// matchLevel pairs the nodes of one height. Nodes without an identical
// counterpart are opened; nodes that lose an ambiguous choice are not.
func (r *run) matchLevel(srcs, dsts []decompressed.IdD) {
	groups := make(map[hyperast.IdN]*group)

	var order []hyperast.IdN

	at := func(id hyperast.IdN) *group {
		g, ok := groups[id]
		if !ok {
			g = &group{}
			groups[id] = g
			order = append(order, id)
		}

		return g
	}

	for _, s := range srcs {
		g := at(r.mp.Src.Original(s))
		g.srcs = append(g.srcs, s)
	}

	for _, d := range dsts {
		g := at(r.mp.Dst.Original(d))
		g.dsts = append(g.dsts, d)
	}

	var ambiguous []candidate

	for _, id := range order {
		g := groups[id]

		switch {
		case len(g.dsts) == 0:
			r.src.openAll(g.srcs)
		case len(g.srcs) == 0:
			r.dst.openAll(g.dsts)
		case len(g.srcs) == 1 && len(g.dsts) == 1:
			if r.allowed(g.srcs[0], g.dsts[0]) {
				r.linkSubtree(g.srcs[0], g.dsts[0])
				r.stats.Unique++
			} else {
				r.src.openAll(g.srcs)
				r.dst.openAll(g.dsts)
			}
		default:
			ambiguous = append(ambiguous, r.candidates(g)...)
		}
	}

	r.resolveAmbiguous(ambiguous)
}

// candidate is one possible pairing inside an ambiguous group.
type candidate struct {
	src, dst decompressed.IdD
	score    float64
	distance int
}

func (r *run) candidates(g *group) []candidate {
	var out []candidate

	for _, s := range g.srcs {
		for _, d := range g.dsts {
			if !r.allowed(s, d) {
				continue
			}

			out = append(out, candidate{
				src:      s,
				dst:      d,
				score:    r.parentDice(s, d),
				distance: positionDistance(r.mp.Src, s, r.mp.Dst, d),
			})
		}
	}

	return out
}

// resolveAmbiguous links the best candidates first: higher parent
// similarity, then closer relative position, then index order.
func (r *run) resolveAmbiguous(cands []candidate) {
	slices.SortStableFunc(cands, func(a, b candidate) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}

		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}

		if c := cmp.Compare(a.src, b.src); c != 0 {
			return c
		}

		return cmp.Compare(a.dst, b.dst)
	})

	for _, c := range cands {
		if r.mp.Mappings.IsSrc(c.src) || r.mp.Mappings.IsDst(c.dst) {
			continue
		}

		r.linkSubtree(c.src, c.dst)
		r.stats.Ambiguous++
	}
}

// allowed keeps roots paired with roots only.
func (r *run) allowed(s, d decompressed.IdD) bool {
	return (s == r.mp.Src.Root()) == (d == r.mp.Dst.Root())
}

// parentDice scores the parents of an identical pair by their shared mappings.
func (r *run) parentDice(s, d decompressed.IdD) float64 {
	ps, okS := r.mp.Src.Parent(s)
	pd, okD := r.mp.Dst.Parent(d)

	if !okS || !okD {
		return 0
	}

	return mapping.Dice(r.mp.Src.DescendantsRange(ps), r.mp.Dst.DescendantsRange(pd), r.mp.Mappings)
}

// positionDistance compares where s and d sit relative to their tree sizes,
// in parts per thousand.
func positionDistance(src decompressed.View, s decompressed.IdD, dst decompressed.View, d decompressed.IdD) int {
	rs := int(s) * 1000 / src.Len()
	rd := int(d) * 1000 / dst.Len()

	return max(rs-rd, rd-rs)
}

// linkSubtree links two identical subtrees node by node: identical subtrees
// have identical postorder layouts.
func (r *run) linkSubtree(s, d decompressed.IdD) {
	srcStart := r.mp.Src.FirstDescendant(s)
	dstStart := r.mp.Dst.FirstDescendant(d)

	for k := range s - srcStart + 1 {
		si, di := srcStart+k, dstStart+k
		if r.mp.Mappings.IsSrc(si) || r.mp.Mappings.IsDst(di) {
			continue
		}

		r.mp.Mappings.Link(si, di)
		r.stats.Links++
	}
}
