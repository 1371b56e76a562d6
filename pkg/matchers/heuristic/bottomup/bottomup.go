// Package bottomup is the greedy bottom-up matcher. It walks the source tree
// in postorder and pairs every unmapped internal node with the destination
// candidate whose descendants share the most mappings with its own, then
// refines each committed pair with the exact Zhang-Shasha matcher when the
// pair is small enough.
package bottomup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/observability"
)

// Stats describes one run.
type Stats struct {
	// Visited counts unmapped non-root source nodes the sweep reached.
	Visited int `json:"visited"`
	// Internal counts the visited nodes that have children.
	Internal int `json:"internal"`
	// Candidates counts scored destination candidates.
	Candidates int `json:"candidates"`
	// HeuristicLinks counts pairs committed from a similarity score.
	HeuristicLinks int `json:"heuristic_links"`
	// OracleCalls and OracleSkips count last-chance attempts below and
	// above the size threshold.
	OracleCalls int `json:"oracle_calls"`
	OracleSkips int `json:"oracle_skips"`
	// OracleLinks counts pairs committed from the exact matcher.
	OracleLinks int `json:"oracle_links"`
	// RootLinked is false when the roots were already linked on entry.
	RootLinked bool `json:"root_linked"`
}

// Matcher runs the bottom-up phase. A Matcher holds no per-run state and may
// be reused; a single run is not safe for concurrent use of its Mapper.
type Matcher struct {
	cfg     matchers.Config
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.MatchMetrics
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger. Links are logged at Debug, the run summary at Info.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) {
		m.logger = logger
	}
}

// WithTracer sets the tracer used for the run span.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Matcher) {
		m.tracer = tracer
	}
}

// WithMetrics records every run into mm.
func WithMetrics(mm *observability.MatchMetrics) Option {
	return func(m *Matcher) {
		m.metrics = mm
	}
}

// New creates a Matcher. cfg must pass Config.Validate.
func New(cfg matchers.Config, opts ...Option) *Matcher {
	m := &Matcher{
		cfg:    cfg,
		logger: slog.Default(),
		tracer: nooptrace.NewTracerProvider().Tracer("bottomup"),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Match completes the mappings of mp. The store may already hold mappings
// from an earlier phase; it is sized for the two views if it is not yet.
// On return the two roots are linked to each other.
//
// Broken view invariants and a root already mapped to a non-root panic.
func (m *Matcher) Match(ctx context.Context, mp *matchers.Mapper) Stats {
	ctx, span := m.tracer.Start(ctx, "match.bottomup", trace.WithAttributes(
		attribute.Int("match.src_len", mp.Src.Len()),
		attribute.Int("match.dst_len", mp.Dst.Len()),
		attribute.String("match.slicing", string(m.cfg.Slicing)),
	))
	defer span.End()

	start := time.Now()

	r := &run{Matcher: m, mp: mp}
	r.execute(ctx)

	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.Int("match.heuristic_links", r.stats.HeuristicLinks),
		attribute.Int("match.oracle_links", r.stats.OracleLinks),
		attribute.Int("match.oracle_calls", r.stats.OracleCalls),
	)

	m.logger.InfoContext(ctx, "bottom-up matching done",
		"src_len", mp.Src.Len(),
		"dst_len", mp.Dst.Len(),
		"mappings", mp.Mappings.Len(),
		"heuristic_links", r.stats.HeuristicLinks,
		"oracle_links", r.stats.OracleLinks,
		"oracle_calls", r.stats.OracleCalls,
		"oracle_skips", r.stats.OracleSkips,
		"elapsed", elapsed,
	)

	m.metrics.RecordRun(ctx, observability.MatchStats{
		HeuristicLinks: r.stats.HeuristicLinks,
		OracleLinks:    r.stats.OracleLinks,
		OracleCalls:    r.stats.OracleCalls,
		OracleSkips:    r.stats.OracleSkips,
		Candidates:     r.stats.Candidates,
		Duration:       elapsed,
	})

	return r.stats
}

// run is the state of one Match call.
type run struct {
	*Matcher

	mp    *matchers.Mapper
	stats Stats
}

func (r *run) execute(ctx context.Context) {
	src, mappings := r.mp.Src, r.mp.Mappings

	if src.Len() == 0 || r.mp.Dst.Len() == 0 {
		panic("bottomup: empty tree")
	}

	if int(src.Root()) != src.Len()-1 {
		panic(fmt.Sprintf("bottomup: src root %d is not at len-1 (%d)", src.Root(), src.Len()-1))
	}

	mappings.Topit(src.Len(), r.mp.Dst.Len())

	for a := range src.IterDfPost(false) {
		if mappings.IsSrc(a) {
			continue
		}

		r.stats.Visited++

		a = src.DecompressTo(a)
		if !r.mp.Store.Resolve(src.Original(a)).HasChildren() {
			continue
		}

		r.stats.Internal++

		best, ok := r.bestCandidate(a)
		if !ok {
			continue
		}

		r.lastChance(a, best)
		mappings.Link(a, best)
		r.stats.HeuristicLinks++

		r.logger.DebugContext(ctx, "heuristic link", "src", a, "dst", best, "type", r.mp.SrcType(a))
	}

	r.linkRoots()
	r.lastChance(src.Root(), r.mp.Dst.Root())
}

// bestCandidate scores the candidates of a in discovery order. A candidate
// wins only with a strictly higher Dice score that also reaches the
// threshold, so the first of equal scores is kept.
func (r *run) bestCandidate(a decompressed.IdD) (decompressed.IdD, bool) {
	var (
		best  decompressed.IdD
		found bool
		top   = -1.0
	)

	srcRange := r.mp.Src.DescendantsRange(a)
	threshold := r.cfg.SimThreshold()

	for _, cand := range r.candidates(a) {
		r.stats.Candidates++

		sim := mapping.Dice(srcRange, r.mp.Dst.DescendantsRange(cand), r.mp.Mappings)
		if sim > top && sim >= threshold {
			top = sim
			best = cand
			found = true
		}
	}

	return best, found
}

// candidates returns the unmapped, non-root destination ancestors of the
// images of a's mapped descendants that have a's type. Every ancestor chain
// is walked once: a walk stops at the first node already seen.
func (r *run) candidates(a decompressed.IdD) []decompressed.IdD {
	src, dst, mappings := r.mp.Src, r.mp.Dst, r.mp.Mappings

	var seeds []decompressed.IdD

	for c := range src.DescendantsRange(a).All() {
		if d, ok := mappings.GetDst(c); ok {
			seeds = append(seeds, dst.DecompressTo(d))
		}
	}

	if len(seeds) == 0 {
		return nil
	}

	kind := r.mp.SrcType(a)
	visited := roaring.New()
	dstRoot := dst.Root()

	var out []decompressed.IdD

	for _, seed := range seeds {
		for {
			parent, ok := dst.Parent(seed)
			if !ok || !visited.CheckedAdd(parent) {
				break
			}

			if parent != dstRoot && !mappings.IsDst(parent) && r.mp.DstType(parent) == kind {
				out = append(out, parent)
			}

			seed = parent
		}
	}

	return out
}

// linkRoots links the two roots unless they are already linked together.
func (r *run) linkRoots() {
	mappings := r.mp.Mappings
	srcRoot, dstRoot := r.mp.Src.Root(), r.mp.Dst.Root()

	if d, ok := mappings.GetDst(srcRoot); ok {
		if d != dstRoot {
			panic(fmt.Sprintf("bottomup: src root is mapped to %d, not to the dst root %d", d, dstRoot))
		}

		return
	}

	if s, ok := mappings.GetSrc(dstRoot); ok {
		panic(fmt.Sprintf("bottomup: dst root is mapped from %d, not from the src root %d", s, srcRoot))
	}

	mappings.Link(srcRoot, dstRoot)
	r.stats.RootLinked = true
}
