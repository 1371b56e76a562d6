// Package diff runs the matching pipeline over two trees of one store: the
// top-down subtree phase, then the bottom-up phase, then action
// classification.
package diff

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/actions"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/hyperast"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers/heuristic/bottomup"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers/heuristic/subtree"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/observability"
)

// Stats gathers the statistics of every phase.
type Stats struct {
	Subtree  subtree.Stats  `json:"subtree"  yaml:"subtree"`
	BottomUp bottomup.Stats `json:"bottomup" yaml:"bottomup"`
	Mappings int            `json:"mappings" yaml:"mappings"`
	Duration time.Duration  `json:"duration" yaml:"duration"`
	// Memo is set for lazy views only.
	Memo *MemoStats `json:"memo,omitempty" yaml:"memo,omitempty"`
}

// MemoStats reports the layout memo shared by the lazy views.
type MemoStats struct {
	Hits      int64   `json:"hits"      yaml:"hits"`
	Misses    int64   `json:"misses"    yaml:"misses"`
	Evictions int64   `json:"evictions" yaml:"evictions"`
	Entries   int     `json:"entries"   yaml:"entries"`
	HitRate   float64 `json:"hit_rate"  yaml:"hit_rate"`
}

// Result is the outcome of Run.
type Result struct {
	Mapper  *matchers.Mapper
	Stats   Stats
	Actions *actions.Script
}

type options struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.MatchMetrics
	eager   bool
	actions bool
}

// Option configures Run.
type Option func(*options)

// WithLogger sets the logger of every phase.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTracer sets the tracer of every phase.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithMetrics records the run into mm.
func WithMetrics(mm *observability.MatchMetrics) Option {
	return func(o *options) { o.metrics = mm }
}

// WithEagerViews decompresses both trees up front instead of lazily.
func WithEagerViews() Option {
	return func(o *options) { o.eager = true }
}

// WithoutActions skips action classification, which materializes both trees.
func WithoutActions() Option {
	return func(o *options) { o.actions = false }
}

// Run matches the trees rooted at srcRoot and dstRoot. cfg is validated
// first; it is the only source of returned errors.
func Run(ctx context.Context, store *hyperast.Store, srcRoot, dstRoot hyperast.IdN,
	cfg matchers.Config, opts ...Option,
) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}

	o := options{
		logger:  slog.Default(),
		tracer:  nooptrace.NewTracerProvider().Tracer("diff"),
		actions: true,
	}

	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := o.tracer.Start(ctx, "match.diff")
	defer span.End()

	start := time.Now()

	var mp *matchers.Mapper
	if o.eager {
		mp = matchers.NewEagerMapper(store, srcRoot, dstRoot)
	} else {
		mp = matchers.NewLazyMapper(store, srcRoot, dstRoot, cfg)
	}

	res := &Result{Mapper: mp}

	res.Stats.Subtree = subtree.New(cfg,
		subtree.WithLogger(o.logger), subtree.WithTracer(o.tracer),
	).Match(ctx, mp)

	res.Stats.BottomUp = bottomup.New(cfg,
		bottomup.WithLogger(o.logger), bottomup.WithTracer(o.tracer),
	).Match(ctx, mp)

	res.Stats.Mappings = mp.Mappings.Len()

	if o.actions {
		res.Actions = actions.Classify(mp)
	}

	res.Stats.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("match.mappings", res.Stats.Mappings),
		attribute.Int("match.subtree_links", res.Stats.Subtree.Links),
	)

	logAttrs := []any{"mappings", res.Stats.Mappings, "duration", res.Stats.Duration}

	if mp.Layouts != nil {
		ls := mp.Layouts.Stats()
		res.Stats.Memo = &MemoStats{
			Hits:      ls.Hits,
			Misses:    ls.Misses,
			Evictions: ls.Evictions,
			Entries:   ls.Entries,
			HitRate:   ls.HitRate(),
		}

		span.SetAttributes(attribute.Float64("match.memo_hit_rate", ls.HitRate()))
		logAttrs = append(logAttrs, "memo_hit_rate", ls.HitRate(), "memo_evictions", ls.Evictions)
	}

	o.logger.InfoContext(ctx, "match done", logAttrs...)

	bu := res.Stats.BottomUp
	o.metrics.RecordRun(ctx, observability.MatchStats{
		SubtreeLinks:   res.Stats.Subtree.Links,
		HeuristicLinks: bu.HeuristicLinks,
		OracleLinks:    bu.OracleLinks,
		OracleCalls:    bu.OracleCalls,
		OracleSkips:    bu.OracleSkips,
		Candidates:     bu.Candidates,
		Duration:       res.Stats.Duration,
	})

	return res, nil
}
