package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricMatchRuns      = "hyperdiff.match.runs.total"
	metricMatchDuration  = "hyperdiff.match.duration.seconds"
	metricMatchLinks     = "hyperdiff.match.links.total"
	metricMatchOracle    = "hyperdiff.match.oracle.calls.total"
	metricMatchCandidate = "hyperdiff.match.candidates.total"

	attrPhase   = "phase"
	attrOutcome = "outcome"
)

// Link phases reported by MatchStats.
const (
	PhaseSubtree   = "subtree"
	PhaseHeuristic = "heuristic"
	PhaseOracle    = "oracle"
)

// MatchMetrics holds the OTel instruments of the matcher.
type MatchMetrics struct {
	runs       metric.Int64Counter
	duration   metric.Float64Histogram
	links      metric.Int64Counter
	oracle     metric.Int64Counter
	candidates metric.Int64Counter
}

// MatchStats is what one matching run reports, decoupled from matcher types.
type MatchStats struct {
	SubtreeLinks   int
	HeuristicLinks int
	OracleLinks    int
	OracleCalls    int
	OracleSkips    int
	Candidates     int
	Duration       time.Duration
}

// NewMatchMetrics creates matcher instruments from the given meter.
func NewMatchMetrics(mt metric.Meter) (*MatchMetrics, error) {
	runs, err := mt.Int64Counter(metricMatchRuns,
		metric.WithDescription("Completed matching runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMatchRuns, err)
	}

	duration, err := mt.Float64Histogram(metricMatchDuration,
		metric.WithDescription("Matching run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMatchDuration, err)
	}

	links, err := mt.Int64Counter(metricMatchLinks,
		metric.WithDescription("Committed mappings by phase"),
		metric.WithUnit("{link}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMatchLinks, err)
	}

	oracle, err := mt.Int64Counter(metricMatchOracle,
		metric.WithDescription("Last-chance oracle invocations by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMatchOracle, err)
	}

	candidates, err := mt.Int64Counter(metricMatchCandidate,
		metric.WithDescription("Destination candidates scored"),
		metric.WithUnit("{candidate}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMatchCandidate, err)
	}

	return &MatchMetrics{
		runs:       runs,
		duration:   duration,
		links:      links,
		oracle:     oracle,
		candidates: candidates,
	}, nil
}

// RecordRun records the statistics of a completed run.
// Safe to call on a nil receiver (no-op).
func (mm *MatchMetrics) RecordRun(ctx context.Context, stats MatchStats) {
	if mm == nil {
		return
	}

	mm.runs.Add(ctx, 1)
	mm.duration.Record(ctx, stats.Duration.Seconds())
	mm.candidates.Add(ctx, int64(stats.Candidates))

	for phase, n := range map[string]int{
		PhaseSubtree:   stats.SubtreeLinks,
		PhaseHeuristic: stats.HeuristicLinks,
		PhaseOracle:    stats.OracleLinks,
	} {
		mm.links.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrPhase, phase)))
	}

	mm.oracle.Add(ctx, int64(stats.OracleCalls), metric.WithAttributes(attribute.String(attrOutcome, "run")))
	mm.oracle.Add(ctx, int64(stats.OracleSkips), metric.WithAttributes(attribute.String(attrOutcome, "skipped")))
}
