package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
)

const (
	metricRotations   = "rbset.tree.rotations"
	metricRecolors    = "rbset.tree.recolors"
	metricFixups      = "rbset.tree.fixups"
	metricRunsTotal   = "rbset.runs.total"
	metricRunDuration = "rbset.run.duration.seconds"
	metricRunFailures = "rbset.run.failures.total"

	attrDirection = "direction"
	attrColor     = "color"
	attrCase      = "case"
	attrKind      = "kind"
	attrStatus    = "status"

	// StatusOK and StatusFailed are the run outcomes recorded by RecordRun.
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// runBucketBoundaries span sub-millisecond scenarios up to multi-second benchmarks.
var runBucketBoundaries = []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30}

var fixupCases = []rbtree.FixupCase{
	rbtree.CaseInsertRecolor,
	rbtree.CaseInsertZigZag,
	rbtree.CaseInsertStraight,
	rbtree.CaseDeleteRedSibling,
	rbtree.CaseDeleteBlackNephews,
	rbtree.CaseDeleteRedNephew,
}

// TreeMetrics counts the structural work done by tree fixups.
type TreeMetrics struct {
	rotations metric.Int64Counter
	recolors  metric.Int64Counter
	fixups    metric.Int64Counter

	// Attribute sets are built once; hooks fire on every rotation.
	byDirection map[rbtree.Direction]metric.AddOption
	byColor     map[rbtree.Color]metric.AddOption
	byCase      map[rbtree.FixupCase]metric.AddOption
}

// NewTreeMetrics creates the tree instruments from the given meter.
func NewTreeMetrics(mt metric.Meter) (*TreeMetrics, error) {
	b := newMetricBuilder(mt)

	tm := &TreeMetrics{
		rotations:   b.counter(metricRotations, "Tree rotations performed by rebalancing", "{rotation}"),
		recolors:    b.counter(metricRecolors, "Node color changes performed by rebalancing", "{recolor}"),
		fixups:      b.counter(metricFixups, "Rebalancing cases selected by insert and delete", "{case}"),
		byDirection: map[rbtree.Direction]metric.AddOption{},
		byColor:     map[rbtree.Color]metric.AddOption{},
		byCase:      map[rbtree.FixupCase]metric.AddOption{},
	}

	if b.err != nil {
		return nil, b.err
	}

	for _, dir := range []rbtree.Direction{rbtree.Left, rbtree.Right} {
		tm.byDirection[dir] = metric.WithAttributeSet(attribute.NewSet(attribute.String(attrDirection, dir.String())))
	}

	for _, color := range []rbtree.Color{rbtree.Red, rbtree.Black} {
		tm.byColor[color] = metric.WithAttributeSet(attribute.NewSet(attribute.String(attrColor, color.String())))
	}

	for _, fixup := range fixupCases {
		tm.byCase[fixup] = metric.WithAttributeSet(attribute.NewSet(attribute.String(attrCase, fixup.String())))
	}

	return tm, nil
}

// TreeHook returns a tree hook feeding tm. Measurements are recorded against ctx.
func TreeHook[K any](ctx context.Context, tm *TreeMetrics) rbtree.Hook[K] {
	return func(event rbtree.Event[K]) {
		switch event.Kind {
		case rbtree.EventRotate:
			tm.rotations.Add(ctx, 1, tm.byDirection[event.Direction])
		case rbtree.EventRecolor:
			tm.recolors.Add(ctx, 1, tm.byColor[event.Color])
		case rbtree.EventFixup:
			tm.fixups.Add(ctx, 1, tm.byCase[event.Case])
		}
	}
}

// LogHook returns a tree hook writing every event to logger at debug level.
func LogHook[K any](ctx context.Context, logger *slog.Logger) rbtree.Hook[K] {
	return func(event rbtree.Event[K]) {
		if !logger.Enabled(ctx, slog.LevelDebug) {
			return
		}

		attrs := []slog.Attr{slog.Any("key", event.Key)}

		switch event.Kind {
		case rbtree.EventRotate:
			attrs = append(attrs, slog.String(attrDirection, event.Direction.String()))
		case rbtree.EventRecolor:
			attrs = append(attrs, slog.String(attrColor, event.Color.String()))
		case rbtree.EventFixup:
			attrs = append(attrs, slog.String(attrCase, event.Case.String()))
		}

		logger.LogAttrs(ctx, slog.LevelDebug, "tree "+event.Kind.String(), attrs...)
	}
}

// RunMetrics records scenario and benchmark runs.
type RunMetrics struct {
	runsTotal   metric.Int64Counter
	runDuration metric.Float64Histogram
	failures    metric.Int64Counter
}

// NewRunMetrics creates the run instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RunMetrics{
		runsTotal:   b.counter(metricRunsTotal, "Scenario and benchmark runs", "{run}"),
		runDuration: b.histogram(metricRunDuration, "Run duration in seconds", "s", runBucketBoundaries...),
		failures:    b.counter(metricRunFailures, "Runs that did not pass", "{run}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRun records one finished run of the given kind ("scenario", "bench").
func (rm *RunMetrics) RecordRun(ctx context.Context, kind, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrKind, kind),
		attribute.String(attrStatus, status),
	)

	rm.runsTotal.Add(ctx, 1, attrs)
	rm.runDuration.Record(ctx, duration.Seconds(), attrs)

	if status != StatusOK {
		rm.failures.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
	}
}
