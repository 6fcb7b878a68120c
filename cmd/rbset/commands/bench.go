package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rbset/pkg/observability"
	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
)

var (
	// ErrInvalidBenchKeys is returned for a non-positive --keys value.
	ErrInvalidBenchKeys = errors.New("bench keys must be positive")
	// ErrBenchDrained is returned when a tree is not empty after removing every key.
	ErrBenchDrained = errors.New("tree not empty after removing every key")
)

const (
	runKindBench = "bench"

	implRBTree = "rbtree"
	implGods   = "gods"

	// chartSamples is the number of points on the height chart.
	chartSamples = 50
	opsPerKey    = 3
)

// BenchCommand holds the flags of the bench command.
type BenchCommand struct {
	state       *app
	keys        int
	seed        int64
	chartPath   string
	metricsPath string
	hibernate   bool
}

type benchWorkload struct {
	inserts []int
	lookups []int
	removes []int
}

type benchTiming struct {
	impl   string
	insert time.Duration
	lookup time.Duration
	remove time.Duration
}

type heapSnapshot struct {
	label     string
	heapInUse uint64
}

type heightSample struct {
	size        int
	height      int
	blackHeight int
}

func newBenchCommand(state *app) *cobra.Command {
	bc := &BenchCommand{state: state}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure throughput against a reference implementation",
		Long: `Insert, look up and remove a shuffled set of keys in rbset's tree and in
github.com/emirpasic/gods' red-black tree, and print the per-operation cost.`,
		Args: cobra.NoArgs,
		RunE: bc.run,
	}

	cmd.Flags().IntVar(&bc.keys, "keys", 0, "Number of distinct keys (default: bench.keys from config)")
	cmd.Flags().Int64Var(&bc.seed, "seed", 0, "Shuffle seed (default: bench.seed from config)")
	cmd.Flags().StringVar(&bc.chartPath, "chart", "", "Write an HTML chart of tree height versus size")
	cmd.Flags().StringVar(&bc.metricsPath, "metrics", "", "Write tree rotation/recolor/fixup counters in Prometheus text format")
	cmd.Flags().BoolVar(&bc.hibernate, "hibernate", false, "Report heap usage around arena hibernation")

	return cmd
}

func (bc *BenchCommand) run(cmd *cobra.Command, _ []string) error {
	state := bc.state
	cfg := state.cfg

	keys, seed := cfg.Bench.Keys, cfg.Bench.Seed
	if cmd.Flags().Changed("keys") {
		keys = bc.keys
	}

	if cmd.Flags().Changed("seed") {
		seed = bc.seed
	}

	if keys <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBenchKeys, keys)
	}

	ctx, span := state.providers.Tracer.Start(cmd.Context(), "rbset.bench", trace.WithAttributes(
		attribute.Int("bench.keys", keys),
		attribute.Int64("bench.seed", seed),
	))
	defer span.End()

	runMetrics, err := observability.NewRunMetrics(state.providers.Meter)
	if err != nil {
		return fmt.Errorf("run metrics: %w", err)
	}

	start := time.Now()

	err = bc.bench(ctx, cmd, keys, seed)

	status := observability.StatusOK
	if err != nil {
		status = observability.StatusFailed
	}

	runMetrics.RecordRun(ctx, runKindBench, status, time.Since(start))

	return err
}

func (bc *BenchCommand) bench(ctx context.Context, cmd *cobra.Command, keys int, seed int64) error {
	logger := bc.state.providers.Logger
	workload := newBenchWorkload(keys, seed)

	var exporter *observability.PrometheusExporter

	allocator := rbtree.NewAllocator[int]()
	allocator.HibernationThreshold = bc.state.cfg.Tree.HibernationThreshold

	treeOpts := []rbtree.Option[int]{rbtree.WithAllocator(allocator)}

	if bc.metricsPath != "" {
		var err error

		exporter, err = observability.NewPrometheusExporter()
		if err != nil {
			return err
		}

		defer func() {
			if shutdownErr := exporter.Shutdown(ctx); shutdownErr != nil {
				logger.WarnContext(ctx, "prometheus exporter shutdown", "error", shutdownErr)
			}
		}()

		treeMetrics, err := observability.NewTreeMetrics(exporter.Meter())
		if err != nil {
			return fmt.Errorf("tree metrics: %w", err)
		}

		treeOpts = append(treeOpts, rbtree.WithHook(observability.TreeHook[int](ctx, treeMetrics)))
	}

	logger.InfoContext(ctx, "bench started", "keys", keys, "seed", seed)

	tree := rbtree.NewOrdered(treeOpts...)
	ours := benchTiming{impl: implRBTree}
	ours.insert = timeOps(workload.inserts, func(key int) { tree.Insert(key) })

	var snapshots []heapSnapshot

	if bc.hibernate {
		var err error

		snapshots, err = hibernationSnapshots(allocator)
		if err != nil {
			return err
		}
	}

	ours.lookup = timeOps(workload.lookups, func(key int) { tree.Contains(key) })
	ours.remove = timeOps(workload.removes, func(key int) { tree.Remove(key) })

	if tree.Len() != 0 {
		return fmt.Errorf("%w: %s has %d keys", ErrBenchDrained, implRBTree, tree.Len())
	}

	reference := redblacktree.NewWithIntComparator()
	theirs := benchTiming{impl: implGods}
	theirs.insert = timeOps(workload.inserts, func(key int) { reference.Put(key, struct{}{}) })
	theirs.lookup = timeOps(workload.lookups, func(key int) { reference.Get(key) })
	theirs.remove = timeOps(workload.removes, func(key int) { reference.Remove(key) })

	if reference.Size() != 0 {
		return fmt.Errorf("%w: %s has %d keys", ErrBenchDrained, implGods, reference.Size())
	}

	out := cmd.OutOrStdout()

	if _, err := fmt.Fprintln(out, renderTimings(keys, seed, []benchTiming{ours, theirs})); err != nil {
		return fmt.Errorf("write bench table: %w", err)
	}

	if len(snapshots) > 0 {
		if _, err := fmt.Fprintln(out, renderSnapshots(allocator.Size(), snapshots)); err != nil {
			return fmt.Errorf("write hibernation table: %w", err)
		}
	}

	if bc.chartPath != "" {
		if err := writeHeightChart(bc.chartPath, sampleHeights(workload.inserts)); err != nil {
			return err
		}

		logger.InfoContext(ctx, "height chart written", "path", bc.chartPath)
	}

	if exporter != nil {
		if err := writeMetrics(bc.metricsPath, exporter); err != nil {
			return err
		}

		logger.InfoContext(ctx, "tree metrics written", "path", bc.metricsPath)
	}

	return nil
}

func newBenchWorkload(keys int, seed int64) benchWorkload {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // benchmark shuffle, not security sensitive.

	return benchWorkload{
		inserts: rng.Perm(keys),
		lookups: rng.Perm(keys),
		removes: rng.Perm(keys),
	}
}

func timeOps(keys []int, op func(key int)) time.Duration {
	start := time.Now()

	for _, key := range keys {
		op(key)
	}

	return time.Since(start)
}

// hibernationSnapshots measures the heap with the arena live, hibernated and booted again.
func hibernationSnapshots(allocator *rbtree.Allocator[int]) ([]heapSnapshot, error) {
	snapshots := []heapSnapshot{takeHeapSnapshot("live")}

	if err := allocator.Hibernate(); err != nil {
		return nil, fmt.Errorf("hibernate: %w", err)
	}

	snapshots = append(snapshots, takeHeapSnapshot("hibernated"))

	if err := allocator.Boot(); err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}

	return append(snapshots, takeHeapSnapshot("booted")), nil
}

func takeHeapSnapshot(label string) heapSnapshot {
	runtime.GC()
	runtime.GC()

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	return heapSnapshot{label: label, heapInUse: stats.HeapInuse}
}

func renderTimings(keys int, seed int64, timings []benchTiming) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(fmt.Sprintf("%s keys, seed %d", humanize.Comma(int64(keys)), seed))
	tbl.AppendHeader(table.Row{"implementation", "insert", "lookup", "remove", "ops/s"})

	for _, timing := range timings {
		total := timing.insert + timing.lookup + timing.remove

		tbl.AppendRow(table.Row{
			timing.impl,
			perOp(timing.insert, keys),
			perOp(timing.lookup, keys),
			perOp(timing.remove, keys),
			opsPerSecond(total, keys*opsPerKey),
		})
	}

	return tbl.Render()
}

func renderSnapshots(slots int, snapshots []heapSnapshot) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(fmt.Sprintf("arena hibernation, %s slots", humanize.Comma(int64(slots))))
	tbl.AppendHeader(table.Row{"state", "heap in use"})

	for _, snapshot := range snapshots {
		tbl.AppendRow(table.Row{snapshot.label, humanize.Bytes(snapshot.heapInUse)})
	}

	return tbl.Render()
}

func perOp(elapsed time.Duration, ops int) string {
	return fmt.Sprintf("%.1f ns/op", float64(elapsed.Nanoseconds())/float64(ops))
}

func opsPerSecond(elapsed time.Duration, ops int) string {
	if elapsed <= 0 {
		return "n/a"
	}

	return humanize.Comma(int64(float64(ops) / elapsed.Seconds()))
}

// sampleHeights replays inserts on a fresh tree, recording its height at evenly spaced sizes.
func sampleHeights(inserts []int) []heightSample {
	tree := rbtree.NewOrdered[int]()
	step := max(len(inserts)/chartSamples, 1)
	samples := make([]heightSample, 0, chartSamples+1)

	for idx, key := range inserts {
		tree.Insert(key)

		if (idx+1)%step == 0 || idx == len(inserts)-1 {
			samples = append(samples, heightSample{
				size:        tree.Len(),
				height:      tree.Height(),
				blackHeight: tree.BlackHeight(),
			})
		}
	}

	return samples
}

func writeHeightChart(path string, samples []heightSample) error {
	labels := make([]string, len(samples))
	heights := make([]opts.LineData, len(samples))
	blackHeights := make([]opts.LineData, len(samples))
	bounds := make([]opts.LineData, len(samples))

	for i, sample := range samples {
		labels[i] = strconv.Itoa(sample.size)
		heights[i] = opts.LineData{Value: sample.height}
		blackHeights[i] = opts.LineData{Value: sample.blackHeight}
		bounds[i] = opts.LineData{Value: math.Round(2*math.Log2(float64(sample.size+1))*100) / 100}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "rbset height", Width: "100%", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Tree height versus size"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "keys"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "levels"}),
	)
	line.SetXAxis(labels)
	line.AddSeries("height", heights)
	line.AddSeries("black height", blackHeights)
	line.AddSeries("2*log2(n+1)", bounds, charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}

	if err := line.Render(file); err != nil {
		return errors.Join(fmt.Errorf("render chart: %w", err), file.Close())
	}

	return file.Close()
}

func writeMetrics(path string, exporter *observability.PrometheusExporter) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}

	if err := exporter.WriteText(file); err != nil {
		return errors.Join(err, file.Close())
	}

	return file.Close()
}
