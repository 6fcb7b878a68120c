package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rbset/pkg/observability"
	"github.com/Sumatoshi-tech/rbset/pkg/scenario"
)

// ErrScenariosFailed is returned when at least one scenario did not pass.
var ErrScenariosFailed = errors.New("scenarios failed")

const runKindScenario = "scenario"

// RunCommand holds the flags of the run command.
type RunCommand struct {
	state  *app
	verify bool
}

func newRunCommand(state *app) *cobra.Command {
	rc := &RunCommand{state: state}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml|dir>...",
		Short: "Replay YAML scenarios and check their expectations",
		Long: `Replay each scenario file (directories are expanded to their *.yaml and *.yml files).
Every document is validated against the scenario schema before it runs.`,
		Args: cobra.MinimumNArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().BoolVar(&rc.verify, "verify", false, "Check tree invariants after every key, for every scenario")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	state := rc.state

	files, err := scenario.Discover(args)
	if err != nil {
		return err
	}

	treeMetrics, err := observability.NewTreeMetrics(state.providers.Meter)
	if err != nil {
		return fmt.Errorf("tree metrics: %w", err)
	}

	runMetrics, err := observability.NewRunMetrics(state.providers.Meter)
	if err != nil {
		return fmt.Errorf("run metrics: %w", err)
	}

	docs := make([]*scenario.Document, 0, len(files))

	for _, file := range files {
		doc, loadErr := scenario.Load(file)
		if loadErr != nil {
			return loadErr
		}

		docs = append(docs, doc)
	}

	out := cmd.OutOrStdout()
	failed := 0

	for idx, doc := range docs {
		passed, runErr := rc.runOne(ctx, cmd, files[idx], doc, treeMetrics, runMetrics)
		if runErr != nil {
			return runErr
		}

		if !passed {
			failed++
		}
	}

	if _, err := fmt.Fprintf(out, "%d passed, %d failed\n", len(docs)-failed, failed); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrScenariosFailed, failed, len(docs))
	}

	return nil
}

func (rc *RunCommand) runOne(
	ctx context.Context,
	cmd *cobra.Command,
	file string,
	doc *scenario.Document,
	treeMetrics *observability.TreeMetrics,
	runMetrics *observability.RunMetrics,
) (bool, error) {
	state := rc.state

	ctx, span := state.providers.Tracer.Start(ctx, "rbset.scenario.run", trace.WithAttributes(
		attribute.String("scenario.name", doc.Name),
		attribute.String("scenario.file", file),
		attribute.Int("scenario.steps", len(doc.Steps)),
	))
	defer span.End()

	if rc.verify || state.cfg.Tree.Verify {
		doc.Verify = true
	}

	start := time.Now()
	result := scenario.Run(doc, state.treeOptions(cmd, observability.TreeHook[int](ctx, treeMetrics))...)
	elapsed := time.Since(start)

	status := observability.StatusOK
	if !result.Passed() {
		status = observability.StatusFailed

		span.SetStatus(codes.Error, fmt.Sprintf("%d failed expectations", len(result.Failures)))
	}

	runMetrics.RecordRun(ctx, runKindScenario, status, elapsed)

	state.providers.Logger.InfoContext(ctx, "scenario finished",
		"name", doc.Name, "file", file, "status", status, "steps", result.Steps, "keys", len(result.Keys))

	return result.Passed(), rc.report(cmd.OutOrStdout(), result)
}

func (rc *RunCommand) report(out io.Writer, result scenario.Result) error {
	if result.Passed() {
		_, err := rc.state.paint(color.FgGreen).Fprintf(out, "PASS %s (%d steps)\n", result.Name, result.Steps)

		return err
	}

	if _, err := rc.state.paint(color.FgRed, color.Bold).Fprintf(out, "FAIL %s\n", result.Name); err != nil {
		return err
	}

	for _, failure := range result.Failures {
		if _, err := fmt.Fprintf(out, "  %s\n", failure); err != nil {
			return err
		}
	}

	return nil
}
