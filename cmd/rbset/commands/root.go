// Package commands implements CLI command handlers for rbset.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbset/pkg/config"
	"github.com/Sumatoshi-tech/rbset/pkg/observability"
	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbset/pkg/version"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	quiet      bool
	logJSON    bool
	noColor    bool
}

// app is the state PersistentPreRunE builds for the subcommands.
type app struct {
	flags     globalFlags
	cfg       *config.Config
	providers observability.Providers
}

// NewRootCommand creates the rbset root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	state := &app{}

	rootCmd := &cobra.Command{
		Use:   "rbset",
		Short: "Ordered integer set on a red-black tree",
		Long: `rbset keeps a set of unique keys in a red-black tree.

Commands:
  demo      Replay the reference insert/contains/remove session
  run       Replay YAML scenarios and check their expectations
  bench     Measure throughput against a reference implementation
  version   Show version information`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  state.setup,
		PersistentPostRunE: state.teardown,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&state.flags.configPath, "config", "", "Path to rbset.yaml (default: ./rbset.yaml or ~/.config/rbset/rbset.yaml)")
	pf.BoolVarP(&state.flags.verbose, "verbose", "v", false, "Log every tree rotation, recolor and fixup")
	pf.BoolVarP(&state.flags.quiet, "quiet", "q", false, "Only log warnings and errors")
	pf.BoolVar(&state.flags.logJSON, "log-json", false, "Write logs as JSON")
	pf.BoolVar(&state.flags.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newDemoCommand(state),
		newRunCommand(state),
		newBenchCommand(state),
		newVersionCommand(),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(a.flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	obsCfg, err := a.observabilityConfig(cfg, cmd)
	if err != nil {
		return err
	}

	providers, err := observability.Init(cmd.Context(), obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	a.cfg = cfg
	a.providers = providers

	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if a.providers.Shutdown == nil {
		return nil
	}

	return a.providers.Shutdown(cmd.Context())
}

func (a *app) observabilityConfig(cfg *config.Config, cmd *cobra.Command) (observability.Config, error) {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return observability.Config{}, err
	}

	switch {
	case a.flags.verbose:
		level = slog.LevelDebug
	case a.flags.quiet:
		level = slog.LevelWarn
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON || a.flags.logJSON
	obsCfg.LogOutput = cmd.ErrOrStderr()

	if cmd.Name() == "bench" {
		obsCfg.Mode = observability.ModeBench
	}

	return obsCfg, nil
}

// treeOptions returns the tree options shared by demo and run.
func (a *app) treeOptions(cmd *cobra.Command, hooks ...rbtree.Hook[int]) []rbtree.Option[int] {
	opts := make([]rbtree.Option[int], 0, len(hooks)+1)

	if a.flags.verbose {
		opts = append(opts, rbtree.WithHook(observability.LogHook[int](cmd.Context(), a.providers.Logger)))
	}

	for _, hook := range hooks {
		opts = append(opts, rbtree.WithHook(hook))
	}

	return opts
}

// paint returns a color printer honoring --no-color.
func (a *app) paint(attrs ...color.Attribute) *color.Color {
	printer := color.New(attrs...)
	if a.flags.noColor {
		printer.DisableColor()
	}

	return printer
}
