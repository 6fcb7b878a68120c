package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
)

var (
	demoInserts = []int{20, 10, 35, 15, 25, 30, 9, 14}
	demoProbes  = []int{20, 10, 35, 15, 25, 30, 9, 14, 87}
	demoRemoved = 10
)

const demoSeparator = "--------------"

func newDemoCommand(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Replay the reference insert/contains/remove session",
		Long: `Insert 20, 10, 35, 15, 25, 30, 9 and 14, print membership of each key and of 87,
remove 10, then print membership of the inserted keys again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return state.runDemo(cmd)
		},
	}
}

func (a *app) runDemo(cmd *cobra.Command) error {
	tree := rbtree.NewOrdered(a.treeOptions(cmd)...)

	for _, key := range demoInserts {
		tree.Insert(key)
	}

	out := cmd.OutOrStdout()
	yes := a.paint(color.FgGreen)
	no := a.paint(color.FgRed)

	if err := printMembership(out, tree, demoProbes, yes, no); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(out, demoSeparator); err != nil {
		return fmt.Errorf("write demo: %w", err)
	}

	tree.Remove(demoRemoved)

	if err := printMembership(out, tree, demoInserts, yes, no); err != nil {
		return err
	}

	a.providers.Logger.DebugContext(cmd.Context(), "demo finished",
		"len", tree.Len(), "height", tree.Height(), "black_height", tree.BlackHeight())

	return nil
}

func printMembership(out io.Writer, tree *rbtree.Tree[int], keys []int, yes, no *color.Color) error {
	for _, key := range keys {
		var err error

		if tree.Contains(key) {
			_, err = yes.Fprintln(out, "True")
		} else {
			_, err = no.Fprintln(out, "False")
		}

		if err != nil {
			return fmt.Errorf("write demo: %w", err)
		}
	}

	return nil
}
