package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxkimambo/taskflow/internal/plan"
)

var graphCmd = &cobra.Command{
	Use:   "graph <plan.yaml>",
	Short: "Print a plan as a tree of steps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), plan.Tree(p))
		return nil
	},
}
