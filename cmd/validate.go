package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	taskerrors "github.com/maxkimambo/taskflow/internal/errors"
	"github.com/maxkimambo/taskflow/internal/plan"
	"github.com/maxkimambo/taskflow/internal/progress"
)

var validateCmd = &cobra.Command{
	Use:   "validate <plan.yaml>",
	Short: "Check a plan without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), progress.Error(
				fmt.Sprintf("Plan '%s' is not valid", filepath.Base(args[0])),
				taskerrors.DisplayErrorSummary(err),
			))
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), progress.Success(
			fmt.Sprintf("Plan '%s' is valid", p.Name),
			fmt.Sprintf("%d step(s), %d at the top level", p.Count(), len(p.Steps)),
		))
		return nil
	},
}
