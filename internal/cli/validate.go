package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateSchedule bool

var validateCmd = &cobra.Command{
	Use:   "validate <project.yaml>",
	Short: "Check a project file",
	Long: `Validate loads a project file, builds its task graph and resources and
reports the first problem found. With --schedule it also runs the
scheduler, which catches dependency cycles through the hierarchy,
unavailable resources and tasks already ending in the future.

Examples:
  pjplan validate plan.yaml
  pjplan validate plan.yaml --schedule`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	addScheduleFlags(validateCmd)
	validateCmd.Flags().BoolVar(&validateSchedule, "schedule", false, "also run the scheduler")
}

func runValidate(cmd *cobra.Command, args []string) error {
	p, err := loadPlan(cmd, args[0])
	if err != nil {
		return err
	}

	if validateSchedule {
		res, err := p.schedule()
		if err != nil {
			return err
		}
		res.Graph.Release()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d tasks, %d leaves, %d resources\n",
		args[0], p.graph.Len(), len(p.graph.Leaves()), len(p.file.Resources))
	return nil
}
