package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/swamp-dev/pjplan/internal/critpath"
)

var criticalUntil string

var criticalCmd = &cobra.Command{
	Use:   "critical <project.yaml>",
	Short: "Show the critical path of a project",
	Long: `Critical computes the slack of every leaf task from its remaining work
and its predecessors, and lists the tasks without slack.

With --until the project is scheduled first and only the chains of
critical tasks finishing on that date are kept. "end" means the end of
the scheduled project.

Examples:
  pjplan critical plan.yaml
  pjplan critical plan.yaml --until end
  pjplan critical plan.yaml --until 2025-02-14 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runCritical,
}

func init() {
	addScheduleFlags(criticalCmd)
	criticalCmd.Flags().StringVar(&criticalUntil, "until", "", `bound the path to tasks ending on this date ("end" for the project end)`)
}

func runCritical(cmd *cobra.Command, args []string) error {
	p, err := loadPlan(cmd, args[0])
	if err != nil {
		return err
	}

	if criticalUntil == "" {
		res, err := critpath.Analyze(p.graph.Tasks())
		if err != nil {
			return err
		}
		return printCritical(cmd.OutOrStdout(), p.cfg.Output.Format, p.graph, res)
	}

	scheduled, err := p.schedule()
	if err != nil {
		return err
	}
	g := scheduled.Graph

	var end time.Time
	if criticalUntil == "end" {
		e := g.End()
		if e == nil {
			return fmt.Errorf("project %s has no end date", g.Name)
		}
		end = *e
	} else if end, err = parseDate(criticalUntil); err != nil {
		return fmt.Errorf("invalid --until: %w", err)
	}

	res, err := critpath.AnalyzeUntil(g.Tasks(), end)
	if err != nil {
		return err
	}
	logger.Debug("critical path", "until", end, "tasks", len(res.Critical))
	return printCritical(cmd.OutOrStdout(), p.cfg.Output.Format, g, res)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
