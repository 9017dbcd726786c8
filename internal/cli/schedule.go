package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/swamp-dev/pjplan/internal/config"
	"github.com/swamp-dev/pjplan/internal/project"
	"github.com/swamp-dev/pjplan/internal/schedule"
	"github.com/swamp-dev/pjplan/internal/wbs"
)

var scheduleWrite string

var scheduleCmd = &cobra.Command{
	Use:   "schedule <project.yaml>",
	Short: "Date every task of a project",
	Long: `Schedule computes start and end dates for every task of a project file.

Forward scheduling places each task as early as possible from the start
date; backward scheduling places it as late as possible before the
deadline. Parent tasks span their children and roll up their estimates.

Examples:
  pjplan schedule plan.yaml
  pjplan schedule plan.yaml --start 2025-01-06 -o json
  pjplan schedule plan.yaml --direction backward --deadline 2025-03-31
  pjplan schedule plan.yaml --write plan.scheduled.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runSchedule,
}

func init() {
	addScheduleFlags(scheduleCmd)
	scheduleCmd.Flags().StringVarP(&scheduleWrite, "write", "w", "", "write the scheduled project to this file")
}

// addScheduleFlags registers the scheduler overrides on cmd. Bindings are
// made when cmd runs so commands sharing a key do not clobber each other.
func addScheduleFlags(cmd *cobra.Command) {
	cmd.Flags().String("direction", "", "scheduling direction (forward, backward)")
	cmd.Flags().String("start", "", "forward baseline (date or RFC 3339)")
	cmd.Flags().String("deadline", "", "backward deadline (date or RFC 3339)")
	cmd.Flags().Float64("default-estimate", 0, "estimate of leaf tasks that have none, in work units")
	cmd.Flags().Bool("balance-resources", true, "share resource capacity between tasks")
	cmd.Flags().String("spent-rollup", "", "spent rollup of parent tasks (pessimistic, raw)")
	cmd.Flags().Int("max-search-days", 0, "days to search for an available resource day")
	cmd.Flags().Int("max-work-days", 0, "longest stretch of days a single leaf may take")
}

func bindScheduleFlags(cmd *cobra.Command) {
	for key, flag := range map[string]string{
		"schedule.direction":         "direction",
		"schedule.start":             "start",
		"schedule.deadline":          "deadline",
		"schedule.default_estimate":  "default-estimate",
		"schedule.balance_resources": "balance-resources",
		"schedule.spent_rollup":      "spent-rollup",
		"schedule.max_search_days":   "max-search-days",
		"schedule.max_work_days":     "max-work-days",
	} {
		_ = viper.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}

// plan is a loaded project ready for scheduling.
type plan struct {
	cfg   *config.Config
	file  *project.File
	graph *wbs.WBS
	opts  schedule.Options
}

func loadPlan(cmd *cobra.Command, path string) (*plan, error) {
	bindScheduleFlags(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	f, err := project.Load(path)
	if err != nil {
		return nil, err
	}
	g, err := f.Graph()
	if err != nil {
		return nil, fmt.Errorf("building task graph: %w", err)
	}
	set, err := f.ResourceSet()
	if err != nil {
		return nil, err
	}

	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	if opts.Start.IsZero() && f.Start != nil {
		opts.Start = *f.Start
	}
	if opts.Deadline.IsZero() && f.Deadline != nil {
		opts.Deadline = *f.Deadline
	}
	opts.Resources = set
	opts.Logger = logger

	logger.Debug("loaded project",
		"path", path,
		"tasks", g.Len(),
		"resources", len(set),
		"direction", cfg.Schedule.Direction,
	)
	return &plan{cfg: cfg, file: f, graph: g, opts: opts}, nil
}

func (p *plan) schedule() (*schedule.Result, error) {
	s, err := schedule.New(p.cfg.Schedule.Direction, p.opts)
	if err != nil {
		return nil, err
	}
	return s.Calc(p.graph)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	p, err := loadPlan(cmd, args[0])
	if err != nil {
		return err
	}

	res, err := p.schedule()
	if err != nil {
		return err
	}

	if scheduleWrite != "" {
		if err := p.file.WithTasks(res.Graph.Tasks()).Save(scheduleWrite); err != nil {
			return err
		}
		logger.Info("wrote scheduled project", "path", scheduleWrite)
	}

	return printSchedule(cmd.OutOrStdout(), p.cfg.Output.Format, res)
}
