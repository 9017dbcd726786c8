package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/swamp-dev/pjplan/internal/calendar"
	"github.com/swamp-dev/pjplan/internal/config"
	"github.com/swamp-dev/pjplan/internal/project"
	"github.com/swamp-dev/pjplan/internal/wbs"
)

var (
	initName  string
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a directory with pjplan templates",
	Long: `Initialize creates the files needed to plan a project with pjplan.

This includes:
- pjplan.yaml - scheduler configuration
- plan.yaml   - a sample project with resources and tasks

Examples:
  pjplan init
  pjplan init --name website --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initName, "name", "n", "", "project name (defaults to directory name)")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	if initName == "" {
		initName = filepath.Base(cwd)
	}

	logger.Info("initializing pjplan project", "name", initName)

	if err := createConfigFile(cwd); err != nil {
		return err
	}

	if err := createPlanFile(cwd, initName, calendar.Day(time.Now())); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\n✓ Initialized pjplan project: %s\n", initName)
	fmt.Fprintln(w, "\nCreated files:")
	fmt.Fprintln(w, "  - pjplan.yaml  (configuration)")
	fmt.Fprintln(w, "  - plan.yaml    (resources and tasks)")
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintln(w, "  1. Edit plan.yaml to define your tasks")
	fmt.Fprintln(w, "  2. Run 'pjplan schedule plan.yaml'")

	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func createConfigFile(dir string) error {
	path := filepath.Join(dir, config.FileName)

	if !initForce && exists(path) {
		logger.Info("pjplan.yaml already exists, skipping")
		return nil
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}

	logger.Info("created pjplan.yaml")
	return nil
}

func createPlanFile(dir, name string, start time.Time) error {
	path := filepath.Join(dir, "plan.yaml")

	if !initForce && exists(path) {
		logger.Info("plan.yaml already exists, skipping")
		return nil
	}

	if err := samplePlan(name, start).Save(path); err != nil {
		return fmt.Errorf("creating plan file: %w", err)
	}

	logger.Info("created plan.yaml")
	return nil
}

// samplePlan is a small project: a design phase, two parallel build tasks
// on separate resources and a release milestone.
func samplePlan(name string, start time.Time) *project.File {
	half := 4.0
	est := func(v float64) *float64 { return &v }
	task := func(id, label string, estimate *float64, parent string, preds ...string) project.Task {
		return project.Task{TaskRaw: wbs.TaskRaw{
			ID:             id,
			Name:           label,
			Estimate:       estimate,
			ParentID:       parent,
			PredecessorIDs: preds,
		}}
	}

	release := task("release", "Release", nil, "", "build")
	release.Milestone = true
	frontend := task("frontend", "Frontend", est(24), "build")
	frontend.Resource = "design"

	return &project.File{
		Name:  name,
		Start: &start,
		Resources: []project.ResourceSpec{
			{Name: "default"},
			{Name: "design", Calendar: &project.CalendarSpec{
				Kind:     "weekly",
				Weekdays: []string{"mon", "tue", "wed", "thu"},
				Units:    &half,
			}},
		},
		Tasks: []project.Task{
			task("design", "Design", est(16), ""),
			task("build", "Build", nil, "", "design"),
			task("backend", "Backend", est(40), "build"),
			frontend,
			release,
		},
	}
}
