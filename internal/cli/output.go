package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/swamp-dev/pjplan/internal/critpath"
	"github.com/swamp-dev/pjplan/internal/resource"
	"github.com/swamp-dev/pjplan/internal/schedule"
	"github.com/swamp-dev/pjplan/internal/wbs"
)

const barWidth = 30

type scheduleReport struct {
	Project string                 `json:"project" yaml:"project"`
	Start   *time.Time             `json:"start,omitempty" yaml:"start,omitempty"`
	End     *time.Time             `json:"end,omitempty" yaml:"end,omitempty"`
	Tasks   []wbs.TaskRaw          `json:"tasks" yaml:"tasks"`
	Usage   []resource.Reservation `json:"usage,omitempty" yaml:"usage,omitempty"`
}

type criticalTask struct {
	ID    string     `json:"id" yaml:"id"`
	Name  string     `json:"name,omitempty" yaml:"name,omitempty"`
	Start *time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	End   *time.Time `json:"end,omitempty" yaml:"end,omitempty"`
}

type criticalReport struct {
	Project  string             `json:"project" yaml:"project"`
	Duration float64            `json:"duration" yaml:"duration"`
	Critical []criticalTask     `json:"critical" yaml:"critical"`
	Slack    map[string]float64 `json:"slack" yaml:"slack"`
}

// encode writes v as JSON or YAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshaling output: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}

func printSchedule(w io.Writer, format string, res *schedule.Result) error {
	g := res.Graph
	if format != "text" {
		return encode(w, format, scheduleReport{
			Project: g.Name,
			Start:   g.Start(),
			End:     g.End(),
			Tasks:   wbs.ToRaws(g.Tasks()),
			Usage:   res.Usage.Rows(),
		})
	}

	from, to := g.Start(), g.End()
	fmt.Fprintf(w, "Project: %s\n", g.Name)
	if from != nil && to != nil {
		fmt.Fprintf(w, "Span:    %s → %s\n\n", formatTime(from), formatTime(to))
	}
	fmt.Fprintf(w, "%-2s %-28s %-10s %-16s %-16s %7s\n", "", "TASK", "RESOURCE", "START", "END", "EST")
	for _, t := range g.Tasks() {
		name := strings.Repeat("  ", len(t.AllParents())) + label(t)
		est := "-"
		if e, ok := t.Estimate(); ok {
			est = fmt.Sprintf("%.1f", e)
		}
		line := fmt.Sprintf("%-2s %-28s %-10s %-16s %-16s %7s", taskIcon(t), truncate(name, 28),
			truncate(orDefault(t.Resource, resource.DefaultName), 10), formatTime(t.Start), formatTime(t.End), est)
		if from != nil && to != nil && t.Start != nil && t.End != nil {
			line += " " + renderBar(*t.Start, *t.End, *from, *to, barWidth)
		}
		fmt.Fprintln(w, line)
	}

	if len(res.Resources) > 0 {
		fmt.Fprintf(w, "\nResources:\n")
		for _, r := range res.Resources {
			var total float64
			days := res.Usage.ByResource(r.Name)
			for _, u := range days {
				total += u
			}
			fmt.Fprintf(w, "  %-12s %8.1f units over %d days\n", r.Name, total, len(days))
		}
	}
	return nil
}

func printCritical(w io.Writer, format string, g *wbs.WBS, res *critpath.Result) error {
	report := criticalReport{
		Project:  g.Name,
		Duration: res.Duration,
		Critical: make([]criticalTask, 0, len(res.Critical)),
		Slack:    res.Slack,
	}
	for _, t := range res.Critical {
		report.Critical = append(report.Critical, criticalTask{ID: t.ID(), Name: t.Name, Start: t.Start, End: t.End})
	}
	if format != "text" {
		return encode(w, format, report)
	}

	fmt.Fprintf(w, "Project:  %s\n", g.Name)
	fmt.Fprintf(w, "Duration: %.1f units\n\n", res.Duration)
	fmt.Fprintln(w, "Critical path:")
	if len(res.Critical) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, t := range res.Critical {
		fmt.Fprintf(w, "  %-28s %-16s %-16s\n", truncate(label(t), 28), formatTime(t.Start), formatTime(t.End))
	}

	ids := make([]string, 0, len(res.Slack))
	for id, s := range res.Slack {
		if s > 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Slice(ids, func(i, j int) bool {
		if res.Slack[ids[i]] != res.Slack[ids[j]] {
			return res.Slack[ids[i]] < res.Slack[ids[j]]
		}
		return ids[i] < ids[j]
	})
	fmt.Fprintln(w, "\nSlack:")
	for _, id := range ids {
		fmt.Fprintf(w, "  %-28s %8.1f\n", truncate(id, 28), res.Slack[id])
	}
	return nil
}

func label(t *wbs.Task) string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

// renderBar draws [start, end] as a segment of the [from, to] span. A
// zero-length task still gets one block.
func renderBar(start, end, from, to time.Time, width int) string {
	span := to.Sub(from)
	if span <= 0 {
		return "[" + strings.Repeat("█", width) + "]"
	}
	pos := func(t time.Time, round func(float64) float64) int {
		x := int(round(float64(t.Sub(from)) / float64(span) * float64(width)))
		return min(max(x, 0), width)
	}
	lo, hi := pos(start, math.Floor), pos(end, math.Ceil)
	if hi <= lo {
		if lo >= width {
			lo = width - 1
		}
		hi = lo + 1
	}
	return "[" + strings.Repeat("░", lo) + strings.Repeat("█", hi-lo) + strings.Repeat("░", width-hi) + "]"
}

func taskIcon(t *wbs.Task) string {
	switch {
	case t.Milestone:
		return "◆"
	case !t.IsLeaf():
		return "▸"
	default:
		return "•"
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
