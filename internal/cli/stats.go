package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/analytics"
	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
	"github.com/nhle/taskflow/internal/theme"
)

func newStatsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Task totals, completion rate and the last seven days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				now := a.Now()

				counts, err := a.Store.TaskStats(ctx, p.ID, now)
				if err != nil {
					return err
				}
				tasks, err := unwrap(a.Tasks(p.ID).Load(ctx, store.TaskFilter{}))
				if err != nil {
					return err
				}
				cats, err := unwrap(a.Categories(p.ID).Load(ctx))
				if err != nil {
					return err
				}
				summary := analytics.Summarize(tasks, cats, now)
				summary.TaskStats = *counts

				if env.JSON {
					return env.writeJSON(cmd, summary)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary))
				return nil
			})
		},
	}
}

func renderSummary(s analytics.Summary) string {
	var b strings.Builder

	b.WriteString(renderTable(
		[]string{"TOTAL", "DONE", "PENDING", "OVERDUE", "DUE TODAY", "RATE"},
		[][]string{{
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Completed),
			strconv.Itoa(s.Pending),
			strconv.Itoa(s.Overdue),
			strconv.Itoa(s.DueToday),
			fmt.Sprintf("%.0f%%", s.CompletionRate),
		}},
	))
	b.WriteString("\n")

	var prio []string
	for _, pr := range []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow} {
		prio = append(prio, theme.PriorityStyle(pr).Render(fmt.Sprintf("%s %d", pr, s.ByPriority[pr])))
	}
	b.WriteString("priority  " + strings.Join(prio, "  ") + "\n")

	if len(s.ByCategory) > 0 {
		rows := make([][]string, 0, len(s.ByCategory))
		for _, c := range s.ByCategory {
			rows = append(rows, []string{c.Name, strconv.Itoa(c.Total), strconv.Itoa(c.Completed)})
		}
		b.WriteString(renderTable([]string{"CATEGORY", "TASKS", "DONE"}, rows))
		b.WriteString("\n")
	}

	peak := 0
	for _, d := range s.CompletedByDay {
		peak = max(peak, d.Count)
	}
	bar := lipgloss.NewStyle().Foreground(theme.ColorGreen)
	b.WriteString("completed, last 7 days\n")
	for _, d := range s.CompletedByDay {
		width := 0
		if peak > 0 {
			width = d.Count * 20 / peak
		}
		fmt.Fprintf(&b, "  %s  %s %d\n", d.Day.Format("Mon 01-02"), bar.Render(strings.Repeat("█", width)), d.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}
