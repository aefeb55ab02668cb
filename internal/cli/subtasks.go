package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/model"
	gosync "github.com/nhle/taskflow/internal/sync"
)

func newSubtaskCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subtask",
		Aliases: []string{"subtasks", "sub"},
		Short:   "Checklist commands for a task",
	}
	cmd.AddCommand(newSubtaskAddCmd(env))
	cmd.AddCommand(newSubtaskListCmd(env))
	cmd.AddCommand(newSubtaskToggleCmd(env))
	cmd.AddCommand(newSubtaskEditCmd(env))
	cmd.AddCommand(newSubtaskRmCmd(env))
	return cmd
}

func newSubtaskAddCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "add <task> <title>",
		Short: "Append a subtask",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				subs, err := loadSubtasks(ctx, a, p.ID, args[0])
				if err != nil {
					return err
				}
				st, err := unwrap(subs.Create(ctx, strings.Join(args[1:], " ")))
				if err != nil {
					return err
				}
				return env.emit(cmd, st, fmt.Sprintf("Added subtask %s %q", shortID(st.ID), st.Title))
			})
		},
	}
}

func newSubtaskListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list <task>",
		Short: "List a task's subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				subs, err := loadSubtasks(cmd.Context(), a, p.ID, args[0])
				if err != nil {
					return err
				}
				items := subs.Items()
				if env.JSON {
					return env.writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No subtasks.")
					return nil
				}
				pr := subs.Progress()
				fmt.Fprintln(cmd.OutOrStdout(), subtaskTable(items))
				fmt.Fprintf(cmd.OutOrStdout(), "%d/%d done (%d%%)\n", pr.Done, pr.Total, pr.Percent)
				return nil
			})
		},
	}
}

func newSubtaskToggleCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "toggle <task> <subtask>",
		Aliases: []string{"done"},
		Short:   "Check or uncheck a subtask",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				subs, id, err := findSubtask(ctx, a, p.ID, args[0], args[1])
				if err != nil {
					return err
				}
				st, err := unwrap(subs.Toggle(ctx, id))
				if err != nil {
					return err
				}
				pr := subs.Progress()
				return env.emit(cmd, st, fmt.Sprintf("[%s] %s  (%d/%d)", checkMark(st.IsCompleted), st.Title, pr.Done, pr.Total))
			})
		},
	}
}

func newSubtaskEditCmd(env *Env) *cobra.Command {
	var (
		title string
		order int
	)

	cmd := &cobra.Command{
		Use:   "edit <task> <subtask>",
		Short: "Rename or move a subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.SubtaskPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("order") {
				patch.SortOrder = &order
			}

			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				subs, id, err := findSubtask(ctx, a, p.ID, args[0], args[1])
				if err != nil {
					return err
				}
				st, err := unwrap(subs.Update(ctx, id, patch))
				if err != nil {
					return err
				}
				return env.emit(cmd, st, fmt.Sprintf("Updated subtask %s %q", shortID(st.ID), st.Title))
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().IntVar(&order, "order", 0, "New sort order")
	return cmd
}

func newSubtaskRmCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task> <subtask>",
		Aliases: []string{"delete"},
		Short:   "Delete a subtask",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				subs, id, err := findSubtask(ctx, a, p.ID, args[0], args[1])
				if err != nil {
					return err
				}
				if _, err := unwrap(subs.Delete(ctx, id)); err != nil {
					return err
				}
				return env.emit(cmd, map[string]string{"id": id}, fmt.Sprintf("Deleted subtask %s", shortID(id)))
			})
		},
	}
}

func subtaskTable(items []model.Subtask) string {
	rows := make([][]string, 0, len(items))
	for _, st := range items {
		rows = append(rows, []string{shortID(st.ID), checkMark(st.IsCompleted), strconv.Itoa(st.SortOrder), st.Title})
	}
	return renderTable([]string{"ID", "✓", "#", "TITLE"}, rows)
}

// loadSubtasks resolves the parent task and loads its checklist.
func loadSubtasks(ctx context.Context, a *app.App, userID, taskRef string) (*gosync.Subtasks, error) {
	_, taskID, err := loadTask(ctx, a, userID, taskRef, false)
	if err != nil {
		return nil, err
	}
	subs := a.Subtasks(userID, taskID)
	if _, err := unwrap(subs.Load(ctx)); err != nil {
		return nil, err
	}
	return subs, nil
}

func findSubtask(ctx context.Context, a *app.App, userID, taskRef, subRef string) (*gosync.Subtasks, string, error) {
	subs, err := loadSubtasks(ctx, a, userID, taskRef)
	if err != nil {
		return nil, "", err
	}
	id, err := resolveID(subs.Items(), func(s model.Subtask) string { return s.ID }, "subtask", subRef)
	if err != nil {
		return nil, "", err
	}
	return subs, id, nil
}
