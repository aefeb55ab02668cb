package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
	gosync "github.com/nhle/taskflow/internal/sync"
	"github.com/nhle/taskflow/internal/validate"
)

func newTaskCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Task commands",
	}
	cmd.AddCommand(newTaskAddCmd(env))
	cmd.AddCommand(newTaskListCmd(env))
	cmd.AddCommand(newTaskShowCmd(env))
	cmd.AddCommand(newTaskEditCmd(env))
	cmd.AddCommand(newTaskDoneCmd(env))
	cmd.AddCommand(newTaskRmCmd(env))
	cmd.AddCommand(newTaskRestoreCmd(env))
	cmd.AddCommand(newTaskReorderCmd(env))
	return cmd
}

func newTaskAddCmd(env *Env) *cobra.Command {
	var (
		desc     string
		priority string
		due      string
		category string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := validate.TaskInput{
				Title:       strings.Join(args, " "),
				Description: desc,
				Priority:    priority,
			}
			if due != "" {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				in.DueDate = &d
			}

			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				if category != "" {
					id, err := lookupCategory(ctx, a, p.ID, category)
					if err != nil {
						return err
					}
					in.CategoryID = id
				}
				task, err := unwrap(a.Tasks(p.ID).Create(ctx, in))
				if err != nil {
					return err
				}
				return env.emit(cmd, task, fmt.Sprintf("Created task %s %q", shortID(task.ID), task.Title))
			})
		},
	}

	cmd.Flags().StringVar(&desc, "desc", "", "Description")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low|medium|high)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD or \"YYYY-MM-DD HH:MM\")")
	cmd.Flags().StringVar(&category, "category", "", "Category name or id")
	return cmd
}

func newTaskListCmd(env *Env) *cobra.Command {
	var (
		pending   bool
		completed bool
		deleted   bool
		category  string
		priority  string
		query     string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pending && completed {
				return fmt.Errorf("--pending and --completed are mutually exclusive")
			}
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				filter := store.TaskFilter{IncludeDeleted: deleted, Limit: limit}
				switch {
				case pending:
					filter.Completed = boolPtr(false)
				case completed:
					filter.Completed = boolPtr(true)
				}
				if priority != "" {
					pr := model.Priority(priority)
					if !pr.Valid() {
						return fmt.Errorf("invalid priority %q", priority)
					}
					filter.Priority = &pr
				}
				if query != "" {
					filter.Query = &query
				}

				cats, err := unwrap(a.Categories(p.ID).Load(ctx))
				if err != nil {
					return err
				}
				if category != "" {
					id := "none"
					if category != "none" {
						if id, err = resolveCategory(cats, category); err != nil {
							return err
						}
					}
					filter.CategoryID = &id
				}

				tasks, err := unwrap(a.Tasks(p.ID).Load(ctx, filter))
				if err != nil {
					return err
				}
				if env.JSON {
					return env.writeJSON(cmd, tasks)
				}
				if len(tasks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), taskTable(tasks, cats, a.Now()))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "Only open tasks")
	cmd.Flags().BoolVar(&completed, "completed", false, "Only completed tasks")
	cmd.Flags().BoolVar(&deleted, "deleted", false, "Include deleted tasks")
	cmd.Flags().StringVar(&category, "category", "", "Category name or id (\"none\" for uncategorized)")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low|medium|high)")
	cmd.Flags().StringVar(&query, "query", "", "Search title and description")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of tasks")
	return cmd
}

func taskTable(tasks []model.Task, cats []model.Category, now time.Time) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		title := t.Title
		if t.IsDeleted() {
			title += " (deleted)"
		}
		rows = append(rows, []string{
			shortID(t.ID),
			checkMark(t.IsCompleted),
			string(t.Priority),
			title,
			formatDue(t.DueDate, now),
			categoryName(cats, t.CategoryID),
		})
	}
	return renderTable([]string{"ID", "✓", "PRIORITY", "TITLE", "DUE", "CATEGORY"}, rows)
}

func newTaskShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				tasks, id, err := loadTask(ctx, a, p.ID, args[0], false)
				if err != nil {
					return err
				}
				task, _ := tasks.Get(id)

				subs := a.Subtasks(p.ID, id)
				list, err := unwrap(subs.Load(ctx))
				if err != nil {
					return err
				}
				progress := subs.Progress()

				if env.JSON {
					return env.writeJSON(cmd, map[string]any{
						"task":     task,
						"subtasks": list,
						"progress": progress,
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s  %s\n", shortID(task.ID), task.Title)
				fmt.Fprintf(out, "priority: %s\n", task.Priority)
				if task.DueDate != nil {
					fmt.Fprintf(out, "due:      %s\n", formatDue(task.DueDate, a.Now()))
				}
				if task.IsCompleted {
					fmt.Fprintln(out, "status:   completed")
				}
				if task.Description != nil && *task.Description != "" {
					fmt.Fprintf(out, "\n%s\n", *task.Description)
				}
				if progress.Total > 0 {
					fmt.Fprintf(out, "\nsubtasks %d/%d (%d%%)\n", progress.Done, progress.Total, progress.Percent)
					fmt.Fprintln(out, subtaskTable(list))
				}
				return nil
			})
		},
	}
}

func newTaskEditCmd(env *Env) *cobra.Command {
	var (
		title         string
		desc          string
		priority      string
		due           string
		clearDue      bool
		category      string
		clearCategory bool
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("desc") {
				patch.Description = &desc
			}
			if flags.Changed("priority") {
				pr := model.Priority(priority)
				patch.Priority = &pr
			}
			if flags.Changed("due") {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				patch.DueDate = &d
			}
			patch.ClearDueDate = clearDue
			patch.ClearCategory = clearCategory

			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				if flags.Changed("category") {
					id, err := lookupCategory(ctx, a, p.ID, category)
					if err != nil {
						return err
					}
					patch.CategoryID = &id
				}

				tasks, id, err := loadTask(ctx, a, p.ID, args[0], false)
				if err != nil {
					return err
				}
				task, err := unwrap(tasks.Update(ctx, id, patch))
				if err != nil {
					return err
				}
				return env.emit(cmd, task, fmt.Sprintf("Updated task %s %q", shortID(task.ID), task.Title))
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&desc, "desc", "", "New description")
	cmd.Flags().StringVar(&priority, "priority", "", "New priority (low|medium|high)")
	cmd.Flags().StringVar(&due, "due", "", "New due date")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	cmd.Flags().StringVar(&category, "category", "", "Move to category (name or id)")
	cmd.Flags().BoolVar(&clearCategory, "clear-category", false, "Remove from its category")
	cmd.MarkFlagsMutuallyExclusive("due", "clear-due")
	cmd.MarkFlagsMutuallyExclusive("category", "clear-category")
	return cmd
}

func newTaskDoneCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task between open and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				tasks, id, err := loadTask(ctx, a, p.ID, args[0], false)
				if err != nil {
					return err
				}
				task, err := unwrap(tasks.ToggleComplete(ctx, id))
				if err != nil {
					return err
				}
				verb := "Reopened"
				if task.IsCompleted {
					verb = "Completed"
				}
				return env.emit(cmd, task, fmt.Sprintf("%s task %s %q", verb, shortID(task.ID), task.Title))
			})
		},
	}
}

func newTaskRmCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task (restorable)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				tasks, id, err := loadTask(ctx, a, p.ID, args[0], false)
				if err != nil {
					return err
				}
				task, err := unwrap(tasks.Delete(ctx, id))
				if err != nil {
					return err
				}
				return env.emit(cmd, task, fmt.Sprintf("Deleted task %s; undo with `taskflow task restore %s`", shortID(id), shortID(id)))
			})
		},
	}
}

func newTaskRestoreCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a deleted task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				tasks, id, err := loadTask(ctx, a, p.ID, args[0], true)
				if err != nil {
					return err
				}
				task, err := unwrap(tasks.Restore(ctx, id))
				if err != nil {
					return err
				}
				return env.emit(cmd, task, fmt.Sprintf("Restored task %s %q", shortID(task.ID), task.Title))
			})
		},
	}
}

func newTaskReorderCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <id>...",
		Short: "Put tasks first, in the given order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				tasks := a.Tasks(p.ID)
				items, err := unwrap(tasks.Load(ctx, store.TaskFilter{}))
				if err != nil {
					return err
				}
				ids := make([]string, len(args))
				for i, arg := range args {
					if ids[i], err = resolveID(items, taskIDOf, "task", arg); err != nil {
						return err
					}
				}
				if _, err := unwrap(tasks.Reorder(ctx, ids)); err != nil {
					return err
				}
				return env.emit(cmd, tasks.Items(), fmt.Sprintf("Reordered %d tasks", len(ids)))
			})
		},
	}
}

func taskIDOf(t model.Task) string { return t.ID }

// loadTask loads the user's tasks and resolves prefix among them.
func loadTask(ctx context.Context, a *app.App, userID, prefix string, includeDeleted bool) (*gosync.Tasks, string, error) {
	tasks := a.Tasks(userID)
	items, err := unwrap(tasks.Load(ctx, store.TaskFilter{IncludeDeleted: includeDeleted}))
	if err != nil {
		return nil, "", err
	}
	id, err := resolveID(items, taskIDOf, "task", prefix)
	if err != nil {
		return nil, "", err
	}
	return tasks, id, nil
}

// lookupCategory resolves a category name or id prefix.
func lookupCategory(ctx context.Context, a *app.App, userID, ref string) (string, error) {
	cats, err := unwrap(a.Categories(userID).Load(ctx))
	if err != nil {
		return "", err
	}
	return resolveCategory(cats, ref)
}

func resolveCategory(cats []model.Category, ref string) (string, error) {
	for _, c := range cats {
		if strings.EqualFold(c.Name, strings.TrimSpace(ref)) {
			return c.ID, nil
		}
	}
	return resolveID(cats, func(c model.Category) string { return c.ID }, "category", ref)
}

func boolPtr(b bool) *bool { return &b }
