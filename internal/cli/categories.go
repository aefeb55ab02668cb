package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/analytics"
	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
	"github.com/nhle/taskflow/internal/theme"
	"github.com/nhle/taskflow/internal/validate"
)

func newCategoryCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories", "cat"},
		Short:   "Category commands",
	}
	cmd.AddCommand(newCategoryAddCmd(env))
	cmd.AddCommand(newCategoryListCmd(env))
	cmd.AddCommand(newCategoryEditCmd(env))
	cmd.AddCommand(newCategoryRmCmd(env))
	return cmd
}

func newCategoryAddCmd(env *Env) *cobra.Command {
	var color, desc string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				cat, err := unwrap(a.Categories(p.ID).Create(cmd.Context(), validate.CategoryInput{
					Name:        args[0],
					Color:       color,
					Description: desc,
				}))
				if err != nil {
					return err
				}
				return env.emit(cmd, cat, fmt.Sprintf("Created category %s %q", shortID(cat.ID), cat.Name))
			})
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "Color (blue|green|purple|orange|red|yellow|pink|gray)")
	cmd.Flags().StringVar(&desc, "desc", "", "Description")
	return cmd
}

func newCategoryListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories with their task counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				cats, err := unwrap(a.Categories(p.ID).Load(ctx))
				if err != nil {
					return err
				}
				if env.JSON {
					return env.writeJSON(cmd, cats)
				}
				if len(cats) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No categories.")
					return nil
				}

				tasks, err := unwrap(a.Tasks(p.ID).Load(ctx, store.TaskFilter{}))
				if err != nil {
					return err
				}
				counts := analytics.TaskCounts(tasks)

				rows := make([][]string, 0, len(cats))
				for _, c := range cats {
					desc := ""
					if c.Description != nil {
						desc = *c.Description
					}
					rows = append(rows, []string{
						shortID(c.ID),
						theme.CategoryStyle(c.Color).Render(c.Name),
						string(c.Color),
						strconv.Itoa(counts[c.ID]),
						desc,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "NAME", "COLOR", "TASKS", "DESCRIPTION"}, rows))
				return nil
			})
		},
	}
}

func newCategoryEditCmd(env *Env) *cobra.Command {
	var name, color, desc string

	cmd := &cobra.Command{
		Use:   "edit <name|id>",
		Short: "Change a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.CategoryPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("color") {
				c := model.CategoryColor(color)
				patch.Color = &c
			}
			if flags.Changed("desc") {
				patch.Description = &desc
			}

			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				cats := a.Categories(p.ID)
				items, err := unwrap(cats.Load(ctx))
				if err != nil {
					return err
				}
				id, err := resolveCategory(items, args[0])
				if err != nil {
					return err
				}
				cat, err := unwrap(cats.Update(ctx, id, patch))
				if err != nil {
					return err
				}
				return env.emit(cmd, cat, fmt.Sprintf("Updated category %s %q", shortID(cat.ID), cat.Name))
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&color, "color", "", "New color")
	cmd.Flags().StringVar(&desc, "desc", "", "New description")
	return cmd
}

func newCategoryRmCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name|id>",
		Aliases: []string{"delete"},
		Short:   "Delete a category; its tasks become uncategorized",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				cats := a.Categories(p.ID)
				items, err := unwrap(cats.Load(ctx))
				if err != nil {
					return err
				}
				id, err := resolveCategory(items, args[0])
				if err != nil {
					return err
				}
				if _, err := unwrap(cats.Delete(ctx, id)); err != nil {
					return err
				}
				return env.emit(cmd, map[string]string{"id": id}, fmt.Sprintf("Deleted category %s", shortID(id)))
			})
		},
	}
}
