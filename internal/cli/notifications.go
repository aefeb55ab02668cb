package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/theme"
)

func newNotificationsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Reminder commands (use `taskflow watch` for the live centre)",
	}
	cmd.AddCommand(newNotificationsCheckCmd(env))
	return cmd
}

func newNotificationsCheckCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one due-date reminder pass and print what it raised",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(a *app.App, p *model.Profile) error {
				ctx := cmd.Context()
				// The gate is asked directly so no background scheduler
				// starts alongside this pass.
				if a.Center.Preferences().BrowserNotifications {
					a.Gate.RequestPermission(ctx)
				}

				emitted, err := a.Controller.CheckNow(ctx)
				if err != nil {
					return err
				}

				var raised []model.Notification
				for _, n := range a.Center.Items() {
					if !n.Read {
						raised = append(raised, n)
					}
				}
				a.Center.MarkAllAsRead()

				if env.JSON {
					return env.writeJSON(cmd, map[string]any{
						"emitted":       emitted,
						"notifications": raised,
					})
				}
				if len(raised) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No reminders due.")
					return nil
				}

				rows := make([][]string, 0, len(raised))
				for _, n := range raised {
					rows = append(rows, []string{
						theme.NotificationStyle(n.Type).Render(theme.NotificationIcon(n.Type)),
						n.Title,
						n.Message,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"", "TITLE", "MESSAGE"}, rows))
				return nil
			})
		},
	}
}
