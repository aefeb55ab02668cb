package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/ui/prefsform"
)

func newPrefsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prefs",
		Aliases: []string{"preferences"},
		Short:   "Notification preferences",
	}
	cmd.AddCommand(newPrefsShowCmd(env))
	cmd.AddCommand(newPrefsSetCmd(env))
	cmd.AddCommand(newPrefsEditCmd(env))
	return cmd
}

func newPrefsShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(cmd, func(a *app.App) error {
				return env.printPrefs(cmd, a.Center.Preferences())
			})
		},
	}
}

func newPrefsSetCmd(env *Env) *cobra.Command {
	var (
		display     bool
		reminders   bool
		dueAlerts   bool
		completions bool
		minutes     int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change individual preferences",
		Example: `  taskflow prefs set --minutes 30
  taskflow prefs set --completions=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.PreferencesPatch
			flags := cmd.Flags()
			if flags.Changed("display") {
				patch.BrowserNotifications = &display
			}
			if flags.Changed("reminders") {
				patch.TaskReminders = &reminders
			}
			if flags.Changed("due-alerts") {
				patch.DueDateAlerts = &dueAlerts
			}
			if flags.Changed("completions") {
				patch.TaskCompletions = &completions
			}
			if flags.Changed("minutes") {
				if minutes <= 0 {
					return fmt.Errorf("--minutes must be positive")
				}
				patch.ReminderMinutes = &minutes
			}
			if patch == (model.PreferencesPatch{}) {
				return fmt.Errorf("nothing to change; see `taskflow prefs set --help`")
			}

			return env.withApp(cmd, func(a *app.App) error {
				return env.printPrefs(cmd, a.Center.UpdatePreferences(patch))
			})
		},
	}

	cmd.Flags().BoolVar(&display, "display", true, "Show notifications outside the app")
	cmd.Flags().BoolVar(&reminders, "reminders", true, "Remind before tasks are due")
	cmd.Flags().BoolVar(&dueAlerts, "due-alerts", true, "Alert when tasks become overdue")
	cmd.Flags().BoolVar(&completions, "completions", true, "Notify on task completion")
	cmd.Flags().IntVar(&minutes, "minutes", 60, "Reminder lead time in minutes")
	return cmd
}

func newPrefsEditCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit preferences in a form",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(cmd, func(a *app.App) error {
				patch, err := prefsform.Edit(a.Center.Preferences())
				if errors.Is(err, prefsform.ErrCancelled) {
					fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
					return nil
				}
				if err != nil {
					return err
				}
				return env.printPrefs(cmd, a.Center.UpdatePreferences(patch))
			})
		},
	}
}

func (e *Env) printPrefs(cmd *cobra.Command, p model.NotificationPreferences) error {
	if e.JSON {
		return e.writeJSON(cmd, p)
	}
	rows := [][]string{
		{"display", onOff(p.BrowserNotifications)},
		{"reminders", onOff(p.TaskReminders)},
		{"due-alerts", onOff(p.DueDateAlerts)},
		{"completions", onOff(p.TaskCompletions)},
		{"minutes", strconv.Itoa(p.ReminderMinutes) + " (" + prefsform.LeadTime(p.ReminderMinutes) + ")"},
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"SETTING", "VALUE"}, rows))
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
