package cli

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/auth"
	"github.com/nhle/taskflow/internal/model"
)

func newWatchCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Open the live notification centre",
		Long: `Open the live notification centre.

While it runs, reminders are checked in the background and changes made
from other terminals appear as they happen. Logs go to the configured
log file so they do not disturb the screen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := env.open(cmd, func(cfg *model.AppConfig) {
				if cfg.Log.File == "" {
					cfg.Log.File = model.DefaultLogPath()
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			profile, err := a.Resume(ctx)
			if errors.Is(err, auth.ErrNoSession) {
				return errNotSignedIn
			}
			if err != nil {
				return err
			}
			if a.Center.Preferences().BrowserNotifications {
				a.Controller.RequestPermission(ctx)
			}

			m := app.NewModel(a, profile)
			defer m.Release()

			if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
				return fmt.Errorf("running notification centre: %w", err)
			}
			return nil
		},
	}
}
