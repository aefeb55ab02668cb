// Package cli is the taskflow command line: account, task, category and
// subtask management, notification preferences, reminder checks and the
// interactive notification centre.
package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/auth"
	"github.com/nhle/taskflow/internal/credential"
	"github.com/nhle/taskflow/internal/model"
)

// errNotSignedIn is returned by commands that need a session.
var errNotSignedIn = errors.New("not signed in; run `taskflow auth login` or `taskflow auth signup`")

// Env carries the global flags and the pieces tests swap out.
type Env struct {
	ConfigPath string
	JSON       bool
	Pretty     bool

	secrets credential.SecretStore
	opts    []app.Option
}

// NewRootCmd builds the taskflow command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&Env{})
}

func newRootCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "taskflow",
		Short:        "Tasks with due-date reminders and live notifications",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Create an account and add a task due tomorrow
  taskflow auth signup --email me@example.com
  taskflow task add "Renew passport" --due 2026-11-02 --priority high

  # Run one reminder pass
  taskflow notifications check

  # Open the live notification centre
  taskflow watch
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&env.ConfigPath, "config", envOr("TASKFLOW_CONFIG", model.DefaultConfigPath()), "Path to config file")
	cmd.PersistentFlags().BoolVar(&env.JSON, "json", false, "Print JSON instead of tables")
	cmd.PersistentFlags().BoolVar(&env.Pretty, "pretty", false, "Indent JSON output")

	cmd.AddCommand(newAuthCmd(env))
	cmd.AddCommand(newTaskCmd(env))
	cmd.AddCommand(newCategoryCmd(env))
	cmd.AddCommand(newSubtaskCmd(env))
	cmd.AddCommand(newNotificationsCmd(env))
	cmd.AddCommand(newPrefsCmd(env))
	cmd.AddCommand(newStatsCmd(env))
	cmd.AddCommand(newWatchCmd(env))
	cmd.AddCommand(newConfigCmd(env))

	return cmd
}

// secretStore returns the store for session and mailbox secrets.
func (e *Env) secretStore() credential.SecretStore {
	if e.secrets == nil {
		e.secrets = credential.NewKeyring()
	}
	return e.secrets
}

// open loads the config, lets adjust tweak it and builds the application.
func (e *Env) open(cmd *cobra.Command, adjust func(*model.AppConfig)) (*app.App, error) {
	cfg, err := model.LoadConfig(e.ConfigPath)
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(cfg)
	}
	opts := append([]app.Option{app.WithSecrets(e.secretStore())}, e.opts...)
	return app.New(cmd.Context(), cfg, opts...)
}

// withApp runs fn with an application that needs no session.
func (e *Env) withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	a, err := e.open(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// withSession runs fn for the signed-in user and then prints any
// notifications the command produced.
func (e *Env) withSession(cmd *cobra.Command, fn func(a *app.App, p *model.Profile) error) error {
	return e.withApp(cmd, func(a *app.App) error {
		profile, err := a.Resume(cmd.Context())
		if errors.Is(err, auth.ErrNoSession) {
			return errNotSignedIn
		}
		if err != nil {
			return err
		}
		if err := fn(a, profile); err != nil {
			return err
		}
		e.printNotices(cmd, a)
		return nil
	})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
