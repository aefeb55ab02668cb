package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/model"
)

func newConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration file and secrets",
	}
	cmd.AddCommand(newConfigInitCmd(env))
	cmd.AddCommand(newConfigShowCmd(env))
	cmd.AddCommand(newConfigMailboxPasswordCmd(env))
	return cmd
}

func newConfigInitCmd(env *Env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(env.ConfigPath); err == nil && !force {
				return fmt.Errorf("%s already exists; pass --force to overwrite", env.ConfigPath)
			}
			if err := model.SaveConfig(env.ConfigPath, model.DefaultAppConfig()); err != nil {
				return err
			}
			return env.emit(cmd, map[string]string{"path": env.ConfigPath}, "Wrote "+env.ConfigPath)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := model.LoadConfig(env.ConfigPath)
			if err != nil {
				return err
			}
			cfg.Realtime.RedisPassword = redact(cfg.Realtime.RedisPassword)
			if env.JSON {
				return env.writeJSON(cmd, cfg)
			}

			n := cfg.Notifications
			rows := [][]string{
				{"config", env.ConfigPath},
				{"database.path", cfg.Database.Path},
				{"notifications.reminder_interval_sec", fmt.Sprint(n.ReminderIntervalSec)},
				{"notifications.lookahead_hours", fmt.Sprint(n.LookaheadHours)},
				{"notifications.coalesce_repeats", fmt.Sprint(n.CoalesceRepeats)},
				{"notifications.max_items", fmt.Sprint(n.MaxItems)},
				{"notifications.display_rate_per_min", fmt.Sprint(n.DisplayRatePerMin)},
				{"notifications.webhook_url", n.WebhookURL},
				{"notifications.mailbox.host", n.Mailbox.Host},
				{"notifications.mailbox.username", n.Mailbox.Username},
				{"realtime.redis_addr", cfg.Realtime.RedisAddr},
				{"log.level", cfg.Log.Level},
				{"log.file", cfg.Log.File},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"KEY", "VALUE"}, rows))
			return nil
		},
	}
}

func newConfigMailboxPasswordCmd(env *Env) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "mailbox-password",
		Short: "Store the IMAP password in the system keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				pw, err := promptPassword("IMAP password")
				if err != nil {
					return err
				}
				password = pw
			}
			if password == "" {
				return fmt.Errorf("password must not be empty")
			}
			if err := env.secretStore().Set(app.MailboxPasswordKey, password); err != nil {
				return fmt.Errorf("storing mailbox password: %w", err)
			}
			return env.emit(cmd, map[string]bool{"stored": true}, "Mailbox password stored")
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
