package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/validate"
)

func newAuthCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign up, sign in and out",
	}
	cmd.AddCommand(newAuthSignupCmd(env))
	cmd.AddCommand(newAuthLoginCmd(env))
	cmd.AddCommand(newAuthLogoutCmd(env))
	cmd.AddCommand(newAuthWhoamiCmd(env))
	return cmd
}

func newAuthSignupCmd(env *Env) *cobra.Command {
	var in validate.SignUpInput

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				pw, err := promptPassword("Choose a password")
				if err != nil {
					return err
				}
				in.Password = pw
			}
			return env.withApp(cmd, func(a *app.App) error {
				profile, err := a.Auth.SignUp(cmd.Context(), in)
				if err != nil {
					return err
				}
				return env.emit(cmd, profile, fmt.Sprintf("Signed up as %s", profile.Email))
			})
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&in.FullName, "name", "", "Full name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAuthLoginCmd(env *Env) *cobra.Command {
	var in validate.SignInInput

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				pw, err := promptPassword("Password")
				if err != nil {
					return err
				}
				in.Password = pw
			}
			return env.withApp(cmd, func(a *app.App) error {
				profile, err := a.Auth.SignIn(cmd.Context(), in)
				if err != nil {
					return err
				}
				return env.emit(cmd, profile, fmt.Sprintf("Signed in as %s", profile.Email))
			})
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAuthLogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(cmd, func(a *app.App) error {
				if err := a.Auth.SignOut(); err != nil {
					return err
				}
				return env.emit(cmd, map[string]bool{"signed_out": true}, "Signed out")
			})
		},
	}
}

func newAuthWhoamiCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, func(_ *app.App, p *model.Profile) error {
				text := p.Email
				if p.FullName != "" {
					text = fmt.Sprintf("%s <%s>", p.FullName, p.Email)
				}
				return env.emit(cmd, p, text)
			})
		},
	}
}

// promptPassword reads a password without echoing it.
func promptPassword(title string) (string, error) {
	var pw string
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&pw).
		Run()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return pw, nil
}
