package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/fittrack-backend/internal/client/api"
)

func newSignupCommand(o *options) *cobra.Command {
	var email, username, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := o.password(password, "Password: ")
			if err != nil {
				return o.report(cmd, "signup", nil, err)
			}
			if password == "" && !o.ci {
				confirm, err := o.prompter.Password("Confirm password: ")
				if err != nil {
					return o.report(cmd, "signup", nil, err)
				}
				if confirm != pw {
					return o.report(cmd, "signup", nil, errors.New("passwords do not match"))
				}
			}
			return o.execute(cmd, "signup", func(ctx context.Context, c *api.Client) ([]string, error) {
				id, err := c.Signup(ctx, email, username, pw)
				if err != nil {
					return nil, err
				}
				return []string{"user_id=" + id}, nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newLoginCommand(o *options) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and cache the session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := o.password(password, "Password: ")
			if err != nil {
				return o.report(cmd, "login", nil, err)
			}
			return o.execute(cmd, "login", func(ctx context.Context, c *api.Client) ([]string, error) {
				if err := c.Login(ctx, email, pw); err != nil {
					return nil, err
				}
				return []string{"logged in as " + email}, nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.execute(cmd, "logout", func(ctx context.Context, c *api.Client) ([]string, error) {
				return []string{"session cleared"}, c.Logout(ctx)
			})
		},
	}
}

func newWhoamiCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.execute(cmd, "whoami", func(ctx context.Context, c *api.Client) ([]string, error) {
				me, err := c.Me(ctx)
				if err != nil {
					return nil, err
				}
				return []string{"id=" + me.ID, "email=" + me.Email, "username=" + me.Username}, nil
			})
		},
	}
}

func newStatusCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the cached session is still valid",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.execute(cmd, "status", func(ctx context.Context, c *api.Client) ([]string, error) {
				ok, err := c.ValidateSession(ctx)
				if err != nil {
					return nil, err
				}
				if !ok {
					return []string{"session: none"}, api.ErrNotLoggedIn
				}
				return []string{fmt.Sprintf("session: valid (%s)", o.server)}, nil
			})
		},
	}
}
