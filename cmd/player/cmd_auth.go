package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"novel-client/internal/client"
	"novel-client/internal/models"
	"novel-client/internal/userstore"
)

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var err error
			if username == "" {
				if username, err = a.console.Prompt("Username"); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = a.console.Prompt("Password"); err != nil {
					return err
				}
			}

			authAPI, err := client.NewAuthClient(a.api, a.log)
			if err != nil {
				return err
			}
			user, err := loginAndRemember(ctx, authAPI, a.users, username, password)
			if err != nil {
				return err
			}
			a.console.Infof("Logged in as %s (%s)", user.Username, strings.Join(user.Roles, ", "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted when empty)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when empty)")
	return cmd
}

// loginAndRemember получает токен и сохраняет запись о пользователе. Пароль не сохраняется.
func loginAndRemember(ctx context.Context, authAPI client.AuthAPI, users userstore.Store, username, password string) (*models.CurrentUser, error) {
	resp, err := authAPI.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	user := &models.CurrentUser{
		UserID:      resp.User.ID,
		Username:    resp.User.Username,
		Roles:       resp.User.Roles,
		AccessToken: resp.AccessToken,
		ExpiresAt:   resp.ExpiresAt,
		SavedAt:     time.Now().UTC(),
	}
	if err := users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("logged in, but failed to remember the user: %w", err)
	}
	return user, nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the remembered user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.users.Clear(cmd.Context()); err != nil {
				return err
			}
			a.console.Infof("Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the remembered user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.users.Load(cmd.Context())
			if errors.Is(err, models.ErrNoCurrentUser) {
				a.console.Infof("Not logged in")
				return nil
			}
			if err != nil {
				return err
			}
			a.console.Infof("%s (id %s), roles: %s, token expires %s",
				user.Username, user.UserID, strings.Join(user.Roles, ", "), user.ExpiresAt.Local().Format(time.RFC3339))
			return nil
		},
	}
}
