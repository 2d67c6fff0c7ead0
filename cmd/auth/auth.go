// Package auth provides the login, logout, register and whoami commands.
package auth

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/argiloff/archaeotools-cms/internal/api"
	"github.com/argiloff/archaeotools-cms/internal/app"
	"github.com/argiloff/archaeotools-cms/internal/session"
)

// LoginCommand signs in and persists the session.
func LoginCommand(a *app.App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}
			tokens, err := a.API.Login(cmd.Context(), api.Credentials{Email: email, Password: pw})
			if err != nil {
				return err
			}
			a.Session.SetTokens(tokens.AccessToken, tokens.RefreshToken)

			user, err := a.API.Me(cmd.Context())
			if err != nil {
				return err
			}
			// Tokens and profile land in the session as one mutation so
			// observers never see a half-populated session.
			a.Session.SetSession(tokens.AccessToken, tokens.RefreshToken, user)

			fmt.Printf("Signed in as %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// LogoutCommand revokes the refresh token and clears the local session.
func LogoutCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if refreshToken := a.Session.RefreshToken(); refreshToken != "" {
				// Best effort: the local session is cleared even when the
				// backend revocation fails.
				if err := a.API.Logout(cmd.Context(), refreshToken); err != nil {
					fmt.Fprintf(os.Stderr, "warning: server-side logout failed: %v\n", err)
				}
			}
			a.Session.Clear()
			a.ClearCurrentProject()
			fmt.Println("Signed out")
			return nil
		},
	}
}

// RegisterCommand creates an account and signs in.
func RegisterCommand(a *app.App) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}
			tokens, err := a.API.Register(cmd.Context(), api.RegisterParams{
				Email:    email,
				Password: pw,
				Name:     name,
			})
			if err != nil {
				return err
			}
			a.Session.SetTokens(tokens.AccessToken, tokens.RefreshToken)

			user, err := a.API.Me(cmd.Context())
			if err != nil {
				return err
			}
			a.Session.SetSession(tokens.AccessToken, tokens.RefreshToken, user)

			fmt.Printf("Account created, signed in as %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// WhoamiCommand prints the current session.
func WhoamiCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := a.Session.Snapshot()
			if !snap.Authenticated() {
				fmt.Println("Not signed in")
				return nil
			}
			if snap.User == nil {
				// Session restored from disk without a cached profile.
				user, err := a.API.Me(cmd.Context())
				if err != nil {
					return err
				}
				snap.User = user
				a.Session.SetUser(user)
			}
			fmt.Printf("%s", snap.User.Email)
			if len(snap.User.Roles) > 0 {
				fmt.Printf(" (%s)", strings.Join(roleNames(snap.User.Roles), ", "))
			}
			fmt.Println()
			return nil
		},
	}
}

func roleNames(roles []session.RoleName) []string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, strings.ToLower(string(role)))
	}
	return names
}

func resolvePassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}
