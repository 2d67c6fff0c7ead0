// Package cmd assembles the archaeotools command tree.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/argiloff/archaeotools-cms/cmd/auth"
	"github.com/argiloff/archaeotools-cms/cmd/bulkimport"
	"github.com/argiloff/archaeotools-cms/cmd/cachectl"
	"github.com/argiloff/archaeotools-cms/cmd/osint"
	"github.com/argiloff/archaeotools-cms/cmd/photos"
	"github.com/argiloff/archaeotools-cms/cmd/places"
	"github.com/argiloff/archaeotools-cms/cmd/projects"
	"github.com/argiloff/archaeotools-cms/cmd/quality"
	"github.com/argiloff/archaeotools-cms/internal/app"
)

// RootCommand creates and returns the root command.
func RootCommand(a *app.App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "archaeotools",
		Short:         "ArchaeoTools CMS CLI",
		Long:          "Command line client for the ArchaeoTools field documentation backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, a)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Flags may have overridden the API URL; rebuild the client so
		// the override is honored.
		return a.Reconfigure()
	}

	rootCmd.AddCommand(
		auth.LoginCommand(a),
		auth.LogoutCommand(a),
		auth.RegisterCommand(a),
		auth.WhoamiCommand(a),
		projects.Command(a),
		places.Command(a),
		photos.Command(a),
		osint.Command(a),
		cachectl.Command(a),
		bulkimport.Command(a),
		quality.Command(a),
	)

	return rootCmd
}

func setupFlags(rootCmd *cobra.Command, a *app.App) {
	rootCmd.PersistentFlags().BoolVarP(&a.Settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&a.Settings.API.BaseURL, "api-url", viper.GetString("api.baseurl"), "Backend API base URL")

	_ = viper.BindPFlags(rootCmd.PersistentFlags())
}
