// Package cachectl provides the cache command group for backend cache
// management.
package cachectl

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/argiloff/archaeotools-cms/internal/app"
)

// Command creates and returns the cache command.
func Command(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the backend cache",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.RequireAuth()
		},
	}

	cmd.AddCommand(
		metricsCommand(a),
		invalidateCommand(a),
		recomputeCommand(a),
	)
	return cmd
}

func metricsCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show backend cache metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics, err := a.API.GetCacheMetrics(cmd.Context())
			if err != nil {
				return err
			}
			if metrics.HitRate == nil && len(metrics.LastInvalidations) == 0 {
				fmt.Println("Cache metrics are not available on this backend")
				return nil
			}
			if metrics.HitRate != nil {
				fmt.Printf("Hit rate: %.1f%%\n", *metrics.HitRate*100)
			}
			for _, inv := range metrics.LastInvalidations {
				fmt.Printf("Invalidated %s at %s\n", inv.ProjectID, inv.At.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func invalidateCommand(a *app.App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Invalidate the backend cache of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.ResolveProject(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if err := a.API.InvalidateProjectCache(cmd.Context(), projectID); err != nil {
				return err
			}
			a.Cache.InvalidateScope(projectID)
			fmt.Printf("Invalidated cache for project %s\n", projectID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	return cmd
}

func recomputeCommand(a *app.App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "recompute-summary",
		Short: "Rebuild the aggregate summary of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.ResolveProject(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if err := a.API.RecomputeProjectSummary(cmd.Context(), projectID); err != nil {
				return err
			}
			fmt.Printf("Summary recompute requested for project %s\n", projectID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	return cmd
}
