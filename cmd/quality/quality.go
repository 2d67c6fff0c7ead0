// Package quality provides the quality report and intel summary commands.
package quality

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/argiloff/archaeotools-cms/internal/app"
	"github.com/argiloff/archaeotools-cms/internal/quality"
)

// Command creates and returns the quality command.
func Command(a *app.App) *cobra.Command {
	var (
		projectID string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:     "quality",
		Aliases: []string{"intel", "status"},
		Short:   "Report documentation quality of the current project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.RequireAuth(); err != nil {
				return err
			}
			projectID, err := a.ResolveProject(cmd.Context(), projectID)
			if err != nil {
				return err
			}

			report, err := quality.Collect(cmd.Context(), a.API, projectID)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			printReport(report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the report as JSON")
	return cmd
}

func printReport(report *quality.Report) {
	s := report.Stats
	fmt.Printf("Project %s\n\n", report.ProjectID)
	fmt.Printf("Places: %d (%d described, %d visited, %d with coordinates)\n",
		s.Places, s.PlacesWithDescription, s.PlacesVisited, s.PlacesWithCoordinates)
	fmt.Printf("Photos: %d (%d with GPS, %d described, %d tagged)\n",
		s.Photos, s.PhotosWithGPS, s.PhotosWithDescription, s.PhotosWithTags)
	fmt.Printf("Research: %d (%d sourced, %d done, %d summarized)\n\n",
		s.OsintItems, s.OsintWithSource, s.OsintDone, s.OsintWithSummary)
	fmt.Printf("Quality score: %d/100 (%d of 9 targets met)\n", report.Score, report.MetricsMet)

	if len(report.Issues) == 0 {
		fmt.Println("No issues found")
		return
	}
	fmt.Println("\nIssues:")
	for _, issue := range report.Issues {
		fmt.Printf("  [%s] %s\n", issue.Severity, issue.Message)
	}
}
