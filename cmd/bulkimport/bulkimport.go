// Package bulkimport provides the import command for loading a demo
// dataset as a new project.
package bulkimport

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/argiloff/archaeotools-cms/internal/app"
	"github.com/argiloff/archaeotools-cms/internal/importer"
)

// Command creates and returns the import command.
func Command(a *app.App) *cobra.Command {
	var (
		dataset     string
		projectName string
		purge       bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a demo dataset as a new project",
		Long: "Fetches a dataset (URL or local file), creates a project and loads its " +
			"places and photos sequentially. With --purge every existing project is " +
			"deleted first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.RequireAuth(); err != nil {
				return err
			}

			opts := importer.Options{
				ProjectName:   projectName,
				Purge:         purge,
				PlaceDelay:    a.Settings.Import.PlaceDelay,
				PhotoDelay:    a.Settings.Import.PhotoDelay,
				DeleteDelay:   a.Settings.Import.DeleteDelay,
				RetryAttempts: a.Settings.Import.RetryAttempts,
				RetryBackoff:  a.Settings.Import.RetryBackoff,
				OnProgress:    printProgress,
			}
			if strings.HasPrefix(dataset, "http://") || strings.HasPrefix(dataset, "https://") {
				opts.DatasetURL = dataset
			} else {
				opts.DatasetPath = dataset
			}
			if opts.ProjectName == "" {
				opts.ProjectName = a.Settings.Import.ProjectName
			}

			pipeline := importer.New(a.API, a.Projects, a.Cache, opts)
			result, err := pipeline.Run(cmd.Context())
			if err != nil {
				return err
			}

			if err := a.SetCurrentProject(result.ProjectID); err != nil {
				return err
			}
			fmt.Printf("Imported %d places and %d photos into project %s (%d photos skipped)\n",
				result.PlacesCreated, result.PhotosUploaded, result.ProjectID, result.PhotosSkipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset URL or file path")
	cmd.Flags().StringVar(&projectName, "name", "", "Name for the created project")
	cmd.Flags().BoolVar(&purge, "purge", false, "Delete ALL existing projects before importing")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func printProgress(p importer.Progress) {
	switch p.Stage {
	case importer.StageCreatingPlaces:
		if p.PlacesTotal > 0 {
			fmt.Printf("\rCreating places %d/%d", p.PlacesDone, p.PlacesTotal)
			if p.PlacesDone == p.PlacesTotal {
				fmt.Println()
			}
		}
	case importer.StageUploadingPhotos:
		if p.PhotosTotal > 0 {
			fmt.Printf("\rUploading photos %d/%d (%d skipped)",
				p.PhotosDone, p.PhotosTotal, p.PhotosSkipped)
			if p.PhotosDone+p.PhotosSkipped == p.PhotosTotal {
				fmt.Println()
			}
		}
	case importer.StageDone, importer.StageFailed:
		// Final outcome is printed by the command itself.
	default:
		fmt.Println(p.Message)
	}
}
