// Package photos provides the photos command group.
package photos

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/argiloff/archaeotools-cms/internal/api"
	"github.com/argiloff/archaeotools-cms/internal/app"
)

// Command creates and returns the photos command.
func Command(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photos",
		Short: "Manage project photos",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.RequireAuth()
		},
	}

	cmd.AddCommand(
		listCommand(a),
		uploadCommand(a),
		deleteCommand(a),
	)
	return cmd
}

func listCommand(a *app.App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List photos of the current project",
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.ResolveProject(cmd.Context(), projectID)
			if err != nil {
				return err
			}

			var photos []api.Photo
			if cached, ok := a.Cache.Get("photos", projectID); ok {
				photos = cached.([]api.Photo)
			} else {
				photos, err = a.API.ListPhotos(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				a.Cache.Set("photos", projectID, photos)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDESCRIPTION\tGPS\tPLACE\tURL\t")
			for i := range photos {
				ph := &photos[i]
				gps := "-"
				if ph.HasCoordinates() {
					gps = fmt.Sprintf("%.5f,%.5f", *ph.Latitude, *ph.Longitude)
				}
				place := "-"
				if ph.PlaceID != nil {
					place = *ph.PlaceID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", ph.ID, ph.Description, gps, place, ph.URL)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	return cmd
}

func uploadCommand(a *app.App) *cobra.Command {
	var (
		projectID   string
		placeID     string
		description string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload photos to the current project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.ResolveProject(cmd.Context(), projectID)
			if err != nil {
				return err
			}

			params := api.PhotoParams{Description: description, Tags: tags}
			if placeID != "" {
				params.PlaceID = &placeID
			}

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				contentType := mime.TypeByExtension(filepath.Ext(path))
				photo, err := a.API.UploadPhoto(cmd.Context(), projectID, api.UploadFile{
					Name:        filepath.Base(path),
					ContentType: contentType,
					Data:        data,
				}, params)
				if err != nil {
					return fmt.Errorf("upload of %s failed: %w", path, err)
				}
				fmt.Printf("Uploaded %s as %s\n", path, photo.ID)
			}
			a.Cache.Invalidate("photos", projectID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	cmd.Flags().StringVar(&placeID, "place", "", "Attach the photos to this place")
	cmd.Flags().StringVar(&description, "description", "", "Photo description")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	return cmd
}

func deleteCommand(a *app.App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "delete <photo-id>",
		Short: "Delete a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.ResolveProject(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if err := a.API.DeletePhoto(cmd.Context(), projectID, args[0]); err != nil {
				return err
			}
			a.Cache.Invalidate("photos", projectID)
			fmt.Printf("Deleted photo %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	return cmd
}
