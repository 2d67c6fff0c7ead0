// Package places provides the places command group.
package places

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/argiloff/archaeotools-cms/internal/api"
	"github.com/argiloff/archaeotools-cms/internal/app"
	"github.com/argiloff/archaeotools-cms/internal/importer"
)

// Command creates and returns the places command.
func Command(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "places",
		Short: "Manage places",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.RequireAuth()
		},
	}

	cmd.AddCommand(
		listCommand(a),
		createCommand(a),
		assignCommand(a),
		unassignCommand(a),
		bulkAssignCommand(a),
		deleteCommand(a),
		importFileCommand(a),
	)
	return cmd
}

func listCommand(a *app.App) *cobra.Command {
	var (
		projectID  string
		all        bool
		unassigned bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List places of the current project, or all places",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				list []api.Place
				err  error
			)
			switch {
			case all || unassigned:
				list, err = a.API.ListAllPlaces(cmd.Context(), api.ListPlacesOptions{UnassignedOnly: unassigned})
			default:
				projectID, err = a.ResolveProject(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				if cached, ok := a.Cache.Get("places", projectID); ok {
					list = cached.([]api.Place)
				} else {
					list, err = a.API.ListProjectPlaces(cmd.Context(), projectID)
					if err == nil {
						a.Cache.Set("places", projectID, list)
					}
				}
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tTYPE\tLAT\tLON\tVISITED\tPROJECT\t")
			for i := range list {
				p := &list[i]
				lat, lon := "-", "-"
				if p.HasCoordinates() {
					lat = fmt.Sprintf("%.5f", *p.Latitude)
					lon = fmt.Sprintf("%.5f", *p.Longitude)
				}
				project := "-"
				if p.ProjectID != nil {
					project = *p.ProjectID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\t%s\t\n",
					p.ID, p.Title, p.Type, lat, lon, p.Visited, project)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	cmd.Flags().BoolVar(&all, "all", false, "List every place across projects")
	cmd.Flags().BoolVar(&unassigned, "unassigned", false, "List only places without a project")
	return cmd
}

func createCommand(a *app.App) *cobra.Command {
	var (
		projectID   string
		global      bool
		placeType   string
		description string
		lat, lon    float64
		visited     bool
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if placeType != "" && !api.PlaceType(placeType).Valid() {
				return fmt.Errorf("unknown place type %q", placeType)
			}
			params := api.PlaceParams{
				Title:       args[0],
				Description: description,
				Type:        api.PlaceType(placeType),
				Tags:        tags,
			}
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
				params.Latitude = &lat
				params.Longitude = &lon
			}
			if visited {
				params.Visited = &visited
			}

			var (
				place *api.Place
				err   error
			)
			if global {
				place, err = a.API.CreatePlace(cmd.Context(), params)
			} else {
				projectID, err = a.ResolveProject(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				place, err = a.API.CreateProjectPlace(cmd.Context(), projectID, params)
				if err == nil {
					a.Cache.Invalidate("places", projectID)
				}
			}
			if err != nil {
				return err
			}
			fmt.Printf("Created place %s (%s)\n", place.Title, place.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	cmd.Flags().BoolVar(&global, "global", false, "Create a global place without a project")
	cmd.Flags().StringVarP(&placeType, "type", "t", "", "Place type (SITE, MUSEUM, POI, ...)")
	cmd.Flags().StringVar(&description, "description", "", "Place description")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude")
	cmd.Flags().BoolVar(&visited, "visited", false, "Mark the place as visited")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	return cmd
}

func assignCommand(a *app.App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "assign <place-id>",
		Short: "Assign a place to a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.ResolveProject(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			place, err := a.API.AssignPlaceToProject(cmd.Context(), args[0], projectID)
			if err != nil {
				return err
			}
			a.Cache.Invalidate("places", projectID)
			fmt.Printf("Assigned %s to project %s\n", place.Title, projectID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	return cmd
}

func unassignCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <place-id>",
		Short: "Detach a place from its project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			place, err := a.API.UnassignPlace(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Place %s is now unassigned\n", place.Title)
			return nil
		},
	}
}

func bulkAssignCommand(a *app.App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "bulk-assign <place-id>...",
		Short: "Assign several places to a project at once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.ResolveProject(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if err := a.API.BulkAssignPlaces(cmd.Context(), args, projectID); err != nil {
				return err
			}
			a.Cache.Invalidate("places", projectID)
			fmt.Printf("Assigned %d places to project %s\n", len(args), projectID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	return cmd
}

func deleteCommand(a *app.App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "delete <place-id>",
		Short: "Delete a place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID != "" {
				if err := a.API.DeleteProjectPlace(cmd.Context(), projectID, args[0]); err != nil {
					return err
				}
				a.Cache.Invalidate("places", projectID)
			} else if err := a.API.DeletePlace(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted place %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Delete within this project")
	return cmd
}

func importFileCommand(a *app.App) *cobra.Command {
	var (
		projectID string
		global    bool
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "import-file <file.json>",
		Short: "Import places from a JSON file",
		Long:  "Reads a JSON array of places (or a {\"places\": [...]} document) and creates them one by one. Entries without coordinates are skipped and reported.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := importer.FileImportOptions{MaxPlaces: limit}
			if !global {
				resolved, err := a.ResolveProject(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				opts.ProjectID = resolved
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := importer.ImportPlacesFromFile(cmd.Context(), a.API, f, opts)
			if err != nil {
				return err
			}
			if opts.ProjectID != "" {
				a.Cache.Invalidate("places", opts.ProjectID)
			}

			fmt.Printf("Imported %d places, skipped %d\n", report.Imported, report.Skipped)
			for _, e := range report.Errors {
				fmt.Printf("  %s: %s\n", e.Place, e.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	cmd.Flags().BoolVar(&global, "global", false, "Import as global places without a project")
	defaultLimit := a.Settings.Import.MaxFilePlaces
	if defaultLimit <= 0 {
		defaultLimit = importer.DefaultMaxFilePlaces
	}
	cmd.Flags().IntVar(&limit, "limit", defaultLimit, "Maximum number of places per file")
	return cmd
}
