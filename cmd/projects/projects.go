// Package projects provides the projects command group.
package projects

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/argiloff/archaeotools-cms/internal/api"
	"github.com/argiloff/archaeotools-cms/internal/app"
)

// Command creates and returns the projects command.
func Command(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage research projects",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.RequireAuth()
		},
	}

	cmd.AddCommand(
		listCommand(a),
		createCommand(a),
		deleteCommand(a),
		useCommand(a),
	)
	return cmd
}

func listCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.API.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			a.Projects.SetProjects(projects)

			current := a.CurrentProjectID()
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tVISIBILITY\t")
			for i := range projects {
				p := &projects[i]
				marker := ""
				if p.ID == current {
					marker = " *"
				}
				fmt.Fprintf(w, "%s\t%s%s\t%s\t%s\t\n", p.ID, p.Name, marker, p.Type, p.Visibility)
			}
			return w.Flush()
		},
	}
}

func createCommand(a *app.App) *cobra.Command {
	var (
		projectType string
		visibility  string
		description string
		location    string
		use         bool
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.API.CreateProject(cmd.Context(), api.ProjectParams{
				Name:        args[0],
				Type:        api.ProjectType(projectType),
				Visibility:  api.Visibility(visibility),
				Description: description,
				Location:    location,
			})
			if err != nil {
				return err
			}
			a.Projects.Upsert(*project)
			if use {
				if err := a.SetCurrentProject(project.ID); err != nil {
					return err
				}
			}
			fmt.Printf("Created project %s (%s)\n", project.Name, project.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectType, "type", "t", string(api.ProjectArchaeology), "Project type (MUSEUM_GUIDE, ARCHAEOLOGY, OSINT)")
	cmd.Flags().StringVar(&visibility, "visibility", string(api.VisibilityPrivate), "Visibility (PUBLIC, PRIVATE)")
	cmd.Flags().StringVar(&description, "description", "", "Project description")
	cmd.Flags().StringVar(&location, "location", "", "Project location")
	cmd.Flags().BoolVar(&use, "use", false, "Select the new project as current")
	return cmd
}

func deleteCommand(a *app.App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and everything under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("deleting a project is irreversible, re-run with --yes to confirm")
			}
			if err := a.API.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.Projects.Remove(args[0])
			a.Cache.InvalidateScope(args[0])
			if a.CurrentProjectID() == args[0] {
				a.ClearCurrentProject()
			}
			fmt.Printf("Deleted project %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

func useCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <project-id>",
		Short: "Select the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate against the backend before persisting.
			project, err := a.API.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.SetCurrentProject(project.ID); err != nil {
				return err
			}
			fmt.Printf("Current project is now %s (%s)\n", project.Name, project.ID)
			return nil
		},
	}
}
