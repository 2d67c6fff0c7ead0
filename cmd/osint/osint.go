// Package osint provides the osint research command group.
package osint

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/argiloff/archaeotools-cms/internal/api"
	"github.com/argiloff/archaeotools-cms/internal/app"
)

// Command creates and returns the osint command.
func Command(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "osint",
		Short: "Manage OSINT research entries",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.RequireAuth()
		},
	}

	cmd.AddCommand(
		listCommand(a),
		addCommand(a),
		statusCommand(a),
		deleteCommand(a),
	)
	return cmd
}

func listCommand(a *app.App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List research entries of the current project",
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.ResolveProject(cmd.Context(), projectID)
			if err != nil {
				return err
			}

			var items []api.OsintItem
			if cached, ok := a.Cache.Get("osint", projectID); ok {
				items = cached.([]api.OsintItem)
			} else {
				items, err = a.API.ListOsintItems(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				a.Cache.Set("osint", projectID, items)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tSOURCE\t")
			for i := range items {
				item := &items[i]
				source := item.Source
				if source == "" {
					source = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", item.ID, item.Title, item.Status, source)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	return cmd
}

func addCommand(a *app.App) *cobra.Command {
	var (
		projectID string
		itemURL   string
		source    string
		summary   string
		status    string
		tags      []string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a research entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.ResolveProject(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			item, err := a.API.CreateOsintItem(cmd.Context(), projectID, api.OsintParams{
				Title:   args[0],
				URL:     itemURL,
				Source:  source,
				Summary: summary,
				Status:  api.OsintStatus(status),
				Tags:    tags,
			})
			if err != nil {
				return err
			}
			a.Cache.Invalidate("osint", projectID)
			fmt.Printf("Added research entry %s (%s)\n", item.Title, item.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	cmd.Flags().StringVar(&itemURL, "url", "", "Source URL")
	cmd.Flags().StringVar(&source, "source", "", "Source name")
	cmd.Flags().StringVar(&summary, "summary", "", "Findings summary")
	cmd.Flags().StringVar(&status, "status", string(api.OsintIdea), "Status (IDEA, IN_PROGRESS, DONE)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	return cmd
}

func statusCommand(a *app.App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "status <item-id> <IDEA|IN_PROGRESS|DONE>",
		Short: "Change the status of a research entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.ResolveProject(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			item, err := a.API.UpdateOsintItem(cmd.Context(), projectID, args[0], api.OsintParams{
				Status: api.OsintStatus(args[1]),
			})
			if err != nil {
				return err
			}
			a.Cache.Invalidate("osint", projectID)
			fmt.Printf("%s is now %s\n", item.Title, item.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	return cmd
}

func deleteCommand(a *app.App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Delete a research entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.ResolveProject(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if err := a.API.DeleteOsintItem(cmd.Context(), projectID, args[0]); err != nil {
				return err
			}
			a.Cache.Invalidate("osint", projectID)
			fmt.Printf("Deleted research entry %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project ID (default: current project)")
	return cmd
}
