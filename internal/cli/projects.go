package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"facetkit/internal/app"
)

type projectsOptions struct {
	Store string
}

func newProjectsCommand() *cobra.Command {
	opts := projectsOptions{}
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List the projects held in a configuration store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProjects(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Store, "store", "", "SQLite configuration store DSN")
	return cmd
}

func runProjects(ctx context.Context, cmd *cobra.Command, opts projectsOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Projects(ctx, app.ProjectsRequest{
		Store: resolveString(cmd, opts.Store, "store", "store"),
	})
	if err != nil {
		return err
	}
	for _, project := range result.Projects {
		fmt.Println(project)
	}
	return nil
}
