package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"facetkit/internal/app"
)

type scheduleOptions struct {
	Graph string
	Seed  []string
}

func newScheduleCommand() *cobra.Command {
	opts := scheduleOptions{}
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the build order of a component graph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchedule(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Graph, "graph", "", "Component graph file")
	cmd.Flags().StringSliceVar(&opts.Seed, "seed", nil, "Components to visit first")
	_ = viper.BindPFlag("graph", cmd.Flags().Lookup("graph"))
	return cmd
}

func runSchedule(ctx context.Context, cmd *cobra.Command, opts scheduleOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Schedule(ctx, app.ScheduleRequest{
		GraphPath: resolveString(cmd, opts.Graph, "graph", "graph"),
		Seed:      opts.Seed,
	})
	if err != nil {
		return err
	}
	for i, component := range result.Order {
		fmt.Printf("%d. %s\n", i+1, component)
	}
	return nil
}
