package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"facetkit/internal/app"
)

type applyOptions struct {
	Configuration configurationOptions
	Preset        string
	Fixed         []string
	Targets       []string
	Primary       string
	DryRun        bool
}

func newApplyCommand() *cobra.Command {
	opts := applyOptions{}
	cmd := &cobra.Command{
		Use:   "apply [action...]",
		Short: "Stage actions on a configuration and commit them",
		Long: "Actions are install:<capability>[@version], uninstall:<capability> " +
			"or change:<capability>[@version]. A missing version selects the highest " +
			"version the targeted runtimes support.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), cmd, opts, args)
		},
	}
	addConfigurationFlags(cmd, &opts.Configuration)
	cmd.Flags().StringVar(&opts.Preset, "preset", "", "Preset to apply before the actions")
	cmd.Flags().StringSliceVar(&opts.Fixed, "fixed", nil, "Replace the fixed capabilities")
	cmd.Flags().StringSliceVar(&opts.Targets, "target", nil, "Replace the targeted runtimes")
	cmd.Flags().StringVar(&opts.Primary, "primary", "", "Primary runtime")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show the result without committing")
	_ = viper.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))
	return cmd
}

func runApply(ctx context.Context, cmd *cobra.Command, opts applyOptions, actions []string) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	req := app.ApplyRequest{
		Registry:      registrySource(),
		Configuration: opts.Configuration.resolve(cmd),
		Preset:        opts.Preset,
		Actions:       actions,
		Targets:       opts.Targets,
		Primary:       opts.Primary,
		DryRun:        resolveBool(cmd, opts.DryRun, "dry_run", "dry-run"),
	}
	if flagChanged(cmd, "fixed") {
		req.Fixed = append([]string{}, opts.Fixed...)
	}
	result, err := service.Apply(ctx, req)
	printDiff(result)
	printViolations(result.Violations)
	if err != nil {
		return err
	}
	switch {
	case result.Committed:
		fmt.Printf("committed: %s (%s)\n", projectName(result.Project), result.Current)
	default:
		fmt.Printf("dry run: %s (%s)\n", projectName(result.Project), result.Current)
	}
	return nil
}

func printDiff(result app.ApplyResult) {
	for _, cv := range result.Diff.Installed {
		fmt.Printf("+ %s\n", cv)
	}
	for _, change := range result.Diff.Changed {
		fmt.Printf("~ %s -> %s\n", change.From, change.To.Version())
	}
	for _, cv := range result.Diff.Uninstalled {
		fmt.Printf("- %s\n", cv)
	}
}
