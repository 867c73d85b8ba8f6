package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"facetkit/internal/app"
)

type presetOptions struct {
	Preset  string
	Fixed   []string
	Targets []string
	Primary string
	Output  configurationOptions
}

func newPresetCommand() *cobra.Command {
	opts := presetOptions{}
	cmd := &cobra.Command{
		Use:   "preset [minimal|default|<id>]",
		Short: "Compute a preset configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Preset = args[0]
			}
			return runPreset(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.Fixed, "fixed", nil, "Fixed capabilities")
	cmd.Flags().StringSliceVar(&opts.Targets, "target", nil, "Targeted runtimes")
	cmd.Flags().StringVar(&opts.Primary, "primary", "", "Primary runtime")
	_ = viper.BindPFlag("fixed", cmd.Flags().Lookup("fixed"))
	_ = viper.BindPFlag("targets", cmd.Flags().Lookup("target"))
	_ = viper.BindPFlag("primary", cmd.Flags().Lookup("primary"))
	addConfigurationFlags(cmd, &opts.Output)
	return cmd
}

func runPreset(ctx context.Context, cmd *cobra.Command, opts presetOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	output := opts.Output.resolve(cmd)
	result, err := service.Preset(ctx, app.PresetRequest{
		Registry: registrySource(),
		Preset:   opts.Preset,
		Fixed:    resolveStrings(cmd, opts.Fixed, "fixed", "fixed"),
		Targets:  resolveStrings(cmd, opts.Targets, "targets", "target"),
		Primary:  resolveString(cmd, opts.Primary, "primary", "primary"),
		Project:  output.Project,
		Output:   output,
	})
	if err != nil {
		return err
	}
	fmt.Printf("preset %s:\n", result.PresetID)
	for _, cv := range result.Configuration.Installed() {
		fmt.Printf("- %s\n", cv)
	}
	if result.Saved {
		fmt.Println("saved")
	}
	return nil
}
