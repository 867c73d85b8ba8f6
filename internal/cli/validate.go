package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"facetkit/internal/app"
	"facetkit/internal/core"
)

type configurationOptions struct {
	Path    string
	Store   string
	Project string
}

func addConfigurationFlags(cmd *cobra.Command, opts *configurationOptions) {
	cmd.Flags().StringVar(&opts.Path, "file", "", "Configuration file path")
	cmd.Flags().StringVar(&opts.Store, "store", "", "SQLite configuration store DSN")
	cmd.Flags().StringVar(&opts.Project, "project", "", "Project name inside the store")
	_ = viper.BindPFlag("file", cmd.Flags().Lookup("file"))
	_ = viper.BindPFlag("store", cmd.Flags().Lookup("store"))
	_ = viper.BindPFlag("project", cmd.Flags().Lookup("project"))
}

func (o configurationOptions) resolve(cmd *cobra.Command) app.ConfigurationSource {
	return app.ConfigurationSource{
		Path:    resolveString(cmd, o.Path, "file", "file"),
		Store:   resolveString(cmd, o.Store, "store", "store"),
		Project: resolveString(cmd, o.Project, "project", "project"),
	}
}

func registrySource() app.RegistrySource {
	return app.RegistrySource{
		Patterns: viper.GetStringSlice("registry"),
		Runtimes: viper.GetString("runtimes"),
	}
}

type validateOptions struct {
	Configuration configurationOptions
}

func newValidateCommand() *cobra.Command {
	opts := validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration against the registry constraints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd.Context(), cmd, opts)
		},
	}
	addConfigurationFlags(cmd, &opts.Configuration)
	return cmd
}

func runValidate(ctx context.Context, cmd *cobra.Command, opts validateOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Validate(ctx, app.ValidateRequest{
		Registry:      registrySource(),
		Configuration: opts.Configuration.resolve(cmd),
	})
	printViolations(result.Violations)
	if err != nil {
		return err
	}
	fmt.Printf("valid: %s (%s)\n", projectName(result.Project), result.Configuration)
	return nil
}

func printViolations(violations []core.Violation) {
	for _, v := range violations {
		fmt.Printf("- %s: %s\n", v.Kind, v)
	}
}

func projectName(project string) string {
	if project == "" {
		return "<unnamed>"
	}
	return project
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetString(key)
}

func resolveStrings(cmd *cobra.Command, values []string, key string, flagName string) []string {
	if cmd == nil {
		if len(values) > 0 {
			return values
		}
		return viper.GetStringSlice(key)
	}
	if flagChanged(cmd, flagName) {
		return values
	}
	return viper.GetStringSlice(key)
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}

func resolveDuration(cmd *cobra.Command, value time.Duration, key string, flagName string) time.Duration {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetDuration(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
