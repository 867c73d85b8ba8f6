package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"facetkit/internal/app"
)

func newRegistryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "Summarize the capabilities, groups, runtimes and presets in the registry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRegistry(cmd.Context())
		},
	}
}

func runRegistry(ctx context.Context) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.InspectRegistry(ctx, app.RegistryRequest{Registry: registrySource()})
	if err != nil {
		return err
	}

	fmt.Printf("categories: %s\n", strings.Join(result.Categories, ", "))
	fmt.Println("capabilities:")
	for _, capability := range result.Capabilities {
		fmt.Printf("- %s [%s] %s", capability.ID, capability.Comparator, strings.Join(capability.Versions, ", "))
		if capability.Default != "" {
			fmt.Printf(" (default %s)", capability.Default)
		}
		fmt.Println()
	}
	fmt.Println("groups:")
	for _, group := range result.Groups {
		fmt.Printf("- %s: %s\n", group.ID, strings.Join(group.Members, ", "))
	}
	fmt.Println("runtimes:")
	for _, runtime := range result.Runtimes {
		fmt.Printf("- %s (%s)\n", runtime.Name, strings.Join(runtime.Components, ", "))
		if len(runtime.Defaults) > 0 {
			fmt.Printf("  defaults: %s\n", strings.Join(runtime.Defaults, ", "))
		}
	}
	fmt.Println("presets:")
	for _, preset := range result.Presets {
		fmt.Printf("- %s: %s\n", preset.ID, strings.Join(preset.Versions, ", "))
	}
	return nil
}
