package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"facetkit/internal/adapters"
	"facetkit/internal/core"
	"facetkit/internal/ports"
	"facetkit/internal/types"
)

func (s Service) loadRegistry(ctx context.Context, src RegistrySource) (*core.Registry, error) {
	patterns := trimAll(src.Patterns)
	if len(patterns) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("registry descriptor patterns are required")
	}
	var bridges []ports.RuntimeBridgePort
	if runtimes := strings.TrimSpace(src.Runtimes); runtimes != "" {
		bridges = append(bridges, adapters.NewRuntimeBridgeFileAdapter(runtimes))
	}
	registry, err := core.NewRegistry(ctx, adapters.NewRegistryFileAdapter(patterns...), bridges...)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Debug().
		Int("capabilities", len(registry.Capabilities())).
		Int("runtimes", len(registry.Runtimes())).
		Msg("registry loaded")
	return registry, nil
}

func (s Service) InspectRegistry(ctx context.Context, req RegistryRequest) (RegistryResult, error) {
	registry, err := s.loadRegistry(ctx, req.Registry)
	if err != nil {
		return RegistryResult{}, err
	}
	result := RegistryResult{}
	for _, category := range registry.Categories() {
		result.Categories = append(result.Categories, category.ID())
	}
	for _, capability := range registry.Capabilities() {
		summary := CapabilitySummary{
			ID:         capability.ID(),
			Comparator: string(capability.Comparator().Kind()),
		}
		if category := capability.Category(); category != nil {
			summary.Category = category.ID()
		}
		for _, cv := range capability.Versions() {
			summary.Versions = append(summary.Versions, cv.Version())
		}
		if def := capability.DefaultVersion(); def != nil {
			summary.Default = def.Version()
		}
		result.Capabilities = append(result.Capabilities, summary)
	}
	for _, group := range registry.Groups() {
		result.Groups = append(result.Groups, GroupSummary{
			ID:      group.ID(),
			Members: versionStrings(group.Members()),
		})
	}
	for _, runtime := range registry.Runtimes() {
		summary := RuntimeSummary{
			Name:     runtime.Name(),
			Defaults: versionStrings(runtime.DefaultVersions()),
		}
		for _, component := range runtime.Components() {
			summary.Components = append(summary.Components, component.Type+"@"+component.Version)
		}
		result.Runtimes = append(result.Runtimes, summary)
	}
	for _, preset := range registry.Presets() {
		result.Presets = append(result.Presets, PresetSummary{
			ID:       preset.ID(),
			Versions: versionStrings(preset.Versions()),
		})
	}
	return result, nil
}

// loadRecord reads the record from the sqlite store when one is named and
// from the configuration file otherwise.
func (s Service) loadRecord(ctx context.Context, src ConfigurationSource) (types.ConfigurationRecord, error) {
	if store := strings.TrimSpace(src.Store); store != "" {
		project := strings.TrimSpace(src.Project)
		if project == "" {
			return types.ConfigurationRecord{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("project is required with a configuration store")
		}
		db, err := s.OpenStore(store)
		if err != nil {
			return types.ConfigurationRecord{}, err
		}
		defer db.Close()
		return db.LoadConfiguration(ctx, project)
	}
	path := strings.TrimSpace(src.Path)
	if path == "" {
		return types.ConfigurationRecord{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("configuration path or store is required")
	}
	record, err := s.Configurations.LoadConfiguration(ctx, path)
	if err != nil {
		return types.ConfigurationRecord{}, err
	}
	if record.Project == "" {
		record.Project = strings.TrimSpace(src.Project)
	}
	return record, nil
}

func (s Service) saveRecord(ctx context.Context, dst ConfigurationSource, record types.ConfigurationRecord) error {
	if store := strings.TrimSpace(dst.Store); store != "" {
		project := strings.TrimSpace(dst.Project)
		if project == "" {
			project = record.Project
		}
		if project == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("project is required with a configuration store")
		}
		db, err := s.OpenStore(store)
		if err != nil {
			return err
		}
		defer db.Close()
		record.Project = project
		return db.SaveConfiguration(ctx, project, record)
	}
	path := strings.TrimSpace(dst.Path)
	if path == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("configuration path or store is required")
	}
	return s.Configurations.SaveConfiguration(ctx, path, record)
}

func (s Service) Projects(ctx context.Context, req ProjectsRequest) (ProjectsResult, error) {
	store := strings.TrimSpace(req.Store)
	if store == "" {
		return ProjectsResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("configuration store is required")
	}
	db, err := s.OpenStore(store)
	if err != nil {
		return ProjectsResult{}, err
	}
	defer db.Close()
	projects, err := db.Projects(ctx)
	if err != nil {
		return ProjectsResult{}, err
	}
	return ProjectsResult{Projects: projects}, nil
}

func versionStrings(versions []*core.CapabilityVersion) []string {
	out := make([]string, 0, len(versions))
	for _, cv := range versions {
		out = append(out, cv.String())
	}
	return out
}

func trimAll(values []string) []string {
	var out []string
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
