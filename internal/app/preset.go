package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"facetkit/internal/core"
)

// presetID maps the short names accepted on the command line to the
// dynamic preset ids.
func presetID(name string) string {
	switch strings.TrimSpace(name) {
	case "", "minimal":
		return core.MinimalPresetID
	case "default":
		return core.DefaultPresetID
	default:
		return strings.TrimSpace(name)
	}
}

func (s Service) Preset(ctx context.Context, req PresetRequest) (PresetResult, error) {
	registry, err := s.loadRegistry(ctx, req.Registry)
	if err != nil {
		return PresetResult{}, err
	}
	pc, err := presetContext(registry, req.Fixed, req.Targets, req.Primary)
	if err != nil {
		return PresetResult{}, err
	}
	id := presetID(req.Preset)
	configuration, err := core.NewPresetResolver(registry).Resolve(ctx, id, pc)
	if err != nil {
		return PresetResult{}, err
	}
	result := PresetResult{PresetID: id, Configuration: configuration}
	if req.Output.Path == "" && req.Output.Store == "" {
		return result, nil
	}
	project := strings.TrimSpace(req.Project)
	if project == "" {
		project = req.Output.Project
	}
	if err := s.saveRecord(ctx, req.Output, configuration.Record(project)); err != nil {
		return PresetResult{}, err
	}
	result.Saved = true
	return result, nil
}

func presetContext(registry *core.Registry, fixed []string, targets []string, primary string) (core.PresetContext, error) {
	pc := core.PresetContext{}
	for _, id := range trimAll(fixed) {
		capability, ok := registry.Capability(id)
		if !ok {
			return core.PresetContext{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("unknown capability " + id)
		}
		pc.Fixed = append(pc.Fixed, capability)
	}
	for _, name := range trimAll(targets) {
		runtime, ok := registry.Runtime(name)
		if !ok {
			return core.PresetContext{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("unknown runtime " + name)
		}
		pc.TargetedRuntimes = append(pc.TargetedRuntimes, runtime)
	}
	if name := strings.TrimSpace(primary); name != "" {
		runtime, ok := registry.Runtime(name)
		if !ok {
			return core.PresetContext{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("unknown runtime " + name)
		}
		pc.PrimaryRuntime = runtime
	}
	return pc, nil
}
