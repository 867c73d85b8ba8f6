package core

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
)

const (
	MinimalPresetID = "minimal.configuration"
	DefaultPresetID = "default.configuration"
)

// PresetContext is the part of a project configuration the minimal preset
// depends on.
type PresetContext struct {
	Fixed            []*Capability
	TargetedRuntimes []*Runtime
	PrimaryRuntime   *Runtime
}

// runtime returns the runtime whose defaults drive version selection.
func (p PresetContext) runtime() *Runtime {
	if p.PrimaryRuntime != nil {
		return p.PrimaryRuntime
	}
	if len(p.TargetedRuntimes) > 0 {
		return p.TargetedRuntimes[0]
	}
	return nil
}

type PresetResolver struct {
	Registry *Registry
	Engine   ConstraintEngine
}

// NewPresetResolver returns a resolver over registry using a symmetric
// constraint engine.
func NewPresetResolver(registry *Registry) PresetResolver {
	return PresetResolver{Registry: registry, Engine: NewConstraintEngine()}
}

// DefaultPreset installs every capability's registry default version.
// Capabilities without a default are left out.
func (r PresetResolver) DefaultPreset(ctx context.Context) (Configuration, error) {
	var installed []*CapabilityVersion
	for _, capability := range r.Registry.Capabilities() {
		if capability.defaultVersion != nil {
			installed = append(installed, capability.defaultVersion)
		}
	}
	c, err := NewConfiguration(installed, nil, nil, nil)
	if err != nil {
		return Configuration{}, err
	}
	return r.checked(ctx, DefaultPresetID, c)
}

// MinimalPreset installs only the fixed capabilities, at the version the
// targeted runtime defaults to or else the registry default.
func (r PresetResolver) MinimalPreset(ctx context.Context, pc PresetContext) (Configuration, error) {
	runtime := pc.runtime()
	installed := make([]*CapabilityVersion, 0, len(pc.Fixed))
	for _, capability := range pc.Fixed {
		if runtime != nil {
			if cv, ok := runtime.DefaultVersion(capability); ok {
				installed = append(installed, cv)
				continue
			}
		}
		if capability.defaultVersion == nil {
			inconsistency := &RegistryInconsistencyError{Capability: capability.id}
			if runtime != nil {
				inconsistency.Runtime = runtime.name
			}
			return Configuration{}, inconsistency
		}
		installed = append(installed, capability.defaultVersion)
	}
	c, err := NewConfiguration(installed, pc.Fixed, pc.TargetedRuntimes, pc.PrimaryRuntime)
	if err != nil {
		return Configuration{}, err
	}
	return r.checked(ctx, MinimalPresetID, c)
}

// Resolve returns the preset with id, computing the dynamic ones.
func (r PresetResolver) Resolve(ctx context.Context, id string, pc PresetContext) (Configuration, error) {
	switch id {
	case MinimalPresetID:
		return r.MinimalPreset(ctx, pc)
	case DefaultPresetID:
		return r.DefaultPreset(ctx)
	}
	preset, ok := r.Registry.Preset(id)
	if !ok {
		return Configuration{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("unknown preset: %s", id))
	}
	c, err := NewConfiguration(preset.versions, pc.Fixed, pc.TargetedRuntimes, pc.PrimaryRuntime)
	if err != nil {
		return Configuration{}, err
	}
	return r.checked(ctx, id, c)
}

func (r PresetResolver) checked(ctx context.Context, id string, c Configuration) (Configuration, error) {
	if violations := r.Engine.ValidateConfiguration(ctx, c); len(violations) > 0 {
		return Configuration{}, &InternalError{
			Msg:        fmt.Sprintf("preset %s is invalid", id),
			Violations: violations,
		}
	}
	log.Ctx(ctx).Debug().Str("preset", id).Int("installed", len(c.installed)).Msg("preset resolved")
	return c, nil
}
