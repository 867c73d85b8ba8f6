package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"facetkit/internal/core"
	"facetkit/internal/types"
)

// Apply stages a preset and a list of actions on a working copy over the
// stored configuration, then commits and saves the result unless DryRun is
// set. Each action's payload is the text it was parsed from.
func (s Service) Apply(ctx context.Context, req ApplyRequest) (ApplyResult, error) {
	registry, err := s.loadRegistry(ctx, req.Registry)
	if err != nil {
		return ApplyResult{}, err
	}
	record, err := s.loadRecord(ctx, req.Configuration)
	if err != nil {
		return ApplyResult{}, err
	}
	base, err := registry.ConfigurationFromRecord(record)
	if err != nil {
		return ApplyResult{}, err
	}

	wc := core.NewWorkingCopy[string](ctx, registry, base, core.WithActionPolicy(s.Policy))
	defer wc.Dispose()
	if err := applyOverrides(ctx, wc, req); err != nil {
		return ApplyResult{}, err
	}
	if name := strings.TrimSpace(req.Preset); name != "" {
		current := wc.Current()
		pc := core.PresetContext{
			TargetedRuntimes: current.TargetedRuntimes(),
			PrimaryRuntime:   current.PrimaryRuntime(),
		}
		for _, id := range current.Fixed() {
			if capability, ok := registry.Capability(id); ok {
				pc.Fixed = append(pc.Fixed, capability)
			}
		}
		id := presetID(name)
		preset, err := core.NewPresetResolver(registry).Resolve(ctx, id, pc)
		if err != nil {
			return ApplyResult{}, err
		}
		if err := wc.ApplyPreset(ctx, preset, "preset:"+id); err != nil {
			return ApplyResult{}, err
		}
	}
	for _, text := range trimAll(req.Actions) {
		action, err := parseAction(wc, text)
		if err != nil {
			return ApplyResult{}, err
		}
		if err := wc.Stage(ctx, action); err != nil {
			return ApplyResult{}, err
		}
	}

	project := record.Project
	if project == "" {
		project = strings.TrimSpace(req.Configuration.Project)
	}
	result := ApplyResult{
		Project:    project,
		Prior:      base,
		Current:    wc.Current(),
		Diff:       core.DiffConfigurations(base, wc.Current()),
		Violations: wc.Violations(),
	}
	for _, action := range wc.Pending() {
		result.Staged = append(result.Staged, action.Config)
	}
	if req.DryRun {
		if len(result.Violations) > 0 {
			return result, &core.ValidationError{Violations: result.Violations}
		}
		return result, nil
	}

	committed, err := wc.Commit(ctx)
	s.Metrics.ObserveCommit(err)
	if err != nil {
		return result, err
	}
	if err := s.saveRecord(ctx, req.Configuration, committed.Record(project)); err != nil {
		return result, err
	}
	result.Committed = true
	log.Ctx(ctx).Debug().
		Str("project", project).
		Int("installed", len(result.Diff.Installed)).
		Int("uninstalled", len(result.Diff.Uninstalled)).
		Int("changed", len(result.Diff.Changed)).
		Msg("configuration applied")
	return result, nil
}

func applyOverrides(ctx context.Context, wc *core.WorkingCopy[string], req ApplyRequest) error {
	if targets := trimAll(req.Targets); len(targets) > 0 {
		if err := wc.SetTargetedRuntimes(ctx, targets); err != nil {
			return err
		}
	}
	if primary := strings.TrimSpace(req.Primary); primary != "" {
		if err := wc.SetPrimaryRuntime(ctx, primary); err != nil {
			return err
		}
	}
	if req.Fixed != nil {
		if err := wc.SetFixed(ctx, trimAll(req.Fixed)); err != nil {
			return err
		}
	}
	return nil
}

// parseAction reads "install:cap[@version]", "uninstall:cap" and
// "change:cap[@version]". A missing version selects the highest version
// the targeted runtimes support.
func parseAction(wc *core.WorkingCopy[string], text string) (core.Action[string], error) {
	verb, ref, ok := strings.Cut(text, ":")
	if !ok || strings.TrimSpace(ref) == "" {
		return core.Action[string]{}, invalidAction(text)
	}
	capabilityID, version, hasVersion := strings.Cut(strings.TrimSpace(ref), "@")
	capability, found := wc.Registry().Capability(capabilityID)
	if !found {
		return core.Action[string]{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("unknown capability %s in action %q", capabilityID, text))
	}

	actionType := types.ActionType(strings.TrimSpace(verb))
	if actionType == "change" {
		actionType = types.ActionChangeVersion
	}
	switch actionType {
	case types.ActionUninstall:
		if hasVersion {
			return core.Action[string]{}, invalidAction(text)
		}
		return core.NewUninstallAction(capability, text), nil
	case types.ActionInstall, types.ActionChangeVersion:
		var cv *core.CapabilityVersion
		if hasVersion {
			cv, found = capability.Version(version)
			if !found {
				return core.Action[string]{}, errbuilder.New().
					WithCode(errbuilder.CodeNotFound).
					WithMsg(fmt.Sprintf("unknown version %s@%s in action %q", capabilityID, version, text))
			}
		} else {
			highest, err := wc.HighestAvailableVersion(capabilityID)
			if err != nil {
				return core.Action[string]{}, err
			}
			cv = highest
		}
		if actionType == types.ActionInstall {
			return core.NewInstallAction(cv, text), nil
		}
		return core.NewChangeVersionAction(cv, text), nil
	default:
		return core.Action[string]{}, invalidAction(text)
	}
}

func invalidAction(text string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid action %q, expected <install|uninstall|change>:<capability>[@version]", text))
}
