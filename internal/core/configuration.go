package core

import (
	"fmt"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"facetkit/internal/types"
)

// Configuration is an immutable set of installed capability versions plus
// the fixed capabilities and targeted runtimes of a project. Installed may
// hold more than one version of a capability; the engine reports that as a
// violation rather than refusing to represent it.
type Configuration struct {
	installed        []*CapabilityVersion
	fixed            map[string]bool
	targetedRuntimes []*Runtime
	primaryRuntime   *Runtime
}

// NewConfiguration builds a configuration from already resolved versions.
// The primary runtime, when set, must be one of runtimes.
func NewConfiguration(installed []*CapabilityVersion, fixed []*Capability, runtimes []*Runtime, primary *Runtime) (Configuration, error) {
	c := Configuration{
		installed: append([]*CapabilityVersion(nil), installed...),
		fixed:     map[string]bool{},
	}
	sortVersions(c.installed)
	for _, capability := range fixed {
		c.fixed[capability.id] = true
	}
	seen := map[*Runtime]bool{}
	for _, runtime := range runtimes {
		if seen[runtime] {
			continue
		}
		seen[runtime] = true
		c.targetedRuntimes = append(c.targetedRuntimes, runtime)
	}
	sort.Slice(c.targetedRuntimes, func(i, j int) bool {
		return c.targetedRuntimes[i].name < c.targetedRuntimes[j].name
	})
	if primary != nil {
		if !seen[primary] {
			return Configuration{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("primary runtime %s is not targeted", primary.name))
		}
		c.primaryRuntime = primary
	}
	return c, nil
}

// Installed returns installed versions ordered by capability id then version.
func (c Configuration) Installed() []*CapabilityVersion {
	return append([]*CapabilityVersion(nil), c.installed...)
}

// Fixed returns the fixed capability ids in sorted order.
func (c Configuration) Fixed() []string {
	return sortedKeys(c.fixed)
}

func (c Configuration) IsFixed(capability string) bool {
	return c.fixed[capability]
}

func (c Configuration) TargetedRuntimes() []*Runtime {
	return append([]*Runtime(nil), c.targetedRuntimes...)
}

func (c Configuration) PrimaryRuntime() *Runtime {
	return c.primaryRuntime
}

// Version returns the installed version of capability. With duplicates
// installed, the first in order is returned.
func (c Configuration) Version(capability string) (*CapabilityVersion, bool) {
	for _, cv := range c.installed {
		if cv.capability.id == capability {
			return cv, true
		}
	}
	return nil, false
}

func (c Configuration) Has(cv *CapabilityVersion) bool {
	for _, installed := range c.installed {
		if installed == cv {
			return true
		}
	}
	return false
}

// Equal compares installed versions, fixed capabilities and runtimes.
func (c Configuration) Equal(other Configuration) bool {
	if len(c.installed) != len(other.installed) || len(c.fixed) != len(other.fixed) ||
		len(c.targetedRuntimes) != len(other.targetedRuntimes) || c.primaryRuntime != other.primaryRuntime {
		return false
	}
	for i := range c.installed {
		if c.installed[i] != other.installed[i] {
			return false
		}
	}
	for id := range c.fixed {
		if !other.fixed[id] {
			return false
		}
	}
	for i := range c.targetedRuntimes {
		if c.targetedRuntimes[i] != other.targetedRuntimes[i] {
			return false
		}
	}
	return true
}

// Record converts the configuration to its persisted form.
func (c Configuration) Record(project string) types.ConfigurationRecord {
	record := types.ConfigurationRecord{Project: project, Fixed: c.Fixed()}
	for _, cv := range c.installed {
		record.Installed = append(record.Installed, types.InstalledEntry{Capability: cv.capability.id, Version: cv.version})
	}
	for _, runtime := range c.targetedRuntimes {
		record.TargetedRuntimes = append(record.TargetedRuntimes, runtime.name)
	}
	if c.primaryRuntime != nil {
		record.PrimaryRuntime = c.primaryRuntime.name
	}
	return record
}

func (c Configuration) String() string {
	parts := make([]string, 0, len(c.installed))
	for _, cv := range c.installed {
		parts = append(parts, cv.String())
	}
	return fmt.Sprint(parts)
}

// ConfigurationFromRecord resolves a persisted record against the registry.
// Duplicate capabilities are kept so the engine can report them.
func (r *Registry) ConfigurationFromRecord(record types.ConfigurationRecord) (Configuration, error) {
	installed := make([]*CapabilityVersion, 0, len(record.Installed))
	for _, entry := range record.Installed {
		cv, ok := r.CapabilityVersion(entry.Capability, entry.Version)
		if !ok {
			return Configuration{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("unknown capability version: %s@%s", entry.Capability, entry.Version))
		}
		installed = append(installed, cv)
	}
	fixed := make([]*Capability, 0, len(record.Fixed))
	for _, id := range record.Fixed {
		capability, ok := r.Capability(id)
		if !ok {
			return Configuration{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("unknown fixed capability: %s", id))
		}
		fixed = append(fixed, capability)
	}
	runtimes, err := r.lookupRuntimes(record.TargetedRuntimes)
	if err != nil {
		return Configuration{}, err
	}
	var primary *Runtime
	if record.PrimaryRuntime != "" {
		rt, ok := r.Runtime(record.PrimaryRuntime)
		if !ok {
			return Configuration{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("unknown runtime: %s", record.PrimaryRuntime))
		}
		primary = rt
	}
	return NewConfiguration(installed, fixed, runtimes, primary)
}

func (r *Registry) lookupRuntimes(names []string) ([]*Runtime, error) {
	out := make([]*Runtime, 0, len(names))
	for _, name := range names {
		rt, ok := r.Runtime(name)
		if !ok {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("unknown runtime: %s", name))
		}
		out = append(out, rt)
	}
	return out, nil
}

// ConfigurationDiff lists what changed between two configurations.
type ConfigurationDiff struct {
	Installed   []*CapabilityVersion
	Uninstalled []*CapabilityVersion
	Changed     []VersionChange
}

type VersionChange struct {
	From *CapabilityVersion
	To   *CapabilityVersion
}

func (d ConfigurationDiff) Empty() bool {
	return len(d.Installed) == 0 && len(d.Uninstalled) == 0 && len(d.Changed) == 0
}

// DiffConfigurations reports capabilities added, removed, or moved to a
// different version between prior and current.
func DiffConfigurations(prior Configuration, current Configuration) ConfigurationDiff {
	before := versionsByCapability(prior.installed)
	after := versionsByCapability(current.installed)
	var diff ConfigurationDiff
	for _, id := range sortedKeys(after) {
		to := after[id]
		from, ok := before[id]
		switch {
		case !ok:
			diff.Installed = append(diff.Installed, to)
		case from != to:
			diff.Changed = append(diff.Changed, VersionChange{From: from, To: to})
		}
	}
	for _, id := range sortedKeys(before) {
		if _, ok := after[id]; !ok {
			diff.Uninstalled = append(diff.Uninstalled, before[id])
		}
	}
	return diff
}

func versionsByCapability(versions []*CapabilityVersion) map[string]*CapabilityVersion {
	out := map[string]*CapabilityVersion{}
	for _, cv := range versions {
		if _, ok := out[cv.capability.id]; !ok {
			out[cv.capability.id] = cv
		}
	}
	return out
}
