package adapters

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"facetkit/internal/ports"
	"facetkit/internal/types"
)

// RegistryFileAdapter reads registry descriptors from yaml files. Patterns
// may use "**" globs; every matching file is merged in path order.
type RegistryFileAdapter struct {
	Patterns []string
	cached   types.RegistryDescriptor
	loaded   bool
}

func NewRegistryFileAdapter(patterns ...string) *RegistryFileAdapter {
	return &RegistryFileAdapter{Patterns: patterns}
}

func (a *RegistryFileAdapter) LoadCategories() ([]types.CategoryDef, error) {
	descriptor, err := a.load()
	if err != nil {
		return nil, err
	}
	return descriptor.Categories, nil
}

func (a *RegistryFileAdapter) LoadCapabilities() ([]types.CapabilityDef, error) {
	descriptor, err := a.load()
	if err != nil {
		return nil, err
	}
	return descriptor.Capabilities, nil
}

func (a *RegistryFileAdapter) LoadGroups() ([]types.GroupDef, error) {
	descriptor, err := a.load()
	if err != nil {
		return nil, err
	}
	return descriptor.Groups, nil
}

func (a *RegistryFileAdapter) LoadRuntimes() ([]types.RuntimeDef, error) {
	descriptor, err := a.load()
	if err != nil {
		return nil, err
	}
	return descriptor.Runtimes, nil
}

func (a *RegistryFileAdapter) LoadPresets() ([]types.PresetDef, error) {
	descriptor, err := a.load()
	if err != nil {
		return nil, err
	}
	return descriptor.Presets, nil
}

// Files returns the descriptor files the patterns currently match.
func (a *RegistryFileAdapter) Files() ([]string, error) {
	seen := map[string]bool{}
	var files []string
	for _, pattern := range a.Patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid registry pattern: %s", pattern)).
				WithCause(err)
		}
		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				files = append(files, match)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func (a *RegistryFileAdapter) load() (types.RegistryDescriptor, error) {
	if a.loaded {
		return a.cached, nil
	}
	files, err := a.Files()
	if err != nil {
		return types.RegistryDescriptor{}, err
	}
	if len(files) == 0 {
		return types.RegistryDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no registry descriptors match %s", strings.Join(a.Patterns, ", ")))
	}
	var merged types.RegistryDescriptor
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return types.RegistryDescriptor{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("registry descriptor not readable: %s", path)).
				WithCause(err)
		}
		var descriptor types.RegistryDescriptor
		if err := yaml.Unmarshal(data, &descriptor); err != nil {
			return types.RegistryDescriptor{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid registry descriptor: %s", path)).
				WithCause(err)
		}
		merged.Categories = append(merged.Categories, descriptor.Categories...)
		merged.Capabilities = append(merged.Capabilities, descriptor.Capabilities...)
		merged.Groups = append(merged.Groups, descriptor.Groups...)
		merged.Runtimes = append(merged.Runtimes, descriptor.Runtimes...)
		merged.Presets = append(merged.Presets, descriptor.Presets...)
	}
	a.cached = merged
	a.loaded = true
	return merged, nil
}

var _ ports.RegistrySourcePort = (*RegistryFileAdapter)(nil)
