package adapters

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"facetkit/internal/ports"
	"facetkit/internal/types"
)

// ConfigurationFileAdapter stores one configuration record per yaml file.
// The key passed to Load/Save is the file path.
type ConfigurationFileAdapter struct{}

func NewConfigurationFileAdapter() ConfigurationFileAdapter {
	return ConfigurationFileAdapter{}
}

func (a ConfigurationFileAdapter) LoadConfiguration(ctx context.Context, path string) (types.ConfigurationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ConfigurationRecord{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("configuration file not found").
			WithCause(err)
	}
	var record types.ConfigurationRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return types.ConfigurationRecord{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse configuration yaml").
			WithCause(err)
	}
	return record, nil
}

func (a ConfigurationFileAdapter) SaveConfiguration(ctx context.Context, path string, record types.ConfigurationRecord) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create configuration directory").
				WithCause(err)
		}
	}
	data, err := yaml.Marshal(normalizeRecord(record))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode configuration").
			WithCause(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write configuration file").
			WithCause(err)
	}
	return nil
}

// normalizeRecord sorts every list so saved files diff cleanly.
func normalizeRecord(record types.ConfigurationRecord) types.ConfigurationRecord {
	out := record
	out.Installed = append([]types.InstalledEntry(nil), record.Installed...)
	sort.SliceStable(out.Installed, func(i, j int) bool {
		if out.Installed[i].Capability != out.Installed[j].Capability {
			return out.Installed[i].Capability < out.Installed[j].Capability
		}
		return out.Installed[i].Version < out.Installed[j].Version
	})
	out.Fixed = append([]string(nil), record.Fixed...)
	sort.Strings(out.Fixed)
	out.TargetedRuntimes = append([]string(nil), record.TargetedRuntimes...)
	sort.Strings(out.TargetedRuntimes)
	return out
}

var _ ports.ConfigurationStorePort = ConfigurationFileAdapter{}
