package adapters

import (
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facetkit/internal/types"
)

func TestConfigurationFileAdapterLoad(t *testing.T) {
	record, err := NewConfigurationFileAdapter().LoadConfiguration(t.Context(), "../../fixtures/configuration.yaml")
	require.NoError(t, err)

	want := types.ConfigurationRecord{
		Project: "shop",
		Installed: []types.InstalledEntry{
			{Capability: "java", Version: "17"},
			{Capability: "web", Version: "3.0"},
		},
		Fixed:            []string{"java"},
		TargetedRuntimes: []string{},
	}
	if diff := cmp.Diff(want, record); diff != "" {
		t.Fatalf("unexpected record (-want +got):\n%s", diff)
	}
}

func TestConfigurationFileAdapterRoundTrip(t *testing.T) {
	adapter := NewConfigurationFileAdapter()
	path := filepath.Join(t.TempDir(), "nested", "facets.yaml")
	record := types.ConfigurationRecord{
		Project: "shop",
		Installed: []types.InstalledEntry{
			{Capability: "web", Version: "2.5"},
			{Capability: "java", Version: "11"},
		},
		Fixed:            []string{"web", "java"},
		TargetedRuntimes: []string{"tomcat-9", "jetty-11"},
		PrimaryRuntime:   "tomcat-9",
	}
	require.NoError(t, adapter.SaveConfiguration(t.Context(), path, record))

	loaded, err := adapter.LoadConfiguration(t.Context(), path)
	require.NoError(t, err)
	want := types.ConfigurationRecord{
		Project: "shop",
		Installed: []types.InstalledEntry{
			{Capability: "java", Version: "11"},
			{Capability: "web", Version: "2.5"},
		},
		Fixed:            []string{"java", "web"},
		TargetedRuntimes: []string{"jetty-11", "tomcat-9"},
		PrimaryRuntime:   "tomcat-9",
	}
	if diff := cmp.Diff(want, loaded); diff != "" {
		t.Fatalf("unexpected record (-want +got):\n%s", diff)
	}
}

func TestConfigurationFileAdapterMissing(t *testing.T) {
	_, err := NewConfigurationFileAdapter().LoadConfiguration(t.Context(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
