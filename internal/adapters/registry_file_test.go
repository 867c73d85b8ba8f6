package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facetkit/internal/core"
	"facetkit/internal/types"
)

func TestRegistryFileAdapterMergesGlobMatches(t *testing.T) {
	adapter := NewRegistryFileAdapter("../../fixtures/registry/**/*.yaml")

	files, err := adapter.Files()
	require.NoError(t, err)
	want := []string{
		filepath.FromSlash("../../fixtures/registry/java.yaml"),
		filepath.FromSlash("../../fixtures/registry/server/web.yaml"),
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Fatalf("unexpected files (-want +got):\n%s", diff)
	}

	capabilities, err := adapter.LoadCapabilities()
	require.NoError(t, err)
	var ids []string
	for _, capability := range capabilities {
		ids = append(ids, capability.ID)
	}
	assert.Equal(t, []string{"java", "jpa", "web", "ejb", "legacy-ui"}, ids)
	assert.Equal(t, types.ComparatorSemver, capabilities[1].Comparator)

	categories, err := adapter.LoadCategories()
	require.NoError(t, err)
	require.Len(t, categories, 1)

	groups, err := adapter.LoadGroups()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"web@[2.5-"}, groups[0].Members)

	runtimes, err := adapter.LoadRuntimes()
	require.NoError(t, err)
	require.Len(t, runtimes, 1)
	assert.Equal(t, "11", runtimes[0].Components[0].DefaultFacets["java"])

	presets, err := adapter.LoadPresets()
	require.NoError(t, err)
	require.Len(t, presets, 1)
}

func TestRegistryFileAdapterBuildsRegistry(t *testing.T) {
	registry, err := core.NewRegistry(t.Context(),
		NewRegistryFileAdapter("../../fixtures/registry/**/*.yaml"),
		NewRuntimeBridgeFileAdapter("../../fixtures/runtimes.yaml"),
	)
	require.NoError(t, err)

	web, ok := registry.Capability("web")
	require.True(t, ok)
	assert.Equal(t, "2.5", web.DefaultVersion().Version())

	jetty, ok := registry.Runtime("jetty-11")
	require.True(t, ok)
	vendor, _ := jetty.Property("vendor")
	assert.Equal(t, "eclipse", vendor)
}

func TestRegistryFileAdapterNoMatches(t *testing.T) {
	adapter := NewRegistryFileAdapter(filepath.Join(t.TempDir(), "*.yaml"))
	_, err := adapter.LoadCapabilities()
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestRegistryFileAdapterInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("capabilities: [\n"), 0644))

	_, err := NewRegistryFileAdapter(filepath.Join(dir, "*.yaml")).LoadCapabilities()
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestRuntimeBridgeFileAdapter(t *testing.T) {
	adapter := NewRuntimeBridgeFileAdapter("../../fixtures/runtimes.yaml")
	names, err := adapter.ExportedRuntimeNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"jetty-11"}, names)

	stub, err := adapter.Bridge("jetty-11")
	require.NoError(t, err)
	require.Len(t, stub.Components, 1)
	assert.Equal(t, "jetty", stub.Components[0].Type)

	_, err = adapter.Bridge("missing")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
