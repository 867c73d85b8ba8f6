package core

import (
	"errors"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"facetkit/internal/types"
)

func TestMinimalPresetUsesCapabilityDefault(t *testing.T) {
	registry, err := NewRegistry(t.Context(), testSource{descriptor: types.RegistryDescriptor{
		Capabilities: []types.CapabilityDef{
			{ID: "web", DefaultVersion: "2.5", Versions: []types.VersionDef{{Version: "2.4"}, {Version: "2.5"}}},
		},
	}})
	require.NoError(t, err)
	web, ok := registry.Capability("web")
	require.True(t, ok)

	config, err := NewPresetResolver(registry).MinimalPreset(t.Context(), PresetContext{Fixed: []*Capability{web}})
	require.NoError(t, err)

	want := types.ConfigurationRecord{
		Installed: []types.InstalledEntry{{Capability: "web", Version: "2.5"}},
		Fixed:     []string{"web"},
	}
	if diff := cmp.Diff(want, config.Record("")); diff != "" {
		t.Fatalf("unexpected preset (-want +got):\n%s", diff)
	}
}

func TestMinimalPresetPrefersRuntimeDefault(t *testing.T) {
	registry := newTestRegistry(t)
	java, _ := registry.Capability("java")
	web, _ := registry.Capability("web")
	tomcat, _ := registry.Runtime("tomcat-9")

	config, err := NewPresetResolver(registry).MinimalPreset(t.Context(), PresetContext{
		Fixed:            []*Capability{web, java},
		TargetedRuntimes: []*Runtime{tomcat},
	})
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"java@11", "web@2.5"}, versionStrings(config.Installed())); diff != "" {
		t.Fatalf("unexpected installed (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{"java", "web"}, config.Fixed())
}

func TestMinimalPresetFallsBackWhenRuntimeHasNoDefault(t *testing.T) {
	registry := newTestRegistry(t)
	jpa, _ := registry.Capability("jpa")
	jetty, _ := registry.Runtime("jetty-11")

	config, err := NewPresetResolver(registry).MinimalPreset(t.Context(), PresetContext{
		Fixed:            []*Capability{jpa},
		TargetedRuntimes: []*Runtime{jetty},
		PrimaryRuntime:   jetty,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"jpa@2.0"}, versionStrings(config.Installed()))
	require.Equal(t, "jetty-11", config.PrimaryRuntime().Name())
}

func TestMinimalPresetRegistryInconsistency(t *testing.T) {
	registry := newTestRegistry(t)
	ejb, _ := registry.Capability("ejb")
	tomcat, _ := registry.Runtime("tomcat-9")

	_, err := NewPresetResolver(registry).MinimalPreset(t.Context(), PresetContext{
		Fixed:            []*Capability{ejb},
		TargetedRuntimes: []*Runtime{tomcat},
	})
	var inconsistency *RegistryInconsistencyError
	require.True(t, errors.As(err, &inconsistency))
	require.Equal(t, "ejb", inconsistency.Capability)
	require.Equal(t, "tomcat-9", inconsistency.Runtime)
}

func TestMinimalPresetInvalidResultIsInternal(t *testing.T) {
	registry := newTestRegistry(t)
	web, _ := registry.Capability("web")

	// web@2.5 needs java, which is neither fixed nor supplied by a runtime
	_, err := NewPresetResolver(registry).MinimalPreset(t.Context(), PresetContext{Fixed: []*Capability{web}})
	var internal *InternalError
	require.True(t, errors.As(err, &internal))
	require.Len(t, internal.Violations, 1)
}

func TestDefaultPreset(t *testing.T) {
	registry := newTestRegistry(t)

	config, err := NewPresetResolver(registry).DefaultPreset(t.Context())
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"java@17", "jpa@2.0", "web@2.5"}, versionStrings(config.Installed())); diff != "" {
		t.Fatalf("unexpected installed (-want +got):\n%s", diff)
	}
}

func TestResolvePreset(t *testing.T) {
	registry := newTestRegistry(t)
	resolver := NewPresetResolver(registry)

	config, err := resolver.Resolve(t.Context(), "javaee", PresetContext{})
	require.NoError(t, err)
	require.Equal(t, []string{"ejb@3.0", "java@17", "web@3.0"}, versionStrings(config.Installed()))

	config, err = resolver.Resolve(t.Context(), DefaultPresetID, PresetContext{})
	require.NoError(t, err)
	require.Len(t, config.Installed(), 3)

	_, err = resolver.Resolve(t.Context(), "missing", PresetContext{})
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
