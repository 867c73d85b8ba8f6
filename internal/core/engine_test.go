package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"facetkit/internal/types"
)

func violationStrings(violations []Violation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.String())
	}
	return out
}

func TestValidateVersionWithoutRules(t *testing.T) {
	registry := newTestRegistry(t)
	engine := NewConstraintEngine()

	for _, cv := range []*CapabilityVersion{
		mustVersion(t, registry, "jpa", "2.0"),
		mustVersion(t, registry, "java", "17"),
		mustVersion(t, registry, "web", "2.4"),
	} {
		require.Empty(t, engine.Validate(t.Context(), []*CapabilityVersion{cv}, nil), cv.String())
	}
}

func TestValidateMissingRequirement(t *testing.T) {
	registry := newTestRegistry(t)
	engine := NewConstraintEngine()

	violations := engine.Validate(t.Context(), []*CapabilityVersion{
		mustVersion(t, registry, "web", "3.0"),
		mustVersion(t, registry, "java", "11"),
	}, nil)
	require.Len(t, violations, 1)
	require.Equal(t, types.ViolationMissingRequirement, violations[0].Kind)
	require.Equal(t, "web@3.0", violations[0].Of.String())
	require.Equal(t, "java@17", violations[0].Missing)
}

func TestValidateRequirementSatisfiedByRuntimeDefault(t *testing.T) {
	registry := newTestRegistry(t)
	engine := NewConstraintEngine()
	tomcat, ok := registry.Runtime("tomcat-9")
	require.True(t, ok)

	installed := []*CapabilityVersion{mustVersion(t, registry, "web", "2.5")}
	require.Empty(t, engine.Validate(t.Context(), installed, []*Runtime{tomcat}))

	violations := engine.Validate(t.Context(), installed, nil)
	if diff := cmp.Diff([]string{"web@2.5 requires java@[11-"}, violationStrings(violations)); diff != "" {
		t.Fatalf("unexpected violations (-want +got):\n%s", diff)
	}
}

func TestValidateAnyRequirement(t *testing.T) {
	registry := newTestRegistry(t)
	engine := NewConstraintEngine()

	require.Empty(t, engine.Validate(t.Context(), []*CapabilityVersion{
		mustVersion(t, registry, "ejb", "3.0"),
		mustVersion(t, registry, "web", "2.5"),
		mustVersion(t, registry, "java", "11"),
	}, nil))

	violations := engine.Validate(t.Context(), []*CapabilityVersion{
		mustVersion(t, registry, "ejb", "3.0"),
		mustVersion(t, registry, "web", "2.4"),
	}, nil)
	if diff := cmp.Diff([]string{"ejb@3.0 requires any(web@2.5, web@3.0)"}, violationStrings(violations)); diff != "" {
		t.Fatalf("unexpected violations (-want +got):\n%s", diff)
	}
}

func TestValidateConflictReportedOnce(t *testing.T) {
	registry := newTestRegistry(t)
	engine := NewConstraintEngine()

	violations := engine.Validate(t.Context(), []*CapabilityVersion{
		mustVersion(t, registry, "web", "3.0"),
		mustVersion(t, registry, "legacy-ui", "1.0"),
		mustVersion(t, registry, "java", "17"),
	}, nil)
	require.Len(t, violations, 1)
	require.Equal(t, types.ViolationUnsatisfiedConflict, violations[0].Kind)
	require.Equal(t, "legacy-ui@1.0", violations[0].A.String())
	require.Equal(t, "web@3.0", violations[0].B.String())
}

func TestValidateConflictThroughGroup(t *testing.T) {
	registry := newTestRegistry(t)
	engine := NewConstraintEngine()

	violations := engine.Validate(t.Context(), []*CapabilityVersion{
		mustVersion(t, registry, "ejb", "3.0"),
		mustVersion(t, registry, "legacy-ui", "1.0"),
		mustVersion(t, registry, "web", "2.5"),
		mustVersion(t, registry, "java", "17"),
	}, nil)
	if diff := cmp.Diff([]string{"ejb@3.0 conflicts with legacy-ui@1.0"}, violationStrings(violations)); diff != "" {
		t.Fatalf("unexpected violations (-want +got):\n%s", diff)
	}
}

func TestValidateDuplicateCapabilityShortCircuits(t *testing.T) {
	registry := newTestRegistry(t)
	engine := NewConstraintEngine()

	violations := engine.Validate(t.Context(), []*CapabilityVersion{
		mustVersion(t, registry, "web", "3.0"),
		mustVersion(t, registry, "legacy-ui", "1.0"),
		mustVersion(t, registry, "web", "2.5"),
	}, nil)
	require.Len(t, violations, 1)
	require.Equal(t, types.ViolationDuplicateCapability, violations[0].Kind)
	require.Equal(t, "web", violations[0].Capability)
	require.Equal(t, []string{"web@2.5", "web@3.0"}, versionStrings(violations[0].Versions))
}

func TestValidateOrderingIsDeterministic(t *testing.T) {
	registry := newTestRegistry(t)
	engine := NewConstraintEngine()

	installed := []*CapabilityVersion{
		mustVersion(t, registry, "web", "3.0"),
		mustVersion(t, registry, "legacy-ui", "1.0"),
		mustVersion(t, registry, "ejb", "3.0"),
	}
	first := engine.Validate(t.Context(), installed, nil)
	want := []string{
		"ejb@3.0 conflicts with legacy-ui@1.0",
		"legacy-ui@1.0 conflicts with web@3.0",
		"web@3.0 requires java@17",
	}
	if diff := cmp.Diff(want, violationStrings(first)); diff != "" {
		t.Fatalf("unexpected violations (-want +got):\n%s", diff)
	}

	reversed := []*CapabilityVersion{installed[2], installed[1], installed[0]}
	second := engine.Validate(t.Context(), reversed, nil)
	require.Equal(t, first, second)
}

func conflictRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry(t.Context(), testSource{descriptor: types.RegistryDescriptor{
		Capabilities: []types.CapabilityDef{
			{ID: "alpha", Versions: []types.VersionDef{{Version: "1"}}},
			{ID: "beta", Versions: []types.VersionDef{{Version: "1", Conflicts: []types.ConstraintDef{{Capability: "alpha"}}}}},
			{ID: "gamma", Versions: []types.VersionDef{{Version: "1", Conflicts: []types.ConstraintDef{{Capability: "delta"}}}}},
			{ID: "delta", Versions: []types.VersionDef{{Version: "1", Conflicts: []types.ConstraintDef{{Capability: "gamma"}}}}},
		},
	}})
	require.NoError(t, err)
	return registry
}

func TestValidateConflictModes(t *testing.T) {
	registry := conflictRegistry(t)
	installed := []*CapabilityVersion{
		mustVersion(t, registry, "beta", "1"),
		mustVersion(t, registry, "alpha", "1"),
	}

	symmetric := NewConstraintEngine().Validate(t.Context(), installed, nil)
	if diff := cmp.Diff([]string{"alpha@1 conflicts with beta@1"}, violationStrings(symmetric)); diff != "" {
		t.Fatalf("unexpected symmetric violations (-want +got):\n%s", diff)
	}

	declared := ConstraintEngine{Mode: types.ConflictModeDeclared}.Validate(t.Context(), installed, nil)
	if diff := cmp.Diff([]string{"beta@1 conflicts with alpha@1"}, violationStrings(declared)); diff != "" {
		t.Fatalf("unexpected declared violations (-want +got):\n%s", diff)
	}
}

func TestValidateMutualConflictReportedOnce(t *testing.T) {
	registry := conflictRegistry(t)
	installed := []*CapabilityVersion{
		mustVersion(t, registry, "gamma", "1"),
		mustVersion(t, registry, "delta", "1"),
	}
	for _, mode := range []types.ConflictMode{types.ConflictModeSymmetric, types.ConflictModeDeclared} {
		violations := ConstraintEngine{Mode: mode}.Validate(t.Context(), installed, nil)
		if diff := cmp.Diff([]string{"delta@1 conflicts with gamma@1"}, violationStrings(violations)); diff != "" {
			t.Fatalf("unexpected %s violations (-want +got):\n%s", mode, diff)
		}
	}
}

func TestValidateCompositeConflicts(t *testing.T) {
	registry, err := NewRegistry(t.Context(), testSource{descriptor: types.RegistryDescriptor{
		Capabilities: []types.CapabilityDef{
			{ID: "a", Versions: []types.VersionDef{{Version: "1"}}},
			{ID: "b", Versions: []types.VersionDef{{Version: "1"}}},
			{ID: "c", Versions: []types.VersionDef{{Version: "1"}}},
			{ID: "x", Versions: []types.VersionDef{{Version: "1", Conflicts: []types.ConstraintDef{
				{All: []types.ConstraintDef{{Capability: "a"}, {Capability: "b"}}},
			}}}},
			{ID: "y", Versions: []types.VersionDef{{Version: "1", Conflicts: []types.ConstraintDef{
				{Any: []types.ConstraintDef{
					{Capability: "a"},
					{All: []types.ConstraintDef{{Capability: "b"}, {Capability: "c"}}},
				}},
			}}}},
		},
	}})
	require.NoError(t, err)

	tests := []struct {
		name          string
		installed     []string
		wantSymmetric []string
		wantDeclared  []string
	}{
		{
			name:          "all with one side missing",
			installed:     []string{"x", "a"},
			wantSymmetric: []string{},
			wantDeclared:  []string{},
		},
		{
			name:          "all fully installed",
			installed:     []string{"x", "a", "b"},
			wantSymmetric: []string{"a@1 conflicts with x@1", "b@1 conflicts with x@1"},
			wantDeclared:  []string{"x@1 conflicts with a@1", "x@1 conflicts with b@1"},
		},
		{
			name:          "any with unsatisfied nested all",
			installed:     []string{"y", "b"},
			wantSymmetric: []string{},
			wantDeclared:  []string{},
		},
		{
			name:          "any satisfied by leaf only",
			installed:     []string{"y", "a", "b"},
			wantSymmetric: []string{"a@1 conflicts with y@1"},
			wantDeclared:  []string{"y@1 conflicts with a@1"},
		},
		{
			name:          "any satisfied by nested all",
			installed:     []string{"y", "b", "c"},
			wantSymmetric: []string{"b@1 conflicts with y@1", "c@1 conflicts with y@1"},
			wantDeclared:  []string{"y@1 conflicts with b@1", "y@1 conflicts with c@1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var installed []*CapabilityVersion
			for _, id := range tt.installed {
				installed = append(installed, mustVersion(t, registry, id, "1"))
			}

			symmetric := NewConstraintEngine().Validate(t.Context(), installed, nil)
			if diff := cmp.Diff(tt.wantSymmetric, violationStrings(symmetric)); diff != "" {
				t.Fatalf("unexpected symmetric violations (-want +got):\n%s", diff)
			}
			declared := ConstraintEngine{Mode: types.ConflictModeDeclared}.Validate(t.Context(), installed, nil)
			if diff := cmp.Diff(tt.wantDeclared, violationStrings(declared)); diff != "" {
				t.Fatalf("unexpected declared violations (-want +got):\n%s", diff)
			}
		})
	}
}
