package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facetkit/internal/core"
	"facetkit/internal/types"
)

const fixtures = "../../fixtures"

// ---------- Command tree tests ----------

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	expected := []string{
		"validate", "preset", "apply", "schedule",
		"registry", "projects", "watch",
	}
	for _, name := range expected {
		assert.Contains(t, names, name, "missing subcommand: %s", name)
	}
}

func TestRootCommandVersion(t *testing.T) {
	root := newRootCommand()
	assert.Equal(t, "dev", root.Version)
	for _, name := range []string{"config", "log-level", "registry", "runtimes"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "missing flag: %s", name)
	}
}

func TestApplyCommandFlags(t *testing.T) {
	cmd := newApplyCommand()
	flags := []string{
		"file", "store", "project", "preset",
		"fixed", "target", "primary", "dry-run",
	}
	for _, name := range flags {
		flag := cmd.Flags().Lookup(name)
		assert.NotNil(t, flag, "missing flag: %s", name)
	}
}

func TestWatchCommandFlags(t *testing.T) {
	cmd := newWatchCommand()
	for _, name := range []string{"file", "store", "project", "debounce", "metrics-addr"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag: %s", name)
	}
}

// ---------- Helper function tests ----------

func TestResolveString(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *cobra.Command
		value    string
		expected string
	}{
		{
			name:     "nil cmd with value returns value",
			cmd:      nil,
			value:    "explicit",
			expected: "explicit",
		},
		{
			name:     "nil cmd empty value returns empty",
			cmd:      nil,
			value:    "",
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveString(tt.cmd, tt.value, "test_key", "test-flag")
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveStrings(t *testing.T) {
	got := resolveStrings(nil, []string{"a", "b"}, "test_key", "test-flag")
	assert.Equal(t, []string{"a", "b"}, got)

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringSlice("test-flag", nil, "test flag")
	require.NoError(t, cmd.Flags().Set("test-flag", "x,y"))
	assert.Equal(t, []string{"c"}, resolveStrings(cmd, []string{"c"}, "test_key", "test-flag"))
}

func TestResolveBoolAndDuration(t *testing.T) {
	assert.True(t, resolveBool(nil, true, "test_key", "test-flag"))
	assert.False(t, resolveBool(nil, false, "test_key", "test-flag"))
	assert.Equal(t, int64(42), int64(resolveDuration(nil, 42, "test_key", "test-flag")))
}

func TestFlagChanged(t *testing.T) {
	assert.False(t, flagChanged(nil, "anything"), "nil cmd should return false")
	assert.False(t, flagChanged(nil, ""), "nil cmd with empty name")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	assert.False(t, flagChanged(cmd, "myflag"), "unchanged flag")
	assert.False(t, flagChanged(cmd, "nonexistent"), "nonexistent flag")

	require.NoError(t, cmd.Flags().Set("myflag", "val"))
	assert.True(t, flagChanged(cmd, "myflag"))
}

// ---------- Exit code tests ----------

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name: "invalid argument",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("bad input"),
			expected: 2,
		},
		{
			name: "already exists",
			err: errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg("dup"),
			expected: 2,
		},
		{
			name:     "validation violations",
			err:      &core.ValidationError{Violations: []core.Violation{{Kind: types.ViolationMissingRequirement}}},
			expected: 3,
		},
		{
			name:     "wrapped validation violations",
			err:      errors.Join(errors.New("commit"), &core.ValidationError{}),
			expected: 3,
		},
		{
			name: "policy denial",
			err: errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg("nope"),
			expected: 3,
		},
		{
			name:     "cyclic dependency",
			err:      &core.CyclicDependencyError[string]{Cycle: []string{"a", "b"}},
			expected: 4,
		},
		{
			name: "not found",
			err: errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("file missing"),
			expected: 5,
		},
		{
			name:     "invalid preset",
			err:      &core.InternalError{Msg: "preset broken"},
			expected: 5,
		},
		{
			name:     "registry inconsistency",
			err:      &core.RegistryInconsistencyError{Capability: "java"},
			expected: 6,
		},
		{
			name:     "unknown error",
			err:      assert.AnError,
			expected: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exitCodeForError(tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name: "errbuilder with msg",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("something broke"),
			expected: "something broke",
		},
		{
			name:     "plain error",
			err:      assert.AnError,
			expected: assert.AnError.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errorMessage(tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// ---------- Service wiring tests ----------

func TestNewAppServiceCompilesActionRules(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("action_rules", []map[string]any{
		{"name": "keep-java", "matches": []string{"java"}, "actions": []string{"uninstall"}, "effect": "deny"},
	})
	service, err := newAppService()
	require.NoError(t, err)

	err = service.Policy.CheckAction(types.ActionUninstall, types.OriginUser, "java", false)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodePermissionDenied, errbuilder.CodeOf(err))
	assert.NoError(t, service.Policy.CheckAction(types.ActionUninstall, types.OriginUser, "web", false))
}

func TestNewAppServiceRejectsBadRules(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("action_rules", []map[string]any{
		{"name": "broken", "matches": []string{"java"}, "effect": "maybe"},
	})
	_, err := newAppService()
	require.Error(t, err)
	assert.Equal(t, 2, exitCodeForError(err))
}

// ---------- Command execution tests ----------

func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Cleanup(viper.Reset)
	root := newRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(t.Context())
}

func TestValidateCommand(t *testing.T) {
	err := execute(t, "validate",
		"--registry", fixtures+"/registry/**/*.yaml",
		"--file", fixtures+"/configuration.yaml",
	)
	require.NoError(t, err)

	err = execute(t, "validate",
		"--registry", fixtures+"/registry/**/*.yaml",
		"--file", fixtures+"/invalid-configuration.yaml",
	)
	require.Error(t, err)
	assert.Equal(t, 3, exitCodeForError(err))
}

func TestApplyCommandWritesFile(t *testing.T) {
	data, err := os.ReadFile(filepath.Join(fixtures, "configuration.yaml"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "facets.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	err = execute(t, "apply",
		"--registry", fixtures+"/registry/**/*.yaml",
		"--file", path,
		"install:ejb@3.0",
	)
	require.NoError(t, err)

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "capability: ejb")
}

func TestScheduleCommandCycle(t *testing.T) {
	err := execute(t, "schedule", "--graph", fixtures+"/cyclic-graph.yaml")
	require.Error(t, err)
	assert.Equal(t, 4, exitCodeForError(err))
}
