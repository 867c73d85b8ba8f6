package app

import (
	"time"

	"facetkit/internal/core"
)

// RegistrySource names the descriptor files a registry is built from.
// Runtimes is an optional runtime bridge file.
type RegistrySource struct {
	Patterns []string
	Runtimes string
}

// ConfigurationSource selects where a configuration record lives. Store
// (a sqlite DSN) wins over Path when both are set; Project keys the
// record inside the store.
type ConfigurationSource struct {
	Path    string
	Store   string
	Project string
}

type ValidateRequest struct {
	Registry      RegistrySource
	Configuration ConfigurationSource
}

type ValidateResult struct {
	Project       string
	Configuration core.Configuration
	Violations    []core.Violation
}

type PresetRequest struct {
	Registry RegistrySource
	Preset   string
	Fixed    []string
	Targets  []string
	Primary  string
	Project  string
	Output   ConfigurationSource
}

type PresetResult struct {
	PresetID      string
	Configuration core.Configuration
	Saved         bool
}

type ApplyRequest struct {
	Registry      RegistrySource
	Configuration ConfigurationSource
	Preset        string
	Actions       []string
	Fixed         []string
	Targets       []string
	Primary       string
	DryRun        bool
}

type ApplyResult struct {
	Project    string
	Prior      core.Configuration
	Current    core.Configuration
	Diff       core.ConfigurationDiff
	Staged     []string
	Violations []core.Violation
	Committed  bool
}

type ScheduleRequest struct {
	GraphPath string
	Seed      []string
}

type ScheduleResult struct {
	Order   []string
	Elapsed time.Duration
}

type RegistryRequest struct {
	Registry RegistrySource
}

type CapabilitySummary struct {
	ID         string
	Category   string
	Comparator string
	Versions   []string
	Default    string
}

type GroupSummary struct {
	ID      string
	Members []string
}

type RuntimeSummary struct {
	Name       string
	Components []string
	Defaults   []string
}

type PresetSummary struct {
	ID       string
	Versions []string
}

type RegistryResult struct {
	Categories   []string
	Capabilities []CapabilitySummary
	Groups       []GroupSummary
	Runtimes     []RuntimeSummary
	Presets      []PresetSummary
}

type ProjectsRequest struct {
	Store string
}

type ProjectsResult struct {
	Projects []string
}

type WatchRequest struct {
	Validate ValidateRequest
	Debounce time.Duration
	// OnResult receives every validation outcome, the initial one included.
	OnResult func(ValidateResult, error)
}
