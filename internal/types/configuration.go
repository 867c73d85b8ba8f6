package types

type InstalledEntry struct {
	Capability string `yaml:"capability"`
	Version    string `yaml:"version"`
}

// ConfigurationRecord is the flat persistence shape of a configuration.
type ConfigurationRecord struct {
	Project          string           `yaml:"project,omitempty"`
	Installed        []InstalledEntry `yaml:"installed"`
	Fixed            []string         `yaml:"fixed"`
	TargetedRuntimes []string         `yaml:"targeted_runtimes"`
	PrimaryRuntime   string           `yaml:"primary_runtime,omitempty"`
}
