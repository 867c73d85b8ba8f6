package types

type CategoryDef struct {
	ID          string `yaml:"id"`
	Label       string `yaml:"label"`
	Description string `yaml:"description,omitempty"`
}

type VersionDef struct {
	Version   string          `yaml:"version"`
	Requires  []ConstraintDef `yaml:"requires,omitempty"`
	Conflicts []ConstraintDef `yaml:"conflicts,omitempty"`
	Groups    []string        `yaml:"groups,omitempty"`
}

type CapabilityDef struct {
	ID             string         `yaml:"id"`
	Label          string         `yaml:"label"`
	Description    string         `yaml:"description,omitempty"`
	Category       string         `yaml:"category,omitempty"`
	Comparator     ComparatorKind `yaml:"comparator,omitempty"`
	DefaultVersion string         `yaml:"default_version,omitempty"`
	Versions       []VersionDef   `yaml:"versions"`
}

// GroupDef lists members as "capability@version-expression" references.
// A bare capability id selects every version of that capability.
type GroupDef struct {
	ID          string   `yaml:"id"`
	Label       string   `yaml:"label,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Members     []string `yaml:"members"`
}

type RuntimeComponentDef struct {
	Type          string            `yaml:"type"`
	Version       string            `yaml:"version"`
	DefaultFacets map[string]string `yaml:"default_facets,omitempty"`
	Supports      []string          `yaml:"supports,omitempty"`
}

type RuntimeDef struct {
	Name       string                `yaml:"name"`
	Components []RuntimeComponentDef `yaml:"components"`
	Properties map[string]string     `yaml:"properties,omitempty"`
}

// RuntimeStub is what a runtime bridge hands back for one exported name.
type RuntimeStub struct {
	Components []RuntimeComponentDef `yaml:"components"`
	Properties map[string]string     `yaml:"properties,omitempty"`
}

type PresetDef struct {
	ID          string   `yaml:"id"`
	Label       string   `yaml:"label"`
	Description string   `yaml:"description,omitempty"`
	Facets      []string `yaml:"facets"`
}

// RegistryDescriptor is the on-disk shape of one descriptor file. Several
// files are merged before the registry is built.
type RegistryDescriptor struct {
	Categories   []CategoryDef   `yaml:"categories,omitempty"`
	Capabilities []CapabilityDef `yaml:"capabilities,omitempty"`
	Groups       []GroupDef      `yaml:"groups,omitempty"`
	Runtimes     []RuntimeDef    `yaml:"runtimes,omitempty"`
	Presets      []PresetDef     `yaml:"presets,omitempty"`
}
