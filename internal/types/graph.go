package types

// ReferenceDef states that From references (depends on) To.
type ReferenceDef struct {
	From        string        `yaml:"from"`
	To          string        `yaml:"to"`
	Type        ReferenceType `yaml:"type,omitempty"`
	RuntimePath string        `yaml:"runtime_path,omitempty"`
}

type ComponentGraph struct {
	Components []string       `yaml:"components"`
	References []ReferenceDef `yaml:"references"`
	Seed       []string       `yaml:"seed,omitempty"`
}
