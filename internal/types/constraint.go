package types

// ConstraintDef is the descriptor shape of a requires or conflicts rule.
// Exactly one of Capability, Group, All or Any is expected to be set.
// Capability may carry a version expression such as "2.5", "2.4,2.5"
// or "[2.0-3.0)"; an empty Version matches every version.
type ConstraintDef struct {
	Capability string          `yaml:"capability,omitempty"`
	Version    string          `yaml:"version,omitempty"`
	Group      string          `yaml:"group,omitempty"`
	All        []ConstraintDef `yaml:"all,omitempty"`
	Any        []ConstraintDef `yaml:"any,omitempty"`
}
