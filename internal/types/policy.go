package types

// ActionRule allows or denies actions on capabilities whose id matches one
// of Matches ("web", "jst.*", "*"). Empty Actions or Origins match all.
type ActionRule struct {
	Name    string         `yaml:"name" mapstructure:"name"`
	Matches []string       `yaml:"matches" mapstructure:"matches"`
	Actions []ActionType   `yaml:"actions,omitempty" mapstructure:"actions"`
	Origins []ActionOrigin `yaml:"origins,omitempty" mapstructure:"origins"`
	Effect  RuleEffect     `yaml:"effect" mapstructure:"effect"`
}
