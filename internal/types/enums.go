package types

type ComparatorKind string

const (
	ComparatorDefault ComparatorKind = "default"
	ComparatorSemver  ComparatorKind = "semver"
	ComparatorDebian  ComparatorKind = "debian"
	ComparatorPep440  ComparatorKind = "pep440"
)

type ActionType string

const (
	ActionInstall       ActionType = "install"
	ActionUninstall     ActionType = "uninstall"
	ActionChangeVersion ActionType = "change_version"
)

// ActionOrigin records who asked for an action. Automatic resolution must
// not touch fixed capabilities; explicit user actions may.
type ActionOrigin string

const (
	OriginUser ActionOrigin = "user"
	OriginAuto ActionOrigin = "auto"
)

type ViolationKind string

const (
	ViolationMissingRequirement  ViolationKind = "missing_requirement"
	ViolationUnsatisfiedConflict ViolationKind = "unsatisfied_conflict"
	ViolationDuplicateCapability ViolationKind = "duplicate_capability"
)

type ConflictMode string

const (
	ConflictModeSymmetric ConflictMode = "symmetric"
	ConflictModeDeclared  ConflictMode = "declared"
)

type ReferenceType string

const (
	ReferenceUses     ReferenceType = "uses"
	ReferenceConsumes ReferenceType = "consumes"
)

type PresetKind string

const (
	PresetMinimal PresetKind = "minimal"
	PresetDefault PresetKind = "default"
)

type ChangeKind string

const (
	ChangeStaged    ChangeKind = "staged"
	ChangeReverted  ChangeKind = "reverted"
	ChangeMerged    ChangeKind = "merged"
	ChangeCommitted ChangeKind = "committed"
	ChangeRuntimes  ChangeKind = "runtimes"
	ChangeFixed     ChangeKind = "fixed"
)

type WorkingCopyState string

const (
	StateClean     WorkingCopyState = "clean"
	StateDirty     WorkingCopyState = "dirty"
	StateCommitted WorkingCopyState = "committed"
	StateDisposed  WorkingCopyState = "disposed"
)

type RuleEffect string

const (
	RuleAllow RuleEffect = "allow"
	RuleDeny  RuleEffect = "deny"
)
