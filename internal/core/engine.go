package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"facetkit/internal/types"
)

// Violation is one broken rule. Which fields are set depends on Kind:
// MissingRequirement sets Of and Missing, UnsatisfiedConflict sets A and B,
// DuplicateCapability sets Capability and Versions.
type Violation struct {
	Kind       types.ViolationKind
	Capability string
	Of         *CapabilityVersion
	Missing    string
	A          *CapabilityVersion
	B          *CapabilityVersion
	Versions   []*CapabilityVersion
}

func (v Violation) String() string {
	switch v.Kind {
	case types.ViolationMissingRequirement:
		return fmt.Sprintf("%s requires %s", v.Of, v.Missing)
	case types.ViolationUnsatisfiedConflict:
		return fmt.Sprintf("%s conflicts with %s", v.A, v.B)
	case types.ViolationDuplicateCapability:
		parts := make([]string, 0, len(v.Versions))
		for _, cv := range v.Versions {
			parts = append(parts, cv.version)
		}
		return fmt.Sprintf("%s installed more than once (%s)", v.Capability, strings.Join(parts, ", "))
	default:
		return string(v.Kind)
	}
}

// ConstraintEngine evaluates requires and conflicts rules over a candidate
// installed set. It holds no state between calls.
type ConstraintEngine struct {
	Mode types.ConflictMode
}

// NewConstraintEngine returns an engine that reports conflicts declared on
// either side of a pair.
func NewConstraintEngine() ConstraintEngine {
	return ConstraintEngine{Mode: types.ConflictModeSymmetric}
}

// ValidateConfiguration validates c against the defaults of its targeted
// runtimes.
func (e ConstraintEngine) ValidateConfiguration(ctx context.Context, c Configuration) []Violation {
	return e.Validate(ctx, c.installed, c.targetedRuntimes)
}

// Validate returns every violation in installed. Duplicate capabilities are
// reported alone since rule evaluation is meaningless until they are
// resolved. Results are ordered by capability id, then rule order.
func (e ConstraintEngine) Validate(ctx context.Context, installed []*CapabilityVersion, runtimes []*Runtime) []Violation {
	set := append([]*CapabilityVersion(nil), installed...)
	sortVersions(set)

	if duplicates := findDuplicates(set); len(duplicates) > 0 {
		log.Ctx(ctx).Debug().Int("violations", len(duplicates)).Msg("duplicate capabilities found")
		return duplicates
	}

	evaluation := newVersionSet(set)
	for _, runtime := range runtimes {
		for _, cv := range runtime.defaults {
			evaluation[cv] = struct{}{}
		}
	}

	var violations []Violation
	reported := map[[2]*CapabilityVersion]bool{}
	// Conflicts rules are evaluated over the installed versions other than
	// the rule's owner, so the owner is removed from others while its
	// rules run.
	others := newVersionSet(set)
	for _, cv := range set {
		for _, rule := range cv.requires {
			if !rule.Satisfied(evaluation) {
				violations = append(violations, Violation{
					Kind:    types.ViolationMissingRequirement,
					Of:      cv,
					Missing: rule.String(),
				})
			}
		}
		delete(others, cv)
		for _, rule := range cv.conflicts {
			for _, other := range set {
				if other != cv && rule.Selects(others, other) {
					violations = appendConflict(violations, reported, cv, other)
				}
			}
		}
		others[cv] = struct{}{}
		if e.Mode == types.ConflictModeDeclared {
			continue
		}
		for _, other := range set {
			if other == cv {
				continue
			}
			delete(others, other)
			for _, rule := range other.conflicts {
				if rule.Selects(others, cv) {
					violations = appendConflict(violations, reported, cv, other)
					break
				}
			}
			others[other] = struct{}{}
		}
	}
	log.Ctx(ctx).Debug().
		Int("installed", len(set)).
		Int("violations", len(violations)).
		Msg("constraints evaluated")
	return violations
}

func appendConflict(violations []Violation, reported map[[2]*CapabilityVersion]bool, a *CapabilityVersion, b *CapabilityVersion) []Violation {
	if reported[[2]*CapabilityVersion{a, b}] || reported[[2]*CapabilityVersion{b, a}] {
		return violations
	}
	reported[[2]*CapabilityVersion{a, b}] = true
	return append(violations, Violation{Kind: types.ViolationUnsatisfiedConflict, A: a, B: b})
}

// findDuplicates expects set sorted by capability id.
func findDuplicates(set []*CapabilityVersion) []Violation {
	var out []Violation
	for i := 0; i < len(set); {
		j := i + 1
		for j < len(set) && set[j].capability == set[i].capability {
			j++
		}
		if j-i > 1 {
			versions := append([]*CapabilityVersion(nil), set[i:j]...)
			sort.SliceStable(versions, func(a, b int) bool {
				c, err := CompareVersions(versions[a], versions[b])
				if err != nil {
					return versions[a].version < versions[b].version
				}
				return c < 0
			})
			out = append(out, Violation{
				Kind:       types.ViolationDuplicateCapability,
				Capability: set[i].capability.id,
				Versions:   versions,
			})
		}
		i = j
	}
	return out
}
