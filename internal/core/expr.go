package core

import (
	"strings"
)

// Expr is a compiled requires/conflicts rule. Leaves are resolved to the
// concrete capability versions they name when the registry is built, so
// evaluation is pure set membership.
type Expr interface {
	// Satisfied reports whether any leaf selection holds in set.
	Satisfied(set versionSet) bool
	// Matches reports whether cv is selected by some leaf of the rule.
	Matches(cv *CapabilityVersion) bool
	// Selects reports whether cv is one of the versions in set that make
	// the rule hold. It is false whenever the rule is not satisfied.
	Selects(set versionSet, cv *CapabilityVersion) bool
	String() string
}

type versionSet map[*CapabilityVersion]struct{}

func newVersionSet(versions ...[]*CapabilityVersion) versionSet {
	set := versionSet{}
	for _, list := range versions {
		for _, cv := range list {
			set[cv] = struct{}{}
		}
	}
	return set
}

func (s versionSet) has(cv *CapabilityVersion) bool {
	_, ok := s[cv]
	return ok
}

// leafExpr selects a fixed set of versions: the members of a group or the
// versions of a capability that match a version expression.
type leafExpr struct {
	label   string
	members versionSet
}

func (l leafExpr) Satisfied(set versionSet) bool {
	for cv := range l.members {
		if set.has(cv) {
			return true
		}
	}
	return false
}

func (l leafExpr) Matches(cv *CapabilityVersion) bool {
	return l.members.has(cv)
}

func (l leafExpr) Selects(set versionSet, cv *CapabilityVersion) bool {
	return set.has(cv) && l.members.has(cv)
}

func (l leafExpr) String() string {
	return l.label
}

type allExpr struct {
	children []Expr
}

func (a allExpr) Satisfied(set versionSet) bool {
	for _, child := range a.children {
		if !child.Satisfied(set) {
			return false
		}
	}
	return true
}

func (a allExpr) Matches(cv *CapabilityVersion) bool {
	for _, child := range a.children {
		if child.Matches(cv) {
			return true
		}
	}
	return false
}

func (a allExpr) Selects(set versionSet, cv *CapabilityVersion) bool {
	if !a.Satisfied(set) {
		return false
	}
	for _, child := range a.children {
		if child.Selects(set, cv) {
			return true
		}
	}
	return false
}

func (a allExpr) String() string {
	return joinExprs("all", a.children)
}

type anyExpr struct {
	children []Expr
}

func (a anyExpr) Satisfied(set versionSet) bool {
	for _, child := range a.children {
		if child.Satisfied(set) {
			return true
		}
	}
	return false
}

func (a anyExpr) Matches(cv *CapabilityVersion) bool {
	for _, child := range a.children {
		if child.Matches(cv) {
			return true
		}
	}
	return false
}

func (a anyExpr) Selects(set versionSet, cv *CapabilityVersion) bool {
	for _, child := range a.children {
		if child.Selects(set, cv) {
			return true
		}
	}
	return false
}

func (a anyExpr) String() string {
	return joinExprs("any", a.children)
}

func joinExprs(op string, children []Expr) string {
	parts := make([]string, 0, len(children))
	for _, child := range children {
		parts = append(parts, child.String())
	}
	return op + "(" + strings.Join(parts, ", ") + ")"
}
