package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// VersionFormatError reports version strings a comparator could not parse.
// Callers leave such versions out of ordering but keep them in the set.
type VersionFormatError struct {
	Comparator string
	Versions   []string
}

func (e *VersionFormatError) Error() string {
	return fmt.Sprintf("unparsable version(s) for %s comparator: %s", e.Comparator, strings.Join(e.Versions, ", "))
}

func (e *VersionFormatError) Code() errbuilder.ErrCode {
	return errbuilder.CodeInvalidArgument
}

// ValidationError carries every constraint violation found in a
// configuration that was about to be committed.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("configuration has %d violation(s): %s", len(e.Violations), strings.Join(parts, "; "))
}

func (e *ValidationError) Code() errbuilder.ErrCode {
	return errbuilder.CodeFailedPrecondition
}

// CyclicDependencyError is returned by the scheduler when the reference
// graph has no topological order. Cycle lists the members from the first
// revisited node to the top of the traversal stack.
type CyclicDependencyError[N comparable] struct {
	Cycle []N
}

func (e *CyclicDependencyError[N]) Error() string {
	parts := make([]string, 0, len(e.Cycle)+1)
	for _, node := range e.Cycle {
		parts = append(parts, fmt.Sprint(node))
	}
	if len(e.Cycle) > 0 {
		parts = append(parts, fmt.Sprint(e.Cycle[0]))
	}
	return fmt.Sprintf("cyclic dependency: %s", strings.Join(parts, " -> "))
}

func (e *CyclicDependencyError[N]) Code() errbuilder.ErrCode {
	return errbuilder.CodeFailedPrecondition
}

func (e *CyclicDependencyError[N]) cyclic() {}

// IsCyclicDependency reports whether err wraps a CyclicDependencyError of
// any node type.
func IsCyclicDependency(err error) bool {
	var target interface{ cyclic() }
	return errors.As(err, &target)
}

// RegistryInconsistencyError means a fixed capability has neither a runtime
// default nor a registry default. This is a registry defect.
type RegistryInconsistencyError struct {
	Capability string
	Runtime    string
}

func (e *RegistryInconsistencyError) Error() string {
	if e.Runtime != "" {
		return fmt.Sprintf("registry inconsistency: fixed capability %s has no default version (runtime %s)", e.Capability, e.Runtime)
	}
	return fmt.Sprintf("registry inconsistency: fixed capability %s has no default version", e.Capability)
}

func (e *RegistryInconsistencyError) Code() errbuilder.ErrCode {
	return errbuilder.CodeInternal
}

// InternalError signals a computed result that broke its own contract,
// such as a preset that fails validation.
type InternalError struct {
	Msg        string
	Violations []Violation
}

func (e *InternalError) Error() string {
	if len(e.Violations) == 0 {
		return "internal error: " + e.Msg
	}
	return fmt.Sprintf("internal error: %s: %s", e.Msg, (&ValidationError{Violations: e.Violations}).Error())
}

func (e *InternalError) Code() errbuilder.ErrCode {
	return errbuilder.CodeInternal
}
