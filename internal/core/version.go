package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"
	debversion "github.com/knqyf263/go-deb-version"

	"facetkit/internal/types"
)

// VersionComparator orders the version strings of one capability.
// Implementations are stateless so a registry can share them across
// goroutines.
type VersionComparator interface {
	Kind() types.ComparatorKind
	Validate(raw string) error
	Compare(a string, b string) (int, error)
}

// NewVersionComparator returns the comparator registered for kind. An
// empty kind selects the default dotted-segment comparator.
func NewVersionComparator(kind types.ComparatorKind) (VersionComparator, error) {
	switch kind {
	case "", types.ComparatorDefault:
		return defaultComparator{}, nil
	case types.ComparatorSemver:
		return semverComparator{}, nil
	case types.ComparatorDebian:
		return debianComparator{}, nil
	case types.ComparatorPep440:
		return pep440Comparator{}, nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown version comparator: %s", kind))
	}
}

// dottedVersion is a parsed default-grammar version: leading numeric
// segments followed by optional alphanumeric qualifiers.
type dottedVersion struct {
	numbers    []uint64
	qualifiers []string
}

type defaultComparator struct{}

func (defaultComparator) Kind() types.ComparatorKind {
	return types.ComparatorDefault
}

func (defaultComparator) Validate(raw string) error {
	_, err := parseDotted(raw)
	return err
}

func (defaultComparator) Compare(a string, b string) (int, error) {
	va, err := parseDotted(a)
	if err != nil {
		return 0, err
	}
	vb, err := parseDotted(b)
	if err != nil {
		return 0, err
	}
	for i := 0; i < len(va.numbers) || i < len(vb.numbers); i++ {
		if c := compareSegment(i < len(va.numbers), i < len(vb.numbers)); c != 0 {
			return c, nil
		}
		if va.numbers[i] != vb.numbers[i] {
			if va.numbers[i] < vb.numbers[i] {
				return -1, nil
			}
			return 1, nil
		}
	}
	for i := 0; i < len(va.qualifiers) || i < len(vb.qualifiers); i++ {
		if c := compareSegment(i < len(va.qualifiers), i < len(vb.qualifiers)); c != 0 {
			return c, nil
		}
		if c := strings.Compare(va.qualifiers[i], vb.qualifiers[i]); c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

// compareSegment orders a present segment above an absent one.
func compareSegment(hasA bool, hasB bool) int {
	switch {
	case hasA && !hasB:
		return 1
	case !hasA && hasB:
		return -1
	default:
		return 0
	}
}

func parseDotted(raw string) (dottedVersion, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return dottedVersion{}, &VersionFormatError{Comparator: string(types.ComparatorDefault), Versions: []string{raw}}
	}
	var parsed dottedVersion
	for _, segment := range strings.Split(value, ".") {
		if segment == "" {
			return dottedVersion{}, &VersionFormatError{Comparator: string(types.ComparatorDefault), Versions: []string{raw}}
		}
		if isDigits(segment) {
			if len(parsed.qualifiers) > 0 {
				return dottedVersion{}, &VersionFormatError{Comparator: string(types.ComparatorDefault), Versions: []string{raw}}
			}
			n, err := strconv.ParseUint(segment, 10, 64)
			if err != nil {
				return dottedVersion{}, &VersionFormatError{Comparator: string(types.ComparatorDefault), Versions: []string{raw}}
			}
			parsed.numbers = append(parsed.numbers, n)
			continue
		}
		if !isQualifier(segment) || len(parsed.numbers) == 0 {
			return dottedVersion{}, &VersionFormatError{Comparator: string(types.ComparatorDefault), Versions: []string{raw}}
		}
		parsed.qualifiers = append(parsed.qualifiers, segment)
	}
	return parsed, nil
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}

func isQualifier(value string) bool {
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return value != ""
}

type semverComparator struct{}

func (semverComparator) Kind() types.ComparatorKind {
	return types.ComparatorSemver
}

func (semverComparator) Validate(raw string) error {
	if _, err := mm.NewVersion(raw); err != nil {
		return &VersionFormatError{Comparator: string(types.ComparatorSemver), Versions: []string{raw}}
	}
	return nil
}

func (semverComparator) Compare(a string, b string) (int, error) {
	va, err := mm.NewVersion(a)
	if err != nil {
		return 0, &VersionFormatError{Comparator: string(types.ComparatorSemver), Versions: []string{a}}
	}
	vb, err := mm.NewVersion(b)
	if err != nil {
		return 0, &VersionFormatError{Comparator: string(types.ComparatorSemver), Versions: []string{b}}
	}
	return va.Compare(vb), nil
}

type debianComparator struct{}

func (debianComparator) Kind() types.ComparatorKind {
	return types.ComparatorDebian
}

func (debianComparator) Validate(raw string) error {
	if _, err := debversion.NewVersion(raw); err != nil {
		return &VersionFormatError{Comparator: string(types.ComparatorDebian), Versions: []string{raw}}
	}
	return nil
}

func (debianComparator) Compare(a string, b string) (int, error) {
	va, err := debversion.NewVersion(a)
	if err != nil {
		return 0, &VersionFormatError{Comparator: string(types.ComparatorDebian), Versions: []string{a}}
	}
	vb, err := debversion.NewVersion(b)
	if err != nil {
		return 0, &VersionFormatError{Comparator: string(types.ComparatorDebian), Versions: []string{b}}
	}
	return va.Compare(vb), nil
}

type pep440Comparator struct{}

func (pep440Comparator) Kind() types.ComparatorKind {
	return types.ComparatorPep440
}

func (pep440Comparator) Validate(raw string) error {
	if _, err := pep440.Parse(raw); err != nil {
		return &VersionFormatError{Comparator: string(types.ComparatorPep440), Versions: []string{raw}}
	}
	return nil
}

func (pep440Comparator) Compare(a string, b string) (int, error) {
	va, err := pep440.Parse(a)
	if err != nil {
		return 0, &VersionFormatError{Comparator: string(types.ComparatorPep440), Versions: []string{a}}
	}
	vb, err := pep440.Parse(b)
	if err != nil {
		return 0, &VersionFormatError{Comparator: string(types.ComparatorPep440), Versions: []string{b}}
	}
	return va.Compare(vb), nil
}

// CompareVersions orders two versions of the same capability.
func CompareVersions(a *CapabilityVersion, b *CapabilityVersion) (int, error) {
	if a.capability != b.capability {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("cannot compare versions of %s and %s", a.capability.id, b.capability.id))
	}
	return a.capability.comparator.Compare(a.version, b.version)
}

// SortedVersions orders versions with their capability's comparator.
// Versions the comparator cannot parse are left out of the result and
// named in a *VersionFormatError returned alongside it.
func SortedVersions(versions []*CapabilityVersion, ascending bool) ([]*CapabilityVersion, error) {
	if len(versions) == 0 {
		return nil, nil
	}
	comparator := versions[0].capability.comparator
	ordered := make([]*CapabilityVersion, 0, len(versions))
	var invalid []string
	for _, cv := range versions {
		if cv.capability != versions[0].capability {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("cannot sort versions of %s and %s together", versions[0].capability.id, cv.capability.id))
		}
		if err := comparator.Validate(cv.version); err != nil {
			invalid = append(invalid, cv.version)
			continue
		}
		ordered = append(ordered, cv)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		c, _ := comparator.Compare(ordered[i].version, ordered[j].version)
		if ascending {
			return c < 0
		}
		return c > 0
	})
	if len(invalid) > 0 {
		return ordered, &VersionFormatError{Comparator: string(comparator.Kind()), Versions: invalid}
	}
	return ordered, nil
}

// LatestVersion returns the highest parsable version. The returned error
// is a *VersionFormatError when some versions were skipped; the version is
// nil only when none could be parsed.
func LatestVersion(versions []*CapabilityVersion) (*CapabilityVersion, error) {
	ordered, err := SortedVersions(versions, false)
	if len(ordered) == 0 {
		if err == nil {
			err = errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("no versions to choose from")
		}
		return nil, err
	}
	return ordered[0], err
}
