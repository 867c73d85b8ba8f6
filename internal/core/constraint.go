package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// versionBound is one end of a version range. An empty value leaves the
// range open on that side.
type versionBound struct {
	value     string
	inclusive bool
}

// versionTerm is either an exact version or a range.
type versionTerm struct {
	exact string
	lower versionBound
	upper versionBound
	rng   bool
}

// VersionExpr selects versions of one capability. Supported forms:
// "*" or "" (any), "2.5" (exact), "2.4,2.5" (list), "[2.0-3.0)" (range
// with inclusive "[" "]" or exclusive "(" ")" ends) and "[2.0-" (open).
// When a bound itself contains a hyphen the bounds must be separated by
// " - ", as in "[1.0.0-beta - 2.0.0)"; otherwise the first hyphen splits
// the range.
type VersionExpr struct {
	raw   string
	any   bool
	terms []versionTerm
}

// ParseVersionExpr parses a version expression without checking the
// versions against any comparator.
func ParseVersionExpr(raw string) (VersionExpr, error) {
	value := strings.TrimSpace(raw)
	if value == "" || value == "*" {
		return VersionExpr{raw: value, any: true}, nil
	}
	expr := VersionExpr{raw: value}
	for _, token := range splitVersionTerms(value) {
		term, err := parseVersionTerm(token)
		if err != nil {
			return VersionExpr{}, err
		}
		expr.terms = append(expr.terms, term)
	}
	return expr, nil
}

// splitVersionTerms splits on commas that are not inside a range.
func splitVersionTerms(value string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range value {
		switch r {
		case '[', '(':
			depth++
		case ']', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(value[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(value[start:]))
	return out
}

func parseVersionTerm(token string) (versionTerm, error) {
	if token == "" {
		return versionTerm{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("empty version term")
	}
	if token[0] != '[' && token[0] != '(' {
		return versionTerm{exact: token}, nil
	}
	body := token[1:]
	upperInclusive := false
	closed := false
	if strings.HasSuffix(body, "]") {
		upperInclusive = true
		closed = true
		body = body[:len(body)-1]
	} else if strings.HasSuffix(body, ")") {
		closed = true
		body = body[:len(body)-1]
	}
	sep := " - "
	if !strings.Contains(body, sep) {
		sep = "-"
	}
	lower, upper, ok := strings.Cut(body, sep)
	if !ok {
		return versionTerm{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid version range: %s", token))
	}
	lower = strings.TrimSpace(lower)
	upper = strings.TrimSpace(upper)
	if lower == "" || (closed && upper == "") {
		return versionTerm{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid version range: %s", token))
	}
	return versionTerm{
		rng:   true,
		lower: versionBound{value: lower, inclusive: token[0] == '['},
		upper: versionBound{value: upper, inclusive: upperInclusive},
	}, nil
}

func (e VersionExpr) String() string {
	if e.any {
		return "*"
	}
	return e.raw
}

// Any reports whether the expression matches every version.
func (e VersionExpr) Any() bool {
	return e.any
}

// ValidateBounds checks every range bound against comparator. Exact terms
// are left alone since they may name versions the comparator cannot parse.
func (e VersionExpr) ValidateBounds(comparator VersionComparator) error {
	for _, term := range e.terms {
		if !term.rng {
			continue
		}
		for _, bound := range []string{term.lower.value, term.upper.value} {
			if bound == "" {
				continue
			}
			if err := comparator.Validate(bound); err != nil {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("invalid bound %q in version expression %s", bound, e.raw)).
					WithCause(err)
			}
		}
	}
	return nil
}

// Matches evaluates the expression for version using comparator.
// Exact terms are compared as strings first so unparsable versions can
// still be named explicitly.
func (e VersionExpr) Matches(comparator VersionComparator, version string) (bool, error) {
	if e.any {
		return true, nil
	}
	var firstErr error
	for _, term := range e.terms {
		ok, err := term.matches(comparator, version)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, firstErr
}

func (t versionTerm) matches(comparator VersionComparator, version string) (bool, error) {
	if !t.rng {
		if t.exact == version {
			return true, nil
		}
		c, err := comparator.Compare(version, t.exact)
		if err != nil {
			return false, err
		}
		return c == 0, nil
	}
	c, err := comparator.Compare(version, t.lower.value)
	if err != nil {
		return false, err
	}
	if c < 0 || (c == 0 && !t.lower.inclusive) {
		return false, nil
	}
	if t.upper.value == "" {
		return true, nil
	}
	c, err = comparator.Compare(version, t.upper.value)
	if err != nil {
		return false, err
	}
	if c > 0 || (c == 0 && !t.upper.inclusive) {
		return false, nil
	}
	return true, nil
}

// ParseCapabilityRef splits "web@2.5" or "web@[2.0-3.0)" into the
// capability id and version expression. A bare "web" selects all versions.
func ParseCapabilityRef(raw string) (string, VersionExpr, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", VersionExpr{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("empty capability reference")
	}
	id, version, found := strings.Cut(value, "@")
	id = strings.TrimSpace(id)
	if id == "" || (found && strings.TrimSpace(version) == "") {
		return "", VersionExpr{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid capability reference: %s", raw))
	}
	expr, err := ParseVersionExpr(version)
	if err != nil {
		return "", VersionExpr{}, err
	}
	return id, expr, nil
}
