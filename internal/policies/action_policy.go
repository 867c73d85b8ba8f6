package policies

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"facetkit/internal/types"
)

// ActionPolicy guards staged actions. Fixed capabilities may only be
// removed or re-versioned by explicit user actions; configured rules are
// then checked in order and the first match decides.
type ActionPolicy struct {
	Rules    []types.ActionRule
	compiled []compiledRule
}

type compiledRule struct {
	patterns []namePattern
	actions  map[types.ActionType]bool
	origins  map[types.ActionOrigin]bool
	effect   types.RuleEffect
}

type namePattern struct {
	kind patternKind
	name string
}

type patternKind int

const (
	patternExact patternKind = iota
	patternPrefix
	patternWildcard
	patternInvalid
)

func NewActionPolicy(rules []types.ActionRule) (ActionPolicy, error) {
	policy := ActionPolicy{Rules: rules}
	for idx, rule := range rules {
		compiled, err := compileRule(rule)
		if err != nil {
			return ActionPolicy{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid action rule %d (%s)", idx, rule.Name)).
				WithCause(err)
		}
		policy.compiled = append(policy.compiled, compiled)
	}
	return policy, nil
}

func compileRule(rule types.ActionRule) (compiledRule, error) {
	compiled := compiledRule{effect: rule.Effect}
	switch rule.Effect {
	case types.RuleAllow, types.RuleDeny:
	default:
		return compiledRule{}, fmt.Errorf("unknown effect %q", rule.Effect)
	}
	for _, pattern := range rule.Matches {
		name, kind := parseNamePattern(pattern)
		if kind == patternInvalid {
			return compiledRule{}, fmt.Errorf("empty capability pattern")
		}
		compiled.patterns = append(compiled.patterns, namePattern{kind: kind, name: name})
	}
	if len(compiled.patterns) == 0 {
		return compiledRule{}, fmt.Errorf("rule matches no capabilities")
	}
	if len(rule.Actions) > 0 {
		compiled.actions = map[types.ActionType]bool{}
		for _, action := range rule.Actions {
			compiled.actions[action] = true
		}
	}
	if len(rule.Origins) > 0 {
		compiled.origins = map[types.ActionOrigin]bool{}
		for _, origin := range rule.Origins {
			compiled.origins[origin] = true
		}
	}
	return compiled, nil
}

func (p ActionPolicy) CheckAction(action types.ActionType, origin types.ActionOrigin, capability string, fixed bool) error {
	if fixed && origin == types.OriginAuto && action != types.ActionInstall {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("fixed capability %s cannot be changed by automatic resolution", capability))
	}
	for idx, rule := range p.compiled {
		if !rule.applies(action, origin, capability) {
			continue
		}
		if rule.effect == types.RuleDeny {
			return errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg(fmt.Sprintf("%s of %s denied by rule %s", action, capability, ruleName(p.Rules[idx], idx)))
		}
		return nil
	}
	return nil
}

func (r compiledRule) applies(action types.ActionType, origin types.ActionOrigin, capability string) bool {
	if r.actions != nil && !r.actions[action] {
		return false
	}
	if r.origins != nil && !r.origins[origin] {
		return false
	}
	for _, pattern := range r.patterns {
		switch pattern.kind {
		case patternWildcard:
			return true
		case patternPrefix:
			if strings.HasPrefix(capability, pattern.name) {
				return true
			}
		case patternExact:
			if capability == pattern.name {
				return true
			}
		}
	}
	return false
}

func parseNamePattern(value string) (string, patternKind) {
	pattern := strings.TrimSpace(value)
	if pattern == "" {
		return "", patternInvalid
	}
	if pattern == "*" {
		return "", patternWildcard
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.TrimSuffix(pattern, "*"), patternPrefix
	}
	return pattern, patternExact
}

func ruleName(rule types.ActionRule, idx int) string {
	if rule.Name != "" {
		return rule.Name
	}
	return fmt.Sprintf("#%d", idx)
}
