package ports

import "facetkit/internal/types"

// ActionPolicyPort decides whether an action may be staged against a
// capability given its origin and whether the capability is fixed.
type ActionPolicyPort interface {
	CheckAction(action types.ActionType, origin types.ActionOrigin, capability string, fixed bool) error
}
