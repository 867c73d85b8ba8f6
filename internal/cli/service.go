package cli

import (
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/viper"

	"facetkit/internal/app"
	"facetkit/internal/policies"
	"facetkit/internal/types"
)

// newAppService builds the application service, compiling any
// action_rules from the config file into the action policy.
func newAppService() (app.Service, error) {
	service := app.NewService()
	var rules []types.ActionRule
	if err := viper.UnmarshalKey("action_rules", &rules); err != nil {
		return app.Service{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid action_rules in config").
			WithCause(err)
	}
	policy, err := policies.NewActionPolicy(rules)
	if err != nil {
		return app.Service{}, err
	}
	service.Policy = policy
	return service, nil
}
