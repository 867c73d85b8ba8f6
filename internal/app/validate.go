package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"facetkit/internal/core"
)

// Validate loads a configuration against the registry and evaluates its
// constraints. An invalid configuration returns the result together with
// a *core.ValidationError.
func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	registry, err := s.loadRegistry(ctx, req.Registry)
	if err != nil {
		return ValidateResult{}, err
	}
	record, err := s.loadRecord(ctx, req.Configuration)
	if err != nil {
		return ValidateResult{}, err
	}
	configuration, err := registry.ConfigurationFromRecord(record)
	if err != nil {
		return ValidateResult{}, err
	}
	violations := core.NewConstraintEngine().ValidateConfiguration(ctx, configuration)
	s.Metrics.ObserveValidation(violations)

	result := ValidateResult{
		Project:       record.Project,
		Configuration: configuration,
		Violations:    violations,
	}
	log.Ctx(ctx).Debug().Str("project", record.Project).Int("violations", len(violations)).Msg("configuration validated")
	if len(violations) > 0 {
		return result, &core.ValidationError{Violations: violations}
	}
	return result, nil
}
