package app

import (
	"time"

	"facetkit/internal/adapters"
	"facetkit/internal/metrics"
	"facetkit/internal/policies"
	"facetkit/internal/ports"
)

type Service struct {
	Configurations ports.ConfigurationStorePort
	Graphs         ports.ComponentGraphPort
	Policy         ports.ActionPolicyPort
	Metrics        *metrics.Collector
	OpenStore      func(dsn string) (ports.ConfigurationDatabasePort, error)
	Clock          func() time.Time
}

func NewService() Service {
	return Service{
		Configurations: adapters.NewConfigurationFileAdapter(),
		Graphs:         adapters.NewComponentGraphFileAdapter(),
		Policy:         policies.ActionPolicy{},
		Metrics:        metrics.NewCollector(),
		OpenStore:      openSQLiteStore,
		Clock:          time.Now,
	}
}

func openSQLiteStore(dsn string) (ports.ConfigurationDatabasePort, error) {
	store, err := adapters.OpenConfigurationSQLiteStore(dsn)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}
