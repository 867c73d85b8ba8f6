package ports

import (
	"context"

	"facetkit/internal/types"
)

// ConfigurationStorePort persists configuration records. The key is a file
// path for file stores and a project name for database stores.
type ConfigurationStorePort interface {
	LoadConfiguration(ctx context.Context, key string) (types.ConfigurationRecord, error)
	SaveConfiguration(ctx context.Context, key string, record types.ConfigurationRecord) error
}

// ConfigurationDatabasePort is a store keyed by project name that holds
// many projects at once.
type ConfigurationDatabasePort interface {
	ConfigurationStorePort
	Projects(ctx context.Context) ([]string, error)
	Close() error
}
