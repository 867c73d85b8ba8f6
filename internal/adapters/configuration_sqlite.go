package adapters

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	_ "modernc.org/sqlite"

	"facetkit/internal/ports"
	"facetkit/internal/types"
)

// ConfigurationSQLiteStore keeps configuration records in SQLite, keyed by
// project name.
type ConfigurationSQLiteStore struct {
	db *sql.DB
}

// OpenConfigurationSQLiteStore opens dsn with the sqlite driver and ensures
// the schema exists.
func OpenConfigurationSQLiteStore(dsn string) (*ConfigurationSQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open configuration store").
			WithCause(err)
	}
	// an in-memory database exists per connection
	db.SetMaxOpenConns(1)
	store, err := NewConfigurationSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func NewConfigurationSQLiteStore(db *sql.DB) (*ConfigurationSQLiteStore, error) {
	if db == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("db is nil")
	}
	if err := ensureConfigurationSchema(db); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create configuration schema").
			WithCause(err)
	}
	return &ConfigurationSQLiteStore{db: db}, nil
}

func (s *ConfigurationSQLiteStore) Close() error {
	return s.db.Close()
}

func (s *ConfigurationSQLiteStore) LoadConfiguration(ctx context.Context, project string) (types.ConfigurationRecord, error) {
	record := types.ConfigurationRecord{Project: project}
	var primary sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT primary_runtime FROM configurations WHERE project = ?`, project).Scan(&primary)
	if err == sql.ErrNoRows {
		return types.ConfigurationRecord{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no stored configuration for project %s", project))
	}
	if err != nil {
		return types.ConfigurationRecord{}, storeError("failed to load configuration", err)
	}
	record.PrimaryRuntime = primary.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT capability, version FROM configuration_facets
		WHERE project = ? ORDER BY capability ASC, version ASC
	`, project)
	if err != nil {
		return types.ConfigurationRecord{}, storeError("failed to load installed facets", err)
	}
	defer rows.Close()
	for rows.Next() {
		var entry types.InstalledEntry
		if err := rows.Scan(&entry.Capability, &entry.Version); err != nil {
			return types.ConfigurationRecord{}, storeError("failed to read installed facet", err)
		}
		record.Installed = append(record.Installed, entry)
	}
	if err := rows.Err(); err != nil {
		return types.ConfigurationRecord{}, storeError("failed to read installed facets", err)
	}

	record.Fixed, err = s.loadNames(ctx, `SELECT capability FROM configuration_fixed WHERE project = ? ORDER BY capability ASC`, project)
	if err != nil {
		return types.ConfigurationRecord{}, err
	}
	record.TargetedRuntimes, err = s.loadNames(ctx, `SELECT runtime FROM configuration_runtimes WHERE project = ? ORDER BY runtime ASC`, project)
	if err != nil {
		return types.ConfigurationRecord{}, err
	}
	return record, nil
}

func (s *ConfigurationSQLiteStore) loadNames(ctx context.Context, query string, project string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, storeError("failed to load configuration", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storeError("failed to read configuration", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to read configuration", err)
	}
	return names, nil
}

// SaveConfiguration replaces whatever is stored for project in one
// transaction.
func (s *ConfigurationSQLiteStore) SaveConfiguration(ctx context.Context, project string, record types.ConfigurationRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"configuration_facets", "configuration_fixed", "configuration_runtimes", "configurations"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE project = ?`, project); err != nil {
			return storeError("failed to clear configuration", err)
		}
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO configurations (project, primary_runtime) VALUES (?, ?)`, project, record.PrimaryRuntime); err != nil {
		return storeError("failed to store configuration", err)
	}
	for _, entry := range record.Installed {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO configuration_facets (project, capability, version) VALUES (?, ?, ?)
		`, project, entry.Capability, entry.Version); err != nil {
			return storeError("failed to store installed facet", err)
		}
	}
	for _, capability := range record.Fixed {
		if _, err = tx.ExecContext(ctx, `INSERT INTO configuration_fixed (project, capability) VALUES (?, ?)`, project, capability); err != nil {
			return storeError("failed to store fixed facet", err)
		}
	}
	for _, runtime := range record.TargetedRuntimes {
		if _, err = tx.ExecContext(ctx, `INSERT INTO configuration_runtimes (project, runtime) VALUES (?, ?)`, project, runtime); err != nil {
			return storeError("failed to store targeted runtime", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return storeError("failed to commit configuration", err)
	}
	return nil
}

// Projects lists every stored project name.
func (s *ConfigurationSQLiteStore) Projects(ctx context.Context) ([]string, error) {
	return s.loadAll(ctx, `SELECT project FROM configurations ORDER BY project ASC`)
}

func (s *ConfigurationSQLiteStore) loadAll(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeError("failed to list projects", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, storeError("failed to list projects", err)
		}
		out = append(out, value)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to list projects", err)
	}
	return out, nil
}

func storeError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(err)
}

func ensureConfigurationSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS configurations (
			project TEXT PRIMARY KEY,
			primary_runtime TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS configuration_facets (
			project TEXT NOT NULL,
			capability TEXT NOT NULL,
			version TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS configuration_fixed (
			project TEXT NOT NULL,
			capability TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS configuration_runtimes (
			project TEXT NOT NULL,
			runtime TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_configuration_facets_project ON configuration_facets(project);
	`)
	return err
}

var _ ports.ConfigurationDatabasePort = (*ConfigurationSQLiteStore)(nil)
