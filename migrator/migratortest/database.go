package migratortest

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for pgtestdb
	"github.com/peterldowns/pgtestdb"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/stakecart/migrator"
)

// CreateJournalTestDatabase creates a test database with the journal schema applied.
// Returns the connection pool ready for use.
func CreateJournalTestDatabase(t *testing.T, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	return createTestDatabaseWithMigrator(t, migrator.NewSchemaMigrator(migrationsDir))
}

// CreateSeededTestDatabase creates a test database with the schema applied and
// n demo snapshots journaled for account.
func CreateSeededTestDatabase(t *testing.T, migrationsDir, account string, n int, seedTimeout time.Duration) *pgxpool.Pool {
	t.Helper()

	return createTestDatabaseWithMigrator(t, migrator.NewSeededMigrator(migrationsDir, account, n, seedTimeout))
}

// createTestDatabaseWithMigrator creates a test database using the provided migrator
func createTestDatabaseWithMigrator(t *testing.T, migratorInstance pgtestdb.Migrator) *pgxpool.Pool {
	t.Helper()

	dbConfig := pgtestdb.Custom(t, createTestDatabaseConfig(), migratorInstance)

	pool, err := pgxpool.New(t.Context(), dbConfig.URL())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	t.Logf("testdbconf: %s", dbConfig.URL())

	return pool
}

// createTestDatabaseConfig creates the standard pgtestdb configuration for stakecart tests
func createTestDatabaseConfig() pgtestdb.Config {
	return pgtestdb.Config{
		DriverName: "pgx",
		User:       "stakecart",
		Password:   "stakecart",
		Host:       "localhost",
		Port:       "5432",
		Options:    "sslmode=disable",
	}
}
