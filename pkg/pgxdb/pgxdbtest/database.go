package pgxdbtest

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for pgtestdb
	"github.com/peterldowns/pgtestdb"
	"github.com/peterldowns/pgtestdb/migrators/sqlmigrator"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"
)

// CreateTestDatabase creates a test database with migrations applied.
// Returns the connection pool and database URL for further connections.
func CreateTestDatabase(t *testing.T, migrationsDir string) (*pgxpool.Pool, string) {
	t.Helper()

	config := pgtestdb.Config{
		DriverName: "pgx",
		User:       "stakecart",
		Password:   "stakecart",
		Host:       "localhost",
		Port:       "5432",
		Options:    "sslmode=disable",
	}

	source := &migrate.FileMigrationSource{
		Dir: migrationsDir,
	}
	migrationSet := &migrate.MigrationSet{
		TableName: "schema_migrations",
	}
	migrator := sqlmigrator.New(source, migrationSet)

	dbConfig := pgtestdb.Custom(t, config, migrator)
	dbURL := dbConfig.URL()

	t.Logf("testdbconf: %s", dbURL)

	pool, err := createTestConnection(t.Context(), dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool, dbURL
}

// createTestConnection creates a small, fail-fast pool for tests
func createTestConnection(ctx context.Context, connectionString string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, err
	}

	config.MinConns = 1
	config.MaxConns = 2

	config.MaxConnLifetime = 10 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	config.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, config)
}

// CountRows returns the number of rows in table
func CountRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()

	var n int
	err := pool.QueryRow(t.Context(), "SELECT COUNT(*) FROM "+table).Scan(&n)
	require.NoError(t, err)
	return n
}
