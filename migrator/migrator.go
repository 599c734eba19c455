package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/peterldowns/pgtestdb"
	"github.com/peterldowns/pgtestdb/migrators/sqlmigrator"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/shopspring/decimal"

	"github.com/screwyprof/stakecart/pkg/pgxdb"
	"github.com/screwyprof/stakecart/staking"
	"github.com/screwyprof/stakecart/staking/store/pgxstore"
)

// Migration constants
const (
	migrationsTableName = "schema_migrations"
	schemaHashPrefix    = "schema_only_"
	seededHashPrefix    = "seeded_demo_"
)

// Migration-related errors
var (
	ErrMigrationExecution = errors.New("migration execution failed")
	ErrSeedFailed         = errors.New("seeding demo journal failed")
)

// SchemaMigrator applies only database schema migrations
// Used for production and tests that need schema-only setup
type SchemaMigrator struct {
	migrationsDir string
}

// NewSchemaMigrator creates a migrator that applies schema migrations only
func NewSchemaMigrator(migrationsDir string) *SchemaMigrator {
	return &SchemaMigrator{
		migrationsDir: migrationsDir,
	}
}

func (m *SchemaMigrator) Hash() (string, error) {
	baseHash, err := migrationsHash(m.migrationsDir)
	if err != nil {
		return "", err
	}
	return schemaHashPrefix + baseHash, nil
}

func (m *SchemaMigrator) Migrate(ctx context.Context, db *sql.DB, conf pgtestdb.Config) error {
	return applyMigrations(db, m.migrationsDir)
}

// SeededMigrator applies schema migrations and journals demo reconciliations
// for one account. Used for web API tests that need history to read.
type SeededMigrator struct {
	migrationsDir string
	account       string
	snapshots     int
	seedTimeout   time.Duration
}

// NewSeededMigrator creates a migrator that applies schema + seeds demo snapshots
func NewSeededMigrator(migrationsDir, account string, snapshots int, seedTimeout time.Duration) *SeededMigrator {
	return &SeededMigrator{
		migrationsDir: migrationsDir,
		account:       account,
		snapshots:     snapshots,
		seedTimeout:   seedTimeout,
	}
}

func (m *SeededMigrator) Hash() (string, error) {
	baseHash, err := migrationsHash(m.migrationsDir)
	if err != nil {
		return "", err
	}
	return seededHashPrefix + baseHash + "_" + m.account + "_" + strconv.Itoa(m.snapshots), nil
}

func (m *SeededMigrator) Migrate(ctx context.Context, db *sql.DB, conf pgtestdb.Config) error {
	if err := applyMigrations(db, m.migrationsDir); err != nil {
		return err
	}
	return m.seedDemoData(ctx, conf.URL())
}

// seedDemoData records snapshots 1..n for the demo account, one minute apart.
// Snapshot i delegates i tokens to each of demo validators v1 and v2, and the
// last one carries an unbonding entry.
func (m *SeededMigrator) seedDemoData(ctx context.Context, dbURL string) error {
	slog.InfoContext(ctx, "🌱 Seeding demo journal",
		"account", m.account,
		"snapshots", m.snapshots,
		"timeout", m.seedTimeout)

	seedCtx, cancel := context.WithTimeout(ctx, m.seedTimeout)
	defer cancel()

	pool, err := pgxdb.NewConnection(seedCtx, dbURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := SeedDemoJournal(seedCtx, pool, m.account, m.snapshots); err != nil {
		return err
	}

	slog.InfoContext(seedCtx, "✅ Demo journal seeded")
	return nil
}

// SeedDemoJournal records DemoSnapshots(account, n) through the journal
func SeedDemoJournal(ctx context.Context, pool *pgxpool.Pool, account string, n int) error {
	journal, _ := pgxstore.New(pool)
	for _, s := range DemoSnapshots(account, n) {
		if err := journal.Record(ctx, s); err != nil {
			return fmt.Errorf("%w: %w", ErrSeedFailed, err)
		}
	}
	return nil
}

// DemoSnapshots builds the snapshots SeededMigrator records
func DemoSnapshots(account string, n int) []staking.Snapshot {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snapshots := make([]staking.Snapshot, 0, n)
	for i := 1; i <= n; i++ {
		at := start.Add(time.Duration(i) * time.Minute)
		amount := decimal.NewFromInt(int64(i))
		s := staking.Snapshot{
			Account:    account,
			Generation: 1,
			At:         at,
			Committed: map[staking.ValidatorID]decimal.Decimal{
				"v1": amount,
				"v2": amount,
			},
			Unbonding: map[staking.ValidatorID]staking.UnbondingDelegation{},
		}
		if i == n {
			s.Unbonding["v3"] = staking.UnbondingDelegation{
				MinTime: at.Add(21 * 24 * time.Hour),
				Balance: staking.Coin{Amount: decimal.NewFromInt(10), Denom: "atom"},
			}
		}
		snapshots = append(snapshots, s)
	}
	return snapshots
}

// ApplyMigrations applies database migrations using sql-migrate with the provided pgx pool
func ApplyMigrations(pool *pgxpool.Pool, migrationsDir string) error {
	// Create sql.DB from the pgx pool for sql-migrate
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return applyMigrations(db, migrationsDir)
}

func migrationsHash(migrationsDir string) (string, error) {
	source := &migrate.FileMigrationSource{Dir: migrationsDir}
	migrationSet := &migrate.MigrationSet{TableName: migrationsTableName}

	hash, err := sqlmigrator.New(source, migrationSet).Hash()
	if err != nil {
		return "", fmt.Errorf("failed to calculate migration hash for %s: %w", migrationsDir, err)
	}
	return hash, nil
}

// applyMigrations applies database migrations using sql-migrate
func applyMigrations(db *sql.DB, migrationsDir string) error {
	source := &migrate.FileMigrationSource{Dir: migrationsDir}
	migrationSet := &migrate.MigrationSet{TableName: migrationsTableName}

	_, err := migrationSet.Exec(db, "postgres", source, migrate.Up)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationExecution, err)
	}
	return nil
}
