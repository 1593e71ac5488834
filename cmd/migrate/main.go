package main

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "github.com/ClickHouse/clickhouse-go"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"ProjectsAPI/internal/config"
	"ProjectsAPI/internal/migrations"
)

var (
	targetDB      string
	migrationsDir string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
		Long: `Apply or roll back schema migrations for the projects database (Postgres)
or the event analytics store (ClickHouse). Connection settings come from the
same environment variables as the API server.

Examples:
  migrate up                         # apply all Postgres migrations
  migrate down --db clickhouse       # roll back all ClickHouse migrations
  migrate steps -- -1                # roll back one Postgres migration
  migrate version`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&targetDB, "db", migrations.TargetPostgres, "Target database: postgres or clickhouse")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "", "Migrations directory (defaults to MIGRATIONS_DIR / CLICKHOUSE_MIGRATIONS_DIR)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrate(func(m *migrate.Migrate) error {
				return migrations.IgnoreNoChange(m.Up())
			})
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrate(func(m *migrate.Migrate) error {
				return migrations.IgnoreNoChange(m.Down())
			})
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "steps N",
		Short: "Apply N migrations (negative N rolls back)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n == 0 {
				return fmt.Errorf("steps expects a non-zero integer, got %q", args[0])
			}
			return withMigrate(func(m *migrate.Migrate) error {
				return m.Steps(n)
			})
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrate(func(m *migrate.Migrate) error {
				v, dirty, err := m.Version()
				if err == migrate.ErrNilVersion {
					cmd.Println("no migrations applied")
					return nil
				}
				if err != nil {
					return err
				}
				cmd.Printf("version %d (dirty: %t)\n", v, dirty)
				return nil
			})
		},
	})
	return rootCmd
}

// resolveTarget возвращает драйвер, DSN и каталог миграций для --db
func resolveTarget(cfg *config.Config) (driverName, dsn, dir string, err error) {
	switch targetDB {
	case migrations.TargetPostgres:
		driverName, dsn, dir = "postgres", cfg.Database.PostgresDSN(), cfg.Database.MigrationsDir
	case migrations.TargetClickhouse:
		if cfg.Events.ClickhouseDSN == "" {
			return "", "", "", fmt.Errorf("CLICKHOUSE_DSN is required for --db clickhouse")
		}
		driverName, dsn, dir = "clickhouse", cfg.Events.ClickhouseDSN, cfg.Events.ClickhouseMigrationsDir
	default:
		return "", "", "", fmt.Errorf("--db must be %q or %q, got %q", migrations.TargetPostgres, migrations.TargetClickhouse, targetDB)
	}
	if migrationsDir != "" {
		dir = migrationsDir
	}
	return driverName, dsn, dir, nil
}

func withMigrate(fn func(m *migrate.Migrate) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	driverName, dsn, dir, err := resolveTarget(cfg)
	if err != nil {
		return err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", targetDB, err)
	}
	m, err := migrations.New(db, targetDB, dir)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() { _, _ = m.Close() }()
	return fn(m)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
