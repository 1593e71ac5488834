// Пакет migrations применяет SQL-миграции golang-migrate к Postgres и ClickHouse
package migrations

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/clickhouse"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	TargetPostgres   = "postgres"
	TargetClickhouse = "clickhouse"
)

// New создаёт экземпляр migrate для открытого соединения db и каталога dir.
// Закрытие возвращённого *migrate.Migrate закрывает и db
func New(db *sql.DB, target, dir string) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)
	switch target {
	case TargetPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case TargetClickhouse:
		driver, err = clickhouse.WithInstance(db, &clickhouse.Config{})
	default:
		return nil, fmt.Errorf("unknown migration target %q", target)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migrate driver: %w", target, err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, target, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migrate instance: %w", target, err)
	}
	return m, nil
}

// Up применяет все up-миграции; отсутствие новых миграций не ошибка
func Up(db *sql.DB, target, dir string) error {
	m, err := New(db, target, dir)
	if err != nil {
		return err
	}
	if err := IgnoreNoChange(m.Up()); err != nil {
		return fmt.Errorf("failed to apply %s migrations: %w", target, err)
	}
	return nil
}

// IgnoreNoChange убирает migrate.ErrNoChange
func IgnoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
