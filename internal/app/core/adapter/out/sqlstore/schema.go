package sqlstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/JoeShih716/go-bank-ledger/pkg/database"
)

//go:embed migrations
var migrationFS embed.FS

// EnsureSchema 建立 users / accounts / transactions 三張表 (已存在則不動)
//
// 每個方言各有一組 migration，重複執行是安全的。
// 使用獨立的連線，migrate 結束時會關閉它，不影響 Store 的連線池。
//
// 回傳:
//
//	uint: 目前的 schema 版本
//	error: 連線或 migration 失敗
func EnsureSchema(cfg database.Config) (uint, error) {
	db, err := database.OpenRaw(cfg)
	if err != nil {
		return 0, fmt.Errorf("ensure schema: %w", err)
	}

	m, err := newMigrator(cfg.Driver, db)
	if err != nil {
		db.Close()
		return 0, fmt.Errorf("ensure schema: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("ensure schema: migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("ensure schema: read version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("ensure schema: version %d is dirty", version)
	}
	return version, nil
}

// DropSchema 依序回滾所有 migration (只給測試與 CLI 的 migrate down 使用)
func DropSchema(cfg database.Config) error {
	db, err := database.OpenRaw(cfg)
	if err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	m, err := newMigrator(cfg.Driver, db)
	if err != nil {
		db.Close()
		return fmt.Errorf("drop schema: %w", err)
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("drop schema: migrate down: %w", err)
	}
	return nil
}

func newMigrator(driver string, db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("load migrations for %s: %w", driver, err)
	}

	var target migratedb.Driver
	switch driver {
	case database.DriverMySQL:
		target, err = mysql.WithInstance(db, &mysql.Config{})
	case database.DriverPostgres:
		target, err = postgres.WithInstance(db, &postgres.Config{})
	case database.DriverSQLite:
		target, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		err = fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		src.Close()
		return nil, err
	}

	return migrate.NewWithInstance("iofs", src, driver, target)
}
