package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/sqlstore"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
	"github.com/JoeShih716/go-bank-ledger/pkg/database"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

// backend 是依設定組出來的帳本儲存
type backend interface {
	usecase.Store
	usecase.Provisioner
}

type openedBackend struct {
	store  backend
	health func(ctx context.Context) error
	close  func() error
}

// openBackend 依 store.backend 建立 sqlstore 或 memory 帳本
//
// 參數:
//
//	migrateSchema: sql 後端是否先執行 migration (serve 時為 true)
func openBackend(cfg *config.Config, log *zap.Logger, migrateSchema bool) (*openedBackend, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return openMemory(cfg.Memory, log)
	default:
		return openSQL(cfg.Store.Database, log, migrateSchema)
	}
}

func openSQL(dbCfg database.Config, log *zap.Logger, migrateSchema bool) (*openedBackend, error) {
	if err := prepareSQLite(dbCfg); err != nil {
		return nil, err
	}
	if migrateSchema {
		version, err := sqlstore.EnsureSchema(dbCfg)
		if err != nil {
			return nil, err
		}
		log.Info("Schema ready", zap.String("driver", dbCfg.Driver), zap.Uint("version", version))
	}
	client, err := database.NewClient(dbCfg, log)
	if err != nil {
		return nil, err
	}
	log.Info("Connected to database", zap.String("driver", client.Driver()))
	return &openedBackend{
		store:  sqlstore.NewStore(client),
		health: func(context.Context) error { return client.Ping() },
		close:  client.Close,
	}, nil
}

// prepareSQLite 建立 SQLite 檔案所在的目錄
func prepareSQLite(dbCfg database.Config) error {
	if dbCfg.Driver != database.DriverSQLite {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dbCfg.Path), wal.FileModeDir); err != nil {
		return fmt.Errorf("create sqlite dir: %w", err)
	}
	return nil
}

func openMemory(memCfg config.MemoryConfig, log *zap.Logger) (*openedBackend, error) {
	var opts []memory.Option
	if memCfg.SeedPath != "" {
		seed, err := memory.LoadSeed(memCfg.SeedPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, memory.WithSeed(seed))
		log.Info("Seed loaded",
			zap.String("path", memCfg.SeedPath),
			zap.Int("users", len(seed.Users)),
			zap.Int("accounts", len(seed.Accounts)))
	}

	closeFn := func() error { return nil }
	if memCfg.WALPath != "" {
		w, err := wal.Open(memCfg.WALPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, memory.WithWAL(w))
		closeFn = w.Close
	}

	ledger, err := memory.NewMutexLedger(opts...)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	log.Info("Memory ledger ready", zap.String("wal", memCfg.WALPath))
	return &openedBackend{
		store:  ledger,
		health: func(context.Context) error { return nil },
		close:  closeFn,
	}, nil
}
