package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
	"github.com/JoeShih716/go-bank-ledger/pkg/database"
)

func exerciseBackend(t *testing.T, b *openedBackend) {
	t.Helper()
	ctx := context.Background()
	if err := b.store.CreateUser(ctx, "carol", "secret"); err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	acc, err := b.store.OpenAccount(ctx, &domain.Account{UserID: "carol", Balance: decimal.NewFromInt(30), Type: "checking", OwnerName: "Carol"})
	if err != nil {
		t.Fatalf("OpenAccount() error: %v", err)
	}
	if _, err := b.store.Withdraw(ctx, acc.AccountNumber, decimal.NewFromInt(12)); err != nil {
		t.Fatalf("Withdraw() error: %v", err)
	}
	balance, err := b.store.GetBalance(ctx, acc.AccountNumber)
	if err != nil || !balance.Equal(decimal.NewFromInt(18)) {
		t.Fatalf("GetBalance() = %s, %v; want 18", balance, err)
	}
	if err := b.health(ctx); err != nil {
		t.Errorf("health() = %v", err)
	}
}

func TestOpenBackend_SQLite(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{
		Backend: config.BackendSQL,
		Database: database.Config{
			Driver:   database.DriverSQLite,
			Path:     filepath.Join(t.TempDir(), "nested", "ledger.db"),
			LogLevel: "silent",
		},
	}}
	cfg.SetDefaults()

	b, err := openBackend(cfg, zap.NewNop(), true)
	if err != nil {
		t.Fatalf("openBackend() error: %v", err)
	}
	defer b.close()
	exerciseBackend(t, b)
}

func TestOpenBackend_MemoryWithSeedAndWAL(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	seed := `
users:
  - user_id: alice
    password: "1111"
accounts:
  - account_number: 1001
    user_id: alice
    balance: "100"
    type: checking
    owner_name: Alice
`
	if err := os.WriteFile(seedPath, []byte(seed), 0600); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		Store:  config.StoreConfig{Backend: config.BackendMemory},
		Memory: config.MemoryConfig{WALPath: filepath.Join(dir, "ledger.wal"), SeedPath: seedPath},
	}

	b, err := openBackend(cfg, zap.NewNop(), true)
	if err != nil {
		t.Fatalf("openBackend() error: %v", err)
	}
	exerciseBackend(t, b)
	if _, err := b.store.Deposit(context.Background(), 1001, decimal.NewFromInt(5)); err != nil {
		t.Fatal(err)
	}
	if err := b.close(); err != nil {
		t.Fatal(err)
	}

	// 重新開啟後由 seed + WAL 還原
	b, err = openBackend(cfg, zap.NewNop(), true)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer b.close()
	balance, err := b.store.GetBalance(context.Background(), 1001)
	if err != nil || !balance.Equal(decimal.NewFromInt(105)) {
		t.Fatalf("balance after reopen = %s, %v; want 105", balance, err)
	}
	if n, err := b.store.GetAccountNumberForUser(context.Background(), "carol"); err != nil || n == 0 {
		t.Errorf("carol account after reopen = %d, %v", n, err)
	}
}
