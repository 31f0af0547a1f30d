package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// recordingPublisher 記錄收到的事件，err 不為 nil 時回傳錯誤
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Events() []domain.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.LedgerEvent(nil), p.events...)
}

// slowStore 讓 Deposit 卡住直到 ctx 結束
type slowStore struct {
	usecase.Store
}

func (slowStore) Deposit(ctx context.Context, _ int64, _ decimal.Decimal) (*domain.Transaction, error) {
	<-ctx.Done()
	return nil, domain.Unavailable(ctx.Err())
}

// countingStore 計算打到 store 的次數
type countingStore struct {
	usecase.Store
	mu    sync.Mutex
	calls int
}

func (s *countingStore) hit() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *countingStore) Deposit(ctx context.Context, n int64, a decimal.Decimal) (*domain.Transaction, error) {
	s.hit()
	return s.Store.Deposit(ctx, n, a)
}

func (s *countingStore) Withdraw(ctx context.Context, n int64, a decimal.Decimal) (*domain.Transaction, error) {
	s.hit()
	return s.Store.Withdraw(ctx, n, a)
}

func (s *countingStore) Transfer(ctx context.Context, from, to int64, a decimal.Decimal) (*domain.Transaction, error) {
	s.hit()
	return s.Store.Transfer(ctx, from, to, a)
}

func newMemoryStore(t *testing.T) *memory.MutexLedger {
	t.Helper()
	store, err := memory.NewMutexLedger(memory.WithSeed(&memory.Seed{
		Users: []domain.User{
			{UserID: "alice", Password: "1111"},
			{UserID: "bob", Password: "2222"},
		},
		Accounts: []domain.Account{
			{AccountNumber: 1, UserID: "alice", Balance: decimal.NewFromInt(100), Type: "checking", OwnerName: "Alice"},
			{AccountNumber: 2, UserID: "bob", Balance: decimal.NewFromInt(20), Type: "checking", OwnerName: "Bob"},
		},
	}))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCoreUseCase_RejectsInvalidInputBeforeStore(t *testing.T) {
	store := &countingStore{Store: newMemoryStore(t)}
	core := usecase.NewCoreUseCase(store)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"deposit zero", func() error { _, err := core.Deposit(ctx, 1, decimal.Zero); return err }},
		{"deposit negative", func() error { _, err := core.Deposit(ctx, 1, dec("-5")); return err }},
		{"withdraw zero", func() error { _, err := core.Withdraw(ctx, 1, decimal.Zero); return err }},
		{"withdraw bad account", func() error { _, err := core.Withdraw(ctx, 0, dec("1")); return err }},
		{"transfer negative", func() error { _, err := core.Transfer(ctx, 1, 2, dec("-1")); return err }},
		{"transfer bad receiver", func() error { _, err := core.Transfer(ctx, 1, -2, dec("1")); return err }},
		{"balance bad account", func() error { _, err := core.CheckBalance(ctx, -1); return err }},
		{"history bad account", func() error { _, err := core.GetTransactionHistory(ctx, 0); return err }},
		{"account for empty user", func() error { _, err := core.GetAccountNumberForUser(ctx, ""); return err }},
		{"authenticate empty user", func() error { _, err := core.AuthenticateUser(ctx, "", "x"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
	if store.calls != 0 {
		t.Errorf("store called %d times for invalid input", store.calls)
	}
}

func TestCoreUseCase_PublishesAfterCommit(t *testing.T) {
	pub := &recordingPublisher{}
	core := usecase.NewCoreUseCase(newMemoryStore(t), usecase.WithEventPublisher(pub))
	ctx := context.Background()

	if _, err := core.Deposit(ctx, 1, dec("10")); err != nil {
		t.Fatal(err)
	}
	if _, err := core.Withdraw(ctx, 2, dec("50")); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Withdraw() = %v, want ErrInsufficientFunds", err)
	}
	tran, err := core.Transfer(ctx, 1, 2, dec("30.5"))
	if err != nil {
		t.Fatal(err)
	}

	events := pub.Events()
	if len(events) != 2 {
		t.Fatalf("published %d events, want 2 (rejected withdraw must not publish)", len(events))
	}
	if events[0].Type != domain.TransactionTypeDeposit || !events[0].Amount.Equal(dec("10")) {
		t.Errorf("first event = %+v", events[0])
	}
	last := events[1]
	if last.Type != domain.TransactionTypeTransfer || last.AccountNumber != 1 || last.CounterpartyAccount != 2 {
		t.Errorf("transfer event = %+v", last)
	}
	if last.Reference != tran.Reference.String() || last.TransactionID != tran.TransactionID {
		t.Errorf("event reference/id = %s/%d, want %s/%d", last.Reference, last.TransactionID, tran.Reference, tran.TransactionID)
	}
}

func TestCoreUseCase_PublishFailureDoesNotFailOperation(t *testing.T) {
	core, logs := newObservedCore(t, newMemoryStore(t), usecase.WithEventPublisher(&recordingPublisher{err: errors.New("broker down")}))

	tran, err := core.Deposit(context.Background(), 1, dec("5"))
	if err != nil {
		t.Fatalf("Deposit() error = %v, want nil when only publishing fails", err)
	}
	if tran == nil || !tran.Amount.Equal(dec("5")) {
		t.Fatalf("Deposit() = %+v", tran)
	}
	balance, err := core.CheckBalance(context.Background(), 1)
	if err != nil || !balance.Equal(dec("105")) {
		t.Fatalf("CheckBalance() = %s, %v; want 105", balance, err)
	}
	if logs.FilterMessage("Failed to publish ledger event").Len() != 1 {
		t.Errorf("expected one publish failure warning, got %v", logs.All())
	}
}

func TestCoreUseCase_OpTimeout(t *testing.T) {
	core, logs := newObservedCore(t, slowStore{Store: newMemoryStore(t)}, usecase.WithOpTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := core.Deposit(context.Background(), 1, dec("1"))
	if !errors.Is(err, domain.ErrStoreUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Deposit() = %v, want StoreUnavailable wrapping DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Deposit() took %v, timeout not applied", elapsed)
	}
	if logs.FilterMessage("Deposit failed").FilterLevelExact(zap.ErrorLevel).Len() != 1 {
		t.Errorf("expected an error-level failure log, got %v", logs.All())
	}
}

func TestCoreUseCase_Queries(t *testing.T) {
	core := usecase.NewCoreUseCase(newMemoryStore(t))
	ctx := context.Background()

	if _, err := core.Transfer(ctx, 1, 2, dec("40")); err != nil {
		t.Fatal(err)
	}

	ok, err := core.AuthenticateUser(ctx, "alice", "1111")
	if err != nil || !ok {
		t.Errorf("AuthenticateUser(alice) = %v, %v", ok, err)
	}
	ok, err = core.AuthenticateUser(ctx, "alice", "wrong")
	if err != nil || ok {
		t.Errorf("AuthenticateUser(wrong password) = %v, %v", ok, err)
	}

	n, err := core.GetAccountNumberForUser(ctx, "bob")
	if err != nil || n != 2 {
		t.Errorf("GetAccountNumberForUser(bob) = %d, %v", n, err)
	}
	acc, err := core.GetAccountInfo(ctx, 2)
	if err != nil || !acc.Balance.Equal(dec("60")) {
		t.Errorf("GetAccountInfo(2) = %+v, %v", acc, err)
	}
	history, err := core.GetTransactionHistory(ctx, 1)
	if err != nil || len(history) != 1 || history[0].Type != domain.TransactionTypeTransfer {
		t.Errorf("GetTransactionHistory(1) = %+v, %v", history, err)
	}
	if _, err := core.CheckBalance(ctx, 404); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("CheckBalance(404) = %v, want ErrAccountNotFound", err)
	}
}

func newObservedCore(t *testing.T, store usecase.Store, opts ...usecase.Option) (*usecase.CoreUseCase, *observer.ObservedLogs) {
	t.Helper()
	zcore, logs := observer.New(zap.DebugLevel)
	opts = append(opts, usecase.WithLogger(zap.New(zcore)))
	return usecase.NewCoreUseCase(store, opts...), logs
}
