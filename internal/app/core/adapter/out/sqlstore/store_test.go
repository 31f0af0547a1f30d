package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/pkg/database"
)

func newTestStore(t *testing.T) (*Store, *database.Client) {
	t.Helper()
	cfg := database.Config{
		Driver:   database.DriverSQLite,
		Path:     filepath.Join(t.TempDir(), "ledger.db"),
		LogLevel: "silent",
	}
	cfg.SetDefaults()

	if _, err := EnsureSchema(cfg); err != nil {
		t.Fatalf("EnsureSchema() error: %v", err)
	}
	client, err := database.NewClient(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewStore(client), client
}

// openAccount 建立使用者並開一個帶有初始餘額的帳戶
func openAccount(t *testing.T, s *Store, userID string, balance int64) int64 {
	t.Helper()
	ctx := context.Background()
	if err := s.CreateUser(ctx, userID, "pw-"+userID); err != nil && !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Fatalf("CreateUser(%s) error: %v", userID, err)
	}
	acc, err := s.OpenAccount(ctx, &domain.Account{
		UserID:    userID,
		Balance:   decimal.NewFromInt(balance),
		Type:      "checking",
		OwnerName: strings.ToUpper(userID),
	})
	if err != nil {
		t.Fatalf("OpenAccount(%s) error: %v", userID, err)
	}
	return acc.AccountNumber
}

func assertBalance(t *testing.T, s *Store, accountNumber int64, want int64) {
	t.Helper()
	got, err := s.GetBalance(context.Background(), accountNumber)
	if err != nil {
		t.Fatalf("GetBalance(%d) error: %v", accountNumber, err)
	}
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Fatalf("balance of %d = %s, want %d", accountNumber, got, want)
	}
}

func historyLen(t *testing.T, s *Store, accountNumber int64) int {
	t.Helper()
	history, err := s.GetTransactionHistory(context.Background(), accountNumber)
	if err != nil {
		t.Fatalf("GetTransactionHistory(%d) error: %v", accountNumber, err)
	}
	return len(history)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	cfg := database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "schema.db")}
	cfg.SetDefaults()

	for i := 0; i < 2; i++ {
		version, err := EnsureSchema(cfg)
		if err != nil {
			t.Fatalf("EnsureSchema() run %d error: %v", i+1, err)
		}
		if version != 5 {
			t.Fatalf("EnsureSchema() version = %d, want 5", version)
		}
	}

	if err := DropSchema(cfg); err != nil {
		t.Fatalf("DropSchema() error: %v", err)
	}
}

func TestDeposit(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	acc := openAccount(t, s, "alice", 100)

	tran, err := s.Deposit(ctx, acc, decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Deposit() error: %v", err)
	}
	if tran.Type != domain.TransactionTypeDeposit || tran.AccountNumber != acc || !tran.Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Deposit() record = %+v", tran)
	}
	if tran.TransactionID == 0 || tran.Timestamp.IsZero() {
		t.Errorf("Deposit() record missing id or timestamp: %+v", tran)
	}
	if tran.BalanceAfter == nil || !tran.BalanceAfter.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Deposit() BalanceAfter = %v, want 150", tran.BalanceAfter)
	}
	assertBalance(t, s, acc, 150)
	if n := historyLen(t, s, acc); n != 1 {
		t.Errorf("history length = %d, want 1", n)
	}
}

func TestDeposit_UnknownAccount(t *testing.T) {
	s, client := newTestStore(t)

	_, err := s.Deposit(context.Background(), 9999, decimal.NewFromInt(10))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Deposit() = %v, want ErrNotFound", err)
	}
	var count int64
	client.DB().Model(&sqlTransaction{}).Count(&count)
	if count != 0 {
		t.Errorf("transactions = %d, want 0", count)
	}
}

func TestWithdraw(t *testing.T) {
	tests := []struct {
		name        string
		balance     int64
		amount      int64
		wantErr     error
		wantBalance int64
		wantRows    int
	}{
		{"partial", 100, 40, nil, 60, 1},
		{"exact", 100, 100, nil, 0, 1},
		{"insufficient", 100, 101, domain.ErrInsufficientFunds, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			acc := openAccount(t, s, "bob", tt.balance)

			tran, err := s.Withdraw(context.Background(), acc, decimal.NewFromInt(tt.amount))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Withdraw() = %v, want %v", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("Withdraw() error: %v", err)
				}
				if tran.Type != domain.TransactionTypeWithdrawal {
					t.Errorf("Type = %s, want WITHDRAWAL", tran.Type)
				}
			}
			assertBalance(t, s, acc, tt.wantBalance)
			if n := historyLen(t, s, acc); n != tt.wantRows {
				t.Errorf("history length = %d, want %d", n, tt.wantRows)
			}
		})
	}
}

func TestWithdraw_UnknownAccount(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Withdraw(context.Background(), 42, decimal.NewFromInt(1)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Withdraw() = %v, want ErrNotFound", err)
	}
}

func TestWithdraw_ConcurrentNeverOverdraws(t *testing.T) {
	s, _ := newTestStore(t)
	acc := openAccount(t, s, "carol", 100)

	const workers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Withdraw(context.Background(), acc, decimal.NewFromInt(10))
			if err != nil && !errors.Is(err, domain.ErrInsufficientFunds) {
				t.Errorf("Withdraw() unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Errorf("successful withdrawals = %d, want 10", succeeded)
	}
	assertBalance(t, s, acc, 0)
	if n := historyLen(t, s, acc); n != 10 {
		t.Errorf("history length = %d, want 10", n)
	}
}

func TestTransfer(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	from := openAccount(t, s, "dave", 100)
	to := openAccount(t, s, "erin", 5)

	tran, err := s.Transfer(ctx, from, to, decimal.NewFromInt(30))
	if err != nil {
		t.Fatalf("Transfer() error: %v", err)
	}
	if tran.Type != domain.TransactionTypeTransfer || tran.AccountNumber != from || tran.CounterpartyAccount != to {
		t.Errorf("Transfer() record = %+v", tran)
	}
	// 回傳的是轉出方餘額
	if tran.BalanceAfter == nil || !tran.BalanceAfter.Equal(decimal.NewFromInt(70)) {
		t.Errorf("Transfer() BalanceAfter = %v, want 70", tran.BalanceAfter)
	}
	assertBalance(t, s, from, 70)
	assertBalance(t, s, to, 35)

	// 只記在轉出方
	if n := historyLen(t, s, from); n != 1 {
		t.Errorf("sender history = %d, want 1", n)
	}
	if n := historyLen(t, s, to); n != 0 {
		t.Errorf("receiver history = %d, want 0", n)
	}
}

func TestTransfer_Failures(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		badTo   bool
		badFrom bool
		wantErr error
	}{
		{"insufficient funds", 101, false, false, domain.ErrInsufficientFunds},
		{"unknown receiver", 10, true, false, domain.ErrNotFound},
		{"unknown sender", 10, false, true, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			from := openAccount(t, s, "frank", 100)
			to := openAccount(t, s, "grace", 0)
			sender, receiver := from, to
			if tt.badTo {
				receiver = 9999
			}
			if tt.badFrom {
				sender = 9999
			}

			_, err := s.Transfer(context.Background(), sender, receiver, decimal.NewFromInt(tt.amount))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Transfer() = %v, want %v", err, tt.wantErr)
			}
			assertBalance(t, s, from, 100)
			assertBalance(t, s, to, 0)
			if n := historyLen(t, s, from); n != 0 {
				t.Errorf("sender history = %d, want 0", n)
			}
		})
	}
}

func TestTransfer_Self(t *testing.T) {
	s, _ := newTestStore(t)
	acc := openAccount(t, s, "heidi", 50)

	if _, err := s.Transfer(context.Background(), acc, acc, decimal.NewFromInt(20)); err != nil {
		t.Fatalf("Transfer() error: %v", err)
	}
	assertBalance(t, s, acc, 50)
	if n := historyLen(t, s, acc); n != 1 {
		t.Errorf("history length = %d, want 1", n)
	}
}

func TestTransfer_RollsBackWhenJournalFails(t *testing.T) {
	s, client := newTestStore(t)
	from := openAccount(t, s, "ivan", 100)
	to := openAccount(t, s, "judy", 0)

	injected := errors.New("injected journal failure")
	err := client.DB().Callback().Raw().Before("gorm:raw").Register("test:fail_journal", func(db *gorm.DB) {
		if strings.Contains(db.Statement.SQL.String(), "INSERT INTO transactions") {
			db.AddError(injected)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	_, err = s.Transfer(context.Background(), from, to, decimal.NewFromInt(40))
	if !errors.Is(err, domain.ErrStoreUnavailable) || !errors.Is(err, injected) {
		t.Fatalf("Transfer() = %v, want ErrStoreUnavailable wrapping the injected error", err)
	}
	assertBalance(t, s, from, 100)
	assertBalance(t, s, to, 0)
}

func TestTransfer_OppositeDirectionsConserveTotal(t *testing.T) {
	s, _ := newTestStore(t)
	a := openAccount(t, s, "kim", 500)
	b := openAccount(t, s, "lee", 500)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := s.Transfer(context.Background(), a, b, decimal.NewFromInt(7)); err != nil {
				t.Errorf("Transfer(a->b) error: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := s.Transfer(context.Background(), b, a, decimal.NewFromInt(3)); err != nil {
				t.Errorf("Transfer(b->a) error: %v", err)
			}
		}()
	}
	wg.Wait()

	// 500 - 20*7 + 20*3 = 420
	assertBalance(t, s, a, 420)
	assertBalance(t, s, b, 580)
}

func TestGetTransactionHistory_Order(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	acc := openAccount(t, s, "mallory", 10)
	other := openAccount(t, s, "niaj", 0)

	if _, err := s.Deposit(ctx, acc, decimal.NewFromInt(5)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Withdraw(ctx, acc, decimal.NewFromInt(3)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Transfer(ctx, acc, other, decimal.NewFromInt(2)); err != nil {
		t.Fatal(err)
	}

	history, err := s.GetTransactionHistory(ctx, acc)
	if err != nil {
		t.Fatalf("GetTransactionHistory() error: %v", err)
	}
	want := []domain.TransactionType{
		domain.TransactionTypeDeposit,
		domain.TransactionTypeWithdrawal,
		domain.TransactionTypeTransfer,
	}
	if len(history) != len(want) {
		t.Fatalf("history length = %d, want %d", len(history), len(want))
	}
	for i, tran := range history {
		if tran.Type != want[i] {
			t.Errorf("history[%d].Type = %s, want %s", i, tran.Type, want[i])
		}
		if i > 0 && tran.Timestamp.Before(history[i-1].Timestamp) {
			t.Errorf("history[%d] is older than history[%d]", i, i-1)
		}
	}
}

func TestGetTransactionHistory_UnknownAccount(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.GetTransactionHistory(context.Background(), 77); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetTransactionHistory() = %v, want ErrNotFound", err)
	}
}

func TestJournal_RejectsUnknownAccount(t *testing.T) {
	s, client := newTestStore(t)
	ctx := context.Background()

	_, err := s.journal.Record(ctx, client.DB(), 12345, domain.TransactionTypeDeposit, decimal.NewFromInt(1), 0)
	if !errors.Is(err, domain.ErrInvalidAccount) {
		t.Fatalf("Record() = %v, want ErrInvalidAccount", err)
	}
}

func TestAdjustBalance_CheckConstraint(t *testing.T) {
	s, client := newTestStore(t)
	acc := openAccount(t, s, "olivia", 10)

	_, err := s.balances.AdjustBalance(context.Background(), client.DB(), acc, decimal.NewFromInt(-11))
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("AdjustBalance(-11) = %v, want ErrInsufficientFunds", err)
	}
	assertBalance(t, s, acc, 10)
}

func TestGetAccountInfo(t *testing.T) {
	s, _ := newTestStore(t)
	acc := openAccount(t, s, "peggy", 25)

	info, err := s.GetAccountInfo(context.Background(), acc)
	if err != nil {
		t.Fatalf("GetAccountInfo() error: %v", err)
	}
	if info.UserID != "peggy" || info.OwnerName != "PEGGY" || info.Type != "checking" {
		t.Errorf("GetAccountInfo() = %+v", info)
	}
	if _, err := s.GetAccountInfo(context.Background(), acc+100); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetAccountInfo(unknown) = %v, want ErrNotFound", err)
	}
}

func TestGetAccountNumberForUser(t *testing.T) {
	s, _ := newTestStore(t)
	first := openAccount(t, s, "rupert", 0)
	openAccount(t, s, "rupert", 0)

	got, err := s.GetAccountNumberForUser(context.Background(), "rupert")
	if err != nil {
		t.Fatalf("GetAccountNumberForUser() error: %v", err)
	}
	if got != first {
		t.Errorf("GetAccountNumberForUser() = %d, want %d", got, first)
	}

	if err := s.CreateUser(context.Background(), "sybil", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetAccountNumberForUser(context.Background(), "sybil"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("GetAccountNumberForUser(no account) = %v, want ErrAccountNotFound", err)
	}
}

func TestAuthenticateUser(t *testing.T) {
	s, client := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateUser(ctx, "trent", "hunter2"); err != nil {
		t.Fatal(err)
	}
	// 舊資料匯入的明文密碼
	if err := client.DB().Exec("INSERT INTO users (user_id, password) VALUES (?, ?)", "victor", "1234").Error; err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		userID   string
		password string
		want     bool
	}{
		{"trent", "hunter2", true},
		{"trent", "hunter3", false},
		{"victor", "1234", true},
		{"victor", "0000", false},
		{"nobody", "x", false},
	}
	for _, tt := range tests {
		got, err := s.AuthenticateUser(ctx, tt.userID, tt.password)
		if err != nil {
			t.Fatalf("AuthenticateUser(%s) error: %v", tt.userID, err)
		}
		if got != tt.want {
			t.Errorf("AuthenticateUser(%s, %s) = %v, want %v", tt.userID, tt.password, got, tt.want)
		}
	}
}

func TestProvisioning_Errors(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, "walter", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUser(ctx, "walter", "pw"); !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("CreateUser(duplicate) = %v, want ErrUserAlreadyExists", err)
	}
	if _, err := s.OpenAccount(ctx, &domain.Account{UserID: "ghost", Type: "savings", OwnerName: "G"}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("OpenAccount(unknown user) = %v, want ErrUserNotFound", err)
	}
	if _, err := s.OpenAccount(ctx, &domain.Account{UserID: "walter", Balance: decimal.NewFromInt(-1)}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("OpenAccount(negative) = %v, want ErrInvalidInput", err)
	}
	if _, err := s.OpenAccount(ctx, &domain.Account{UserID: "walter", Balance: decimal.RequireFromString("1.00005")}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("OpenAccount(5 decimal places) = %v, want ErrInvalidInput", err)
	}
}

func TestFractionalAmountsStayExact(t *testing.T) {
	s, client := newTestStore(t)
	ctx := context.Background()
	acc := openAccount(t, s, "yuri", 0)
	other := openAccount(t, s, "zoe", 0)
	dec := decimal.RequireFromString

	balanceIs := func(accountNumber int64, want string) {
		t.Helper()
		got, err := s.GetBalance(ctx, accountNumber)
		if err != nil {
			t.Fatalf("GetBalance(%d) error: %v", accountNumber, err)
		}
		if !got.Equal(dec(want)) {
			t.Fatalf("balance of %d = %s, want %s", accountNumber, got, want)
		}
	}

	for _, amount := range []string{"0.1", "0.2"} {
		if _, err := s.Deposit(ctx, acc, dec(amount)); err != nil {
			t.Fatalf("Deposit(%s) error: %v", amount, err)
		}
	}
	balanceIs(acc, "0.3")

	// 以最小單位存放，不是浮點數
	var raw int64
	if err := client.DB().Raw("SELECT balance FROM accounts WHERE account_number = ?", acc).Scan(&raw).Error; err != nil {
		t.Fatal(err)
	}
	if raw != 3000 {
		t.Errorf("stored balance = %d, want 3000 (units of 0.0001)", raw)
	}

	if _, err := s.Transfer(ctx, acc, other, dec("0.0001")); err != nil {
		t.Fatalf("Transfer(0.0001) error: %v", err)
	}
	balanceIs(acc, "0.2999")
	balanceIs(other, "0.0001")

	if _, err := s.Withdraw(ctx, acc, dec("0.3")); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Withdraw(0.3) = %v, want ErrInsufficientFunds", err)
	}
	if _, err := s.Withdraw(ctx, acc, dec("0.2999")); err != nil {
		t.Fatalf("Withdraw(0.2999) error: %v", err)
	}
	balanceIs(acc, "0")

	history, err := s.GetTransactionHistory(ctx, acc)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"0.1", "0.2", "0.0001", "0.2999"}
	if len(history) != len(want) {
		t.Fatalf("history has %d records, want %d", len(history), len(want))
	}
	for i, w := range want {
		if !history[i].Amount.Equal(dec(w)) {
			t.Errorf("history[%d].Amount = %s, want %s", i, history[i].Amount, w)
		}
	}
}

func TestCanceledContext(t *testing.T) {
	s, _ := newTestStore(t)
	acc := openAccount(t, s, "xena", 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Deposit(ctx, acc, decimal.NewFromInt(1)); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("Deposit(canceled) = %v, want ErrStoreUnavailable", err)
	}
	assertBalance(t, s, acc, 10)
}
