package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

// MutexLedger 是一個使用 Mutex 實現的帳本 (不需要資料庫)
//
// 結構:
//
//	users / accounts / history: 記憶體中的三張表
//	mu: 保護上述資料，每個異動持有寫鎖直到完成，等同一個序列化的交易
//	wal: 選用的 Write-Ahead Log，先寫 WAL 再改記憶體
type MutexLedger struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	accounts map[int64]*domain.Account
	history  map[int64][]domain.Transaction

	nextAccountNumber int64
	nextTransactionID int64

	wal *wal.WAL
	now func() time.Time
}

// Option 設定 MutexLedger
type Option func(*MutexLedger)

// WithWAL 啟用 WAL，建立時會先重播既有紀錄
func WithWAL(w *wal.WAL) Option {
	return func(m *MutexLedger) {
		m.wal = w
	}
}

// WithSeed 載入初始使用者與帳戶 (在 WAL 重播之前套用)
func WithSeed(seed *Seed) Option {
	return func(m *MutexLedger) {
		if seed == nil {
			return
		}
		for _, u := range seed.Users {
			m.users[u.UserID] = u
		}
		for i := range seed.Accounts {
			acc := seed.Accounts[i]
			m.putAccount(&acc)
		}
	}
}

// WithClock 指定時間來源 (測試用)
func WithClock(now func() time.Time) Option {
	return func(m *MutexLedger) {
		m.now = now
	}
}

// NewMutexLedger 建立一個新的 MutexLedger 實例
//
// 回傳:
//
//	*MutexLedger: MutexLedger 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewMutexLedger(opts ...Option) (*MutexLedger, error) {
	m := &MutexLedger{
		users:             make(map[string]domain.User),
		accounts:          make(map[int64]*domain.Account),
		history:           make(map[int64][]domain.Transaction),
		nextAccountNumber: 1,
		nextTransactionID: 1,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.wal != nil {
		if err := m.recoverFromWAL(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態
// 只有 NewMutexLedger 呼叫，無需 Lock (單執行緒)
func (m *MutexLedger) recoverFromWAL() error {
	return m.wal.Replay(func(raw json.RawMessage) error {
		var rec walRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode wal record: %w", err)
		}
		return m.apply(&rec)
	})
}

// commit 先寫 WAL 再套用到記憶體，呼叫端需持有寫鎖且已完成檢查
func (m *MutexLedger) commit(rec *walRecord) error {
	if m.wal != nil {
		if err := m.wal.Append(rec); err != nil {
			return domain.Unavailable(err)
		}
	}
	return m.apply(rec)
}

// apply 把一筆已驗證的紀錄套用到記憶體 (重播時也走這裡，不寫 WAL)
func (m *MutexLedger) apply(rec *walRecord) error {
	switch rec.Op {
	case opCreateUser:
		m.users[rec.User.UserID] = *rec.User
	case opOpenAccount:
		acc := *rec.Account
		m.putAccount(&acc)
	case opPostTransaction:
		return m.applyTransaction(rec.Transaction.toDomain())
	default:
		return fmt.Errorf("unknown wal op %q", rec.Op)
	}
	return nil
}

func (m *MutexLedger) applyTransaction(tran domain.Transaction) error {
	account, ok := m.accounts[tran.AccountNumber]
	if !ok {
		return fmt.Errorf("transaction %d: %w", tran.TransactionID, domain.ErrInvalidAccount)
	}
	switch tran.Type {
	case domain.TransactionTypeDeposit:
		account.Balance = account.Balance.Add(tran.Amount)
	case domain.TransactionTypeWithdrawal:
		account.Balance = account.Balance.Sub(tran.Amount)
	case domain.TransactionTypeTransfer:
		receiver, ok := m.accounts[tran.CounterpartyAccount]
		if !ok {
			return fmt.Errorf("transaction %d: %w", tran.TransactionID, domain.ErrInvalidAccount)
		}
		// 轉給自己時 account 與 receiver 是同一個指標，先扣後加結果不變
		account.Balance = account.Balance.Sub(tran.Amount)
		receiver.Balance = receiver.Balance.Add(tran.Amount)
	default:
		return fmt.Errorf("transaction %d: unknown type %q", tran.TransactionID, tran.Type)
	}
	m.history[tran.AccountNumber] = append(m.history[tran.AccountNumber], tran)
	if tran.TransactionID >= m.nextTransactionID {
		m.nextTransactionID = tran.TransactionID + 1
	}
	return nil
}

func (m *MutexLedger) putAccount(acc *domain.Account) {
	m.accounts[acc.AccountNumber] = acc
	if acc.AccountNumber >= m.nextAccountNumber {
		m.nextAccountNumber = acc.AccountNumber + 1
	}
}

// newTransaction 組出下一筆交易紀錄 (尚未套用)
func (m *MutexLedger) newTransaction(accountNumber int64, txType domain.TransactionType, amount decimal.Decimal, counterparty int64) *walRecord {
	return &walRecord{
		Op: opPostTransaction,
		Transaction: &walTransaction{
			TransactionID:       m.nextTransactionID,
			AccountNumber:       accountNumber,
			Type:                txType,
			Amount:              amount,
			CounterpartyAccount: counterparty,
			Reference:           uuid.New(),
			Timestamp:           m.now().UTC(),
		},
	}
}

func (m *MutexLedger) post(rec *walRecord) (*domain.Transaction, error) {
	if err := m.commit(rec); err != nil {
		return nil, err
	}
	tran := rec.Transaction.toDomain()
	balance := m.accounts[tran.AccountNumber].Balance
	tran.BalanceAfter = &balance
	return &tran, nil
}

// Deposit 存款
func (m *MutexLedger) Deposit(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable(err)
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[accountNumber]; !ok {
		return nil, domain.ErrAccountNotFound
	}
	return m.post(m.newTransaction(accountNumber, domain.TransactionTypeDeposit, amount, 0))
}

// Withdraw 提款，檢查與扣款在同一把鎖內完成
func (m *MutexLedger) Withdraw(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable(err)
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountNumber]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if account.Balance.LessThan(amount) {
		return nil, domain.ErrInsufficientFunds
	}
	return m.post(m.newTransaction(accountNumber, domain.TransactionTypeWithdrawal, amount, 0))
}

// Transfer 轉帳，雙方餘額與交易紀錄一起套用
func (m *MutexLedger) Transfer(ctx context.Context, senderAccount, receiverAccount int64, amount decimal.Decimal) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable(err)
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	sender, ok := m.accounts[senderAccount]
	if !ok {
		return nil, fmt.Errorf("sender %d: %w", senderAccount, domain.ErrAccountNotFound)
	}
	if _, ok := m.accounts[receiverAccount]; !ok {
		return nil, fmt.Errorf("receiver %d: %w", receiverAccount, domain.ErrAccountNotFound)
	}
	if sender.Balance.LessThan(amount) {
		return nil, domain.ErrInsufficientFunds
	}
	return m.post(m.newTransaction(senderAccount, domain.TransactionTypeTransfer, amount, receiverAccount))
}

// GetBalance 取得指定帳戶的當前餘額
func (m *MutexLedger) GetBalance(ctx context.Context, accountNumber int64) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, domain.Unavailable(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[accountNumber]
	if !ok {
		return decimal.Zero, domain.ErrAccountNotFound
	}
	return account.Balance, nil
}

var (
	_ usecase.Store       = (*MutexLedger)(nil)
	_ usecase.Provisioner = (*MutexLedger)(nil)
)
