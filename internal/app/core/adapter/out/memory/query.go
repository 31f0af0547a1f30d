package memory

import (
	"context"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// GetAccountInfo 取得帳戶資料 (回傳副本)
func (m *MutexLedger) GetAccountInfo(ctx context.Context, accountNumber int64) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[accountNumber]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

// GetTransactionHistory 交易紀錄，由舊到新
func (m *MutexLedger) GetTransactionHistory(ctx context.Context, accountNumber int64) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.accounts[accountNumber]; !ok {
		return nil, domain.ErrAccountNotFound
	}
	history := make([]domain.Transaction, len(m.history[accountNumber]))
	copy(history, m.history[accountNumber])
	return history, nil
}

// GetAccountNumberForUser 取得使用者帳號最小的帳戶
func (m *MutexLedger) GetAccountNumberForUser(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.Unavailable(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found int64
	for n, acc := range m.accounts {
		if acc.UserID == userID && (found == 0 || n < found) {
			found = n
		}
	}
	if found == 0 {
		return 0, domain.ErrAccountNotFound
	}
	return found, nil
}

// AuthenticateUser 檢查帳號密碼，使用者不存在回傳 false
func (m *MutexLedger) AuthenticateUser(ctx context.Context, userID, password string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, domain.Unavailable(err)
	}
	m.mu.RLock()
	user, ok := m.users[userID]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return domain.PasswordMatches(user.Password, password)
}
