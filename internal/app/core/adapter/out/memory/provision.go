package memory

import (
	"context"
	"fmt"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// CreateUser 新增使用者，密碼以 bcrypt 存放
func (m *MutexLedger) CreateUser(ctx context.Context, userID, password string) error {
	if err := domain.ValidateUserID(userID); err != nil {
		return err
	}
	hash, err := domain.HashPassword(password)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrUserAlreadyExists, userID)
	}
	return m.commit(&walRecord{Op: opCreateUser, User: &domain.User{UserID: userID, Password: hash}})
}

// OpenAccount 為既有使用者開戶，帳號依序遞增
func (m *MutexLedger) OpenAccount(ctx context.Context, acc *domain.Account) (*domain.Account, error) {
	if err := domain.ValidateUserID(acc.UserID); err != nil {
		return nil, err
	}
	if acc.Balance.IsNegative() {
		return nil, fmt.Errorf("%w: opening balance %s", domain.ErrInvalidInput, acc.Balance)
	}
	if err := domain.ValidateScale(acc.Balance); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[acc.UserID]; !ok {
		return nil, domain.ErrUserNotFound
	}

	opened := *acc
	opened.AccountNumber = m.nextAccountNumber
	if err := m.commit(&walRecord{Op: opOpenAccount, Account: &opened}); err != nil {
		return nil, err
	}
	result := opened
	return &result, nil
}
