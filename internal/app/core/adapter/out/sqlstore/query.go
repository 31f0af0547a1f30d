package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// GetAccountInfo 取得帳戶完整資料
func (s *Store) GetAccountInfo(ctx context.Context, accountNumber int64) (*domain.Account, error) {
	var acc sqlAccount
	err := s.db.WithContext(ctx).Where("account_number = ?", accountNumber).Take(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, domain.Unavailable(fmt.Errorf("select account %d: %w", accountNumber, err))
	}
	return acc.toDomain(), nil
}

// GetTransactionHistory 取得帳戶的交易紀錄，由舊到新
//
// 帳戶不存在回傳 ErrAccountNotFound；存在但沒有交易回傳空 slice。
func (s *Store) GetTransactionHistory(ctx context.Context, accountNumber int64) ([]domain.Transaction, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&sqlAccount{}).Where("account_number = ?", accountNumber).Count(&count).Error; err != nil {
		return nil, domain.Unavailable(fmt.Errorf("count account %d: %w", accountNumber, err))
	}
	if count == 0 {
		return nil, domain.ErrAccountNotFound
	}

	var rows []sqlTransaction
	err := db.Where("account_number = ?", accountNumber).
		Order("created_at").
		Order("transaction_id").
		Find(&rows).Error
	if err != nil {
		return nil, domain.Unavailable(fmt.Errorf("select history of %d: %w", accountNumber, err))
	}

	history := make([]domain.Transaction, 0, len(rows))
	for i := range rows {
		history = append(history, rows[i].toDomain())
	}
	return history, nil
}

// GetAccountNumberForUser 取得使用者的帳號，有多個帳戶時回傳最小的那個
func (s *Store) GetAccountNumberForUser(ctx context.Context, userID string) (int64, error) {
	var acc sqlAccount
	err := s.db.WithContext(ctx).
		Select("account_number").
		Where("user_id = ?", userID).
		Order("account_number").
		Take(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, domain.ErrAccountNotFound
	}
	if err != nil {
		return 0, domain.Unavailable(fmt.Errorf("select account of user %s: %w", userID, err))
	}
	return acc.AccountNumber, nil
}
