package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// balanceRepository 只負責讀寫 accounts.balance
//
// 所有方法都在呼叫端給的 session (外層交易的 *gorm.DB) 上執行，本身不開交易。
type balanceRepository struct{}

// GetBalance 讀取帳戶餘額
func (balanceRepository) GetBalance(ctx context.Context, session *gorm.DB, accountNumber int64) (decimal.Decimal, error) {
	var acc sqlAccount
	err := session.WithContext(ctx).
		Select("account_number", "balance").
		Where("account_number = ?", accountNumber).
		Take(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, domain.ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("select balance of %d: %w", accountNumber, err)
	}
	return acc.Balance.Decimal, nil
}

// AdjustBalance 把 delta 加到餘額上 (delta 可為負)
//
// 回傳:
//
//	int64: 受影響的列數 (0 時同時回傳 ErrAccountNotFound)
//	error: 餘額被 CHECK 擋下時回傳 ErrInsufficientFunds
func (balanceRepository) AdjustBalance(ctx context.Context, session *gorm.DB, accountNumber int64, delta decimal.Decimal) (int64, error) {
	res := session.WithContext(ctx).
		Model(&sqlAccount{}).
		Where("account_number = ?", accountNumber).
		Update("balance", gorm.Expr("balance + ?", newMoney(delta)))
	if res.Error != nil {
		if isCheckViolation(res.Error) {
			return 0, domain.ErrInsufficientFunds
		}
		return 0, fmt.Errorf("update balance of %d: %w", accountNumber, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, domain.ErrAccountNotFound
	}
	return res.RowsAffected, nil
}

// DebitIfSufficient 餘額足夠才扣款，檢查與扣款是同一條 UPDATE
//
// 回傳 0 列代表帳戶不存在或餘額不足，由呼叫端在同一個交易內分辨。
func (balanceRepository) DebitIfSufficient(ctx context.Context, session *gorm.DB, accountNumber int64, amount decimal.Decimal) (int64, error) {
	res := session.WithContext(ctx).
		Model(&sqlAccount{}).
		Where("account_number = ? AND balance >= ?", accountNumber, newMoney(amount)).
		Update("balance", gorm.Expr("balance - ?", newMoney(amount)))
	if res.Error != nil {
		if isCheckViolation(res.Error) {
			return 0, domain.ErrInsufficientFunds
		}
		return 0, fmt.Errorf("debit %d: %w", accountNumber, res.Error)
	}
	return res.RowsAffected, nil
}

// LockBalances 依帳號由小到大逐列 SELECT ... FOR UPDATE
//
// 一次只鎖一列並固定順序，兩筆方向相反的轉帳不會互相死鎖。
// 不存在的帳號不會出現在回傳的 map 裡。
func (balanceRepository) LockBalances(ctx context.Context, session *gorm.DB, accountNumbers []int64) (map[int64]decimal.Decimal, error) {
	balances := make(map[int64]decimal.Decimal, len(accountNumbers))
	for _, n := range domain.LockOrder(accountNumbers...) {
		var acc sqlAccount
		err := session.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("account_number", "balance").
			Where("account_number = ?", n).
			Take(&acc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lock account %d: %w", n, err)
		}
		balances[n] = acc.Balance.Decimal
	}
	return balances, nil
}
