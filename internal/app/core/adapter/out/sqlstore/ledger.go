package sqlstore

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/database"
)

// Store 以關聯式資料庫實作帳本
//
// 每個異動 (存款 / 提款 / 轉帳) 都包在一個 db.Transaction 裡，
// 任何錯誤 (含 commit 失敗與 panic) 都會整筆回滾。
type Store struct {
	db       *gorm.DB
	balances balanceRepository
	journal  transactionLogger
}

// NewStore 建立 Store，呼叫前 schema 應已由 EnsureSchema 建好
func NewStore(client *database.Client) *Store {
	return &Store{db: client.DB()}
}

// Deposit 存款
func (s *Store) Deposit(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Transaction, error) {
	var rec *domain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.balances.AdjustBalance(ctx, tx, accountNumber, amount); err != nil {
			return err
		}
		var err error
		rec, err = s.journal.Record(ctx, tx, accountNumber, domain.TransactionTypeDeposit, amount, 0)
		if err != nil {
			return err
		}
		return s.attachBalance(ctx, tx, rec)
	})
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	return rec, nil
}

// Withdraw 提款
//
// 檢查餘額與扣款合併成一條條件式 UPDATE，同一帳戶的並發提款不會透支。
func (s *Store) Withdraw(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Transaction, error) {
	var rec *domain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.balances.DebitIfSufficient(ctx, tx, accountNumber, amount)
		if err != nil {
			return err
		}
		if rows == 0 {
			// 區分帳戶不存在與餘額不足
			if _, err := s.balances.GetBalance(ctx, tx, accountNumber); err != nil {
				return err
			}
			return domain.ErrInsufficientFunds
		}
		rec, err = s.journal.Record(ctx, tx, accountNumber, domain.TransactionTypeWithdrawal, amount, 0)
		if err != nil {
			return err
		}
		return s.attachBalance(ctx, tx, rec)
	})
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	return rec, nil
}

// Transfer 轉帳
//
// 流程: 依帳號順序鎖兩列 -> 確認雙方存在 -> 檢查轉出方餘額 -> 扣款 -> 入帳 -> 記一筆 TRANSFER。
// 扣款或入帳影響 0 列時回傳 ErrTransferFailed，整筆回滾。
func (s *Store) Transfer(ctx context.Context, senderAccount, receiverAccount int64, amount decimal.Decimal) (*domain.Transaction, error) {
	var rec *domain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.balances.LockBalances(ctx, tx, []int64{senderAccount, receiverAccount})
		if err != nil {
			return err
		}
		senderBalance, ok := locked[senderAccount]
		if !ok {
			return fmt.Errorf("sender %d: %w", senderAccount, domain.ErrAccountNotFound)
		}
		if _, ok := locked[receiverAccount]; !ok {
			return fmt.Errorf("receiver %d: %w", receiverAccount, domain.ErrAccountNotFound)
		}
		if senderBalance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}

		rows, err := s.balances.DebitIfSufficient(ctx, tx, senderAccount, amount)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: debit of %d affected no rows", domain.ErrTransferFailed, senderAccount)
		}
		if _, err := s.balances.AdjustBalance(ctx, tx, receiverAccount, amount); err != nil {
			return fmt.Errorf("%w: credit of %d: %w", domain.ErrTransferFailed, receiverAccount, err)
		}

		rec, err = s.journal.Record(ctx, tx, senderAccount, domain.TransactionTypeTransfer, amount, receiverAccount)
		if err != nil {
			return err
		}
		return s.attachBalance(ctx, tx, rec)
	})
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	return rec, nil
}

// attachBalance 在同一個交易內讀回所屬帳戶的餘額 (轉帳為轉出方)
func (s *Store) attachBalance(ctx context.Context, tx *gorm.DB, rec *domain.Transaction) error {
	balance, err := s.balances.GetBalance(ctx, tx, rec.AccountNumber)
	if err != nil {
		return err
	}
	rec.BalanceAfter = &balance
	return nil
}

// GetBalance 取得目前餘額 (不開交易)
func (s *Store) GetBalance(ctx context.Context, accountNumber int64) (decimal.Decimal, error) {
	balance, err := s.balances.GetBalance(ctx, s.db, accountNumber)
	if err != nil {
		return decimal.Zero, domain.Unavailable(err)
	}
	return balance, nil
}

var (
	_ usecase.Store       = (*Store)(nil)
	_ usecase.Provisioner = (*Store)(nil)
)
