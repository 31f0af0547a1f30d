package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// Ledger 是帳務系統的介面，每個異動都是一個完整的資料庫交易 (全有或全無)
type Ledger interface {
	// Deposit 存款並寫入 DEPOSIT 紀錄
	Deposit(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Transaction, error)
	// Withdraw 提款並寫入 WITHDRAWAL 紀錄，餘額檢查與扣款為同一個原子操作
	Withdraw(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Transaction, error)
	// Transfer 轉帳，雙方餘額與一筆 TRANSFER 紀錄同時提交
	Transfer(ctx context.Context, senderAccount, receiverAccount int64, amount decimal.Decimal) (*domain.Transaction, error)
	// GetBalance 取得帳戶餘額
	GetBalance(ctx context.Context, accountNumber int64) (decimal.Decimal, error)
}

// AccountQuery 唯讀查詢
type AccountQuery interface {
	GetAccountInfo(ctx context.Context, accountNumber int64) (*domain.Account, error)
	// GetTransactionHistory 依時間由舊到新排序
	GetTransactionHistory(ctx context.Context, accountNumber int64) ([]domain.Transaction, error)
	GetAccountNumberForUser(ctx context.Context, userID string) (int64, error)
}

// Authenticator 帳密檢查
type Authenticator interface {
	AuthenticateUser(ctx context.Context, userID, password string) (bool, error)
}

// Store 是一個完整的帳本儲存實作 (sqlstore 或 memory)
type Store interface {
	Ledger
	AccountQuery
	Authenticator
}

// Provisioner 建立使用者與開戶，給維運指令與測試用，不經過 CoreUseCase
type Provisioner interface {
	CreateUser(ctx context.Context, userID, password string) error
	OpenAccount(ctx context.Context, acc *domain.Account) (*domain.Account, error)
}

// EventPublisher 交易提交後發佈事件
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.LedgerEvent) error { return nil }
