package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/metrics"
)

// CoreUseCase 是核心業務邏輯層
//
// 負責輸入檢查、單次操作逾時、紀錄 log 與指標，以及提交後發佈事件；
// 原子性與餘額一致性由 Store 實作保證。
type CoreUseCase struct {
	store     Store
	events    EventPublisher
	logger    *zap.Logger
	opTimeout time.Duration
}

// Option 設定 CoreUseCase
type Option func(*CoreUseCase)

// WithLogger 指定 logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *CoreUseCase) {
		c.logger = logger
	}
}

// WithEventPublisher 指定事件發佈者
func WithEventPublisher(p EventPublisher) Option {
	return func(c *CoreUseCase) {
		c.events = p
	}
}

// WithOpTimeout 每次操作的最長時間，0 表示不限制
func WithOpTimeout(d time.Duration) Option {
	return func(c *CoreUseCase) {
		c.opTimeout = d
	}
}

func NewCoreUseCase(store Store, opts ...Option) *CoreUseCase {
	c := &CoreUseCase{
		store:  store,
		events: nopPublisher{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CoreUseCase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opTimeout)
}

// AuthenticateUser 檢查帳號密碼
func (c *CoreUseCase) AuthenticateUser(ctx context.Context, userID, password string) (ok bool, err error) {
	start := time.Now()
	defer func() { metrics.Observe("authenticate", start, err) }()

	if err := domain.ValidateUserID(userID); err != nil {
		return false, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	ok, err = c.store.AuthenticateUser(ctx, userID, password)
	if err != nil {
		c.logger.Error("Authenticate user failed", zap.String("user_id", userID), zap.Error(err))
		return false, err
	}
	if !ok {
		c.logger.Info("Authentication rejected", zap.String("user_id", userID))
	}
	return ok, nil
}

// Deposit 存款
func (c *CoreUseCase) Deposit(ctx context.Context, accountNumber int64, amount decimal.Decimal) (tran *domain.Transaction, err error) {
	start := time.Now()
	defer func() { metrics.Observe("deposit", start, err) }()

	if err := domain.ValidateAccountNumber(accountNumber); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	opCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	tran, err = c.store.Deposit(opCtx, accountNumber, amount)
	if err != nil {
		c.logFailure("Deposit failed", err, zap.Int64("account_number", accountNumber), zap.Stringer("amount", amount))
		return nil, err
	}
	c.logger.Info("Deposit committed",
		zap.Int64("account_number", accountNumber),
		zap.Stringer("amount", amount),
		zap.Int64("transaction_id", tran.TransactionID))
	c.publish(ctx, tran)
	return tran, nil
}

// Withdraw 提款
func (c *CoreUseCase) Withdraw(ctx context.Context, accountNumber int64, amount decimal.Decimal) (tran *domain.Transaction, err error) {
	start := time.Now()
	defer func() { metrics.Observe("withdraw", start, err) }()

	if err := domain.ValidateAccountNumber(accountNumber); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	opCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	tran, err = c.store.Withdraw(opCtx, accountNumber, amount)
	if err != nil {
		c.logFailure("Withdraw failed", err, zap.Int64("account_number", accountNumber), zap.Stringer("amount", amount))
		return nil, err
	}
	c.logger.Info("Withdraw committed",
		zap.Int64("account_number", accountNumber),
		zap.Stringer("amount", amount),
		zap.Int64("transaction_id", tran.TransactionID))
	c.publish(ctx, tran)
	return tran, nil
}

// Transfer 轉帳，允許轉給自己 (餘額不變，但仍記一筆)
func (c *CoreUseCase) Transfer(ctx context.Context, senderAccount, receiverAccount int64, amount decimal.Decimal) (tran *domain.Transaction, err error) {
	start := time.Now()
	defer func() { metrics.Observe("transfer", start, err) }()

	if err := domain.ValidateAccountNumber(senderAccount); err != nil {
		return nil, err
	}
	if err := domain.ValidateAccountNumber(receiverAccount); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	opCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	tran, err = c.store.Transfer(opCtx, senderAccount, receiverAccount, amount)
	if err != nil {
		c.logFailure("Transfer failed", err,
			zap.Int64("sender_account", senderAccount),
			zap.Int64("receiver_account", receiverAccount),
			zap.Stringer("amount", amount))
		return nil, err
	}
	c.logger.Info("Transfer committed",
		zap.Int64("sender_account", senderAccount),
		zap.Int64("receiver_account", receiverAccount),
		zap.Stringer("amount", amount),
		zap.Int64("transaction_id", tran.TransactionID))
	c.publish(ctx, tran)
	return tran, nil
}

// CheckBalance 取得帳戶餘額
func (c *CoreUseCase) CheckBalance(ctx context.Context, accountNumber int64) (balance decimal.Decimal, err error) {
	start := time.Now()
	defer func() { metrics.Observe("check_balance", start, err) }()

	if err := domain.ValidateAccountNumber(accountNumber); err != nil {
		return decimal.Zero, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.store.GetBalance(ctx, accountNumber)
}

// GetAccountInfo 取得帳戶資料
func (c *CoreUseCase) GetAccountInfo(ctx context.Context, accountNumber int64) (account *domain.Account, err error) {
	start := time.Now()
	defer func() { metrics.Observe("account_info", start, err) }()

	if err := domain.ValidateAccountNumber(accountNumber); err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.store.GetAccountInfo(ctx, accountNumber)
}

// GetTransactionHistory 交易紀錄，由舊到新
func (c *CoreUseCase) GetTransactionHistory(ctx context.Context, accountNumber int64) (history []domain.Transaction, err error) {
	start := time.Now()
	defer func() { metrics.Observe("transaction_history", start, err) }()

	if err := domain.ValidateAccountNumber(accountNumber); err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.store.GetTransactionHistory(ctx, accountNumber)
}

// GetAccountNumberForUser 登入後取得使用者的帳號
func (c *CoreUseCase) GetAccountNumberForUser(ctx context.Context, userID string) (accountNumber int64, err error) {
	start := time.Now()
	defer func() { metrics.Observe("account_for_user", start, err) }()

	if err := domain.ValidateUserID(userID); err != nil {
		return 0, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.store.GetAccountNumberForUser(ctx, userID)
}

// publish 提交後發佈事件，失敗只記 log，不影響已提交的結果
func (c *CoreUseCase) publish(ctx context.Context, tran *domain.Transaction) {
	event := domain.NewLedgerEvent(tran)
	if err := c.events.Publish(ctx, event); err != nil {
		metrics.EventsPublishFailed.Inc()
		c.logger.Warn("Failed to publish ledger event",
			zap.String("reference", event.Reference),
			zap.Int64("account_number", event.AccountNumber),
			zap.Error(err))
	}
}

func (c *CoreUseCase) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if errors.Is(err, domain.ErrStoreUnavailable) {
		c.logger.Error(msg, fields...)
		return
	}
	c.logger.Warn(msg, fields...)
}
