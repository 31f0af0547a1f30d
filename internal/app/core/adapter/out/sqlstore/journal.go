package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// transactionLogger 寫入 transactions 表 (只新增)
type transactionLogger struct{}

const insertTransactionSQL = `INSERT INTO transactions (account_number, transaction_type, amount, counterparty_account, reference) VALUES (?, ?, ?, ?, ?)`

// Record 在 session 所屬的交易裡新增一筆交易紀錄並讀回
//
// transaction_id 與 created_at 由資料庫產生，用 reference 把剛寫入的那一列讀回來，
// 不依賴各方言對 RETURNING / LastInsertId 的支援。
//
// 參數:
//
//	accountNumber: int64 - 交易所屬帳戶 (轉帳時為轉出方)
//	counterparty: int64 - 轉帳的轉入方，其他類型傳 0
//
// 回傳:
//
//	*domain.Transaction: 寫入後的完整紀錄
//	error: 帳戶被外鍵拒絕時回傳 domain.ErrInvalidAccount
func (transactionLogger) Record(ctx context.Context, session *gorm.DB, accountNumber int64, txType domain.TransactionType, amount decimal.Decimal, counterparty int64) (*domain.Transaction, error) {
	ref := uuid.New()
	err := session.WithContext(ctx).
		Exec(insertTransactionSQL, accountNumber, string(txType), newMoney(amount), counterparty, ref.String()).
		Error
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrInvalidAccount
		}
		if isCheckViolation(err) {
			return nil, domain.ErrAmountMustBePositive
		}
		return nil, fmt.Errorf("insert %s transaction for %d: %w", txType, accountNumber, err)
	}

	var row sqlTransaction
	if err := session.WithContext(ctx).Where("reference = ?", ref.String()).Take(&row).Error; err != nil {
		return nil, fmt.Errorf("read back transaction %s: %w", ref, err)
	}
	rec := row.toDomain()
	return &rec, nil
}
