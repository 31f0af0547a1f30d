package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType 交易類型，以字串存進 transactions.transaction_type
type TransactionType string

const (
	// 存款
	TransactionTypeDeposit TransactionType = "DEPOSIT"
	// 提款
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	// 轉帳 (只記在轉出方帳戶)
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// ParseTransactionType 解析交易類型字串
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, s)
}

// Transaction 交易紀錄，建立後不可修改
type Transaction struct {
	// TransactionID: 資料庫自動遞增的流水號
	TransactionID int64
	// AccountNumber: 交易所屬帳戶 (轉帳時為轉出方)
	AccountNumber int64
	Type          TransactionType
	Amount        decimal.Decimal
	// CounterpartyAccount: 轉帳的轉入方，其他類型為 0
	CounterpartyAccount int64
	// Reference: 寫入時產生的外部追蹤號
	Reference uuid.UUID
	// Timestamp: 由資料庫在寫入時給值
	Timestamp time.Time
	// BalanceAfter: 同一個交易內讀到的所屬帳戶餘額，只有異動操作的回傳值會帶，歷史紀錄為 nil
	BalanceAfter *decimal.Decimal
}

// LockOrder 回傳需要鎖定的帳號，由小到大排序以避免死鎖；同一帳號只出現一次
func LockOrder(accountNumbers ...int64) []int64 {
	ids := make([]int64, 0, len(accountNumbers))
	for _, n := range accountNumbers {
		dup := false
		for _, id := range ids {
			if id == n {
				dup = true
				break
			}
		}
		if !dup {
			ids = append(ids, n)
		}
	}
	// 數量很少 (最多兩個)，插入排序即可
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}
