package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEvent 交易提交成功後對外發佈的事件
type LedgerEvent struct {
	Reference           string          `json:"reference"`
	TransactionID       int64           `json:"transaction_id"`
	AccountNumber       int64           `json:"account_number"`
	CounterpartyAccount int64           `json:"counterparty_account,omitempty"`
	Type                TransactionType `json:"type"`
	Amount              decimal.Decimal `json:"amount"`
	OccurredAt          time.Time       `json:"occurred_at"`
}

// NewLedgerEvent 由交易紀錄建立事件
func NewLedgerEvent(tran *Transaction) LedgerEvent {
	occurredAt := tran.Timestamp
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	return LedgerEvent{
		Reference:           tran.Reference.String(),
		TransactionID:       tran.TransactionID,
		AccountNumber:       tran.AccountNumber,
		CounterpartyAccount: tran.CounterpartyAccount,
		Type:                tran.Type,
		Amount:              tran.Amount,
		OccurredAt:          occurredAt,
	}
}
