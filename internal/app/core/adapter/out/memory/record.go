package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// WAL 裡的操作種類
const (
	opCreateUser      = "create_user"
	opOpenAccount     = "open_account"
	opPostTransaction = "post_transaction"
)

// walRecord 是 WAL 的一行
type walRecord struct {
	Op          string          `json:"op"`
	User        *domain.User    `json:"user,omitempty"`
	Account     *domain.Account `json:"account,omitempty"`
	Transaction *walTransaction `json:"transaction,omitempty"`
}

type walTransaction struct {
	TransactionID       int64                  `json:"transaction_id"`
	AccountNumber       int64                  `json:"account_number"`
	Type                domain.TransactionType `json:"type"`
	Amount              decimal.Decimal        `json:"amount"`
	CounterpartyAccount int64                  `json:"counterparty_account,omitempty"`
	Reference           uuid.UUID              `json:"reference"`
	Timestamp           time.Time              `json:"timestamp"`
}

func (t *walTransaction) toDomain() domain.Transaction {
	return domain.Transaction{
		TransactionID:       t.TransactionID,
		AccountNumber:       t.AccountNumber,
		Type:                t.Type,
		Amount:              t.Amount,
		CounterpartyAccount: t.CounterpartyAccount,
		Reference:           t.Reference,
		Timestamp:           t.Timestamp,
	}
}
