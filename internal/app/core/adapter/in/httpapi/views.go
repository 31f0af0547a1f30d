package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// accountView 不含 PIN，卡號只留末四碼
type accountView struct {
	AccountNumber  int64           `json:"account_number"`
	UserID         string          `json:"user_id"`
	Balance        decimal.Decimal `json:"balance"`
	Type           string          `json:"type"`
	OwnerName      string          `json:"owner_name"`
	Address        string          `json:"address,omitempty"`
	PhoneNumber    string          `json:"phone_number,omitempty"`
	CardNumber     string          `json:"card_number,omitempty"`
	ExpirationDate string          `json:"expiration_date,omitempty"`
}

func newAccountView(a *domain.Account) accountView {
	return accountView{
		AccountNumber:  a.AccountNumber,
		UserID:         a.UserID,
		Balance:        a.Balance,
		Type:           a.Type,
		OwnerName:      a.OwnerName,
		Address:        a.Address,
		PhoneNumber:    a.PhoneNumber,
		CardNumber:     a.MaskedCardNumber(),
		ExpirationDate: a.ExpirationDate,
	}
}

type transactionView struct {
	TransactionID       int64           `json:"transaction_id"`
	Type                string          `json:"type"`
	Amount              decimal.Decimal `json:"amount"`
	CounterpartyAccount int64           `json:"counterparty_account,omitempty"`
	Reference           string          `json:"reference"`
	Timestamp           time.Time       `json:"timestamp"`
}

func newTransactionView(t *domain.Transaction) transactionView {
	return transactionView{
		TransactionID:       t.TransactionID,
		Type:                string(t.Type),
		Amount:              t.Amount,
		CounterpartyAccount: t.CounterpartyAccount,
		Reference:           t.Reference.String(),
		Timestamp:           t.Timestamp,
	}
}
