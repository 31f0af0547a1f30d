package sqlstore

import (
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// sqlUser 對應資料庫的 users 表
type sqlUser struct {
	UserID   string `gorm:"column:user_id;primaryKey"`
	Password string `gorm:"column:password"` // bcrypt hash
}

func (*sqlUser) TableName() string {
	return "users"
}

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	AccountNumber  int64  `gorm:"column:account_number;primaryKey;autoIncrement"`
	UserID         string `gorm:"column:user_id"`
	Balance        money  `gorm:"column:balance;type:decimal(20,4)"`
	Type           string `gorm:"column:type"`
	OwnerName      string `gorm:"column:owner_name"`
	Address        string `gorm:"column:address"`
	PhoneNumber    string `gorm:"column:phone_number"`
	CardNumber     string `gorm:"column:card_number"`
	ExpirationDate string `gorm:"column:expiration_date"`
	PIN            string `gorm:"column:pin"`
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

func (a *sqlAccount) toDomain() *domain.Account {
	return &domain.Account{
		AccountNumber:  a.AccountNumber,
		UserID:         a.UserID,
		Balance:        a.Balance.Decimal,
		Type:           a.Type,
		OwnerName:      a.OwnerName,
		Address:        a.Address,
		PhoneNumber:    a.PhoneNumber,
		CardNumber:     a.CardNumber,
		ExpirationDate: a.ExpirationDate,
		PIN:            a.PIN,
	}
}

func newSQLAccount(a *domain.Account) *sqlAccount {
	return &sqlAccount{
		AccountNumber:  a.AccountNumber,
		UserID:         a.UserID,
		Balance:        newMoney(a.Balance),
		Type:           a.Type,
		OwnerName:      a.OwnerName,
		Address:        a.Address,
		PhoneNumber:    a.PhoneNumber,
		CardNumber:     a.CardNumber,
		ExpirationDate: a.ExpirationDate,
		PIN:            a.PIN,
	}
}

// sqlTransaction 對應資料庫的 transactions 表 (只新增、不修改)
type sqlTransaction struct {
	TransactionID       int64  `gorm:"column:transaction_id;primaryKey;autoIncrement"`
	AccountNumber       int64  `gorm:"column:account_number"`
	TransactionType     string `gorm:"column:transaction_type"`
	Amount              money  `gorm:"column:amount;type:decimal(20,4)"`
	CounterpartyAccount int64  `gorm:"column:counterparty_account"`
	Reference           string `gorm:"column:reference"`
	// 寫入時由資料庫預設值給時間
	Timestamp time.Time `gorm:"column:created_at"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

func (t *sqlTransaction) toDomain() domain.Transaction {
	// reference 一定由本服務寫入 UUID，解析失敗時保留零值
	ref, _ := uuid.Parse(t.Reference)
	return domain.Transaction{
		TransactionID:       t.TransactionID,
		AccountNumber:       t.AccountNumber,
		Type:                domain.TransactionType(t.TransactionType),
		Amount:              t.Amount.Decimal,
		CounterpartyAccount: t.CounterpartyAccount,
		Reference:           ref,
		Timestamp:           t.Timestamp,
	}
}
