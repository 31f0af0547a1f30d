package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// User 登入用的使用者，由系統外部建立，核心只讀
type User struct {
	UserID   string `yaml:"user_id"`
	Password string `yaml:"password"`
}

// Account 帳戶
type Account struct {
	AccountNumber  int64           `yaml:"account_number"`
	UserID         string          `yaml:"user_id"`
	Balance        decimal.Decimal `yaml:"balance"`
	Type           string          `yaml:"type"`
	OwnerName      string          `yaml:"owner_name"`
	Address        string          `yaml:"address"`
	PhoneNumber    string          `yaml:"phone_number"`
	CardNumber     string          `yaml:"card_number"`
	ExpirationDate string          `yaml:"expiration_date"`
	PIN            string          `yaml:"pin"`
}

// Deposit 存款
func (a *Account) Deposit(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// Withdraw 提款，餘額不可為負
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if a.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// MaskedCardNumber 只保留卡號末四碼
func (a *Account) MaskedCardNumber() string {
	n := len(a.CardNumber)
	if n <= 4 {
		return a.CardNumber
	}
	return strings.Repeat("*", n-4) + a.CardNumber[n-4:]
}

// 金額欄位為 DECIMAL(20,4)：小數最多 4 位，整數部分最多 16 位
const MaxAmountScale int32 = 4

var maxAmount = decimal.New(1, 16)

// ValidateAmount 金額必須大於 0，且能被儲存層精確保存
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrAmountMustBePositive
	}
	return ValidateScale(amount)
}

// ValidateScale 檢查金額 (含開戶餘額) 的小數位數與大小，超過時儲存層會靜默進位
func ValidateScale(amount decimal.Decimal) error {
	if !amount.Truncate(MaxAmountScale).Equal(amount) {
		return fmt.Errorf("%w: amount %s has more than %d decimal places", ErrInvalidInput, amount, MaxAmountScale)
	}
	if amount.Abs().GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: amount %s is too large", ErrInvalidInput, amount)
	}
	return nil
}

// ValidateAccountNumber 帳號由資料庫自動產生，必定為正數
func ValidateAccountNumber(accountNumber int64) error {
	if accountNumber <= 0 {
		return fmt.Errorf("%w: account number %d", ErrInvalidInput, accountNumber)
	}
	return nil
}

// ValidateUserID 使用者 ID 不可為空
func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}
	return nil
}
