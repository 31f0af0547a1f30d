package domain

import (
	"errors"
	"fmt"
)

// 錯誤分類 (呼叫端請用 errors.Is 判斷)
var (
	// ErrNotFound 帳戶或使用者不存在
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput 輸入不合法 (金額非正數、空的使用者 ID 等)
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrTransferFailed 轉帳時任一方更新失敗 (整筆已回滾)
	ErrTransferFailed = errors.New("transfer failed")

	// ErrStoreUnavailable 資料庫連線、交易或逾時等基礎設施錯誤
	ErrStoreUnavailable = errors.New("store unavailable")
)

var (
	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)

	// ErrUserNotFound 找不到使用者
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// ErrInvalidAccount 交易紀錄參照的帳戶被資料庫拒絕 (外鍵)
	ErrInvalidAccount = fmt.Errorf("invalid account: referenced account %w", ErrNotFound)

	// ErrAmountMustBePositive 金額必須為正數
	ErrAmountMustBePositive = fmt.Errorf("%w: amount must be positive", ErrInvalidInput)

	// ErrAccountAlreadyExists 帳戶已存在
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrUserAlreadyExists 使用者已存在
	ErrUserAlreadyExists = errors.New("user already exists")
)

// Unavailable 將基礎設施錯誤包成 ErrStoreUnavailable，已分類的錯誤原樣回傳
func Unavailable(err error) error {
	if err == nil || IsClassified(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// IsClassified 判斷錯誤是否已屬於上述分類之一
func IsClassified(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrTransferFailed) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrAccountAlreadyExists) ||
		errors.Is(err, ErrUserAlreadyExists)
}
