package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// CreateUser 新增使用者，密碼以 bcrypt 存放
func (s *Store) CreateUser(ctx context.Context, userID, password string) error {
	if err := domain.ValidateUserID(userID); err != nil {
		return err
	}
	hash, err := domain.HashPassword(password)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Create(&sqlUser{UserID: userID, Password: hash}).Error
	if isDuplicateKey(err) {
		return fmt.Errorf("%w: %s", domain.ErrUserAlreadyExists, userID)
	}
	if err != nil {
		return domain.Unavailable(fmt.Errorf("insert user %s: %w", userID, err))
	}
	return nil
}

// OpenAccount 為既有使用者開立帳戶，帳號由資料庫產生
//
// 參數:
//
//	acc: *domain.Account - AccountNumber 會被忽略，Balance 為開戶金額 (不可為負)
//
// 回傳:
//
//	*domain.Account: 帶有新帳號的帳戶
func (s *Store) OpenAccount(ctx context.Context, acc *domain.Account) (*domain.Account, error) {
	if err := domain.ValidateUserID(acc.UserID); err != nil {
		return nil, err
	}
	if acc.Balance.IsNegative() {
		return nil, fmt.Errorf("%w: opening balance %s", domain.ErrInvalidInput, acc.Balance)
	}
	if err := domain.ValidateScale(acc.Balance); err != nil {
		return nil, err
	}

	row := newSQLAccount(acc)
	row.AccountNumber = 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user sqlUser
		err := tx.Select("user_id").Where("user_id = ?", acc.UserID).Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("select user %s: %w", acc.UserID, err)
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("insert account for %s: %w", acc.UserID, err)
		}
		return nil
	})
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	return row.toDomain(), nil
}
