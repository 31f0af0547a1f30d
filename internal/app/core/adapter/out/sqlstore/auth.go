package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// AuthenticateUser 檢查帳號密碼，使用者不存在時回傳 false (不回錯誤)
func (s *Store) AuthenticateUser(ctx context.Context, userID, password string) (bool, error) {
	var user sqlUser
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, domain.Unavailable(fmt.Errorf("select user %s: %w", userID, err))
	}
	return domain.PasswordMatches(user.Password, password)
}
