package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// Seed 初始資料 (YAML)
//
//	users:
//	  - user_id: alice
//	    password: "$2a$10$..."
//	accounts:
//	  - account_number: 1001
//	    user_id: alice
//	    balance: "100.00"
type Seed struct {
	Users    []domain.User    `yaml:"users"`
	Accounts []domain.Account `yaml:"accounts"`
}

// LoadSeed 讀取 seed 檔並檢查帳號、餘額與擁有者
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return &seed, nil
}

// Validate 檢查 seed 內容
func (s *Seed) Validate() error {
	users := make(map[string]bool, len(s.Users))
	for _, u := range s.Users {
		if err := domain.ValidateUserID(u.UserID); err != nil {
			return err
		}
		users[u.UserID] = true
	}
	seen := make(map[int64]bool, len(s.Accounts))
	for _, a := range s.Accounts {
		if err := domain.ValidateAccountNumber(a.AccountNumber); err != nil {
			return err
		}
		if seen[a.AccountNumber] {
			return fmt.Errorf("%w: %d", domain.ErrAccountAlreadyExists, a.AccountNumber)
		}
		seen[a.AccountNumber] = true
		if a.Balance.IsNegative() {
			return fmt.Errorf("%w: account %d has negative balance", domain.ErrInvalidInput, a.AccountNumber)
		}
		if err := domain.ValidateScale(a.Balance); err != nil {
			return fmt.Errorf("account %d: %w", a.AccountNumber, err)
		}
		if !users[a.UserID] {
			return fmt.Errorf("account %d: %w", a.AccountNumber, domain.ErrUserNotFound)
		}
	}
	return nil
}
