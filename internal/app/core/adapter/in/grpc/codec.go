package grpc

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// 訊息一律是 google.protobuf.Struct，金額以字串傳遞避免浮點誤差，
// 帳號可用數字或字串。

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return s, nil
}

func stringField(s *structpb.Struct, key string) (string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", domain.ErrInvalidInput, key)
	}
	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: field %q must be a string", domain.ErrInvalidInput, key)
	}
	return str.StringValue, nil
}

func int64Field(s *structpb.Struct, key string) (int64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing field %q", domain.ErrInvalidInput, key)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := kind.NumberValue
		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return 0, fmt.Errorf("%w: field %q must be an integer", domain.ErrInvalidInput, key)
		}
		return int64(f), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(kind.StringValue, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q: %v", domain.ErrInvalidInput, key, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: field %q must be a number", domain.ErrInvalidInput, key)
}

func decimalField(s *structpb.Struct, key string) (decimal.Decimal, error) {
	raw, err := stringField(s, key)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: field %q: %v", domain.ErrInvalidInput, key, err)
	}
	return d, nil
}

func structField(s *structpb.Struct, key string) (*structpb.Struct, error) {
	v, ok := s.GetFields()[key]
	if !ok || v.GetStructValue() == nil {
		return nil, fmt.Errorf("%w: missing object %q", domain.ErrInvalidInput, key)
	}
	return v.GetStructValue(), nil
}

func transactionFields(t *domain.Transaction) map[string]any {
	return map[string]any{
		"transaction_id":       t.TransactionID,
		"account_number":       t.AccountNumber,
		"type":                 string(t.Type),
		"amount":               t.Amount.String(),
		"counterparty_account": t.CounterpartyAccount,
		"reference":            t.Reference.String(),
		"timestamp":            t.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func transactionFromStruct(s *structpb.Struct) (*domain.Transaction, error) {
	id, err := int64Field(s, "transaction_id")
	if err != nil {
		return nil, err
	}
	account, err := int64Field(s, "account_number")
	if err != nil {
		return nil, err
	}
	rawType, err := stringField(s, "type")
	if err != nil {
		return nil, err
	}
	txType, err := domain.ParseTransactionType(rawType)
	if err != nil {
		return nil, err
	}
	amount, err := decimalField(s, "amount")
	if err != nil {
		return nil, err
	}
	counterparty, err := int64Field(s, "counterparty_account")
	if err != nil {
		return nil, err
	}
	rawRef, err := stringField(s, "reference")
	if err != nil {
		return nil, err
	}
	ref, err := uuid.Parse(rawRef)
	if err != nil {
		return nil, fmt.Errorf("%w: reference: %v", domain.ErrInvalidInput, err)
	}
	rawTS, err := stringField(s, "timestamp")
	if err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, rawTS)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", domain.ErrInvalidInput, err)
	}
	return &domain.Transaction{
		TransactionID:       id,
		AccountNumber:       account,
		Type:                txType,
		Amount:              amount,
		CounterpartyAccount: counterparty,
		Reference:           ref,
		Timestamp:           ts,
	}, nil
}

// accountFields 不含 PIN，卡號遮罩
func accountFields(a *domain.Account) map[string]any {
	return map[string]any{
		"account_number":  a.AccountNumber,
		"user_id":         a.UserID,
		"balance":         a.Balance.String(),
		"type":            a.Type,
		"owner_name":      a.OwnerName,
		"address":         a.Address,
		"phone_number":    a.PhoneNumber,
		"card_number":     a.MaskedCardNumber(),
		"expiration_date": a.ExpirationDate,
	}
}

func accountFromStruct(s *structpb.Struct) (*domain.Account, error) {
	number, err := int64Field(s, "account_number")
	if err != nil {
		return nil, err
	}
	balance, err := decimalField(s, "balance")
	if err != nil {
		return nil, err
	}
	str := func(key string) string {
		v, _ := stringField(s, key)
		return v
	}
	return &domain.Account{
		AccountNumber:  number,
		UserID:         str("user_id"),
		Balance:        balance,
		Type:           str("type"),
		OwnerName:      str("owner_name"),
		Address:        str("address"),
		PhoneNumber:    str("phone_number"),
		CardNumber:     str("card_number"),
		ExpirationDate: str("expiration_date"),
	}, nil
}
