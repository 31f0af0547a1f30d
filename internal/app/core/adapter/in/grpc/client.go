package grpc

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// Client 是 LedgerService 的客戶端，錯誤會還原成 domain 錯誤
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient 以既有連線建立客戶端 (連線通常來自 pkg/grpc.Pool)
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Receipt 是異動操作的回應
type Receipt struct {
	Transaction *domain.Transaction
	// Balance 交易所屬帳戶在交易後的餘額，服務端取不到時為 nil
	Balance *decimal.Decimal
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := newStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return nil, fromStatus(err)
	}
	return out, nil
}

func (c *Client) Authenticate(ctx context.Context, userID, password string) (bool, error) {
	out, err := c.invoke(ctx, MethodAuthenticate, map[string]any{"user_id": userID, "password": password})
	if err != nil {
		return false, err
	}
	return out.GetFields()["authenticated"].GetBoolValue(), nil
}

func (c *Client) Deposit(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*Receipt, error) {
	return c.mutate(ctx, MethodDeposit, map[string]any{
		"account_number": accountNumber,
		"amount":         amount.String(),
	})
}

func (c *Client) Withdraw(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*Receipt, error) {
	return c.mutate(ctx, MethodWithdraw, map[string]any{
		"account_number": accountNumber,
		"amount":         amount.String(),
	})
}

func (c *Client) Transfer(ctx context.Context, senderAccount, receiverAccount int64, amount decimal.Decimal) (*Receipt, error) {
	return c.mutate(ctx, MethodTransfer, map[string]any{
		"sender_account":   senderAccount,
		"receiver_account": receiverAccount,
		"amount":           amount.String(),
	})
}

func (c *Client) mutate(ctx context.Context, method string, fields map[string]any) (*Receipt, error) {
	out, err := c.invoke(ctx, method, fields)
	if err != nil {
		return nil, err
	}
	body, err := structField(out, "transaction")
	if err != nil {
		return nil, fmt.Errorf("%s response: %w", method, err)
	}
	tran, err := transactionFromStruct(body)
	if err != nil {
		return nil, fmt.Errorf("%s response: %w", method, err)
	}
	receipt := &Receipt{Transaction: tran}
	if balance, err := decimalField(out, "balance"); err == nil {
		receipt.Balance = &balance
	}
	return receipt, nil
}

func (c *Client) CheckBalance(ctx context.Context, accountNumber int64) (decimal.Decimal, error) {
	out, err := c.invoke(ctx, MethodCheckBalance, map[string]any{"account_number": accountNumber})
	if err != nil {
		return decimal.Zero, err
	}
	return decimalField(out, "balance")
}

func (c *Client) GetAccountInfo(ctx context.Context, accountNumber int64) (*domain.Account, error) {
	out, err := c.invoke(ctx, MethodGetAccountInfo, map[string]any{"account_number": accountNumber})
	if err != nil {
		return nil, err
	}
	body, err := structField(out, "account")
	if err != nil {
		return nil, err
	}
	return accountFromStruct(body)
}

func (c *Client) GetTransactionHistory(ctx context.Context, accountNumber int64) ([]domain.Transaction, error) {
	out, err := c.invoke(ctx, MethodGetTransactionHistory, map[string]any{"account_number": accountNumber})
	if err != nil {
		return nil, err
	}
	values := out.GetFields()["transactions"].GetListValue().GetValues()
	history := make([]domain.Transaction, 0, len(values))
	for i, v := range values {
		tran, err := transactionFromStruct(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("transactions[%d]: %w", i, err)
		}
		history = append(history, *tran)
	}
	return history, nil
}

func (c *Client) GetAccountNumberForUser(ctx context.Context, userID string) (int64, error) {
	out, err := c.invoke(ctx, MethodGetAccountNumberForUser, map[string]any{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return int64Field(out, "account_number")
}
