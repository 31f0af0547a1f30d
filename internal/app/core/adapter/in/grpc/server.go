package grpc

import (
	"context"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// LedgerCore 是 GrpcServer 需要的核心操作 (usecase.CoreUseCase 實作)
type LedgerCore interface {
	AuthenticateUser(ctx context.Context, userID, password string) (bool, error)
	Deposit(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Transaction, error)
	Withdraw(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Transaction, error)
	Transfer(ctx context.Context, senderAccount, receiverAccount int64, amount decimal.Decimal) (*domain.Transaction, error)
	CheckBalance(ctx context.Context, accountNumber int64) (decimal.Decimal, error)
	GetAccountInfo(ctx context.Context, accountNumber int64) (*domain.Account, error)
	GetTransactionHistory(ctx context.Context, accountNumber int64) ([]domain.Transaction, error)
	GetAccountNumberForUser(ctx context.Context, userID string) (int64, error)
}

type GrpcServer struct {
	core LedgerCore
}

func NewGrpcServer(core LedgerCore) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

// Authenticate {user_id, password} -> {authenticated}
func (s *GrpcServer) Authenticate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := stringField(req, "user_id")
	if err != nil {
		return nil, toStatus(err)
	}
	password, err := stringField(req, "password")
	if err != nil {
		return nil, toStatus(err)
	}
	ok, err := s.core.AuthenticateUser(ctx, userID, password)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"authenticated": ok})
}

// Deposit {account_number, amount} -> {transaction, balance}
func (s *GrpcServer) Deposit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	account, err := int64Field(req, "account_number")
	if err != nil {
		return nil, toStatus(err)
	}
	amount, err := decimalField(req, "amount")
	if err != nil {
		return nil, toStatus(err)
	}
	tran, err := s.core.Deposit(ctx, account, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return receipt(tran)
}

// Withdraw {account_number, amount} -> {transaction, balance}
func (s *GrpcServer) Withdraw(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	account, err := int64Field(req, "account_number")
	if err != nil {
		return nil, toStatus(err)
	}
	amount, err := decimalField(req, "amount")
	if err != nil {
		return nil, toStatus(err)
	}
	tran, err := s.core.Withdraw(ctx, account, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return receipt(tran)
}

// Transfer {sender_account, receiver_account, amount} -> {transaction, balance}
func (s *GrpcServer) Transfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sender, err := int64Field(req, "sender_account")
	if err != nil {
		return nil, toStatus(err)
	}
	receiver, err := int64Field(req, "receiver_account")
	if err != nil {
		return nil, toStatus(err)
	}
	amount, err := decimalField(req, "amount")
	if err != nil {
		return nil, toStatus(err)
	}
	tran, err := s.core.Transfer(ctx, sender, receiver, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return receipt(tran)
}

// receipt 回傳交易紀錄，並附上 store 在同一個交易內讀到的所屬帳戶餘額
func receipt(tran *domain.Transaction) (*structpb.Struct, error) {
	fields := map[string]any{"transaction": transactionFields(tran)}
	if tran.BalanceAfter != nil {
		fields["balance"] = tran.BalanceAfter.String()
	}
	return newStruct(fields)
}

// GetAccountInfo {account_number} -> {account}
func (s *GrpcServer) GetAccountInfo(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	account, err := int64Field(req, "account_number")
	if err != nil {
		return nil, toStatus(err)
	}
	info, err := s.core.GetAccountInfo(ctx, account)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"account": accountFields(info)})
}

// GetTransactionHistory {account_number} -> {transactions: [...]} (由舊到新)
func (s *GrpcServer) GetTransactionHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	account, err := int64Field(req, "account_number")
	if err != nil {
		return nil, toStatus(err)
	}
	history, err := s.core.GetTransactionHistory(ctx, account)
	if err != nil {
		return nil, toStatus(err)
	}
	list := make([]any, 0, len(history))
	for i := range history {
		list = append(list, transactionFields(&history[i]))
	}
	return newStruct(map[string]any{"transactions": list})
}

// CheckBalance {account_number} -> {balance}
func (s *GrpcServer) CheckBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	account, err := int64Field(req, "account_number")
	if err != nil {
		return nil, toStatus(err)
	}
	balance, err := s.core.CheckBalance(ctx, account)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"balance": balance.String()})
}

// GetAccountNumberForUser {user_id} -> {account_number}
func (s *GrpcServer) GetAccountNumberForUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := stringField(req, "user_id")
	if err != nil {
		return nil, toStatus(err)
	}
	account, err := s.core.GetAccountNumberForUser(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"account_number": account})
}

var _ LedgerServiceServer = (*GrpcServer)(nil)
