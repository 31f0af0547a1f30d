package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName gRPC 服務全名
const ServiceName = "ledger.v1.LedgerService"

// 方法名稱
const (
	MethodAuthenticate            = "Authenticate"
	MethodDeposit                 = "Deposit"
	MethodWithdraw                = "Withdraw"
	MethodTransfer                = "Transfer"
	MethodGetAccountInfo          = "GetAccountInfo"
	MethodGetTransactionHistory   = "GetTransactionHistory"
	MethodCheckBalance            = "CheckBalance"
	MethodGetAccountNumberForUser = "GetAccountNumberForUser"
)

// LedgerServiceServer 服務端介面，請求與回應都是 google.protobuf.Struct
type LedgerServiceServer interface {
	Authenticate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Deposit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Withdraw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Transfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccountInfo(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransactionHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckBalance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccountNumberForUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(LedgerServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LedgerServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod 回傳 "/ledger.v1.LedgerService/<method>"
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// LedgerServiceDesc 手寫的服務描述 (沒有 .proto 產生碼)
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodAuthenticate, LedgerServiceServer.Authenticate),
		unaryHandler(MethodDeposit, LedgerServiceServer.Deposit),
		unaryHandler(MethodWithdraw, LedgerServiceServer.Withdraw),
		unaryHandler(MethodTransfer, LedgerServiceServer.Transfer),
		unaryHandler(MethodGetAccountInfo, LedgerServiceServer.GetAccountInfo),
		unaryHandler(MethodGetTransactionHistory, LedgerServiceServer.GetTransactionHistory),
		unaryHandler(MethodCheckBalance, LedgerServiceServer.CheckBalance),
		unaryHandler(MethodGetAccountNumberForUser, LedgerServiceServer.GetAccountNumberForUser),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/ledger.proto",
}

// RegisterLedgerServiceServer 註冊服務
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}
