package grpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// toStatus 把 domain 錯誤轉成 gRPC status
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeOf(err), err.Error())
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrInsufficientFunds):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrTransferFailed):
		return codes.Aborted
	case errors.Is(err, domain.ErrAccountAlreadyExists), errors.Is(err, domain.ErrUserAlreadyExists):
		return codes.AlreadyExists
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, domain.ErrStoreUnavailable):
		return codes.Unavailable
	}
	return codes.Internal
}

// fromStatus 把 gRPC status 還原成 domain 錯誤，讓呼叫端可以用 errors.Is 判斷
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.NotFound:
		sentinel = domain.ErrNotFound
	case codes.InvalidArgument:
		sentinel = domain.ErrInvalidInput
	case codes.FailedPrecondition:
		sentinel = domain.ErrInsufficientFunds
	case codes.Aborted:
		sentinel = domain.ErrTransferFailed
	case codes.AlreadyExists:
		sentinel = domain.ErrUserAlreadyExists
	case codes.Unavailable, codes.DeadlineExceeded:
		sentinel = domain.ErrStoreUnavailable
	default:
		return err
	}
	return fmt.Errorf("%w: %s", sentinel, st.Message())
}
