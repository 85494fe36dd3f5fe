package grpccas

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/agentchain/storage"
)

// codeFor maps storage sentinels to status codes; the message carries the
// sentinel text so clients can map back even through proxies that rewrite codes.
var codeFor = []struct {
	err  error
	code codes.Code
}{
	{storage.ErrNotFound, codes.NotFound},
	{storage.ErrInvalidCID, codes.InvalidArgument},
	{storage.ErrCIDMismatch, codes.DataLoss},
	{storage.ErrImmutable, codes.AlreadyExists},
}

// mapErr converts a storage error into a gRPC status error (server side).
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	for _, m := range codeFor {
		if errors.Is(err, m.err) {
			return status.Error(m.code, m.err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}

// mapRPC converts a gRPC status error back into a storage error (client side).
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, m := range codeFor {
		if st.Code() == m.code || st.Message() == m.err.Error() {
			return m.err
		}
	}
	return err
}
