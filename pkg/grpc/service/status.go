package service

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/jugaji/presto-dynamodb/pkg/attribute"
	"github.com/jugaji/presto-dynamodb/pkg/store"
)

type statusMapping struct {
	reason   string
	sentinel error
	code     codes.Code
}

// statusMappings pairs each sentinel error with its status code and the
// reason carried as a status detail
var statusMappings = []statusMapping{
	{"table_not_found", store.ErrTableNotFound, codes.NotFound},
	{"table_exists", store.ErrTableExists, codes.AlreadyExists},
	{"invalid_table", store.ErrInvalidTable, codes.InvalidArgument},
	{"invalid_segment", store.ErrInvalidSegment, codes.InvalidArgument},
	{"missing_key", store.ErrMissingKey, codes.InvalidArgument},
	{"invalid_value", attribute.ErrInvalidValue, codes.InvalidArgument},
	{"item_too_large", ErrItemTooLarge, codes.InvalidArgument},
	{"invalid_request", ErrInvalidRequest, codes.InvalidArgument},
	{"closed", store.ErrClosed, codes.Unavailable},
}

// ToStatus converts a store error into a gRPC status error
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	for _, m := range statusMappings {
		if errors.Is(err, m.sentinel) {
			st := status.New(m.code, err.Error())
			if detailed, derr := st.WithDetails(wrapperspb.String(m.reason)); derr == nil {
				st = detailed
			}
			return st.Err()
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// FromStatus converts a gRPC status error back into the matching sentinel error
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	for _, detail := range st.Details() {
		reason, ok := detail.(*wrapperspb.StringValue)
		if !ok {
			continue
		}
		for _, m := range statusMappings {
			if m.reason == reason.GetValue() {
				return &remoteError{sentinel: m.sentinel, msg: st.Message()}
			}
		}
	}

	switch st.Code() {
	case codes.NotFound:
		return &remoteError{sentinel: store.ErrTableNotFound, msg: st.Message()}
	case codes.AlreadyExists:
		return &remoteError{sentinel: store.ErrTableExists, msg: st.Message()}
	case codes.InvalidArgument:
		return &remoteError{sentinel: ErrInvalidRequest, msg: st.Message()}
	case codes.Canceled:
		return &remoteError{sentinel: context.Canceled, msg: st.Message()}
	case codes.DeadlineExceeded:
		return &remoteError{sentinel: context.DeadlineExceeded, msg: st.Message()}
	}
	return err
}

// remoteError carries the server message while matching the local sentinel
type remoteError struct {
	sentinel error
	msg      string
}

func (e *remoteError) Error() string {
	return e.msg
}

func (e *remoteError) Unwrap() error {
	return e.sentinel
}
