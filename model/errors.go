package model

import (
	"errors"
	"fmt"

	"xdao.co/agentchain/capability"
	"xdao.co/agentchain/errs"
	"xdao.co/agentchain/storage"
	"xdao.co/agentchain/validation"
)

type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrInvalidAddress ErrorCode = "INVALID_ADDRESS"
	ErrDenied         ErrorCode = "DENIED"
	ErrValidation     ErrorCode = "VALIDATION_FAILED"
	ErrLink           ErrorCode = "LINK_PRECONDITION"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrCIDMismatch    ErrorCode = "CID_MISMATCH"
	ErrStorage        ErrorCode = "STORAGE"
	ErrInternal       ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	RuleID  string    `json:"ruleId,omitempty"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// FromError maps an engine error to its boundary form. A nil err maps to nil.
func FromError(err error) *CodedError {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce
	}
	return &CodedError{Code: codeFor(err), RuleID: errs.RuleID(err), Message: err.Error()}
}

func codeFor(err error) ErrorCode {
	switch {
	case validation.IsRejection(err):
		return ErrValidation
	case errors.Is(err, capability.ErrDenied):
		return ErrDenied
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrCIDMismatch):
		return ErrCIDMismatch
	case errors.Is(err, storage.ErrInvalidCID), errs.RuleID(err) == "ENTRY-003":
		return ErrInvalidAddress
	}
	switch errs.KindOf(err) {
	case errs.KindStructural:
		return ErrInvalidRequest
	case errs.KindValidation:
		return ErrValidation
	case errs.KindLink:
		return ErrLink
	case errs.KindStorage:
		return ErrStorage
	default:
		return ErrInternal
	}
}
