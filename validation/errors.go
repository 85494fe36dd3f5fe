package validation

import (
	"errors"

	"xdao.co/agentchain/errs"
)

// Error is an entry rejected by its type's acceptance rules. The chain and
// store are unchanged when it is returned.
type Error struct {
	RuleID string
	Reason string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "Validation failed: " + e.Reason
}

// Unwrap exposes the rejection as an errs.KindValidation error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return &errs.Error{Kind: errs.KindValidation, RuleID: e.RuleID, Message: e.Reason}
}

// IsRejection reports whether err is a validation rejection.
func IsRejection(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

func asRejection(ruleID string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		out := *e
		if out.RuleID == "" {
			out.RuleID = ruleID
		}
		return &out
	}
	return &Error{RuleID: ruleID, Reason: err.Error()}
}
