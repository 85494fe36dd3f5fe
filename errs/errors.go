// Package errs defines the structured error taxonomy shared by the engine.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Error() strings are human-readable and may evolve.
package errs

import "errors"

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	// KindStructural covers malformed parameters and unknown zome, capability
	// or function names. It never reaches validation.
	KindStructural Kind = "Structural"
	// KindValidation is an entry rejected by its type's acceptance rules.
	KindValidation Kind = "Validation"
	// KindLink is a link precondition failure (base or target missing).
	KindLink     Kind = "Link"
	KindStorage  Kind = "Storage"
	KindInternal Kind = "Internal"
)

// Error is the engine's structured error type.
//
// RuleID is a stable identifier (e.g. CAP-002, CHAIN-001) that names the
// violated invariant or check.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns a structured error without a cause.
func New(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

// Wrap returns a structured error wrapping cause. A nil cause behaves like New.
func Wrap(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return New(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
