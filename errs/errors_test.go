package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrap_PreservesKindThroughFmtWrap(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("commit: %w", Wrap(KindStorage, "STORE-001", "put entry", cause))

	if !IsKind(err, KindStorage) {
		t.Fatalf("expected KindStorage, got %q", KindOf(err))
	}
	if RuleID(err) != "STORE-001" {
		t.Fatalf("expected RuleID STORE-001, got %q", RuleID(err))
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable via errors.Is")
	}
}

func TestWrap_NilCauseIsNew(t *testing.T) {
	err := Wrap(KindLink, "LINK-001", "base not found", nil)
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if e.Cause != nil {
		t.Fatalf("expected nil cause")
	}
}

func TestUnstructured(t *testing.T) {
	err := errors.New("plain")
	if IsKind(err, KindInternal) || RuleID(err) != "" || KindOf(err) != "" {
		t.Fatalf("plain errors must not report a kind or rule")
	}
}
