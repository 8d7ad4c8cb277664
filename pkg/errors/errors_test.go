package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "bad specifier: %s", "foo==")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("expected code %s, got %s", ErrCodeInvalidInput, err.Code)
	}
	if err.Message != "bad specifier: foo==" {
		t.Errorf("unexpected message: %s", err.Message)
	}
	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeDownload, cause, "failed to fetch %s", "requests")

	if err.Cause != cause {
		t.Errorf("expected cause to be preserved")
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeVersionNotFound, "no such version")

	if !Is(err, ErrCodeVersionNotFound) {
		t.Error("expected Is to match the code")
	}
	if Is(err, ErrCodePackageNotFound) {
		t.Error("expected Is to reject a different code")
	}
	if Is(stderrors.New("plain"), ErrCodeVersionNotFound) {
		t.Error("expected Is to reject a plain error")
	}
}

func TestIs_WrappedChain(t *testing.T) {
	inner := New(ErrCodeNoSourceDist, "only wheels available")
	outer := fmt.Errorf("resolve requests: %w", inner)

	if !Is(outer, ErrCodeNoSourceDist) {
		t.Error("expected Is to unwrap through fmt.Errorf")
	}
	if GetCode(outer) != ErrCodeNoSourceDist {
		t.Errorf("expected GetCode to unwrap, got %s", GetCode(outer))
	}
}

func TestError_Format(t *testing.T) {
	tests := []struct {
		err      *Error
		expected string
	}{
		{New(ErrCodePackageNotFound, "no such package"), "PACKAGE_NOT_FOUND: no such package"},
		{Wrap(ErrCodeDownload, stderrors.New("timeout"), "fetch failed"), "DOWNLOAD_ERROR: fetch failed: timeout"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{New(ErrCodeWrite, "cannot write recipe"), "cannot write recipe"},
		{Wrap(ErrCodeWrite, stderrors.New("disk full"), "cannot write recipe"), "cannot write recipe: disk full"},
		{stderrors.New("plain error"), "plain error"},
	}

	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}
