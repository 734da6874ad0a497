package agenterrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestScopeNotFound_MessageSubstitution(t *testing.T) {
	err := ScopeNotFound("profile")

	want := `[1000] memory scope "profile" not found`
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestCodesAreStable(t *testing.T) {
	cases := []struct {
		err  *Error
		code int
	}{
		{ScopeNotFound("x"), 1000},
		{ActiveDialogUndefined("SetMemory"), 1001},
		{UndefinedMemoryObject("dialog"), 1002},
		{MemoryScopeReadOnly("settings"), 1003},
		{PathResolutionLoop("$x", 10), 1004},
		{InvalidPath("a..b", "empty segment"), 1005},
		{EmptyRecognizerResult(), 1010},
		{DialogNotFound("greeting"), 1020},
	}

	for _, tc := range cases {
		if tc.err.Code != tc.code {
			t.Errorf("%s: code = %d, want %d", tc.err.Message, tc.err.Code, tc.code)
		}
	}
}

func TestHasCode_UnwrapsWrappedErrors(t *testing.T) {
	inner := ActiveDialogUndefined("SetMemory")
	wrapped := fmt.Errorf("saving state: %w", inner)

	if !HasCode(wrapped, CodeActiveDialogUndefined) {
		t.Fatal("expected HasCode to find code through wrapping")
	}
	if HasCode(wrapped, CodeScopeNotFound) {
		t.Fatal("HasCode matched the wrong code")
	}
	if CodeOf(errors.New("plain")) != 0 {
		t.Fatal("plain errors should report code 0")
	}
}

func TestErrorsIs_MatchesByCode(t *testing.T) {
	a := ScopeNotFound("alpha")
	b := ScopeNotFound("beta")

	if !errors.Is(a, b) {
		t.Fatal("errors with the same code should match regardless of parameters")
	}
	if errors.Is(a, EmptyRecognizerResult()) {
		t.Fatal("errors with different codes must not match")
	}
}

func TestWithCause_RendersAndUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := UndefinedMemoryObject("user").WithCause(cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable via errors.Is")
	}
	want := `[1002] cannot set memory scope "user" to an undefined value: disk full`
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}
