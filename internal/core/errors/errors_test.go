package derrors_test

import (
	"errors"
	"testing"

	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
)

func TestNew(t *testing.T) {
	err := derrors.New(derrors.CodeInvalidInput, "test error")
	if err == nil {
		t.Fatal("New() returned nil")
	}

	if err.Code() != derrors.CodeInvalidInput {
		t.Errorf("Expected code %v, got %v", derrors.CodeInvalidInput, err.Code())
	}

	if err.Message() != "test error" {
		t.Errorf("Expected message 'test error', got '%s'", err.Message())
	}
}

func TestNewf(t *testing.T) {
	err := derrors.Newf(derrors.CodeInvalidConfig, "invalid value: %d", 42)
	if err == nil {
		t.Fatal("Newf() returned nil")
	}

	if err.Code() != derrors.CodeInvalidConfig {
		t.Errorf("Expected code %v, got %v", derrors.CodeInvalidConfig, err.Code())
	}

	expected := "invalid value: 42"
	if err.Message() != expected {
		t.Errorf("Expected message '%s', got '%s'", expected, err.Message())
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *derrors.Error
		expected string
	}{
		{
			name:     "error without cause",
			err:      derrors.New(derrors.CodeElementNotFound, "element not found"),
			expected: "[ELEMENT_NOT_FOUND] element not found",
		},
		{
			name: "error with cause",
			err: derrors.Wrap(
				errors.New("underlying error"), //nolint:err113 // dynamic errors needed for testing
				derrors.CodeElementDetached,
				"failed to read element property",
			),
			expected: "[ELEMENT_DETACHED] failed to read element property: underlying error",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			got := testCase.err.Error()
			if got != testCase.expected {
				t.Errorf("Error() = %q, want %q", got, testCase.expected)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	timeoutA := derrors.New(derrors.CodeTimeout, "deadline elapsed")
	timeoutB := derrors.New(derrors.CodeTimeout, "different message")
	notFound := derrors.New(derrors.CodeElementNotFound, "nothing matched")

	if !errors.Is(timeoutA, timeoutB) {
		t.Error("errors with the same code should match via errors.Is")
	}

	if errors.Is(timeoutA, notFound) {
		t.Error("errors with different codes should not match")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause") //nolint:err113 // dynamic errors needed for testing
	wrapped := derrors.Wrap(cause, derrors.CodeInternal, "wrapped")

	if !errors.Is(wrapped, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
}

func TestWrap_NilError(t *testing.T) {
	if derrors.Wrap(nil, derrors.CodeInternal, "message") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	if derrors.Wrapf(nil, derrors.CodeInternal, "message %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}

func TestIsCode(t *testing.T) {
	err := derrors.New(derrors.CodeElementNotStable, "bounds kept moving")

	if !derrors.IsCode(err, derrors.CodeElementNotStable) {
		t.Error("IsCode should match the error's own code")
	}

	if derrors.IsCode(err, derrors.CodeElementObscured) {
		t.Error("IsCode should not match a different code")
	}

	if derrors.IsCode(errors.New("plain"), derrors.CodeInternal) { //nolint:err113
		t.Error("IsCode should not match plain errors")
	}
}

func TestWithContext(t *testing.T) {
	err := derrors.New(derrors.CodeElementNotFound, "nothing matched").
		WithSelector("role:Button").
		WithStep(2).
		WithRuntimeID("42.7.1")

	ctx := err.Context()
	if ctx["selector"] != "role:Button" {
		t.Errorf("selector context = %v, want role:Button", ctx["selector"])
	}

	if ctx["step"] != 2 {
		t.Errorf("step context = %v, want 2", ctx["step"])
	}

	if ctx["runtime_id"] != "42.7.1" {
		t.Errorf("runtime_id context = %v, want 42.7.1", ctx["runtime_id"])
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := derrors.Wrap(
		derrors.New(derrors.CodeElementDetached, "inner"),
		derrors.CodeInternal,
		"outer",
	)

	if got := derrors.CodeOf(wrapped); got != derrors.CodeInternal {
		t.Errorf("CodeOf() = %v, want the outermost domain code", got)
	}

	if got := derrors.CodeOf(errors.New("plain")); got != derrors.CodeInternal { //nolint:err113
		t.Errorf("CodeOf(plain) = %v, want INTERNAL", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"element not found", derrors.New(derrors.CodeElementNotFound, "x"), true},
		{"timeout", derrors.New(derrors.CodeTimeout, "x"), true},
		{"detached", derrors.New(derrors.CodeElementDetached, "x"), false},
		{"permission denied", derrors.New(derrors.CodePermissionDenied, "x"), false},
		{"plain error", errors.New("plain"), false}, //nolint:err113
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			if got := derrors.IsRetryable(testCase.err); got != testCase.want {
				t.Errorf("IsRetryable() = %v, want %v", got, testCase.want)
			}
		})
	}
}
