package derrors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a domain-specific error code.
type Code string

// Error codes for different failure scenarios.
const (
	// CodeInvalidSelector indicates a selector string failed to parse.
	CodeInvalidSelector Code = "INVALID_SELECTOR"

	// CodeInvalidKeySpec indicates a key specification failed to parse.
	CodeInvalidKeySpec Code = "INVALID_KEY_SPEC"

	// CodeElementNotFound indicates no element matched the selector.
	CodeElementNotFound Code = "ELEMENT_NOT_FOUND"

	// CodeTimeout indicates the operation deadline elapsed.
	CodeTimeout Code = "TIMEOUT"

	// CodeCanceled indicates the operation was canceled by the caller.
	CodeCanceled Code = "CANCELED"

	// CodeElementDetached indicates the underlying UI node no longer exists.
	CodeElementDetached Code = "ELEMENT_DETACHED"

	// CodeElementNotVisible indicates the element has empty or off-screen bounds.
	CodeElementNotVisible Code = "ELEMENT_NOT_VISIBLE"

	// CodeElementNotEnabled indicates the element is disabled.
	CodeElementNotEnabled Code = "ELEMENT_NOT_ENABLED"

	// CodeElementNotStable indicates the element bounds kept moving past the stability window.
	CodeElementNotStable Code = "ELEMENT_NOT_STABLE"

	// CodeElementObscured indicates another element covers the action point.
	CodeElementObscured Code = "ELEMENT_OBSCURED"

	// CodeScrollFailed indicates the element does not support scrolling.
	CodeScrollFailed Code = "SCROLL_FAILED"

	// CodeInvokeUnsupported indicates the element lacks the invoke pattern.
	CodeInvokeUnsupported Code = "INVOKE_UNSUPPORTED"

	// CodeVerificationFailed indicates an action postcondition check failed.
	CodeVerificationFailed Code = "VERIFICATION_FAILED"

	// CodePlatformUnavailable indicates the OS accessibility subsystem is unreachable.
	CodePlatformUnavailable Code = "PLATFORM_UNAVAILABLE"

	// CodePermissionDenied indicates accessibility permissions are not granted.
	CodePermissionDenied Code = "PERMISSION_DENIED"

	// CodeInvalidConfig indicates configuration validation failed.
	CodeInvalidConfig Code = "INVALID_CONFIG"

	// CodeInvalidInput indicates invalid input parameters.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeLoggingFailed indicates logger initialization or I/O failed.
	CodeLoggingFailed Code = "LOGGING_FAILED"

	// CodeConfigIOFailed indicates configuration file I/O failed.
	CodeConfigIOFailed Code = "CONFIG_IO_FAILED"

	// CodeInternal indicates an internal error occurred.
	CodeInternal Code = "INTERNAL"
)

// Error is a domain error: a code from the taxonomy, a human-readable
// message, an optional wrapped cause, and free-form context entries.
// Two Errors match under errors.Is when their codes match; everything else
// is diagnostic payload.
type Error struct {
	code    Code
	message string
	cause   error
	context map[string]any
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and message to an existing error. A nil cause yields
// nil, so Wrap can sit directly on a return path.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	wrapped := New(code, message)
	wrapped.cause = err

	return wrapped
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Code returns the error code.
func (e *Error) Code() Code {
	return e.code
}

// Message returns the message without code or cause.
func (e *Error) Message() string {
	return e.message
}

// Cause returns the wrapped cause, nil for leaf errors.
func (e *Error) Cause() error {
	return e.cause
}

// Context returns the attached context entries, nil when none were added.
func (e *Error) Context() map[string]any {
	return e.context
}

// WithContext attaches one diagnostic entry and returns the error for
// chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.context == nil {
		e.context = make(map[string]any)
	}

	e.context[key] = value

	return e
}

// Error renders "[CODE] message" with the cause appended when present.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteByte('[')
	sb.WriteString(string(e.code))
	sb.WriteString("] ")
	sb.WriteString(e.message)

	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}

	return sb.String()
}

// Unwrap exposes the cause to the errors package.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches by code, so sentinel comparisons like
// errors.Is(err, derrors.New(derrors.CodeTimeout, "")) work regardless of
// message or cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)

	return ok && e.code == other.code
}

// IsCode reports whether err is, or wraps, a domain error with the given
// code.
func IsCode(err error, code Code) bool {
	var domainErr *Error

	return errors.As(err, &domainErr) && domainErr.code == code
}
