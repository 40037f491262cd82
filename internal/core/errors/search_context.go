package derrors

import "errors"

// Helpers tying the generic error type to the automation domain: the context
// keys every user-visible failure carries (originating selector, chain step,
// element runtime id) and the retry policy the locator applies.

// WithSelector records the originating selector text on the error.
func (e *Error) WithSelector(selector string) *Error {
	return e.WithContext("selector", selector)
}

// WithStep records the chain step index where the error occurred.
func (e *Error) WithStep(step int) *Error {
	return e.WithContext("step", step)
}

// WithRuntimeID records the runtime id of the element involved, if known.
func (e *Error) WithRuntimeID(id string) *Error {
	return e.WithContext("runtime_id", id)
}

// CodeOf returns the code of a domain error, or CodeInternal for foreign
// errors.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.code
	}

	return CodeInternal
}

// IsRetryable reports whether the locator may mask this error by trying
// alternatives or fallbacks. Only ElementNotFound and Timeout qualify;
// everything else surfaces immediately.
func IsRetryable(err error) bool {
	code := CodeOf(err)

	return code == CodeElementNotFound || code == CodeTimeout
}
