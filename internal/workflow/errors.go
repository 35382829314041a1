package workflow

import (
	"errors"
	"fmt"
)

// Code is a machine-readable outcome of a workflow operation.
type Code string

const (
	CodeNotAuthenticated   Code = "NOT_AUTHENTICATED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeLockedState        Code = "LOCKED_STATE"
	CodeEmptySelection     Code = "EMPTY_SELECTION"
	CodeLimitExceeded      Code = "LIMIT_EXCEEDED"
	CodeAlreadySubmitted   Code = "ALREADY_SUBMITTED"
	CodeNotAllApproved     Code = "NOT_ALL_APPROVED"
	CodeStageMismatch      Code = "STAGE_MISMATCH"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeRevisionNotFound   Code = "REVISION_NOT_FOUND"
	CodeRevisionNotPending Code = "REVISION_NOT_PENDING"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeConflict           Code = "CONFLICT"
	CodeStoreWriteFailed   Code = "STORE_WRITE_FAILED"
)

// Error is a workflow outcome that callers render rather than escalate.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same code, so the sentinels below work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrNotAuthenticated   = &Error{Code: CodeNotAuthenticated, Message: "not authenticated"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "studio access required"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "session not found"}
	ErrLockedState        = &Error{Code: CodeLockedState, Message: "session is locked and cannot be modified"}
	ErrEmptySelection     = &Error{Code: CodeEmptySelection, Message: "no images selected"}
	ErrLimitExceeded      = &Error{Code: CodeLimitExceeded, Message: "selection exceeds the package limit"}
	ErrAlreadySubmitted   = &Error{Code: CodeAlreadySubmitted, Message: "selection has already been submitted"}
	ErrNotAllApproved     = &Error{Code: CodeNotAllApproved, Message: "not all images have been approved"}
	ErrStageMismatch      = &Error{Code: CodeStageMismatch, Message: "session is not in the required stage"}
	ErrInvalidTransition  = &Error{Code: CodeInvalidTransition, Message: "transition not allowed from the current status"}
	ErrRevisionNotFound   = &Error{Code: CodeRevisionNotFound, Message: "no revision found for this image"}
	ErrRevisionNotPending = &Error{Code: CodeRevisionNotPending, Message: "latest revision is not awaiting review"}
	ErrInvalidInput       = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "session was changed by another request, reload and retry"}
	ErrStoreWriteFailed   = &Error{Code: CodeStoreWriteFailed, Message: "failed to save changes"}
)

// CodeOf extracts the workflow code from err, or "" for nil and foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Result is the rendered outcome of a user action.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    Code   `json:"code,omitempty"`
}

// ResultOf converts an operation error into a Result. Errors outside the
// taxonomy are reported generically so internals do not leak to clients.
func ResultOf(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	var e *Error
	if errors.As(err, &e) {
		msg := e.Message
		if e.Code == CodeStoreWriteFailed {
			msg = ErrStoreWriteFailed.Message
		}
		return Result{Error: msg, Code: e.Code}
	}
	return Result{Error: "an unexpected error occurred", Code: CodeStoreWriteFailed}
}
