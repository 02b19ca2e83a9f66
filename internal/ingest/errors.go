package ingest

import (
	"errors"
	"fmt"
)

const (
	CodeNoSheetsSelected = "E_NO_SHEETS_SELECTED"
	CodeNoTargetName     = "E_NO_TARGET_NAME"
	CodeBadSettings      = "E_BAD_SETTINGS"
)

// Error wraps orchestration failures with a stable code.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error         { return e.Err }
func (e *Error) CodeValue() string     { return e.Code }
func (e *Error) RetryableStatus() bool { return false }

func wrapError(code string, err error) *Error {
	return &Error{Code: code, Err: err}
}

// ErrorCode extracts the stable code from any coded pipeline error, or ""
// when the error carries none.
func ErrorCode(err error) string {
	var coded interface{ CodeValue() string }
	if errors.As(err, &coded) {
		return coded.CodeValue()
	}
	return ""
}
