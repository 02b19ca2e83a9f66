package format

import "fmt"

const (
	CodeUnsupportedType = "E_UNSUPPORTED_TYPE"
	CodeParseFailed     = "E_PARSE_FAILED"
)

// Error wraps reader failures with a stable code.
type Error struct {
	Code       string
	SourceType SourceType
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Code, e.SourceType, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Code, e.SourceType)
}

func (e *Error) Unwrap() error         { return e.Err }
func (e *Error) CodeValue() string     { return e.Code }
func (e *Error) RetryableStatus() bool { return false }

func unsupportedType(t SourceType) *Error {
	return &Error{Code: CodeUnsupportedType, SourceType: t, Err: fmt.Errorf("declared type %q is not one of csv, excel, parquet", t)}
}

func parseError(t SourceType, err error) *Error {
	return &Error{Code: CodeParseFailed, SourceType: t, Err: err}
}
