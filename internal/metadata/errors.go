package metadata

import "fmt"

const (
	CodeSourceNotFound  = "E_SOURCE_NOT_FOUND"
	CodeDatasetNotFound = "E_DATASET_NOT_FOUND"
	CodeMetadataFailed  = "E_METADATA_FAILED"
)

// Error wraps record-store failures with a stable code.
type Error struct {
	Code      string
	Retryable bool
	Err       error
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
func (e *Error) RetryableStatus() bool { return e.Retryable }

func wrapError(code string, retryable bool, err error) *Error {
	return &Error{Code: code, Retryable: retryable, Err: err}
}

func sourceNotFound(id fmt.Stringer) *Error {
	return wrapError(CodeSourceNotFound, false, fmt.Errorf("data source %s not found", id))
}

func datasetNotFound(name string) *Error {
	return wrapError(CodeDatasetNotFound, false, fmt.Errorf("dataset %q not found", name))
}
