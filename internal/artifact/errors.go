package artifact

import "fmt"

const CodeWriteFailed = "E_ARTIFACT_WRITE_FAILED"

// Error reports a failed artifact write, carrying the attempted path.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", CodeWriteFailed, e.Path, e.Err)
}

func (e *Error) Unwrap() error         { return e.Err }
func (e *Error) CodeValue() string     { return CodeWriteFailed }
func (e *Error) RetryableStatus() bool { return true }

func writeError(path string, err error) *Error {
	return &Error{Path: path, Err: err}
}
