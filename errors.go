package maplejuice

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUsage is returned when a job is created without an input path.
	ErrUsage = errors.New("an input file is required")

	// ErrMalformedLine is returned by DecodeLine for lines that are not
	// "[key: value]". Juice jobs treat it as end of input unless strict.
	ErrMalformedLine = errors.New("malformed intermediate line")

	// ErrColumnNotFound is returned in strict mode when a header row does
	// not contain the requested column.
	ErrColumnNotFound = errors.New("column not found in header")

	// ErrShortRecord is returned when a row has no field at the resolved column.
	ErrShortRecord = errors.New("list index out of range")

	// ErrMissingParameter is returned when a job kind needs a pattern or
	// column that was not supplied.
	ErrMissingParameter = errors.New("missing job parameter")
)

// FileNotFoundError reports that a job's input does not exist.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("File '%s' not found.", e.Path)
}

// ReadError wraps any other failure encountered while reading a job's input.
// Output emitted before the failure has already been flushed.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %s", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Message renders err the way the job executables always printed failures.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var jobErrs JobErrors
	if errors.As(err, &jobErrs) {
		msgs := make([]string, len(jobErrs))
		for i, jobErr := range jobErrs {
			msgs[i] = Message(jobErr)
		}
		return strings.Join(msgs, "\n")
	}
	var notFound *FileNotFoundError
	if errors.As(err, &notFound) {
		return "Error: " + notFound.Error()
	}
	var readErr *ReadError
	if errors.As(err, &readErr) {
		return fmt.Sprintf("Error: %s", readErr.Err)
	}
	return fmt.Sprintf("Error: %s", err)
}
