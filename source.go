package maplejuice

import (
	"bufio"
	"errors"
	"os"
	"strings"

	"github.com/bcongdon/maplejuice/internal/pkg/corfs"
)

// maxRecordSize bounds the length of a single input line.
const maxRecordSize = 4 * 1024 * 1024

// unresolvedColumn is the column index of a header lookup that found nothing.
const unresolvedColumn = -1

// errStopReading ends recordSource.each early without reporting an error.
var errStopReading = errors.New("stop reading")

// recordSource reads one input file as a one-pass sequence of lines.
type recordSource struct {
	fs   corfs.FileSystem
	path string

	bytesRead int64
}

// each calls fn with every line of the source and its 1-based line number.
// The underlying file is closed before each returns. Lines handed to fn before
// a read failure stay handed over; the failure is returned as a *ReadError.
func (r *recordSource) each(fn func(lineNum int, line string) error) (int, error) {
	reader, err := r.fs.OpenReader(r.path, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, &FileNotFoundError{Path: r.path}
		}
		return 0, &ReadError{Path: r.path, Err: err}
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), maxRecordSize)
	scanner.Split(countingSplitFunc(bufio.ScanLines, &r.bytesRead))

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if err := fn(lineNum, scanner.Text()); err != nil {
			if err == errStopReading {
				return lineNum, nil
			}
			return lineNum, err
		}
	}
	if err := scanner.Err(); err != nil {
		return lineNum, &ReadError{Path: r.path, Err: err}
	}
	return lineNum, nil
}

// countingSplitFunc wraps a bufio.SplitFunc and keeps track of the number of bytes advanced.
// Upon each scan, the value of *bytesRead will be incremented by the number of bytes
// that the SplitFunc advances.
func countingSplitFunc(split bufio.SplitFunc, bytesRead *int64) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		adv, tok, err := split(data, atEOF)
		(*bytesRead) += int64(adv)
		return adv, tok, err
	}
}

// splitFields splits a record on commas. Quoting is not interpreted.
func splitFields(line string) []string {
	return strings.Split(line, ",")
}

// resolveColumn returns the index of the first header field equal to name,
// or unresolvedColumn.
func resolveColumn(header []string, name string) int {
	for i, column := range header {
		if column == name {
			return i
		}
	}
	return unresolvedColumn
}

// fieldAt returns fields[idx]. Negative indexes count back from the end of
// the record, so an unresolvedColumn index reads the last field.
func fieldAt(fields []string, idx int) (string, bool) {
	if idx < 0 {
		idx += len(fields)
	}
	if idx < 0 || idx >= len(fields) {
		return "", false
	}
	return fields[idx], true
}

// withoutField returns the fields before idx followed by the fields after it.
// For unresolvedColumn this degenerates to every field but the last followed
// by every field.
func withoutField(fields []string, idx int) []string {
	rest := make([]string, 0, len(fields))
	if idx < 0 {
		rest = append(rest, fields[:len(fields)-1]...)
		return append(rest, fields...)
	}
	rest = append(rest, fields[:idx]...)
	return append(rest, fields[idx+1:]...)
}
