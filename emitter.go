package maplejuice

import (
	"bufio"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Emitter enables maple and juice jobs to yield key-value pairs.
type Emitter interface {
	Emit(key, value string) error
	close() error
	bytesWritten() int64
	linesWritten() int
}

// lineEmitter is a threadsafe emitter that writes intermediate lines.
// Output is buffered and only guaranteed to be visible after close.
type lineEmitter struct {
	writer       *bufio.Writer
	mut          *sync.Mutex
	writtenBytes int64
	writtenLines int
	warned       bool
}

// newLineEmitter initializes and returns a new lineEmitter writing to w.
// Closing the emitter flushes it but leaves w open.
func newLineEmitter(w io.Writer) *lineEmitter {
	return &lineEmitter{
		writer: bufio.NewWriter(w),
		mut:    &sync.Mutex{},
	}
}

// Emit yields a key-value pair as one "[key: value]" line.
func (e *lineEmitter) Emit(key, value string) error {
	e.mut.Lock()
	defer e.mut.Unlock()

	if !e.warned && (hasReserved(key) || hasReserved(value)) {
		log.Warnf("Emitting reserved characters in [%s: %s], the line will not decode cleanly", key, value)
		e.warned = true
	}

	n, err := e.writer.WriteString(EncodeLine(key, value) + "\n")
	e.writtenBytes += int64(n)
	if err == nil {
		e.writtenLines++
	}
	return err
}

// close flushes buffered lines. close must not be called more than once
func (e *lineEmitter) close() error {
	e.mut.Lock()
	defer e.mut.Unlock()

	return e.writer.Flush()
}

func (e *lineEmitter) bytesWritten() int64 {
	return e.writtenBytes
}

func (e *lineEmitter) linesWritten() int {
	return e.writtenLines
}
