package maplejuice

import (
	"fmt"
	"io"
	"regexp"

	humanize "github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"

	"github.com/bcongdon/maplejuice/internal/pkg/corfs"
)

// DefaultIndicatorColumn is the header column inspected by MapleComposition
// jobs when no column is configured.
const DefaultIndicatorColumn = "Interconne"

const defaultPatternCacheSize = 128

// patternCache holds compiled filter expressions so that many jobs sharing a
// pattern compile it once. It never holds job data.
var patternCache, _ = lru.New(defaultPatternCacheSize)

// SetPatternCacheSize resizes the compiled pattern cache.
func SetPatternCacheSize(size int) {
	if size <= 0 {
		size = defaultPatternCacheSize
	}
	patternCache.Resize(size)
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Get(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Add(pattern, re)
	return re, nil
}

// Job is one maple or juice run over a single input. A Job is immutable once
// created and may be run any number of times; runs share no state.
type Job struct {
	kind    Kind
	input   string
	pattern string
	column  string
	strict  bool

	regex *regexp.Regexp
	fs    corfs.FileSystem
}

// JobOption configures variant-specific parameters of a Job
type JobOption func(*Job)

// WithPattern sets the regular expression of a MapleFilter job, or the
// literal indicator value of a MapleComposition job.
func WithPattern(pattern string) JobOption {
	return func(j *Job) {
		j.pattern = pattern
	}
}

// WithColumn sets the key column of a MapleJoinColumn job, or the indicator
// column of a MapleComposition job.
func WithColumn(column string) JobOption {
	return func(j *Job) {
		j.column = column
	}
}

// WithStrict makes malformed intermediate lines and unresolved header columns
// fail the job instead of silently truncating or misreading input.
func WithStrict(strict bool) JobOption {
	return func(j *Job) {
		j.strict = strict
	}
}

// WithFileSystem sets the filesystem the input is read from. By default it is
// inferred from the input path.
func WithFileSystem(fs corfs.FileSystem) JobOption {
	return func(j *Job) {
		j.fs = fs
	}
}

// NewJob validates and freezes the parameters of a job of the given kind.
func NewJob(kind Kind, input string, options ...JobOption) (*Job, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("unknown job kind %d", int(kind))
	}
	if input == "" {
		return nil, ErrUsage
	}

	j := &Job{
		kind:  kind,
		input: input,
	}
	for _, option := range options {
		option(j)
	}

	switch kind {
	case MapleFilter:
		if j.pattern == "" {
			return nil, fmt.Errorf("%w: %s needs a pattern", ErrMissingParameter, kind)
		}
		re, err := compilePattern(j.pattern)
		if err != nil {
			return nil, err
		}
		j.regex = re
	case MapleJoinColumn:
		if j.column == "" {
			return nil, fmt.Errorf("%w: %s needs a column", ErrMissingParameter, kind)
		}
	case MapleComposition:
		if j.pattern == "" {
			return nil, fmt.Errorf("%w: %s needs a pattern", ErrMissingParameter, kind)
		}
		if j.column == "" {
			j.column = DefaultIndicatorColumn
		}
	}

	if j.fs == nil {
		j.fs = corfs.InferFilesystem(input)
	}
	return j, nil
}

func (j *Job) Kind() Kind      { return j.kind }
func (j *Job) Input() string   { return j.input }
func (j *Job) Pattern() string { return j.pattern }
func (j *Job) Column() string  { return j.column }
func (j *Job) Strict() bool    { return j.strict }
func (j *Job) String() string  { return fmt.Sprintf("%s(%s)", j.kind, j.input) }

// Result summarizes a finished run.
type Result struct {
	Kind         Kind
	Input        string
	RecordsRead  int   // input lines consumed, including any header
	LinesEmitted int   // intermediate lines written
	BytesRead    int64 // input bytes consumed
	BytesWritten int64 // output bytes written
	Truncated    bool  // a juice run stopped at a malformed line
}

// Run reads the job's input and writes "[key: value]" lines to w.
//
// Output is flushed before Run returns, including when it fails: a maple run
// keeps everything emitted before the failure, while a juice run that fails
// to read its input emits nothing.
func (j *Job) Run(w io.Writer) (Result, error) {
	emitter := newLineEmitter(w)
	source := &recordSource{fs: j.fs, path: j.input}
	res := Result{Kind: j.kind, Input: j.input}

	var err error
	switch j.kind.Stage() {
	case MapleStage:
		res.RecordsRead, err = j.runMaple(source, emitter)
	case JuiceStage:
		res.RecordsRead, res.Truncated, err = j.runJuice(source, emitter)
	}

	if closeErr := emitter.close(); err == nil {
		err = closeErr
	}
	res.LinesEmitted = emitter.linesWritten()
	res.BytesWritten = emitter.bytesWritten()
	res.BytesRead = source.bytesRead

	log.Debugf("%s: read %d records (%s), emitted %d lines (%s)", j, res.RecordsRead,
		humanize.Bytes(uint64(res.BytesRead)), res.LinesEmitted, humanize.Bytes(uint64(res.BytesWritten)))
	return res, err
}
