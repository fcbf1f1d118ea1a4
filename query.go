package maplejuice

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bcongdon/maplejuice/internal/pkg/corfs"
)

var (
	joinQuery        = regexp.MustCompile(`^SELECT ALL FROM (\S+?),\s*(\S+) WHERE (.+?)\s*=\s*(.+)$`)
	filterQuery      = regexp.MustCompile(`^SELECT ALL FROM (\S+) WHERE (.+)$`)
	compositionQuery = regexp.MustCompile(`^COMPOSITION (.+) FROM (\S+)$`)
)

// QueryStage is one maple job of a Query.
type QueryStage struct {
	Kind    Kind
	Input   string
	Pattern string
	Column  string
}

// Query is a small pipeline: one or more maple stages that write to a shared
// intermediate file, followed by one juice job over that file.
type Query struct {
	Name   string
	Maples []QueryStage
	Juice  Kind
}

// QueryOptions configures how a Query runs
type QueryOptions struct {
	Strict          bool
	Cleanup         bool   // remove the intermediate file afterwards
	IndicatorColumn string // column used by composition queries
}

// ParseQuery understands three commands:
//
//	SELECT ALL FROM <dataset> WHERE <regex>
//	SELECT ALL FROM <d1>, <d2> WHERE <d1.column> = <d2.column>
//	COMPOSITION <literal> FROM <dataset>
func ParseQuery(command string) (*Query, error) {
	command = strings.TrimSpace(command)

	if matches := joinQuery.FindStringSubmatch(command); matches != nil {
		left, right := matches[1], matches[2]
		return &Query{
			Name: "join",
			Maples: []QueryStage{
				{Kind: MapleJoinColumn, Input: left, Column: conditionColumn(matches[3], left)},
				{Kind: MapleJoinColumn, Input: right, Column: conditionColumn(matches[4], right)},
			},
			Juice: JuiceJoin,
		}, nil
	}

	if matches := filterQuery.FindStringSubmatch(command); matches != nil {
		return &Query{
			Name:   "filter",
			Maples: []QueryStage{{Kind: MapleFilter, Input: matches[1], Pattern: strings.TrimSpace(matches[2])}},
			Juice:  JuiceFilter,
		}, nil
	}

	if matches := compositionQuery.FindStringSubmatch(command); matches != nil {
		return &Query{
			Name:   "composition",
			Maples: []QueryStage{{Kind: MapleComposition, Input: matches[2], Pattern: strings.TrimSpace(matches[1])}},
			Juice:  JuiceComposition,
		}, nil
	}

	return nil, fmt.Errorf("no match found for the input command %q", command)
}

// conditionColumn turns "dataset.column" into "column".
func conditionColumn(condition, dataset string) string {
	condition = strings.TrimSpace(condition)
	if strings.HasPrefix(condition, dataset+".") {
		return strings.TrimPrefix(condition, dataset+".")
	}
	if idx := strings.LastIndex(condition, "."); idx >= 0 {
		return condition[idx+1:]
	}
	return condition
}

func (s QueryStage) options(opts QueryOptions) []JobOption {
	options := []JobOption{WithStrict(opts.Strict)}
	if s.Pattern != "" {
		options = append(options, WithPattern(s.Pattern))
	}
	column := s.Column
	if column == "" && s.Kind == MapleComposition {
		column = opts.IndicatorColumn
	}
	if column != "" {
		options = append(options, WithColumn(column))
	}
	return options
}

// Run runs the maple stages into an intermediate file under workDir and then
// the juice stage into out.
//
// A failed maple stage does not stop the query unless opts.Strict is set; the
// juice stage runs over whatever was emitted and the failure is returned
// alongside any juice failure.
func (q *Query) Run(workDir string, out io.Writer, opts QueryOptions) error {
	fs := corfs.InferFilesystem(workDir)
	intermediate := fs.Join(workDir, fmt.Sprintf("%s-intermediate-%d", q.Name, time.Now().UnixNano()))

	writer, err := fs.OpenWriter(intermediate)
	if err != nil {
		return err
	}
	if opts.Cleanup {
		defer func() {
			if err := fs.Delete(intermediate); err != nil {
				log.Warnf("Could not remove %s: %s", intermediate, err)
			}
		}()
	}

	errs := make(JobErrors, 0)
	for _, stage := range q.Maples {
		job, err := NewJob(stage.Kind, stage.Input, stage.options(opts)...)
		if err != nil {
			writer.Close()
			return err
		}
		res, err := job.Run(writer)
		log.Debugf("Query %s: %s emitted %d lines", q.Name, job, res.LinesEmitted)
		if err != nil {
			errs = append(errs, err)
			if opts.Strict {
				writer.Close()
				return errs.orNil()
			}
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	juice, err := NewJob(q.Juice, intermediate, WithStrict(opts.Strict), WithFileSystem(fs))
	if err != nil {
		return err
	}
	if _, err := juice.Run(out); err != nil {
		errs = append(errs, err)
	}
	return errs.orNil()
}
