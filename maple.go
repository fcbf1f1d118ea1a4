package maplejuice

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// hasHeader reports whether the first record of a maple input names its columns.
func (j *Job) hasHeader() bool {
	return j.kind == MapleJoinColumn || j.kind == MapleComposition
}

// runMaple emits one intermediate line per selected record, in input order.
func (j *Job) runMaple(source *recordSource, emitter Emitter) (int, error) {
	column := unresolvedColumn

	return source.each(func(lineNum int, line string) error {
		line = strings.TrimSpace(line)
		fields := splitFields(line)

		if lineNum == 1 && j.hasHeader() {
			column = resolveColumn(fields, j.column)
			if column == unresolvedColumn {
				if j.strict {
					return fmt.Errorf("%w: %q in %s", ErrColumnNotFound, j.column, j.input)
				}
				log.Warnf("Column %q not found in header of %s, keying on the last column", j.column, j.input)
			}
			return nil
		}

		key, value, ok, err := j.mapRecord(line, fields, column)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		if !ok {
			return nil
		}
		return emitter.Emit(key, value)
	})
}

// mapRecord derives the key-value pair of a single record. ok is false when
// the record is filtered out.
func (j *Job) mapRecord(line string, fields []string, column int) (key, value string, ok bool, err error) {
	switch j.kind {
	case MapleUnit:
		key = strings.TrimSpace(fields[0])
		value = strings.TrimSpace(strings.Join(fields[1:], "_"))
		return key, value, true, nil

	case MapleFilter:
		if !j.regex.MatchString(line) {
			return "", "", false, nil
		}
		key = strings.TrimSpace(fields[0])
		value = strings.TrimSpace(strings.Join(fields[1:], ","))
		return key, value, true, nil

	case MapleJoinColumn:
		key, found := fieldAt(fields, column)
		if !found {
			return "", "", false, ErrShortRecord
		}
		value = strings.Join(withoutField(fields, column), ",")
		return strings.TrimSpace(key), strings.TrimSpace(value), true, nil

	case MapleComposition:
		indicator, found := fieldAt(fields, column)
		if !found {
			return "", "", false, ErrShortRecord
		}
		if indicator != j.pattern {
			return "", "", false, nil
		}
		preceding, found := fieldAt(fields, column-1)
		if !found {
			return "", "", false, ErrShortRecord
		}
		if strings.TrimSpace(preceding) == "" {
			preceding = ""
		}
		return indicator, preceding, true, nil
	}

	return "", "", false, fmt.Errorf("%s is not a maple job", j.kind)
}
