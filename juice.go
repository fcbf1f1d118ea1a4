package maplejuice

import (
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// runJuice groups the whole intermediate input and then aggregates it.
// Nothing is emitted before the input has been consumed.
func (j *Job) runJuice(source *recordSource, emitter Emitter) (records int, truncated bool, err error) {
	bag := newKeyedBag()

	_, err = source.each(func(lineNum int, line string) error {
		key, value, err := DecodeLine(line)
		if err != nil {
			if j.strict {
				return fmt.Errorf("%w at line %d of %s: %q", ErrMalformedLine, lineNum, j.input, line)
			}
			log.Warnf("Stopped reading %s at malformed line %d", j.input, lineNum)
			truncated = true
			return errStopReading
		}

		// Composition ratios are computed over values, not keys
		if j.kind == JuiceComposition {
			key, value = value, key
		}
		bag.add(key, value)
		return nil
	})
	if err != nil {
		return bag.total, truncated, err
	}

	log.Debugf("Grouped %d lines of %s under %d keys", bag.total, j.input, bag.len())
	return bag.total, truncated, j.aggregate(bag, emitter)
}

func (j *Job) aggregate(bag *keyedBag, emitter Emitter) error {
	return bag.each(func(key string, values []string) error {
		switch j.kind {
		case JuiceUnit:
			return emitter.Emit(key, strconv.Itoa(len(values)))

		case JuiceFilter:
			for _, value := range values {
				if err := emitter.Emit(key, value); err != nil {
					return err
				}
			}
			return nil

		case JuiceJoin:
			return emitter.Emit(key, strings.Join(values, ","))

		case JuiceComposition:
			ratio := float64(len(values)) / float64(bag.total)
			return emitter.Emit(key, formatRatio(ratio))
		}

		return fmt.Errorf("%s is not a juice job", j.kind)
	})
}

// formatRatio prints the shortest representation of r that round-trips, and
// always marks it as a float ("1.0" rather than "1").
func formatRatio(r float64) string {
	s := strconv.FormatFloat(r, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}
