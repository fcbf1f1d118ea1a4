package maplejuice

import (
	"strings"
)

// reservedChars are the delimiters of the intermediate line format. They are
// never escaped; DecodeLine strips them from keys and values.
const reservedChars = "[]:"

const keyValueSeparator = ": "

var stripReserved = strings.NewReplacer("[", "", "]", "", ":", "")

// EncodeLine renders a key-value pair as an intermediate line, "[key: value]".
// No escaping is performed, so neither key nor value may contain '[', ']' or ':'.
func EncodeLine(key, value string) string {
	return "[" + key + keyValueSeparator + value + "]"
}

// DecodeLine parses an intermediate line produced by EncodeLine.
//
// The line must be wrapped in brackets and contain a ": " separator,
// otherwise ErrMalformedLine is returned. Empty keys and values are valid, so
// the "[: ]" a blank input record maps to decodes as ("", "").
func DecodeLine(line string) (key, value string, err error) {
	line = strings.TrimSpace(line)
	if len(line) < 2 || line[0] != '[' || line[len(line)-1] != ']' {
		return "", "", ErrMalformedLine
	}

	inner := line[1 : len(line)-1]
	sep := strings.Index(inner, keyValueSeparator)
	if sep < 0 {
		return "", "", ErrMalformedLine
	}

	key = stripReserved.Replace(inner[:sep])
	value = stripReserved.Replace(inner[sep+len(keyValueSeparator):])
	return key, value, nil
}

// hasReserved reports whether s would corrupt an intermediate line.
func hasReserved(s string) bool {
	return strings.ContainsAny(s, reservedChars)
}
