package maplejuice

import (
	"fmt"
	"strings"
)

// Stage distinguishes map-side (maple) jobs from reduce-side (juice) jobs.
type Stage int

const (
	MapleStage Stage = iota
	JuiceStage
)

func (s Stage) String() string {
	if s == MapleStage {
		return "maple"
	}
	return "juice"
}

// Kind identifies one job variant.
type Kind int

// Maple kinds read raw records; juice kinds read intermediate lines.
const (
	MapleUnit        Kind = iota // key on the first field, join the rest with "_"
	MapleFilter                  // like MapleUnit for lines matching a regexp, rest joined with ","
	MapleJoinColumn              // key on a named CSV column
	MapleComposition             // emit the column before an indicator column when it equals a literal
	JuiceUnit                    // count values per key
	JuiceFilter                  // re-emit every value under its key
	JuiceJoin                    // join all values of a key with ","
	JuiceComposition             // ratio of each value over all lines
)

var kindNames = map[Kind]string{
	MapleUnit:        "maple_unit",
	MapleFilter:      "maple_filter",
	MapleJoinColumn:  "maple_join",
	MapleComposition: "maple_composition",
	JuiceUnit:        "juice_unit",
	JuiceFilter:      "juice_filter",
	JuiceJoin:        "juice_join",
	JuiceComposition: "juice_composition",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Stage reports whether k is a maple or a juice kind.
func (k Kind) Stage() Stage {
	if k >= JuiceUnit {
		return JuiceStage
	}
	return MapleStage
}

func (k Kind) valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind resolves a kind from its name, e.g. "maple_filter". Names are
// case-insensitive and may use "-" in place of "_".
func ParseKind(name string) (Kind, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for kind, kindName := range kindNames {
		if kindName == normalized {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown job kind %q", name)
}
