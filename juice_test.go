package maplejuice

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJuiceUnitGroupsInFirstSeenOrder(t *testing.T) {
	path := writeTempFile(t, tempDir(t), "intermediate", "[a: 1]\n[b: 2]\n[a: 3]\n")

	out, res, err := runJob(t, JuiceUnit, path)

	assert.Nil(t, err)
	assert.Equal(t, "[a: 2]\n[b: 1]\n", out)
	assert.Equal(t, 3, res.RecordsRead)
	assert.False(t, res.Truncated)
}

func TestJuiceUnitCountsBlankRecords(t *testing.T) {
	dir := tempDir(t)
	input := writeTempFile(t, dir, "input", "a,1\n\nb,2\na,3\n")

	intermediate, _, err := runJob(t, MapleUnit, input)
	assert.Nil(t, err)
	assert.Equal(t, "[a: 1]\n[: ]\n[b: 2]\n[a: 3]\n", intermediate)

	path := writeTempFile(t, dir, "intermediate", intermediate)
	out, res, err := runJob(t, JuiceUnit, path)

	assert.Nil(t, err)
	assert.Equal(t, "[a: 2]\n[: 1]\n[b: 1]\n", out)
	assert.Equal(t, 4, res.RecordsRead)
	assert.False(t, res.Truncated)
}

func TestJuiceFilterPassesValuesThrough(t *testing.T) {
	path := writeTempFile(t, tempDir(t), "intermediate", "[a: 1]\n[b: 2]\n[a: 3]\n[a: 1]\n")

	out, _, err := runJob(t, JuiceFilter, path)

	assert.Nil(t, err)
	assert.Equal(t, "[a: 1]\n[a: 3]\n[a: 1]\n[b: 2]\n", out)
}

func TestJuiceTruncatesAtMalformedLine(t *testing.T) {
	path := writeTempFile(t, tempDir(t), "intermediate", "[a: 1]\n[b: 2\n[c: 3]\n")

	out, res, err := runJob(t, JuiceFilter, path)

	assert.Nil(t, err)
	assert.Equal(t, "[a: 1]\n", out)
	assert.True(t, res.Truncated)
	assert.Equal(t, 1, res.RecordsRead)
}

func TestJuiceStrictFailsAtMalformedLine(t *testing.T) {
	path := writeTempFile(t, tempDir(t), "intermediate", "[a: 1]\n[b: 2\n[c: 3]\n")

	out, _, err := runJob(t, JuiceUnit, path, WithStrict(true))

	assert.ErrorIs(t, err, ErrMalformedLine)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, "", out)
}

// Documented quirk, fixed here: the join aggregation used to iterate keys
// only and never emitted the grouped values.
func TestJuiceJoinAfterMapleJoinColumn(t *testing.T) {
	dir := tempDir(t)
	input := writeTempFile(t, dir, "people.csv", "id,name,age\n1,alice,30\n2,bob,25\n3,alice,40")

	intermediate, _, err := runJob(t, MapleJoinColumn, input, WithColumn("name"))
	assert.Nil(t, err)
	assert.Equal(t, "[alice: 1,30]\n[bob: 2,25]\n[alice: 3,40]\n", intermediate)

	path := writeTempFile(t, dir, "intermediate", intermediate)
	out, _, err := runJob(t, JuiceJoin, path)

	assert.Nil(t, err)
	assert.Equal(t, "[alice: 1,30,3,40]\n[bob: 2,25]\n", out)
}

func TestJuiceComposition(t *testing.T) {
	path := writeTempFile(t, tempDir(t), "intermediate",
		"[Fiber: Video]\n[Fiber: Radio]\n[Fiber: Video]\n[Fiber: ]\n")

	out, res, err := runJob(t, JuiceComposition, path)

	assert.Nil(t, err)
	assert.Equal(t, "[Video: 0.5]\n[Radio: 0.25]\n[: 0.25]\n", out)
	assert.Equal(t, 4, res.RecordsRead)
}

func TestJuiceCompositionRatiosSumToOne(t *testing.T) {
	values := []string{"Video", "Radio", "Radio", "Sensor", "Video", "Video", "Camera"}
	lines := make([]string, len(values))
	for i, value := range values {
		lines[i] = EncodeLine(strconv.Itoa(i%3), value)
	}
	path := writeTempFile(t, tempDir(t), "intermediate", strings.Join(lines, "\n")+"\n")

	job, err := NewJob(JuiceComposition, path)
	assert.Nil(t, err)
	buf := new(bytes.Buffer)
	_, err = job.Run(buf)
	assert.Nil(t, err)

	sum := 0.0
	emitted := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, emitted, 4)
	for _, line := range emitted {
		_, ratio, err := DecodeLine(line)
		assert.Nil(t, err)
		r, err := strconv.ParseFloat(ratio, 64)
		assert.Nil(t, err)
		sum += r
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestJuiceFileNotFound(t *testing.T) {
	out, _, err := runJob(t, JuiceUnit, "/does/not/exist")

	assert.Equal(t, "Error: File '/does/not/exist' not found.", Message(err))
	assert.Equal(t, "", out)
}

func TestFormatRatio(t *testing.T) {
	var ratioTests = []struct {
		ratio    float64
		expected string
	}{
		{1, "1.0"},
		{0.5, "0.5"},
		{0.25, "0.25"},
		{1.0 / 3, "0.3333333333333333"},
		{0.00001, "1e-05"},
	}

	for _, test := range ratioTests {
		assert.Equal(t, test.expected, formatRatio(test.ratio))
	}
}
