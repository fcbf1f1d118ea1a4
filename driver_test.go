package maplejuice

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDriverRunsInputsToStream(t *testing.T) {
	dir := tempDir(t)
	first := writeTempFile(t, dir, "first", "a,1\nb,2\n")
	second := writeTempFile(t, dir, "second", "c,3\n")

	driver := NewDriver(WithKind(MapleUnit), WithInputs(first, second))
	buf := new(bytes.Buffer)
	err := driver.Run(context.Background(), buf)

	assert.Nil(t, err)
	assert.Equal(t, "[a: 1]\n[b: 2]\n[c: 3]\n", buf.String())

	results := driver.Results()
	assert.Len(t, results, 2)
	assert.Equal(t, first, results[0].Input)
	assert.Equal(t, 2, results[0].LinesEmitted)
	assert.Equal(t, 1, results[1].LinesEmitted)
}

func TestDriverShardsToWorkingLocation(t *testing.T) {
	dir := tempDir(t)
	inputs := []string{
		writeTempFile(t, dir, "in0", "[a: 1]\n[b: 2]\n[a: 3]\n"),
		writeTempFile(t, dir, "in1", "[c: 1]\n"),
		writeTempFile(t, dir, "in2", "[a: 1]\n[a: 1]\n"),
	}
	outDir := filepath.Join(dir, "out")

	driver := NewDriver(
		WithKind(JuiceUnit),
		WithInputs(inputs...),
		WithWorkingLocation(outDir),
		WithMaxConcurrency(2),
	)
	err := driver.Run(context.Background(), nil)
	assert.Nil(t, err)

	expected := []string{"[a: 2]\n[b: 1]\n", "[c: 1]\n", "[a: 2]\n"}
	for i, contents := range expected {
		written, err := ioutil.ReadFile(filepath.Join(outDir, partName(JuiceUnit, i)))
		assert.Nil(t, err)
		assert.Equal(t, contents, string(written))
	}

	results := driver.Results()
	assert.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, inputs[i], res.Input)
	}
}

func TestDriverWithoutInputs(t *testing.T) {
	driver := NewDriver(WithKind(MapleUnit))

	err := driver.Run(context.Background(), new(bytes.Buffer))
	assert.ErrorIs(t, err, ErrUsage)
}

func TestDriverPrintsUsageWithoutInputs(t *testing.T) {
	buf := new(bytes.Buffer)
	assert.True(t, NewDriver(WithKind(MapleUnit)).missingInput(buf))
	assert.Equal(t, "Usage: ./maplexec -f input_file -p <pattern>\n", buf.String())

	buf.Reset()
	assert.False(t, NewDriver(WithInputs("in.csv")).missingInput(buf))
	assert.Equal(t, "", buf.String())
}

func TestDriverKeepsGoingAfterFailedInput(t *testing.T) {
	dir := tempDir(t)
	good := writeTempFile(t, dir, "good", "a,1\n")
	missing := filepath.Join(dir, "missing")

	driver := NewDriver(WithKind(MapleUnit), WithInputs(missing, good))
	buf := new(bytes.Buffer)
	err := driver.Run(context.Background(), buf)

	var notFound *FileNotFoundError
	assert.True(t, errors.As(err, &notFound))
	assert.Equal(t, missing, notFound.Path)
	assert.Equal(t, "[a: 1]\n", buf.String())
}

func TestDriverCompositionUsesIndicatorColumn(t *testing.T) {
	path := writeTempFile(t, tempDir(t), "detections.csv", detectionsCSV)

	driver := NewDriver(WithKind(MapleComposition), WithInputs(path), WithJobPattern("Fiber"))
	buf := new(bytes.Buffer)
	err := driver.Run(context.Background(), buf)

	assert.Nil(t, err)
	assert.Equal(t, "[Fiber: Video]\n[Fiber: ]\n[Fiber: Radio]\n", buf.String())
}

func TestDriverStrictMode(t *testing.T) {
	path := writeTempFile(t, tempDir(t), "intermediate", "[a: 1]\nnot a line\n")

	driver := NewDriver(WithKind(JuiceFilter), WithInputs(path), WithStrictMode(true))
	err := driver.Run(context.Background(), new(bytes.Buffer))
	assert.ErrorIs(t, err, ErrMalformedLine)

	driver = NewDriver(WithKind(JuiceFilter), WithInputs(path))
	buf := new(bytes.Buffer)
	err = driver.Run(context.Background(), buf)
	assert.Nil(t, err)
	assert.Equal(t, "[a: 1]\n", buf.String())
}

func TestDriverMaxConcurrencyFloor(t *testing.T) {
	driver := NewDriver(WithMaxConcurrency(0))
	assert.Equal(t, 1, driver.config.MaxConcurrency)
}
