package maplejuice

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	cmap "github.com/orcaman/concurrent-map/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/semaphore"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/bcongdon/maplejuice/internal/pkg/corfs"
)

const usage = "Usage: ./maplexec -f input_file -p <pattern>"

// Driver runs one kind of job over one or more inputs. Each input is an
// independent job; the driver only fans them out and collects results.
type Driver struct {
	config  *config
	options []Option
	results cmap.ConcurrentMap[string, Result]
}

// config configures a Driver's execution of jobs
type config struct {
	Kind            Kind
	Inputs          []string
	Pattern         string
	Column          string
	IndicatorColumn string
	Query           string
	Strict          bool
	Cleanup         bool
	MaxConcurrency  int
	WorkingLocation string
}

func newConfig() *config {
	loadConfig() // Load viper config from settings file(s) and environment

	c := &config{
		Inputs:          []string{},
		Pattern:         viper.GetString("pattern"),
		Column:          viper.GetString("column"),
		IndicatorColumn: viper.GetString("indicator_column"),
		Query:           viper.GetString("query"),
		Strict:          viper.GetBool("strict"),
		Cleanup:         viper.GetBool("cleanup"),
		MaxConcurrency:  viper.GetInt("max_concurrency"),
		WorkingLocation: viper.GetString("working_location"),
	}
	if name := viper.GetString("kind"); name != "" {
		kind, err := ParseKind(name)
		if err != nil {
			log.Warnf("Ignoring configured kind: %s", err)
		} else {
			c.Kind = kind
		}
	}
	if input := viper.GetString("inputfile"); input != "" {
		c.Inputs = append(c.Inputs, input)
	}
	SetPatternCacheSize(viper.GetInt("pattern_cache_size"))
	return c
}

// Option allows configuration of a Driver
type Option func(*config)

// NewDriver creates a new Driver with optional configuration. Options take
// precedence over config files, environment variables and flags.
func NewDriver(options ...Option) *Driver {
	d := &Driver{
		options: options,
		results: cmap.New[Result](),
	}
	d.configure()
	return d
}

func (d *Driver) configure() {
	c := newConfig()
	for _, f := range d.options {
		f(c)
	}

	if c.MaxConcurrency < 1 {
		log.Warnf("Invalid max concurrency %d, running inputs one at a time", c.MaxConcurrency)
		c.MaxConcurrency = 1
	}

	d.config = c
	log.Debugf("Loaded config: %#v", c)
}

// WithKind sets the kind of job the Driver runs
func WithKind(kind Kind) Option {
	return func(c *config) {
		c.Kind = kind
	}
}

// WithInputs adds input files to the Driver
func WithInputs(inputs ...string) Option {
	return func(c *config) {
		c.Inputs = append(c.Inputs, inputs...)
	}
}

// WithJobPattern sets the filter expression or composition literal
func WithJobPattern(pattern string) Option {
	return func(c *config) {
		c.Pattern = pattern
	}
}

// WithJobColumn sets the join or indicator column
func WithJobColumn(column string) Option {
	return func(c *config) {
		c.Column = column
	}
}

// WithStrictMode makes malformed input fail jobs and the process exit status
func WithStrictMode(strict bool) Option {
	return func(c *config) {
		c.Strict = strict
	}
}

// WithMaxConcurrency bounds how many inputs run at once
func WithMaxConcurrency(n int) Option {
	return func(c *config) {
		c.MaxConcurrency = n
	}
}

// WithWorkingLocation sets the output location and filesystem backend of the Driver.
// An empty location writes to the Driver's output stream instead.
func WithWorkingLocation(location string) Option {
	return func(c *config) {
		c.WorkingLocation = location
	}
}

// WithCleanup controls removal of intermediate files written by queries
func WithCleanup(cleanup bool) Option {
	return func(c *config) {
		c.Cleanup = cleanup
	}
}

// jobOptions translates the driver config into the parameters of its kind.
func (c *config) jobOptions() []JobOption {
	options := []JobOption{WithStrict(c.Strict)}
	switch c.Kind {
	case MapleFilter:
		options = append(options, WithPattern(c.Pattern))
	case MapleJoinColumn:
		options = append(options, WithColumn(c.Column))
	case MapleComposition:
		column := c.Column
		if column == "" {
			column = c.IndicatorColumn
		}
		options = append(options, WithPattern(c.Pattern), WithColumn(column))
	}
	return options
}

func partName(kind Kind, index int) string {
	return fmt.Sprintf("%s-part-%d", kind, index)
}

// Results returns the result of every input run so far, in input order.
func (d *Driver) Results() []Result {
	results := make([]Result, 0, d.results.Count())
	for i := range d.config.Inputs {
		if res, ok := d.results.Get(partName(d.config.Kind, i)); ok {
			results = append(results, res)
		}
	}
	return results
}

// Run runs the configured job over every input.
//
// Without a working location inputs run one after another and write to out.
// With one, each input writes its own "<kind>-part-<n>" file there, and up to
// MaxConcurrency inputs run at the same time.
func (d *Driver) Run(ctx context.Context, out io.Writer) error {
	if len(d.config.Inputs) == 0 {
		return ErrUsage
	}

	jobs := make([]*Job, len(d.config.Inputs))
	for i, input := range d.config.Inputs {
		job, err := NewJob(d.config.Kind, input, d.config.jobOptions()...)
		if err != nil {
			return err
		}
		jobs[i] = job
	}
	log.Debugf("Running %s over %d inputs", d.config.Kind, len(jobs))

	if d.config.WorkingLocation == "" {
		return d.runSequential(jobs, out)
	}
	return d.runShards(ctx, jobs)
}

func (d *Driver) runSequential(jobs []*Job, out io.Writer) error {
	errs := make(JobErrors, 0)
	for i, job := range jobs {
		res, err := job.Run(out)
		d.results.Set(partName(job.Kind(), i), res)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs.orNil()
}

func (d *Driver) runShards(ctx context.Context, jobs []*Job) error {
	fs := corfs.InferFilesystem(d.config.WorkingLocation)

	bar := pb.New(len(jobs)).Prefix(d.config.Kind.String())
	bar.Output = os.Stderr
	bar.Start()

	var wg sync.WaitGroup
	var mut sync.Mutex
	errs := make(JobErrors, 0)
	sem := semaphore.NewWeighted(int64(d.config.MaxConcurrency))
	for i, job := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			mut.Lock()
			errs = append(errs, err)
			mut.Unlock()
			break
		}
		wg.Add(1)
		go func(index int, j *Job) {
			defer wg.Done()
			defer sem.Release(1)
			defer bar.Increment()

			name := partName(j.Kind(), index)
			res, err := runToFile(fs, fs.Join(d.config.WorkingLocation, name), j)
			d.results.Set(name, res)
			if err != nil {
				log.Errorf("Error when running %s: %s", j, err)
				mut.Lock()
				errs = append(errs, err)
				mut.Unlock()
			}
		}(i, job)
	}
	wg.Wait()
	bar.Finish()

	return errs.orNil()
}

// runToFile runs job with its output written to path on fs.
func runToFile(fs corfs.FileSystem, path string, job *Job) (Result, error) {
	writer, err := fs.OpenWriter(path)
	if err != nil {
		return Result{Kind: job.Kind(), Input: job.Input()}, err
	}

	res, err := job.Run(writer)
	if closeErr := writer.Close(); err == nil {
		err = closeErr
	}
	return res, err
}

// JobErrors collects the failures of independent jobs.
type JobErrors []error

func (e JobErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e JobErrors) Unwrap() []error {
	return e
}

// orNil returns nil for no errors and the sole error unchanged for one.
func (e JobErrors) orNil() error {
	switch len(e) {
	case 0:
		return nil
	case 1:
		return e[0]
	}
	return e
}

var (
	kindFlag    = pflag.StringP("kind", "k", "", "job kind: maple_unit, maple_filter, maple_join, maple_composition, juice_unit, juice_filter, juice_join or juice_composition")
	inputFlag   = pflag.StringP("inputfile", "f", "", "input file (local path or s3://bucket/key)")
	patternFlag = pflag.StringP("pattern", "p", "", "filter expression, or composition literal")
	columnFlag  = pflag.StringP("column", "c", "", "join column, or composition indicator column")
	outputDir   = pflag.StringP("out", "o", "", "output directory (local or s3); stdout when empty")
	queryFlag   = pflag.StringP("query", "q", "", "run a query such as \"SELECT ALL FROM <dataset> WHERE <regex>\"")
	strictFlag  = pflag.Bool("strict", false, "fail on malformed lines and unknown columns")
	verboseFlag = pflag.BoolP("verbose", "v", false, "debug logging")
)

func bindFlags() {
	bindings := map[string]string{
		"kind":             "kind",
		"inputfile":        "inputfile",
		"pattern":          "pattern",
		"column":           "column",
		"working_location": "out",
		"query":            "query",
		"strict":           "strict",
		"verbose":          "verbose",
	}
	for key, flagName := range bindings {
		viper.BindPFlag(key, pflag.Lookup(flagName))
	}
}

// Main parses command line flags and runs the Driver, or serves job requests
// when running inside AWS Lambda.
func (d *Driver) Main() {
	if runningInLambda() {
		lambda.Start(handleRequest)
		return
	}

	pflag.Parse()
	bindFlags()
	if *kindFlag != "" {
		if _, err := ParseKind(*kindFlag); err != nil {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(1)
		}
	}
	d.configure()
	d.config.Inputs = append(d.config.Inputs, pflag.Args()...)

	if *verboseFlag || viper.GetBool("verbose") {
		log.SetLevel(log.DebugLevel)
	}

	if d.missingInput(os.Stdout) {
		os.Exit(1)
	}

	start := time.Now()
	var err error
	if d.config.Query != "" {
		err = d.runQuery(os.Stdout)
	} else {
		err = d.Run(context.Background(), os.Stdout)
	}
	log.Debugf("Job Execution Time: %s", time.Since(start))

	if err != nil {
		fmt.Fprintln(os.Stderr, Message(err))
		if d.config.Strict {
			os.Exit(1)
		}
	}
}

// missingInput prints the usage line to w when there is nothing to run.
func (d *Driver) missingInput(w io.Writer) bool {
	if len(d.config.Inputs) > 0 || d.config.Query != "" {
		return false
	}
	fmt.Fprintln(w, usage)
	return true
}

func (d *Driver) runQuery(out io.Writer) error {
	query, err := ParseQuery(d.config.Query)
	if err != nil {
		return err
	}
	workDir := d.config.WorkingLocation
	if workDir == "" {
		workDir = os.TempDir()
	}
	return query.Run(workDir, out, QueryOptions{
		Strict:          d.config.Strict,
		Cleanup:         d.config.Cleanup,
		IndicatorColumn: d.config.IndicatorColumn,
	})
}
