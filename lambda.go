package maplejuice

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/bcongdon/maplejuice/internal/pkg/corfs"
)

// task is the payload of a single job invocation.
type task struct {
	Kind    string `json:"kind"`
	Input   string `json:"input"`
	Output  string `json:"output"`
	Pattern string `json:"pattern,omitempty"`
	Column  string `json:"column,omitempty"`
	Strict  bool   `json:"strict,omitempty"`
}

// runningInLambda infers if the program is running in AWS lambda via inspection of the environment
func runningInLambda() bool {
	expectedEnvVars := []string{"LAMBDA_TASK_ROOT", "AWS_EXECUTION_ENV", "LAMBDA_RUNTIME_DIR"}
	for _, envVar := range expectedEnvVars {
		if os.Getenv(envVar) == "" {
			return false
		}
	}
	return true
}

// handleRequest runs exactly one job and writes its output to task.Output.
func handleRequest(ctx context.Context, t task) (string, error) {
	kind, err := ParseKind(t.Kind)
	if err != nil {
		return "", err
	}
	if t.Output == "" {
		return "", fmt.Errorf("%w: no output location", ErrUsage)
	}

	options := []JobOption{WithStrict(t.Strict)}
	if t.Pattern != "" {
		options = append(options, WithPattern(t.Pattern))
	}
	if t.Column != "" {
		options = append(options, WithColumn(t.Column))
	}
	job, err := NewJob(kind, t.Input, options...)
	if err != nil {
		return "", err
	}

	res, err := runToFile(corfs.InferFilesystem(t.Output), t.Output, job)
	if err != nil {
		log.Errorf("%s", Message(err))
		return "", err
	}
	return fmt.Sprintf("%s: %d lines written to %s", job, res.LinesEmitted, t.Output), nil
}
