package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one unit of batch work
type Job interface {
	// Name identifies the job in outcomes and logs
	Name() string

	// Execute runs the job
	Execute(ctx context.Context) (any, error)
}

// JobFunc adapts a function to a Job
type JobFunc struct {
	name string
	fn   func(ctx context.Context) (any, error)
}

// NewJob creates a named job from a function
func NewJob(name string, fn func(ctx context.Context) (any, error)) *JobFunc {
	return &JobFunc{name: name, fn: fn}
}

// Name returns the job name
func (j *JobFunc) Name() string { return j.name }

// Execute runs the function
func (j *JobFunc) Execute(ctx context.Context) (any, error) { return j.fn(ctx) }

// Outcome is the tagged result of one job: Value on success, Err on failure
type Outcome struct {
	Name     string
	Value    any
	Err      error
	Duration time.Duration
}

// OK reports whether the job succeeded
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Progress is called after each job with its 1-based position
type Progress func(n, total int, o Outcome)

// BatchProcessor runs jobs one at a time and collects their outcomes.
// A failing or panicking job never stops the batch. Once ctx is cancelled
// the remaining jobs are not started and report the context error.
type BatchProcessor struct {
	log      logrus.FieldLogger
	progress Progress
}

// NewBatchProcessor creates a sequential batch processor
func NewBatchProcessor(log logrus.FieldLogger, progress Progress) *BatchProcessor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BatchProcessor{log: log, progress: progress}
}

// Run executes jobs in order and returns one outcome per job
func (b *BatchProcessor) Run(ctx context.Context, jobs []Job) []Outcome {
	outcomes := make([]Outcome, 0, len(jobs))

	for i, job := range jobs {
		var o Outcome
		if err := ctx.Err(); err != nil {
			o = Outcome{Name: job.Name(), Err: fmt.Errorf("not started: %w", err)}
		} else {
			o = b.execute(ctx, job)
		}

		entry := b.log.WithFields(logrus.Fields{
			"job":      o.Name,
			"n":        i + 1,
			"total":    len(jobs),
			"duration": o.Duration.Round(time.Millisecond),
		})
		if o.OK() {
			entry.Debug("job succeeded")
		} else {
			entry.WithError(o.Err).Warn("job failed")
		}

		outcomes = append(outcomes, o)
		if b.progress != nil {
			b.progress(i+1, len(jobs), o)
		}
	}

	return outcomes
}

func (b *BatchProcessor) execute(ctx context.Context, job Job) (o Outcome) {
	o.Name = job.Name()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.Value = nil
			o.Err = fmt.Errorf("panic: %v", r)
		}
		o.Duration = time.Since(start)
	}()

	o.Value, o.Err = job.Execute(ctx)
	return o
}

// Failed returns the outcomes that carry an error
func Failed(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// ReadListFile reads entries from a file (one per line).
// Blank lines and lines starting with # are skipped; duplicates are dropped.
func ReadListFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			entries = append(entries, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return entries, nil
}
