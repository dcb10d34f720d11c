package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/papersift/internal/model"
	"github.com/ppiankov/papersift/internal/worker"
)

// FileOutcome is the tagged result of one document in a batch.
// Result may be set even when Err is, if artifacts were written before a storage failure.
type FileOutcome struct {
	Source   string
	Result   *Result
	Err      error
	Duration time.Duration
}

// OK reports whether the document was fully processed
func (o FileOutcome) OK() bool {
	return o.Err == nil
}

// BatchReport collects the outcomes of one batch run
type BatchReport struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Outcomes []FileOutcome
}

// Succeeded returns the results of documents processed without error
func (r *BatchReport) Succeeded() []*Result {
	var out []*Result
	for _, o := range r.Outcomes {
		if o.OK() && o.Result != nil {
			out = append(out, o.Result)
		}
	}
	return out
}

// Failed returns the outcomes that carry an error
func (r *BatchReport) Failed() []FileOutcome {
	var out []FileOutcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Records returns every record whose artifacts were written, in batch order
func (r *BatchReport) Records() []*model.OutputRecord {
	var out []*model.OutputRecord
	for _, o := range r.Outcomes {
		if o.Result != nil && o.Result.Record != nil {
			out = append(out, o.Result.Record)
		}
	}
	return out
}

// Duration returns the wall time of the run
func (r *BatchReport) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// BatchProgress is called after each document with its 1-based position
type BatchProgress func(n, total int, o FileOutcome)

// ProcessAll processes sources one at a time. A failing document never
// stops the batch; cancellation leaves the remaining sources unprocessed
// and reported as failed.
func (p *Pipeline) ProcessAll(ctx context.Context, sources []string, progress BatchProgress) *BatchReport {
	report := &BatchReport{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
	log := p.log.WithField("run", report.RunID)
	log.WithField("documents", len(sources)).Info("Batch started")

	jobs := make([]worker.Job, 0, len(sources))
	for _, src := range sources {
		src := src
		jobs = append(jobs, worker.NewJob(src, func(ctx context.Context) (any, error) {
			return p.ProcessFile(ctx, src)
		}))
	}

	bp := worker.NewBatchProcessor(log, func(n, total int, o worker.Outcome) {
		fo := toFileOutcome(o)
		report.Outcomes = append(report.Outcomes, fo)
		if progress != nil {
			progress(n, total, fo)
		}
	})
	bp.Run(ctx, jobs)

	report.Finished = time.Now()
	log.WithFields(logrus.Fields{
		"succeeded": len(report.Succeeded()),
		"failed":    len(report.Failed()),
		"duration":  report.Duration().Round(time.Millisecond),
	}).Info("Batch finished")
	return report
}

// ProcessDirectory processes every PDF directly inside dir, in name order
func (p *Pipeline) ProcessDirectory(ctx context.Context, dir string, progress BatchProgress) (*BatchReport, error) {
	sources, err := CollectPDFs(dir)
	if err != nil {
		return nil, err
	}
	return p.ProcessAll(ctx, sources, progress), nil
}

// CollectPDFs lists the .pdf files directly inside dir, sorted by name
func CollectPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func toFileOutcome(o worker.Outcome) FileOutcome {
	fo := FileOutcome{
		Source:   o.Name,
		Err:      o.Err,
		Duration: o.Duration,
	}
	if res, ok := o.Value.(*Result); ok && res != nil {
		fo.Result = res
	}
	return fo
}
