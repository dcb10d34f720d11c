package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/papersift/internal/model"
	"github.com/ppiankov/papersift/internal/record"
)

// SummarySuffix is the filename suffix of full summary artifacts
const SummarySuffix = "_summary.json"

// SyncReport is the outcome of a directory sync
type SyncReport struct {
	Imported int         // New source files
	Replaced int         // Source files whose stored state was superseded
	Skipped  int         // Already stored with an identical processed_at
	Failed   []FileError // Per-file failures; the rest of the batch still ran
}

// FileError attributes a sync failure to one artifact
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Total returns the number of artifacts examined
func (r *SyncReport) Total() int {
	return r.Imported + r.Replaced + r.Skipped + len(r.Failed)
}

// SyncDirectory imports every full summary artifact found in dir.
// An artifact whose processed_at equals the stored one is skipped; any
// other artifact replaces the stored state of its source file. A failing
// file is recorded and does not stop the sync. Only context cancellation
// and an unreadable directory abort it.
func (s *Store) SyncDirectory(ctx context.Context, dir string) (*SyncReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read output directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), SummarySuffix) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	report := &SyncReport{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		outcome, err := s.syncFile(ctx, path)
		if err != nil {
			s.log.WithField("file", path).WithError(err).Warn("sync failed")
			report.Failed = append(report.Failed, FileError{Path: path, Err: err})
			continue
		}
		switch outcome {
		case syncImported:
			report.Imported++
		case syncReplaced:
			report.Replaced++
		case syncSkipped:
			report.Skipped++
		}
	}

	s.log.WithFields(logrus.Fields{
		"imported": report.Imported,
		"replaced": report.Replaced,
		"skipped":  report.Skipped,
		"failed":   len(report.Failed),
	}).Info("sync complete")
	return report, nil
}

type syncOutcome int

const (
	syncImported syncOutcome = iota
	syncReplaced
	syncSkipped
)

func (s *Store) syncFile(ctx context.Context, path string) (syncOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	rec, err := record.ParseFull(data)
	if err != nil {
		return 0, err
	}

	stored, ok, err := s.ProcessedAt(ctx, rec.SourceFile)
	if err != nil {
		return 0, &model.PersistenceError{SourceFile: rec.SourceFile, Op: "lookup", Err: err}
	}
	if ok && stored == formatTime(rec.ProcessedAt) {
		return syncSkipped, nil
	}

	res, err := s.Upsert(ctx, rec)
	if err != nil {
		return 0, err
	}
	if res.Replaced {
		return syncReplaced, nil
	}
	return syncImported, nil
}
