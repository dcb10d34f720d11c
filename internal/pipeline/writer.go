package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/papersift/internal/model"
	"github.com/ppiankov/papersift/internal/record"
	"github.com/ppiankov/papersift/internal/store"
)

// SimpleSuffix names the simplified artifact next to the full one
const SimpleSuffix = "_simple.json"

// Artifacts are the files written for one record
type Artifacts struct {
	Full   string
	Simple string
}

// Writer writes summary artifacts into an output directory
type Writer struct {
	dir string
}

// NewWriter creates a writer for dir
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

// Paths returns the artifact paths for a base filename
func (w *Writer) Paths(base string) Artifacts {
	return Artifacts{
		Full:   filepath.Join(w.dir, base+store.SummarySuffix),
		Simple: filepath.Join(w.dir, base+SimpleSuffix),
	}
}

// maxBaseSuffix bounds the disambiguation search for a free base name
const maxBaseSuffix = 1000

// Write stores the full and simplified artifacts of rec. Artifacts of the
// same source document are replaced. When another document already owns the
// base name, a numeric suffix (-2, -3, ...) is appended and recorded in
// rec.BaseFilename.
func (w *Writer) Write(rec *model.OutputRecord) (Artifacts, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("create output directory: %w", err)
	}

	base, err := w.resolveBase(rec.BaseFilename, rec.SourceFile)
	if err != nil {
		return Artifacts{}, err
	}
	rec.BaseFilename = base

	full, err := record.MarshalFull(rec)
	if err != nil {
		return Artifacts{}, fmt.Errorf("encode summary: %w", err)
	}
	simple, err := record.MarshalSimple(record.Simplify(rec))
	if err != nil {
		return Artifacts{}, fmt.Errorf("encode simple summary: %w", err)
	}

	paths := w.Paths(base)
	if err := writeFileAtomic(paths.Full, full); err != nil {
		return Artifacts{}, err
	}
	if err := writeFileAtomic(paths.Simple, simple); err != nil {
		return Artifacts{}, err
	}
	return paths, nil
}

// resolveBase returns the first base name, starting at base, that is unused
// or already holds the artifacts of sourceFile. Unreadable artifacts count
// as owned by another document and are never overwritten.
func (w *Writer) resolveBase(base, sourceFile string) (string, error) {
	for n := 1; n <= maxBaseSuffix; n++ {
		candidate := base
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
		data, err := os.ReadFile(w.Paths(candidate).Full)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			continue
		}
		if existing, err := record.ParseFull(data); err == nil && existing.SourceFile == sourceFile {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free artifact name for %s in %s", base, w.dir)
}

// writeFileAtomic writes through a temporary file so readers never see a partial artifact
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
