package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/papersift/internal/model"
)

// UpsertResult describes the effect of one Upsert
type UpsertResult struct {
	ID       int64
	Replaced bool // A prior row for the same source file was superseded
}

// Upsert writes rec as the only stored state for its source file.
// The prior document row, if any, is deleted together with its dependent
// rows and the new rows are inserted in the same transaction. The original
// created_at is carried over to the new row.
func (s *Store) Upsert(ctx context.Context, rec *model.OutputRecord) (UpsertResult, error) {
	fail := func(op string, err error) (UpsertResult, error) {
		return UpsertResult{}, &model.PersistenceError{SourceFile: rec.SourceFile, Op: op, Err: err}
	}
	if rec.SourceFile == "" {
		return fail("upsert", errors.New("record has no source file"))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail("begin", err)
	}
	defer tx.Rollback()

	now := formatTime(s.now())
	createdAt := now
	replaced := false

	q, args, err := s.sb.Select("created_at").From("documents").
		Where(sq.Eq{"source_file": rec.SourceFile}).ToSql()
	if err != nil {
		return fail("build lookup", err)
	}
	var prior string
	switch err := tx.QueryRowContext(ctx, q, args...).Scan(&prior); {
	case err == nil:
		createdAt = prior
		replaced = true
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fail("lookup", err)
	}

	if replaced {
		q, args, err = s.sb.Delete("documents").Where(sq.Eq{"source_file": rec.SourceFile}).ToSql()
		if err != nil {
			return fail("build delete", err)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fail("delete", err)
		}
	}

	id, err := s.insertDocument(ctx, tx, rec, createdAt, now)
	if err != nil {
		return fail("insert document", err)
	}
	if err := s.insertKeywords(ctx, tx, id, rec.Keywords); err != nil {
		return fail("insert keywords", err)
	}
	if err := s.insertFindings(ctx, tx, id, rec.Summary.KeyFindings); err != nil {
		return fail("insert key findings", err)
	}
	if err := s.insertScores(ctx, tx, id, rec.Categories); err != nil {
		return fail("insert category scores", err)
	}

	if err := tx.Commit(); err != nil {
		return fail("commit", err)
	}

	s.log.WithFields(logrus.Fields{
		"source_file": rec.SourceFile,
		"id":          id,
		"replaced":    replaced,
	}).Debug("document stored")
	return UpsertResult{ID: id, Replaced: replaced}, nil
}

// ProcessedAt returns the stored processed_at of a source file
func (s *Store) ProcessedAt(ctx context.Context, sourceFile string) (string, bool, error) {
	q, args, err := s.sb.Select("processed_at").From("documents").
		Where(sq.Eq{"source_file": sourceFile}).ToSql()
	if err != nil {
		return "", false, err
	}
	var at string
	err = s.db.QueryRowContext(ctx, q, args...).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return at, true, nil
}

func (s *Store) insertDocument(ctx context.Context, tx *sql.Tx, rec *model.OutputRecord, createdAt, updatedAt string) (int64, error) {
	categories, err := json.Marshal(rec.Categories)
	if err != nil {
		return 0, err
	}
	findings, err := json.Marshal(rec.Summary.KeyFindings)
	if err != nil {
		return 0, err
	}

	var year any
	if rec.Summary.Year != nil {
		year = *rec.Summary.Year
	}

	q, args, err := s.sb.Insert("documents").SetMap(map[string]any{
		"source_file":       rec.SourceFile,
		"processed_at":      formatTime(rec.ProcessedAt),
		"base_filename":     rec.BaseFilename,
		"pdf_title":         rec.Metadata.Title,
		"pdf_author":        rec.Metadata.Author,
		"pdf_pages":         rec.Metadata.Pages,
		"title":             rec.Summary.Title,
		"authors":           strings.Join(rec.Summary.Authors, "; "),
		"year_published":    year,
		"journal":           rec.Summary.Journal,
		"bibtex_citation":   rec.Summary.BibTeX,
		"document_type":     rec.Summary.DocumentType,
		"sample_size":       rec.Summary.SampleSize,
		"method":            rec.Summary.Method,
		"prediction_model":  rec.Summary.PredictionModel,
		"key_takeaways":     rec.Summary.KeyTakeaways,
		"word_count":        rec.WordCount,
		"primary_category":  rec.PrimaryCategory,
		"categories_json":   string(categories),
		"key_findings_json": string(findings),
		"parse_degraded":    rec.ParseDegraded,
		"created_at":        createdAt,
		"updated_at":        updatedAt,
	}).Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, err
	}

	var id int64
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) insertKeywords(ctx context.Context, tx *sql.Tx, id int64, keywords []string) error {
	if len(keywords) == 0 {
		return nil
	}
	ins := s.sb.Insert("keywords").Columns("document_id", "keyword")
	for _, kw := range keywords {
		ins = ins.Values(id, kw)
	}
	return exec(ctx, tx, ins)
}

func (s *Store) insertFindings(ctx context.Context, tx *sql.Tx, id int64, findings model.KeyFindings) error {
	if len(findings) == 0 {
		return nil
	}
	ins := s.sb.Insert("key_findings").Columns("document_id", "finding_name", "finding_description")
	for _, f := range findings {
		ins = ins.Values(id, f.Name, f.Description)
	}
	return exec(ctx, tx, ins)
}

func (s *Store) insertScores(ctx context.Context, tx *sql.Tx, id int64, scores map[string]float64) error {
	if len(scores) == 0 {
		return nil
	}
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	ins := s.sb.Insert("category_scores").Columns("document_id", "category", "score")
	for _, name := range names {
		ins = ins.Values(id, name, scores[name])
	}
	return exec(ctx, tx, ins)
}

func exec(ctx context.Context, tx *sql.Tx, b sq.Sqlizer) error {
	q, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = tx.ExecContext(ctx, q, args...)
	return err
}
